package types

import "time"

// ContactEmailData carries the validated submission plus request metadata
// into the outbound notification email. Constructed fresh per request, never
// persisted.
type ContactEmailData struct {
	Name        string
	Email       string
	Message     string
	SubmittedAt time.Time
	ClientIP    string
	UserAgent   string
}

// OutboundMessage is a fully composed email ready for a provider: fixed
// sender, recipient, and reply-to from configuration, a fixed subject, and a
// multipart text + HTML body.
type OutboundMessage struct {
	From     string
	FromName string
	To       string
	ReplyTo  string
	Subject  string
	TextBody string
	HTMLBody string
}
