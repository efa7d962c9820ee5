package types

import (
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/raduhhr/contact-api/errors"
)

// Field length bounds for a contact submission, in characters.
const (
	NameMinLength    = 2
	NameMaxLength    = 100
	EmailMinLength   = 3
	EmailMaxLength   = 254
	MessageMinLength = 10
	MessageMaxLength = 2000
)

// emailPattern is a deliberately conservative RFC 5322-like check. It is a
// spam gate, not a full address parser; anything it rejects would bounce on
// reply anyway.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// ContactRequest is the JSON payload a browser posts from the contact form.
type ContactRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Message        string `json:"message"`
	TurnstileToken string `json:"turnstileToken"`
}

// Trim strips surrounding whitespace from every field. Validation operates on
// the trimmed values.
func (r *ContactRequest) Trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Message = strings.TrimSpace(r.Message)
	r.TurnstileToken = strings.TrimSpace(r.TurnstileToken)
}

// HasAllFields reports whether every field is non-empty after trimming.
func (r *ContactRequest) HasAllFields() bool {
	return r.Name != "" && r.Email != "" && r.Message != "" && r.TurnstileToken != ""
}

// Validate checks field-level rules and returns the first violation as an
// AppError with a specific, user-facing message. Call Trim first.
func (r *ContactRequest) Validate() *apperrors.AppError {
	nameLen := utf8.RuneCountInString(r.Name)
	if nameLen < NameMinLength || nameLen > NameMaxLength {
		return apperrors.ValidationFailed(
			"Name must be between 2 and 100 characters.",
			"name length out of range")
	}

	if len(r.Email) < EmailMinLength || len(r.Email) > EmailMaxLength {
		return apperrors.ValidationFailed(
			"Please provide a valid email address.",
			"email length out of range")
	}
	if strings.ContainsAny(r.Email, "\r\n\t") {
		return apperrors.ValidationFailed(
			"Please provide a valid email address.",
			"email contains control characters")
	}
	if !emailPattern.MatchString(r.Email) {
		return apperrors.ValidationFailed(
			"Please provide a valid email address.",
			"email format invalid")
	}

	msgLen := utf8.RuneCountInString(r.Message)
	if msgLen < MessageMinLength || msgLen > MessageMaxLength {
		return apperrors.ValidationFailed(
			"Message must be between 10 and 2000 characters.",
			"message length out of range")
	}

	return nil
}
