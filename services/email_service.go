package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/raduhhr/contact-api/config"
	"github.com/raduhhr/contact-api/logger"
	"github.com/raduhhr/contact-api/types"
)

// Subject line for every contact notification. Fixed: user input never
// reaches the subject.
const contactEmailSubject = "New Contact Form Submission"

// EmailSender dispatches the contact notification email. Implementations
// exist for Resend and AWS SES; the handler depends only on this interface.
type EmailSender interface {
	SendContactEmail(ctx context.Context, data types.ContactEmailData) error
}

// EmailMetrics tracks dispatch latency and outcomes.
type EmailMetrics struct {
	sendLatency prometheus.Histogram
	errorCount  prometheus.Counter
	sentCount   prometheus.Counter
}

func newEmailMetrics(reg prometheus.Registerer) *EmailMetrics {
	metrics := &EmailMetrics{
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "contact_api_email_send_duration_seconds",
			Help:    "Time taken to send contact emails",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		}),
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contact_api_email_errors_total",
			Help: "Total number of email sending errors",
		}),
		sentCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contact_api_emails_sent_total",
			Help: "Total number of emails sent",
		}),
	}

	reg.MustRegister(metrics.sendLatency)
	reg.MustRegister(metrics.errorCount)
	reg.MustRegister(metrics.sentCount)

	return metrics
}

// NewEmailSender constructs the provider selected by configuration.
func NewEmailSender(ctx context.Context, cfg *config.EmailConfig, reg prometheus.Registerer) (EmailSender, error) {
	switch cfg.Provider {
	case config.EmailProviderResend:
		return NewResendEmailService(cfg, reg), nil
	case config.EmailProviderSES:
		return NewSESEmailService(ctx, cfg, reg)
	default:
		return nil, fmt.Errorf("unknown email provider '%s'", cfg.Provider)
	}
}

// composeContactEmail renders the fixed-subject outbound message. The HTML
// body goes through html/template, which escapes every user-supplied value;
// the text body is embedded verbatim since it is never rendered as markup.
func composeContactEmail(cfg *config.EmailConfig, data types.ContactEmailData) (types.OutboundMessage, error) {
	submittedAt := data.SubmittedAt.UTC().Format(time.RFC3339)

	tmpl, err := template.New("contact").Parse(contactEmailTemplate)
	if err != nil {
		return types.OutboundMessage{}, fmt.Errorf("failed to parse template: %w", err)
	}

	var htmlContent bytes.Buffer
	if err := tmpl.Execute(&htmlContent, map[string]string{
		"Name":        data.Name,
		"Email":       data.Email,
		"Message":     data.Message,
		"SubmittedAt": submittedAt,
		"ClientIP":    data.ClientIP,
		"UserAgent":   data.UserAgent,
	}); err != nil {
		return types.OutboundMessage{}, fmt.Errorf("failed to execute template: %w", err)
	}

	textBody := fmt.Sprintf(
		"New contact form submission\n\nName: %s\nEmail: %s\n\nMessage:\n%s\n\nSubmitted: %s\nIP: %s\nUser-Agent: %s\n",
		data.Name, data.Email, data.Message, submittedAt, data.ClientIP, data.UserAgent)

	return types.OutboundMessage{
		From:     cfg.FromAddress,
		FromName: cfg.FromName,
		To:       cfg.ToAddress,
		ReplyTo:  cfg.ReplyToAddress,
		Subject:  contactEmailSubject,
		TextBody: textBody,
		HTMLBody: htmlContent.String(),
	}, nil
}

func observeSend(metrics *EmailMetrics, start time.Time, err error, provider string, data types.ContactEmailData) error {
	log := logger.GetLogger()
	metrics.sendLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.errorCount.Inc()
		log.Errorw("Failed to send email",
			"error", err,
			"provider", provider,
			"from", logger.MaskEmail(data.Email))
		return fmt.Errorf("email send failed: %w", err)
	}
	metrics.sentCount.Inc()
	log.Infow("Email sent successfully",
		"provider", provider,
		"from", logger.MaskEmail(data.Email))
	return nil
}

// Template constants
const contactEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>New Contact Form Submission</title>
    <style>
        body {
            font-family: 'sans-serif';
            background-color: #f7f7f7;
            color: #333333;
            margin: 0;
            padding: 20px;
        }
        .container {
            max-width: 600px;
            margin: 20px auto;
            background-color: #ffffff;
            padding: 30px;
            border-radius: 12px;
            box-shadow: 0 4px 8px rgba(0, 0, 0, 0.05);
        }
        h1 {
            color: #1a7f64;
            font-size: 24px;
            margin-bottom: 20px;
        }
        .field {
            margin-bottom: 16px;
        }
        .label {
            font-size: 12px;
            text-transform: uppercase;
            color: #777777;
            margin-bottom: 4px;
        }
        .value {
            font-size: 16px;
            line-height: 1.5;
            white-space: pre-wrap;
        }
        .meta {
            margin-top: 24px;
            padding-top: 16px;
            border-top: 1px solid #eeeeee;
            font-size: 12px;
            color: #999999;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>New Contact Form Submission</h1>
        <div class="field">
            <div class="label">Name</div>
            <div class="value">{{.Name}}</div>
        </div>
        <div class="field">
            <div class="label">Email</div>
            <div class="value">{{.Email}}</div>
        </div>
        <div class="field">
            <div class="label">Message</div>
            <div class="value">{{.Message}}</div>
        </div>
        <div class="meta">
            Submitted: {{.SubmittedAt}}<br/>
            IP: {{.ClientIP}}<br/>
            User-Agent: {{.UserAgent}}
        </div>
    </div>
</body>
</html>`
