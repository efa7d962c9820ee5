package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/raduhhr/contact-api/config"
	"github.com/raduhhr/contact-api/logger"
	"github.com/raduhhr/contact-api/types"
	"github.com/resend/resend-go/v2"
)

// ResendEmailService sends the contact notification through the Resend API.
type ResendEmailService struct {
	config  *config.EmailConfig
	client  *resend.Client
	metrics *EmailMetrics
}

func NewResendEmailService(cfg *config.EmailConfig, reg prometheus.Registerer) *ResendEmailService {
	logger.GetLogger().Infow("Initializing Resend email service",
		"from", cfg.FromAddress,
		"api_key", logger.MaskSensitiveString(cfg.ResendAPIKey, 3, 2))

	return &ResendEmailService{
		config:  cfg,
		client:  resend.NewClient(cfg.ResendAPIKey),
		metrics: newEmailMetrics(reg),
	}
}

func (s *ResendEmailService) SendContactEmail(ctx context.Context, data types.ContactEmailData) error {
	start := time.Now()

	msg, err := composeContactEmail(s.config, data)
	if err != nil {
		s.metrics.errorCount.Inc()
		return err
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", msg.FromName, msg.From),
		To:      []string{msg.To},
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Text:    msg.TextBody,
		Html:    msg.HTMLBody,
	}

	_, err = s.client.Emails.SendWithContext(ctx, params)
	return observeSend(s.metrics, start, err, config.EmailProviderResend, data)
}
