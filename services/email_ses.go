package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/raduhhr/contact-api/config"
	"github.com/raduhhr/contact-api/logger"
	"github.com/raduhhr/contact-api/types"
)

// sesAPI is the slice of the SES v2 client this service uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESEmailService sends the contact notification through AWS SES in the
// configured region.
type SESEmailService struct {
	config  *config.EmailConfig
	client  sesAPI
	metrics *EmailMetrics
}

func NewSESEmailService(ctx context.Context, cfg *config.EmailConfig, reg prometheus.Registerer) (*SESEmailService, error) {
	logger.GetLogger().Infow("Initializing SES email service",
		"from", cfg.FromAddress,
		"region", cfg.AWSRegion)

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	// Static credentials when provided explicitly; otherwise the default
	// chain (env, shared config, instance role) applies.
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESEmailService{
		config:  cfg,
		client:  sesv2.NewFromConfig(awsCfg),
		metrics: newEmailMetrics(reg),
	}, nil
}

func (s *SESEmailService) SendContactEmail(ctx context.Context, data types.ContactEmailData) error {
	start := time.Now()

	msg, err := composeContactEmail(s.config, data)
	if err != nil {
		s.metrics.errorCount.Inc()
		return err
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", msg.FromName, msg.From)),
		Destination: &sestypes.Destination{
			ToAddresses: []string{msg.To},
		},
		ReplyToAddresses: []string{msg.ReplyTo},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(msg.Subject)},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(msg.TextBody)},
					Html: &sestypes.Content{Data: aws.String(msg.HTMLBody)},
				},
			},
		},
	}

	_, err = s.client.SendEmail(ctx, input)
	return observeSend(s.metrics, start, err, config.EmailProviderSES, data)
}
