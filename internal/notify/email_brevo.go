package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	brevo "github.com/getbrevo/brevo-go/lib"

	"github.com/bundlebooth/booking-services/pkg/logging"
)

// BrevoSender sends transactional email through the Brevo API client.
type BrevoSender struct {
	client    *brevo.APIClient
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// BrevoConfig holds configuration for Brevo.
type BrevoConfig struct {
	APIKey    string
	BaseURL   string // defaults to https://api.brevo.com
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// NewBrevoSender returns nil when no API key is configured.
func NewBrevoSender(cfg BrevoConfig, logger *logging.Logger) *BrevoSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.brevo.com"
	}
	if cfg.FromName == "" {
		cfg.FromName = "BundleBooth"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	apiCfg := brevo.NewConfiguration()
	apiCfg.AddDefaultHeader("api-key", cfg.APIKey)
	apiCfg.BasePath = strings.TrimRight(cfg.BaseURL, "/") + "/v3"
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &BrevoSender{
		client:    brevo.NewAPIClient(apiCfg),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *BrevoSender) Name() string { return "brevo" }

// Send submits msg as a transactional email. One attempt, no retry.
func (s *BrevoSender) Send(ctx context.Context, msg EmailMessage) (*SendResult, error) {
	ctx, span := notifyTracer.Start(ctx, "brevo.send")
	defer span.End()

	email := brevo.SendSmtpEmail{
		Sender:      &brevo.SendSmtpEmailSender{Email: s.fromEmail, Name: s.fromName},
		To:          []brevo.SendSmtpEmailTo{{Email: msg.To, Name: msg.ToName}},
		Subject:     msg.Subject,
		HtmlContent: msg.HTML,
		TextContent: msg.textBody(),
	}
	for _, att := range msg.Attachments {
		email.Attachment = append(email.Attachment, brevo.SendSmtpEmailAttachment{
			Content: base64.StdEncoding.EncodeToString(att.Content),
			Name:    att.Filename,
		})
	}

	created, resp, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		s.logger.Error("brevo send failed", "error", err, "status", status, "to", msg.To)
		return nil, fmt.Errorf("notify: brevo send failed: %w", err)
	}

	s.logger.Info("email sent via brevo", "to", msg.To, "subject", msg.Subject, "message_id", created.MessageId)
	return &SendResult{MessageID: created.MessageId}, nil
}

var _ EmailSender = (*BrevoSender)(nil)
