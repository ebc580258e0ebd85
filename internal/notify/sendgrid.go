package notify

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

type sendgridAPI interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender posts messages to the SendGrid v3 mail API.
type SendGridSender struct {
	client sendgridAPI
	from   identity
	logger *logging.Logger
}

// NewSendGridSender returns nil without an API key so callers can fall
// through to the next provider.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   newIdentity(cfg.FromEmail, cfg.FromName),
		logger: logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	ctx, span := emailTracer.Start(ctx, "notify.sendgrid")
	defer span.End()

	resp, err := s.client.SendWithContext(ctx, sendgridMail(s.from, msg))
	if err != nil {
		span.RecordError(err)
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return sendFailed("sendgrid", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected message", "status", resp.StatusCode, "body", resp.Body, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}
	s.logger.Info("email sent", "provider", "sendgrid", "to", msg.To, "status", resp.StatusCode)
	return nil
}

// sendgridMail always sets an HTML part; SendGrid rejects empty content.
func sendgridMail(from identity, msg EmailMessage) *mail.SGMailV3 {
	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	out := mail.NewSingleEmail(
		mail.NewEmail(from.Name, from.Email),
		msg.Subject,
		mail.NewEmail(msg.ToName, msg.To),
		msg.Body,
		html,
	)
	for _, att := range msg.Attachments {
		out.AddAttachment(mail.NewAttachment().
			SetFilename(att.Filename).
			SetType(att.ContentType).
			SetDisposition("attachment").
			SetContent(base64.StdEncoding.EncodeToString(att.Data)))
	}
	return out
}
