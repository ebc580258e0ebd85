package notify

import (
	"context"
	"io"

	"github.com/wolfman30/trading-academy/pkg/logging"
	"gopkg.in/gomail.v2"
)

type smtpDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig holds configuration for a plain SMTP relay.
type SMTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromEmail string
	FromName  string
}

// SMTPSender sends emails through an SMTP relay.
type SMTPSender struct {
	dialer smtpDialer
	from   identity
	logger *logging.Logger
}

// NewSMTPSender returns nil when no host is configured.
func NewSMTPSender(cfg SMTPConfig, logger *logging.Logger) *SMTPSender {
	if cfg.Host == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   newIdentity(cfg.FromEmail, cfg.FromName),
		logger: logger,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	_, span := emailTracer.Start(ctx, "notify.smtp")
	defer span.End()

	if err := s.dialer.DialAndSend(buildMIME(s.from, msg)); err != nil {
		span.RecordError(err)
		s.logger.Error("smtp send failed", "error", err, "to", msg.To)
		return sendFailed("smtp", err)
	}
	s.logger.Info("email sent", "provider", "smtp", "to", msg.To)
	return nil
}

// buildMIME renders msg as a multipart message. SES raw sends reuse it.
func buildMIME(from identity, msg EmailMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", from.Email, from.Name)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	for _, att := range msg.Attachments {
		data := att.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if att.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {att.ContentType}}))
		}
		m.Attach(att.Filename, settings...)
	}
	return m
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*SESSender)(nil)
	_ EmailSender = (*SMTPSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
