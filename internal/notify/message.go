// Package notify delivers transactional email (welcome, guide, support
// notices) through whichever provider is configured.
package notify

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/wolfman30/trading-academy/pkg/logging"
	"go.opentelemetry.io/otel"
)

var emailTracer = otel.Tracer("academy.internal.notify")

const defaultFromName = "Trading Academy"

// EmailSender hands one message to a provider.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type EmailMessage struct {
	To          string
	ToName      string
	Subject     string
	Body        string // plain text
	HTML        string // optional
	Attachments []Attachment
}

// Attachment is an in-memory file; the guide PDF is the only one today.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// identity is the From address shared by every provider.
type identity struct {
	Email string
	Name  string
}

func newIdentity(email, name string) identity {
	if name == "" {
		name = defaultFromName
	}
	return identity{Email: email, Name: name}
}

func (id identity) String() string {
	return (&mail.Address{Name: id.Name, Address: id.Email}).String()
}

// StubEmailSender only logs. It backs local runs and tests.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("email suppressed (stub provider)",
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
	)
	return nil
}

func sendFailed(provider string, err error) error {
	return fmt.Errorf("notify: %s send failed: %w", provider, err)
}
