package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	msgs []EmailMessage
	err  error
}

func (c *captureSender) Send(_ context.Context, msg EmailMessage) error {
	c.msgs = append(c.msgs, msg)
	return c.err
}

func TestMailerSendWelcomeWithPassword(t *testing.T) {
	sender := &captureSender{}
	m := NewMailer(sender, "https://academy.example/login", nil, nil)

	require.NoError(t, m.SendWelcome(context.Background(), WelcomeEmail{
		To: "alice@example.com", Name: "Alice", Tier: "pro", TempPassword: "s3cret-Temp",
	}))
	require.Len(t, sender.msgs, 1)
	msg := sender.msgs[0]
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Contains(t, msg.Body, "s3cret-Temp")
	assert.Contains(t, msg.Body, "PRO")
	assert.Contains(t, msg.HTML, "https://academy.example/login")
}

func TestMailerSendWelcomeUpgradeOmitsPassword(t *testing.T) {
	sender := &captureSender{}
	m := NewMailer(sender, "https://academy.example/login", nil, nil)

	require.NoError(t, m.SendWelcome(context.Background(), WelcomeEmail{To: "bob@example.com", Tier: "elite"}))
	assert.False(t, strings.Contains(sender.msgs[0].Body, "Mot de passe temporaire"))
}

func TestMailerSendGuideAttachesPDF(t *testing.T) {
	sender := &captureSender{}
	m := NewMailer(sender, "", nil, nil)

	require.NoError(t, m.SendGuide(context.Background(), "c@example.com", "", []byte("%PDF-1.4")))
	require.Len(t, sender.msgs[0].Attachments, 1)
	assert.Equal(t, "application/pdf", sender.msgs[0].Attachments[0].ContentType)
}

func TestMailerPropagatesSendError(t *testing.T) {
	m := NewMailer(&captureSender{err: errors.New("quota")}, "", nil, nil)
	assert.Error(t, m.SendGuide(context.Background(), "c@example.com", "", nil))
}

func TestNewMailerDefaultsToStub(t *testing.T) {
	m := NewMailer(nil, "", nil, nil)
	assert.NoError(t, m.SendWelcome(context.Background(), WelcomeEmail{To: "x@example.com", Tier: "starter"}))
}
