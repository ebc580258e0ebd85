package notify

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESConfig struct {
	FromEmail string
	FromName  string
}

// SESSender delivers through SES v2 using the ambient AWS credentials.
type SESSender struct {
	client sesAPI
	from   identity
	logger *logging.Logger
}

func NewSESSender(client *sesv2.Client, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil {
		return nil
	}
	return newSESSender(client, cfg, logger)
}

func newSESSender(client sesAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &SESSender{client: client, from: newIdentity(cfg.FromEmail, cfg.FromName), logger: logger}
}

func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: SES client not configured")
	}
	ctx, span := emailTracer.Start(ctx, "notify.ses")
	defer span.End()

	content, err := sesContent(s.from, msg)
	if err != nil {
		return err
	}
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from.String()),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content:          content,
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error("SES send failed", "error", err, "to", msg.To)
		return sendFailed("SES", err)
	}
	s.logger.Info("email sent", "provider", "ses", "to", msg.To, "message_id", aws.ToString(out.MessageId))
	return nil
}

// sesContent uses the simple API unless the message carries attachments,
// which SES only accepts as raw MIME.
func sesContent(from identity, msg EmailMessage) (*types.EmailContent, error) {
	if len(msg.Attachments) > 0 {
		var buf bytes.Buffer
		if _, err := buildMIME(from, msg).WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("notify: render mime: %w", err)
		}
		return &types.EmailContent{Raw: &types.RawMessage{Data: buf.Bytes()}}, nil
	}

	utf8 := func(s string) *types.Content {
		return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
	}
	body := &types.Body{}
	if msg.Body != "" {
		body.Text = utf8(msg.Body)
	}
	if msg.HTML != "" {
		body.Html = utf8(msg.HTML)
	}
	return &types.EmailContent{Simple: &types.Message{Subject: utf8(msg.Subject), Body: body}}, nil
}
