package newsletter

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/trading-academy/pkg/logging"
)

// ErrDeliveryFailed means the subscriber was saved but the guide email was
// not accepted by the provider.
var ErrDeliveryFailed = errors.New("newsletter: guide delivery failed")

type guideSender interface {
	SendGuide(ctx context.Context, to, name string, pdf []byte) error
}

type guideArchiver interface {
	ArchiveGuide(ctx context.Context, subscriberID, email string, pdf []byte) (string, error)
}

// Service subscribes visitors and delivers the guide.
type Service struct {
	repo    Repository
	mailer  guideSender
	archive guideArchiver
	render  func(name string) ([]byte, error)
	logger  *logging.Logger
}

// NewService wires the subscription flow. archive may be nil.
func NewService(repo Repository, mailer guideSender, archive guideArchiver, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, mailer: mailer, archive: archive, render: RenderGuide, logger: logger}
}

// Subscribe upserts the subscriber, then renders, archives and emails the
// guide. The subscriber row survives a delivery failure.
func (s *Service) Subscribe(ctx context.Context, req *SubscribeRequest) (*Subscriber, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sub, err := s.repo.Upsert(ctx, req)
	if err != nil {
		return nil, err
	}

	pdf, err := s.render(sub.FirstName)
	if err != nil {
		s.logger.Error("guide render failed", "error", err, "subscriber_id", sub.ID)
		return sub, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	var archiveKey string
	if s.archive != nil {
		archiveKey, err = s.archive.ArchiveGuide(ctx, sub.ID, sub.Email, pdf)
		if err != nil {
			s.logger.Warn("guide archive failed", "error", err, "subscriber_id", sub.ID)
			archiveKey = ""
		}
	}

	if err := s.mailer.SendGuide(ctx, sub.Email, sub.FirstName, pdf); err != nil {
		s.logger.Error("guide email failed", "error", err, "subscriber_id", sub.ID)
		return sub, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	if err := s.repo.MarkGuideSent(ctx, sub.ID, archiveKey); err != nil {
		s.logger.Warn("mark guide sent failed", "error", err, "subscriber_id", sub.ID)
	}
	s.logger.Info("newsletter subscription", "subscriber_id", sub.ID, "source", sub.Source, "archived", archiveKey != "")
	return sub, nil
}
