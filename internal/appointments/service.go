package appointments

import (
	"context"
	"errors"

	"github.com/wolfman30/trading-academy/pkg/logging"
)

// Service applies lifecycle rules on top of a Repository.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

// NewService wires a service.
func NewService(repo Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Submit persists a new pending request. The chatbot engine calls it once
// per confirmed booking draft.
func (s *Service) Submit(ctx context.Context, req *CreateRequest) (*Request, error) {
	out, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment request created", "rdv_id", out.ID, "type", out.Type, "source", out.Source)
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Request, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Request, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, filter)
}

// UpdateStatus moves a request along its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (*Request, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == to {
		return current, nil
	}
	if !CanTransition(current.Status, to) {
		return nil, ErrInvalidTransition
	}
	out, err := s.repo.SetStatus(ctx, id, current.Status, to)
	if err != nil {
		if !errors.Is(err, ErrInvalidTransition) && !errors.Is(err, ErrNotFound) {
			s.logger.Error("failed to update appointment status", "error", err, "rdv_id", id)
		}
		return nil, err
	}
	s.logger.Info("appointment status changed", "rdv_id", id, "from", current.Status, "to", to)
	return out, nil
}

func (s *Service) UpdateNotes(ctx context.Context, id, notes string) (*Request, error) {
	return s.repo.SetNotes(ctx, id, notes)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
