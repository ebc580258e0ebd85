package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/trading-academy/internal/accounts"
	"github.com/wolfman30/trading-academy/internal/notify"
	"github.com/wolfman30/trading-academy/internal/observability/metrics"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

type provisioner interface {
	Provision(ctx context.Context, req accounts.ProvisionRequest) (*accounts.ProvisionResult, error)
}

type welcomer interface {
	SendWelcome(ctx context.Context, w notify.WelcomeEmail) error
}

// Service holds the lead use cases shared by the public and admin handlers.
type Service struct {
	repo     Repository
	accounts provisioner
	mailer   welcomer
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

func NewService(repo Repository, p provisioner, mailer welcomer, m *metrics.Metrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, accounts: p, mailer: mailer, metrics: m, logger: logger}
}

// Register validates req and upserts the lead by email.
func (s *Service) Register(ctx context.Context, req *RegisterLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	lead, err := s.repo.Upsert(ctx, req)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveLead(string(lead.Segment))
	s.logger.Info("lead registered", "lead_id", lead.ID, "segment", lead.Segment, "source", lead.Source)
	return lead, nil
}

// UpdateCapital recomputes the segment of an existing lead.
func (s *Service) UpdateCapital(ctx context.Context, req *UpdateCapitalRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	lead, err := s.repo.UpdateCapital(ctx, req.Email, req.Capital)
	if err != nil {
		return nil, err
	}
	s.logger.Info("lead capital updated", "lead_id", lead.ID, "segment", lead.Segment)
	return lead, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Lead, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	return s.repo.List(ctx, filter)
}

// ConvertResult is returned by Convert.
type ConvertResult struct {
	Lead      *Lead             `json:"lead"`
	Profile   *accounts.Profile `json:"profile"`
	Created   bool              `json:"created"`
	EmailSent bool              `json:"email_sent"`
}

// Convert promotes a lead to a member account with the given tier (starter
// by default) and emails the credentials.
func (s *Service) Convert(ctx context.Context, id string, tier accounts.Tier) (*ConvertResult, error) {
	if s.accounts == nil {
		return nil, errors.New("leads: account provisioning not configured")
	}
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Status == StatusConverted {
		return nil, ErrAlreadyConverted
	}
	if tier == accounts.TierNone {
		tier = accounts.TierStarter
	}

	fullName := strings.TrimSpace(lead.FirstName + " " + lead.LastName)
	res, err := s.accounts.Provision(ctx, accounts.ProvisionRequest{Email: lead.Email, FullName: fullName, Tier: tier})
	if err != nil {
		return nil, fmt.Errorf("leads: provision: %w", err)
	}
	if err := s.repo.MarkConverted(ctx, lead.ID, res.Profile.ID); err != nil {
		return nil, err
	}
	lead.Status = StatusConverted
	lead.ProfileID = res.Profile.ID

	out := &ConvertResult{Lead: lead, Profile: res.Profile, Created: res.Created}
	if s.mailer != nil {
		err := s.mailer.SendWelcome(ctx, notify.WelcomeEmail{
			To:           res.Profile.Email,
			Name:         lead.FirstName,
			Tier:         string(res.Profile.License),
			TempPassword: res.TempPassword,
		})
		if err != nil {
			s.logger.Error("welcome email failed", "error", err, "lead_id", lead.ID, "profile_id", res.Profile.ID)
		} else {
			out.EmailSent = true
		}
	}
	s.logger.Info("lead converted", "lead_id", lead.ID, "profile_id", res.Profile.ID, "created", res.Created)
	return out, nil
}
