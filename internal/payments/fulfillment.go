package payments

import (
	"context"
	"fmt"

	"github.com/wolfman30/trading-academy/internal/accounts"
	"github.com/wolfman30/trading-academy/internal/notify"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

// Order is the part of a completed checkout session needed to grant access.
type Order struct {
	EventID     string
	SessionID   string
	Email       string
	Name        string
	Tier        accounts.Tier
	PriceID     string
	AmountTotal int64
	Currency    string
}

type provisioner interface {
	Provision(ctx context.Context, req accounts.ProvisionRequest) (*accounts.ProvisionResult, error)
}

type welcomer interface {
	SendWelcome(ctx context.Context, w notify.WelcomeEmail) error
}

// FulfillmentService provisions the buyer, records the purchase and sends
// the welcome email.
type FulfillmentService struct {
	accounts  provisioner
	purchases PurchaseRepository
	mailer    welcomer
	logger    *logging.Logger
}

func NewFulfillmentService(p provisioner, purchases PurchaseRepository, mailer welcomer, logger *logging.Logger) *FulfillmentService {
	if logger == nil {
		logger = logging.Default()
	}
	return &FulfillmentService{accounts: p, purchases: purchases, mailer: mailer, logger: logger}
}

// Fulfill grants o.Tier to o.Email. A session recorded earlier is not
// emailed again. Email failures are logged and do not fail the order.
func (s *FulfillmentService) Fulfill(ctx context.Context, o Order) (*accounts.ProvisionResult, error) {
	res, err := s.accounts.Provision(ctx, accounts.ProvisionRequest{Email: o.Email, FullName: o.Name, Tier: o.Tier})
	if err != nil {
		return nil, fmt.Errorf("payments: provision: %w", err)
	}

	created, err := s.purchases.Record(ctx, &Purchase{
		ProfileID:       res.Profile.ID,
		Email:           res.Profile.Email,
		Tier:            string(o.Tier),
		PriceID:         o.PriceID,
		StripeSessionID: o.SessionID,
		StripeEventID:   o.EventID,
		AmountTotal:     o.AmountTotal,
		Currency:        o.Currency,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		s.logger.Info("purchase already recorded", "stripe_session_id", o.SessionID, "profile_id", res.Profile.ID)
		return res, nil
	}

	if s.mailer != nil {
		name := o.Name
		if name == "" {
			name = res.Profile.FullName
		}
		if err := s.mailer.SendWelcome(ctx, notify.WelcomeEmail{
			To:           res.Profile.Email,
			Name:         name,
			Tier:         string(res.Profile.License),
			TempPassword: res.TempPassword,
		}); err != nil {
			s.logger.Error("welcome email failed", "error", err, "profile_id", res.Profile.ID)
		}
	}

	s.logger.Info("checkout fulfilled",
		"profile_id", res.Profile.ID,
		"tier", o.Tier,
		"created", res.Created,
		"upgraded", res.Upgraded,
		"stripe_session_id", o.SessionID,
	)
	return res, nil
}
