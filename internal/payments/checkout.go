// Package payments sells portal licenses through Stripe Checkout and turns
// completed sessions into provisioned accounts.
package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/wolfman30/trading-academy/internal/accounts"
	"github.com/wolfman30/trading-academy/internal/validation"
	"github.com/wolfman30/trading-academy/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var stripeTracer = otel.Tracer("academy.internal.payments.stripe")

// Session metadata keys read back by the webhook.
const (
	metadataTier    = "tier"
	metadataPriceID = "price_id"
)

// sessionCreator is satisfied by the stripe-go checkout session client.
type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// CheckoutRequest is the public checkout body.
type CheckoutRequest struct {
	PriceID    string `json:"price_id"`
	Email      string `json:"email"`
	SuccessURL string `json:"success_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
}

func (r *CheckoutRequest) Validate() error {
	r.PriceID = strings.TrimSpace(r.PriceID)
	if err := validation.Required("price_id", r.PriceID); err != nil {
		return err
	}
	if err := validation.Email("email", r.Email); err != nil {
		return err
	}
	r.Email = validation.NormalizeEmail(r.Email)
	return nil
}

// CheckoutResponse carries the hosted checkout page.
type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// CheckoutConfig configures the checkout service. Prices maps a Stripe
// price id to the license tier it sells.
type CheckoutConfig struct {
	SecretKey  string
	Prices     map[string]string
	SuccessURL string
	CancelURL  string
	DryRun     bool
}

// CheckoutService creates Stripe Checkout Sessions for allow-listed prices.
type CheckoutService struct {
	sessions   sessionCreator
	prices     map[string]accounts.Tier
	successURL string
	cancelURL  string
	dryRun     bool
	logger     *logging.Logger
}

// NewCheckoutService builds a service backed by the Stripe API.
func NewCheckoutService(cfg CheckoutConfig, logger *logging.Logger) *CheckoutService {
	client := &checkoutsession.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.SecretKey}
	return newCheckoutService(client, cfg, logger)
}

func newCheckoutService(sessions sessionCreator, cfg CheckoutConfig, logger *logging.Logger) *CheckoutService {
	if logger == nil {
		logger = logging.Default()
	}
	return &CheckoutService{
		sessions:   sessions,
		prices:     parsePrices(cfg.Prices, logger),
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		dryRun:     cfg.DryRun,
		logger:     logger,
	}
}

func parsePrices(raw map[string]string, logger *logging.Logger) map[string]accounts.Tier {
	out := make(map[string]accounts.Tier, len(raw))
	for priceID, name := range raw {
		tier, err := accounts.ParseTier(name)
		if err != nil || tier == accounts.TierNone {
			logger.Warn("ignoring price with unknown tier", "price_id", priceID, "tier", name)
			continue
		}
		out[priceID] = tier
	}
	return out
}

// TierForPrice returns the tier sold by priceID.
func (s *CheckoutService) TierForPrice(priceID string) (accounts.Tier, bool) {
	tier, ok := s.prices[priceID]
	return tier, ok
}

// Create opens a checkout session for req.
func (s *CheckoutService) Create(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	tier, ok := s.prices[req.PriceID]
	if !ok {
		return nil, ErrUnknownPrice
	}

	ctx, span := stripeTracer.Start(ctx, "stripe.create_checkout_session")
	defer span.End()
	span.SetAttributes(
		attribute.String("academy.price_id", req.PriceID),
		attribute.String("academy.tier", string(tier)),
	)

	if s.dryRun {
		fakeID := "cs_dryrun_" + uuid.New().String()[:8]
		s.logger.Info("stripe dry run: skipping checkout session creation", "price_id", req.PriceID, "tier", tier)
		return &CheckoutResponse{
			URL:       fmt.Sprintf("https://checkout.stripe.com/dry-run/%s", fakeID),
			SessionID: fakeID,
		}, nil
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		CustomerEmail: stripe.String(req.Email),
		SuccessURL:    stripe.String(redirectOrDefault(req.SuccessURL, s.successURL)),
		CancelURL:     stripe.String(redirectOrDefault(req.CancelURL, s.cancelURL)),
		Metadata:      map[string]string{metadataTier: string(tier), metadataPriceID: req.PriceID},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{metadataTier: string(tier), metadataPriceID: req.PriceID},
		},
	}
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create session failed")
		s.logger.Error("stripe checkout session failed", "error", err, "price_id", req.PriceID)
		return nil, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}
	if sess == nil || sess.URL == "" {
		span.SetStatus(codes.Error, "missing checkout url")
		return nil, fmt.Errorf("%w: response missing checkout url", ErrCheckoutUnavailable)
	}
	span.SetAttributes(attribute.String("stripe.session_id", sess.ID))
	return &CheckoutResponse{URL: sess.URL, SessionID: sess.ID}, nil
}

// redirectOrDefault keeps a client supplied redirect only when it points at
// the same origin as the configured one.
func redirectOrDefault(candidate, fallback string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return fallback
	}
	c, err := url.Parse(candidate)
	if err != nil {
		return fallback
	}
	f, err := url.Parse(fallback)
	if err != nil || c.Scheme != f.Scheme || c.Host != f.Host {
		return fallback
	}
	return candidate
}
