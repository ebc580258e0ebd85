package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/wolfman30/trading-academy/internal/accounts"
	"github.com/wolfman30/trading-academy/internal/events"
	"github.com/wolfman30/trading-academy/internal/observability/metrics"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

const (
	eventCheckoutCompleted = "checkout.session.completed"
	dedupeProvider         = "stripe"
	maxWebhookBody         = 1 << 16
)

type fulfiller interface {
	Fulfill(ctx context.Context, o Order) (*accounts.ProvisionResult, error)
}

type priceCatalog interface {
	TierForPrice(priceID string) (accounts.Tier, bool)
}

// WebhookConfig configures StripeWebhookHandler. AllowUnsigned accepts
// unsigned payloads when no secret is set; never enable it in production.
type WebhookConfig struct {
	Secret        string
	AllowUnsigned bool
}

// StripeWebhookHandler handles Stripe webhook events for checkout session completion.
type StripeWebhookHandler struct {
	cfg       WebhookConfig
	deduper   events.Deduper
	fulfiller fulfiller
	prices    priceCatalog
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

func NewStripeWebhookHandler(cfg WebhookConfig, deduper events.Deduper, f fulfiller, prices priceCatalog, m *metrics.Metrics, logger *logging.Logger) *StripeWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if deduper == nil {
		deduper = events.NewMemoryDeduper(0)
	}
	return &StripeWebhookHandler{cfg: cfg, deduper: deduper, fulfiller: f, prices: prices, metrics: m, logger: logger}
}

// Handle processes POST /webhooks/stripe.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	evt, ok := h.parseEvent(payload, r.Header.Get("Stripe-Signature"))
	if !ok {
		h.metrics.ObserveWebhook("unknown", "invalid_signature")
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}
	eventType := string(evt.Type)
	if evt.ID == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	if eventType != eventCheckoutCompleted {
		h.metrics.ObserveWebhook(eventType, "ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := r.Context()
	fresh, err := h.deduper.Claim(ctx, dedupeProvider, evt.ID)
	if err != nil {
		h.logger.Error("stripe event claim failed", "error", err, "event_id", evt.ID)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if !fresh {
		h.logger.Info("duplicate stripe event", "event_id", evt.ID)
		h.metrics.ObserveWebhook(eventType, "duplicate")
		w.WriteHeader(http.StatusOK)
		return
	}

	order, skip, err := h.orderFromEvent(evt)
	switch {
	case err != nil:
		h.logger.Warn("stripe checkout session unusable", "error", err, "event_id", evt.ID)
		h.metrics.ObserveWebhook(eventType, "rejected")
		// Acknowledge to prevent retries but can't progress workflow
		w.WriteHeader(http.StatusOK)
		return
	case skip:
		h.release(ctx, evt.ID)
		h.metrics.ObserveWebhook(eventType, "unpaid")
		w.WriteHeader(http.StatusOK)
		return
	}

	if _, err := h.fulfiller.Fulfill(ctx, order); err != nil {
		h.logger.Error("stripe checkout fulfillment failed", "error", err, "event_id", evt.ID, "stripe_session_id", order.SessionID)
		h.release(ctx, evt.ID)
		h.metrics.ObserveWebhook(eventType, "failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveWebhook(eventType, "fulfilled")
	w.WriteHeader(http.StatusOK)
}

func (h *StripeWebhookHandler) parseEvent(payload []byte, signature string) (stripe.Event, bool) {
	if h.cfg.Secret == "" {
		if !h.cfg.AllowUnsigned {
			h.logger.Error("stripe webhook secret not configured")
			return stripe.Event{}, false
		}
		var evt stripe.Event
		if err := json.Unmarshal(payload, &evt); err != nil {
			return stripe.Event{}, false
		}
		h.logger.Warn("accepting unsigned stripe webhook", "event_id", evt.ID)
		return evt, true
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, h.cfg.Secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		h.logger.Warn("stripe signature verification failed", "error", err)
		return stripe.Event{}, false
	}
	return evt, true
}

// orderFromEvent extracts the order. skip is true for sessions that are
// not paid yet (delayed payment methods).
func (h *StripeWebhookHandler) orderFromEvent(evt stripe.Event) (Order, bool, error) {
	if evt.Data == nil {
		return Order{}, false, ErrMissingCustomer
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
		return Order{}, false, err
	}
	if string(sess.PaymentStatus) == "unpaid" {
		return Order{}, true, nil
	}

	email := sess.CustomerEmail
	var name string
	if sess.CustomerDetails != nil {
		if sess.CustomerDetails.Email != "" {
			email = sess.CustomerDetails.Email
		}
		name = sess.CustomerDetails.Name
	}
	if strings.TrimSpace(email) == "" {
		return Order{}, false, ErrMissingCustomer
	}

	priceID := sess.Metadata[metadataPriceID]
	tier, err := accounts.ParseTier(sess.Metadata[metadataTier])
	if err != nil || tier == accounts.TierNone {
		var ok bool
		if h.prices == nil {
			return Order{}, false, ErrUnknownPrice
		}
		if tier, ok = h.prices.TierForPrice(priceID); !ok {
			return Order{}, false, ErrUnknownPrice
		}
	}

	return Order{
		EventID:     evt.ID,
		SessionID:   sess.ID,
		Email:       email,
		Name:        strings.TrimSpace(name),
		Tier:        tier,
		PriceID:     priceID,
		AmountTotal: sess.AmountTotal,
		Currency:    string(sess.Currency),
	}, false, nil
}

func (h *StripeWebhookHandler) release(ctx context.Context, eventID string) {
	if err := h.deduper.Release(ctx, dedupeProvider, eventID); err != nil {
		h.logger.Warn("stripe event release failed", "error", err, "event_id", eventID)
	}
}
