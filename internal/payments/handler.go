package payments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/wolfman30/trading-academy/internal/http/respond"
	"github.com/wolfman30/trading-academy/internal/validation"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

// Handler serves the public checkout endpoint and the admin purchase list.
type Handler struct {
	checkout  *CheckoutService
	purchases PurchaseRepository
	logger    *logging.Logger
}

func NewHandler(checkout *CheckoutService, purchases PurchaseRepository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{checkout: checkout, purchases: purchases, logger: logger}
}

// Checkout handles POST /checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.checkout.Create(r.Context(), &req)
	if err != nil {
		if fe, ok := validation.AsFieldError(err); ok {
			respond.Validation(w, fe)
			return
		}
		switch {
		case errors.Is(err, ErrUnknownPrice):
			respond.Error(w, http.StatusBadRequest, "unknown price")
		case errors.Is(err, ErrCheckoutUnavailable):
			respond.Error(w, http.StatusBadGateway, "payment provider unavailable, please try again later")
		default:
			h.logger.Error("checkout failed", "error", err)
			respond.Error(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// ListPurchases handles GET /admin/purchases?limit=&offset=.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	rows, err := h.purchases.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list purchases failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rows == nil {
		rows = []*Purchase{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"purchases": rows, "count": len(rows)})
}
