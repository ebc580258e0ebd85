package newsletter

import (
	"errors"
	"net/http"

	"github.com/wolfman30/trading-academy/internal/http/respond"
	"github.com/wolfman30/trading-academy/internal/validation"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// SubscribeResponse is returned on success.
type SubscribeResponse struct {
	ID        string `json:"id"`
	GuideSent bool   `json:"guide_sent"`
}

// Subscribe handles POST /newsletter/subscribe.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub, err := h.svc.Subscribe(r.Context(), &req)
	if err != nil {
		if fe, ok := validation.AsFieldError(err); ok {
			respond.Validation(w, fe)
			return
		}
		if errors.Is(err, ErrDeliveryFailed) {
			respond.Error(w, http.StatusBadGateway, "subscription saved but the guide could not be sent, please try again later")
			return
		}
		h.logger.Error("newsletter subscribe failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, http.StatusOK, SubscribeResponse{ID: sub.ID, GuideSent: true})
}
