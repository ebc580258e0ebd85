package support

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/trading-academy/internal/http/respond"
	"github.com/wolfman30/trading-academy/internal/listing"
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

// Create handles the public POST /contact.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := h.svc.Submit(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]string{"id": m.ID})
}

// AdminRoutes mounts /admin/support-messages.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p := listing.FromRequest(r, Schema)
	rows, err := h.svc.List(r.Context(), p)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"messages": rows, "limit": p.Limit, "offset": p.Offset})
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := respond.Decode(w, r, &body); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, m)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if fe, ok := validation.AsFieldError(err); ok {
		respond.Validation(w, fe)
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, "message not found")
	case errors.Is(err, ErrInvalidStatus):
		respond.Error(w, http.StatusBadRequest, "unknown status")
	default:
		h.logger.Error("support request failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
