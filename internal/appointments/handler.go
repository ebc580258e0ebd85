package appointments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/trading-academy/internal/http/respond"
	"github.com/wolfman30/trading-academy/internal/validation"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

// Handler serves the public booking form and the admin appointments page.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates an appointments handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /appointments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.svc.Submit(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, out)
}

// ListResponse wraps an admin listing.
type ListResponse struct {
	Requests []*Request `json:"requests"`
	Count    int        `json:"count"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}

// List handles GET /admin/appointments?status=&limit=&offset=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Status: Status(q.Get("status"))}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = v
	}
	filter = filter.normalized()

	rows, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, ListResponse{Requests: rows, Count: len(rows), Limit: filter.Limit, Offset: filter.Offset})
}

// Get handles GET /admin/appointments/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

type statusBody struct {
	Status Status `json:"status"`
}

// UpdateStatus handles PATCH /admin/appointments/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := respond.Decode(w, r, &body); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

type notesBody struct {
	AdminNotes string `json:"admin_notes"`
}

// UpdateNotes handles PATCH /admin/appointments/{id}/notes.
func (h *Handler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	var body notesBody
	if err := respond.Decode(w, r, &body); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.svc.UpdateNotes(r.Context(), chi.URLParam(r, "id"), body.AdminNotes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// Delete handles DELETE /admin/appointments/{id}.
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
		respond.Error(w, http.StatusNotFound, "appointment request not found")
	case errors.Is(err, ErrInvalidStatus):
		respond.Error(w, http.StatusBadRequest, "unknown status")
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(w, http.StatusConflict, "status transition not allowed")
	default:
		h.logger.Error("appointments request failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
