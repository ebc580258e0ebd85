package leads

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/trading-academy/internal/accounts"
	"github.com/wolfman30/trading-academy/internal/http/respond"
	"github.com/wolfman30/trading-academy/internal/ratelimit"
	"github.com/wolfman30/trading-academy/internal/validation"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

// Handler handles HTTP requests for leads
type Handler struct {
	svc          *Service
	emailLimiter ratelimit.Limiter
	logger       *logging.Logger
}

// NewHandler creates a new leads handler. emailLimiter may be nil.
func NewHandler(svc *Service, emailLimiter ratelimit.Limiter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, emailLimiter: emailLimiter, logger: logger}
}

// RegisterResponse is returned by register-lead.
type RegisterResponse struct {
	ID      string  `json:"id"`
	Segment Segment `json:"segment"`
}

// Register handles POST /leads/register requests
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterLeadRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.emailLimiter != nil && validation.IsEmail(req.Email) {
		res, err := h.emailLimiter.Allow(r.Context(), "lead-email:"+validation.NormalizeEmail(req.Email))
		if err != nil {
			h.logger.Warn("lead email rate limit check failed", "error", err)
		} else if !res.Allowed {
			respond.RateLimited(w, res.RetryAfterSeconds())
			return
		}
	}

	lead, err := h.svc.Register(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, RegisterResponse{ID: lead.ID, Segment: lead.Segment})
}

// UpdateCapital handles POST /leads/capital requests
func (h *Handler) UpdateCapital(w http.ResponseWriter, r *http.Request) {
	var req UpdateCapitalRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lead, err := h.svc.UpdateCapital(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, RegisterResponse{ID: lead.ID, Segment: lead.Segment})
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads  []*Lead `json:"leads"`
	Count  int     `json:"count"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

// ListLeads handles GET /admin/leads requests
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	segment, err := ParseSegment(q.Get("segment"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid segment")
		return
	}
	filter := ListFilter{Segment: segment, Status: Status(q.Get("status"))}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = v
	}
	filter = filter.normalized()

	leads, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if leads == nil {
		leads = []*Lead{}
	}
	respond.JSON(w, http.StatusOK, ListLeadsResponse{Leads: leads, Count: len(leads), Offset: filter.Offset, Limit: filter.Limit})
}

// GetLead handles GET /admin/leads/{id} requests
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, lead)
}

type convertRequest struct {
	Tier string `json:"tier"`
}

// Convert handles POST /admin/leads/{id}/convert requests
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if r.ContentLength != 0 {
		if err := respond.Decode(w, r, &req); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	tier, err := accounts.ParseTier(req.Tier)
	if err != nil {
		respond.Validation(w, validation.NewFieldError("tier", "must be starter, pro or elite"))
		return
	}
	out, err := h.svc.Convert(r.Context(), chi.URLParam(r, "id"), tier)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if fe, ok := validation.AsFieldError(err); ok {
		respond.Validation(w, fe)
		return
	}
	switch {
	case errors.Is(err, ErrLeadNotFound):
		respond.Error(w, http.StatusNotFound, "lead not found")
	case errors.Is(err, ErrAlreadyConverted):
		respond.Error(w, http.StatusConflict, "lead already converted")
	default:
		h.logger.Error("leads request failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
