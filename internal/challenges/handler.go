package challenges

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/trading-academy/internal/http/respond"
	"github.com/wolfman30/trading-academy/internal/listing"
	"github.com/wolfman30/trading-academy/internal/validation"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

type store interface {
	List(ctx context.Context, p listing.Params) ([]*Challenge, error)
	Get(ctx context.Context, id string) (*Challenge, error)
	Create(ctx context.Context, in *Input) (*Challenge, error)
	Update(ctx context.Context, id string, in *Input) (*Challenge, error)
	Delete(ctx context.Context, id string) error
}

// Handler serves /admin/challenges.
type Handler struct {
	store  store
	logger *logging.Logger
}

func NewHandler(s store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: s, logger: logger}
}

// Routes mounts the CRUD endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p := listing.FromRequest(r, Schema)
	rows, err := h.store.List(r.Context(), p)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"challenges": rows, "limit": p.Limit, "offset": p.Offset})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.store.Create(r.Context(), &in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), &in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
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
	if errors.Is(err, ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "challenge not found")
		return
	}
	h.logger.Error("challenges request failed", "error", err)
	respond.Error(w, http.StatusInternalServerError, "internal error")
}
