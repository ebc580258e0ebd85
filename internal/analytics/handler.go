package analytics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/trading-academy/internal/http/respond"
	"github.com/wolfman30/trading-academy/internal/validation"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

type overviewer interface {
	Overview(ctx context.Context, days int) (*Dashboard, error)
}

type recorder interface {
	Record(ctx context.Context, b *Batch) (int64, error)
}

type Handler struct {
	dashboard overviewer
	events    recorder
	gatherer  prometheus.Gatherer
	logger    *logging.Logger
}

func NewHandler(dashboard overviewer, events recorder, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{dashboard: dashboard, events: events, logger: logger}
}

// WithRuntime adds the in-process metrics snapshot to dashboard responses.
func (h *Handler) WithRuntime(g prometheus.Gatherer) *Handler {
	h.gatherer = g
	return h
}

// Dashboard handles GET /admin/analytics?days=.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	d, err := h.dashboard.Overview(r.Context(), days)
	if err != nil {
		h.logger.Error("analytics overview failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if h.gatherer != nil {
		snap := SnapshotRuntime(h.gatherer)
		d.Runtime = &snap
	}
	respond.JSON(w, http.StatusOK, d)
}

// Ingest handles POST /analytics/events.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var b Batch
	if err := respond.Decode(w, r, &b); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := h.events.Record(r.Context(), &b)
	if err != nil {
		if fe, ok := validation.AsFieldError(err); ok {
			respond.Validation(w, fe)
			return
		}
		h.logger.Error("analytics ingest failed", "error", err, "session_id", b.SessionID)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, http.StatusAccepted, map[string]int64{"accepted": n})
}
