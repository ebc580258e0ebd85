package analytics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/trading-academy/internal/observability/metrics"
)

func TestDashboardOverview(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewDashboardStore(db, nil)
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	since := now.AddDate(0, 0, -7)

	mock.ExpectQuery("FROM leads WHERE created_at").WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"segment", "count"}).AddRow("low", 4).AddRow("high", 1))
	mock.ExpectQuery("FROM rdv_requests WHERE created_at").WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("pending", 2))
	mock.ExpectQuery("GROUP BY event_type").WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"event_type", "count"}).AddRow("intent_matched", 6).AddRow("llm_fallback", 2))
	mock.ExpectQuery("FROM chatbot_conversations").WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery("GROUP BY intent_id").WithArgs(since, "intent_matched", topIntentsLimit).
		WillReturnRows(sqlmock.NewRows([]string{"intent_id", "hits"}).AddRow("tarifs", 4).AddRow("horaires", 2))
	mock.ExpectQuery("FROM purchases WHERE created_at").WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(3, int64(89700)))

	h := NewHandler(store, nil, nil)
	rec := httptest.NewRecorder()
	h.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/admin/analytics?days=7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"leads_by_segment":{"high":1,"low":4}`)
	assert.Contains(t, body, `"fallback_rate":0.25`)
	assert.Contains(t, body, `"revenue_cents":89700`)
	assert.Contains(t, body, `"intent_id":"tarifs"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardDatabaseErrorIsGeneric(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("FROM leads").WillReturnError(fmt.Errorf("connection reset by peer"))

	h := NewHandler(NewDashboardStore(db, nil), nil, nil)
	rec := httptest.NewRecorder()
	h.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/admin/analytics", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestIngestCopiesBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.ExpectCopyFrom(pgx.Identifier{"analytics_events"}, eventColumns).WillReturnResult(2)

	h := NewHandler(nil, NewEventStore(mock), nil)
	body := `{"session_id":"sess-1","events":[{"name":"page_view","path":"/tarifs"},{"name":"cta_click","properties":{"plan":"pro"}}]}`
	rec := httptest.NewRecorder()
	h.Ingest(rec, httptest.NewRequest(http.MethodPost, "/analytics/events", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"accepted":2}`, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestRejectsOversizedBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	events := make([]string, MaxBatch+1)
	for i := range events {
		events[i] = `{"name":"page_view"}`
	}
	body := `{"session_id":"sess-1","events":[` + strings.Join(events, ",") + `]}`

	h := NewHandler(nil, NewEventStore(mock), nil)
	rec := httptest.NewRecorder()
	h.Ingest(rec, httptest.NewRequest(http.MethodPost, "/analytics/events", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"events"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchValidate(t *testing.T) {
	b := Batch{SessionID: " s ", Events: []Event{{Name: "  page_view "}}}
	require.NoError(t, b.Validate())
	assert.Equal(t, "s", b.SessionID)
	assert.Equal(t, "page_view", b.Events[0].Name)

	missingName := Batch{SessionID: "s", Events: []Event{{Name: "ok"}, {Name: " "}}}
	err := missingName.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events[1].name")
}

func TestSnapshotRuntime(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	for i := 0; i < 10; i++ {
		m.ObserveLLM("openai", true, 0.3)
	}
	m.ObserveLLM("gemini", false, 9)
	m.ObserveRateLimited("leads")
	m.ObserveRateLimited("leads")
	m.ObserveRateLimited("contact")

	snap := SnapshotRuntime(reg)
	assert.Equal(t, int64(10), snap.LLM.Calls)
	// All samples sit in the (0.25, 0.5] bucket.
	assert.Greater(t, snap.LLM.P50Ms, 250.0)
	assert.LessOrEqual(t, snap.LLM.P95Ms, 500.0)
	assert.Equal(t, 2.0, snap.RateLimited["leads"])
	assert.Equal(t, 1.0, snap.RateLimited["contact"])

	empty := SnapshotRuntime(nil)
	assert.Zero(t, empty.LLM.Calls)
}
