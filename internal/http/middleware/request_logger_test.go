package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/trading-academy/pkg/logging"
)

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestRequestLoggerIncludesTraceID(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(logging.NewWithWriter("info", &buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req = req.WithContext(trace.ContextWithSpanContext(req.Context(), sc))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
}
