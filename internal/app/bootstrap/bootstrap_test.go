package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pashagolub/pgxmock/v4"

	appconfig "github.com/wolfman30/trading-academy/internal/config"
	"github.com/wolfman30/trading-academy/internal/events"
	"github.com/wolfman30/trading-academy/internal/notify"
	"github.com/wolfman30/trading-academy/internal/ratelimit"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
}

func TestBuildRedisClientPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.New("error"), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	defer client.Close()

	mr.Close()
	if c := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.New("error"), true); c != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestConnectPostgresEmptyURLReturnsNil(t *testing.T) {
	pool, db, err := ConnectPostgres(context.Background(), "  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool != nil || db != nil {
		t.Fatalf("expected nil handles for empty URL")
	}
}

func TestBuildLLMClientSelection(t *testing.T) {
	logger := logging.New("error")

	if _, err := BuildLLMClient(context.Background(), nil, logger); err == nil {
		t.Fatalf("expected error for nil config")
	}

	client, err := BuildLLMClient(context.Background(), &appconfig.Config{LLMProvider: "none"}, logger)
	if err != nil || client != nil {
		t.Fatalf("expected disabled llm, got %v / %v", client, err)
	}

	client, err = BuildLLMClient(context.Background(), &appconfig.Config{LLMProvider: "openai"}, logger)
	if err != nil || client != nil {
		t.Fatalf("expected disabled llm without key, got %v / %v", client, err)
	}

	client, err = BuildLLMClient(context.Background(), &appconfig.Config{LLMProvider: "openai", OpenAIAPIKey: "sk-test"}, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil || client.Provider() != "openai" {
		t.Fatalf("expected openai client, got %v", client)
	}

	if _, err := BuildLLMClient(context.Background(), &appconfig.Config{LLMProvider: "bedrock"}, logger); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestBuildEmailSenderFallsBackToStub(t *testing.T) {
	logger := logging.New("error")

	cases := []struct {
		cfg  appconfig.Config
		want string
	}{
		{appconfig.Config{EmailProvider: "stub"}, "stub"},
		{appconfig.Config{EmailProvider: "sendgrid"}, "stub"},
		{appconfig.Config{EmailProvider: "sendgrid", SendGridAPIKey: "SG.key"}, "sendgrid"},
		{appconfig.Config{EmailProvider: "ses"}, "stub"},
		{appconfig.Config{EmailProvider: "smtp", SMTPHost: "smtp.example.com", SMTPPort: 587}, "smtp"},
		{appconfig.Config{EmailProvider: "carrier-pigeon"}, "stub"},
	}
	for _, tc := range cases {
		cfg := tc.cfg
		sender, provider := BuildEmailSender(&cfg, nil, logger)
		if provider != tc.want {
			t.Errorf("%s: expected provider %s, got %s", tc.cfg.EmailProvider, tc.want, provider)
		}
		if sender == nil {
			t.Errorf("%s: expected non-nil sender", tc.cfg.EmailProvider)
		}
		if provider == "stub" {
			if _, ok := sender.(*notify.StubEmailSender); !ok {
				t.Errorf("%s: expected stub sender, got %T", tc.cfg.EmailProvider, sender)
			}
		}
	}
}

func TestBuildRateLimits(t *testing.T) {
	cfg := &appconfig.Config{RateLimitWindow: time.Minute, RateLimitLeads: 2, RateLimitLeadEmail: 1}

	limits, emailLimiter := BuildRateLimits(cfg, nil)
	if _, ok := limits.Leads.(*ratelimit.MemoryLimiter); !ok {
		t.Fatalf("expected memory limiter for leads, got %T", limits.Leads)
	}
	if limits.Checkout != nil {
		t.Fatalf("expected nil limiter when the limit is zero")
	}
	if emailLimiter == nil {
		t.Fatalf("expected lead email limiter")
	}

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, nil, false)
	defer client.Close()
	limits, _ = BuildRateLimits(cfg, client)
	if _, ok := limits.Leads.(*ratelimit.RedisLimiter); !ok {
		t.Fatalf("expected redis limiter, got %T", limits.Leads)
	}
}

func TestBuildRequiresSecretsInProduction(t *testing.T) {
	if _, err := Build(context.Background(), &appconfig.Config{Env: "production"}, logging.New("error")); err == nil {
		t.Fatalf("expected error without jwt secrets in production")
	}
}

func TestBuildInMemoryServesPublicRoutes(t *testing.T) {
	cfg := &appconfig.Config{
		Env:               "development",
		EmailProvider:     "stub",
		CORSDefaultOrigin: "http://localhost:5173",
		AdminJWTSecret:    "admin",
		MemberJWTSecret:   "member",
	}
	app, err := Build(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close()

	rr := httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("metrics: expected prometheus output, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	body := `{"first_name":"Boot","email":"boot@example.com","capital":5000}`
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/leads/register", strings.NewReader(body)))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"segment":"medium"`) {
		t.Fatalf("register: expected medium lead, got %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/me/wallet", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("economy without database: expected 404, got %d", rr.Code)
	}
}

func TestRunMaintenanceWithoutDatabaseReturns(t *testing.T) {
	done := make(chan struct{})
	go func() {
		(&App{}).RunMaintenance(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected RunMaintenance to return without a processed store")
	}
}

func TestPurgeProcessedUsesRetention(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	app := &App{processed: events.NewProcessedStore(mock), retention: 72 * time.Hour, logger: logging.New("error")}
	mock.ExpectExec("DELETE FROM processed_events WHERE processed_at").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	app.purgeProcessed(context.Background())
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
