package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/trading-academy/internal/accounts"
	"github.com/wolfman30/trading-academy/internal/analytics"
	"github.com/wolfman30/trading-academy/internal/api/router"
	"github.com/wolfman30/trading-academy/internal/appointments"
	"github.com/wolfman30/trading-academy/internal/archive"
	"github.com/wolfman30/trading-academy/internal/challenges"
	"github.com/wolfman30/trading-academy/internal/chatbot"
	appconfig "github.com/wolfman30/trading-academy/internal/config"
	"github.com/wolfman30/trading-academy/internal/economy"
	"github.com/wolfman30/trading-academy/internal/events"
	httpmiddleware "github.com/wolfman30/trading-academy/internal/http/middleware"
	"github.com/wolfman30/trading-academy/internal/immersion"
	"github.com/wolfman30/trading-academy/internal/leads"
	"github.com/wolfman30/trading-academy/internal/newsletter"
	"github.com/wolfman30/trading-academy/internal/notify"
	"github.com/wolfman30/trading-academy/internal/observability/metrics"
	"github.com/wolfman30/trading-academy/internal/payments"
	"github.com/wolfman30/trading-academy/internal/support"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

// App is the composed HTTP surface plus the resources it holds open.
type App struct {
	Handler http.Handler

	pool      *pgxpool.Pool
	sqlDB     *sql.DB
	redis     *redis.Client
	processed *events.ProcessedStore
	retention time.Duration
	logger    *logging.Logger
}

const maintenanceInterval = time.Hour

// RunMaintenance purges expired webhook claims every hour until ctx ends.
// It returns immediately when there is no database.
func (a *App) RunMaintenance(ctx context.Context) {
	if a == nil || a.processed == nil || a.retention <= 0 {
		return
	}
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()
	for {
		a.purgeProcessed(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) purgeProcessed(ctx context.Context) {
	n, err := a.processed.Purge(ctx, time.Now().Add(-a.retention))
	if err != nil {
		a.logger.Warn("processed events purge failed", "error", err)
		return
	}
	if n > 0 {
		a.logger.Info("processed events purged", "rows", n)
	}
}

// Close releases the database and cache connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// Build wires every store, service and handler from cfg. Without
// DATABASE_URL the public funnel runs on in-memory stores and the
// database-only features (economy, challenges, immersion, support,
// analytics) stay unmounted.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.IsProduction() && (cfg.AdminJWTSecret == "" || cfg.MemberJWTSecret == "") {
		return nil, fmt.Errorf("bootstrap: ADMIN_JWT_SECRET and MEMBER_JWT_SECRET are required in production")
	}

	pool, sqlDB, err := ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	app := &App{pool: pool, sqlDB: sqlDB, retention: cfg.ProcessedRetention, logger: logger}
	if pool == nil {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
	}
	app.redis = BuildRedisClient(ctx, cfg, logger, true)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var awsCfg *aws.Config
	if cfg.EmailProvider == "ses" || cfg.NewsletterArchiveBucket != "" {
		loaded, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		awsCfg = &loaded
	}

	sender, provider := BuildEmailSender(cfg, awsCfg, logger)
	logger.Info("email provider selected", "provider", provider)
	mailer := notify.NewMailer(sender, cfg.PublicBaseURL+"/login", m, logger)

	var accountStore accounts.Store = accounts.NewMemoryStore()
	var appointmentRepo appointments.Repository = appointments.NewMemoryRepository()
	var leadRepo leads.Repository = leads.NewInMemoryRepository()
	var subscriberRepo newsletter.Repository = newsletter.NewMemoryRepository()
	var purchaseRepo payments.PurchaseRepository = payments.NewMemoryPurchaseRepository()
	var processed *events.ProcessedStore
	if pool != nil {
		accountStore = accounts.NewPostgresStore(pool)
		appointmentRepo = appointments.NewPostgresRepository(pool)
		leadRepo = leads.NewPostgresRepository(pool)
		subscriberRepo = newsletter.NewPostgresRepository(pool)
		purchaseRepo = payments.NewPostgresPurchaseRepository(pool)
		processed = events.NewProcessedStore(pool)
		app.processed = processed
	}
	provisioner := accounts.NewProvisioner(accountStore, logger)

	limits, emailLimiter := BuildRateLimits(cfg, app.redis)
	cors := httpmiddleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		PreviewPattern: cfg.CORSPreviewPattern,
		DefaultOrigin:  cfg.CORSDefaultOrigin,
	}

	appointmentSvc := appointments.NewService(appointmentRepo, logger)
	leadSvc := leads.NewService(leadRepo, provisioner, mailer, m, logger)

	checkout := payments.NewCheckoutService(payments.CheckoutConfig{
		SecretKey:  cfg.StripeSecretKey,
		Prices:     cfg.StripePrices,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
		DryRun:     cfg.StripeDryRun,
	}, logger)
	fulfillment := payments.NewFulfillmentService(provisioner, purchaseRepo, mailer, logger)
	deduper := events.NewLayeredDeduper(events.NewMemoryDeduper(cfg.WebhookDedupeTTL), processed)
	webhook := payments.NewStripeWebhookHandler(payments.WebhookConfig{
		Secret:        cfg.StripeWebhookSecret,
		AllowUnsigned: !cfg.IsProduction() && cfg.StripeWebhookSecret == "",
	}, deduper, fulfillment, checkout, m, logger)

	var guideArchive *archive.Store
	if awsCfg != nil && cfg.NewsletterArchiveBucket != "" {
		guideArchive = archive.NewStore(s3.NewFromConfig(*awsCfg), cfg.NewsletterArchiveBucket, logger)
	} else {
		guideArchive = archive.NewStore(nil, "", logger)
	}
	newsletterSvc := newsletter.NewService(subscriberRepo, mailer, guideArchive, logger)

	llm, err := BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	engineCfg := chatbot.EngineConfig{
		Submitter: appointmentSvc,
		LLM:       llm,
		Metrics:   m,
		Logger:    logger,
	}
	if app.redis != nil {
		engineCfg.Sessions = chatbot.NewRedisSessionStore(app.redis, cfg.ChatbotSessionTTL)
	} else {
		engineCfg.Sessions = chatbot.NewMemorySessionStore(cfg.ChatbotSessionTTL)
	}
	if sqlDB != nil {
		engineCfg.Transcript = chatbot.NewTranscriptStore(sqlDB)
	}
	engine := chatbot.NewEngine(engineCfg)

	rc := &router.Config{
		Logger:          logger,
		Metrics:         m,
		MetricsHandler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORS:            cors,
		RateLimits:      limits,
		AdminJWTSecret:  cfg.AdminJWTSecret,
		MemberJWTSecret: cfg.MemberJWTSecret,
		Appointments:    appointments.NewHandler(appointmentSvc, logger),
		Leads:           leads.NewHandler(leadSvc, emailLimiter, logger),
		Payments:        payments.NewHandler(checkout, purchaseRepo, logger),
		StripeWebhook:   webhook,
		Newsletter:      newsletter.NewHandler(newsletterSvc, logger),
		Chatbot:         chatbot.NewHandler(engine, llm, logger),
		ChatbotWS:       chatbot.NewWSHandler(engine, cors.OriginChecker(), logger).WithLimiter(limits.Chatbot, m),
	}
	rc.TrustProxyHeaders = cfg.TrustProxyHeaders

	if pool != nil {
		rc.Economy = economy.NewHandler(economy.NewService(pool, logger), logger)
		rc.Challenges = challenges.NewHandler(challenges.NewRepository(pool), logger)
		rc.Immersion = immersion.NewHandler(immersion.NewRepository(pool), logger)
		rc.Analytics = analytics.NewHandler(analytics.NewDashboardStore(sqlDB, logger), analytics.NewEventStore(pool), logger).WithRuntime(reg)
		rc.Support = support.NewHandler(support.NewService(support.NewStore(sqlDB), mailer, cfg.SupportInbox, logger), logger)
	}

	app.Handler = router.New(rc)
	return app, nil
}
