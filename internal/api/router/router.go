package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/trading-academy/internal/analytics"
	"github.com/wolfman30/trading-academy/internal/appointments"
	"github.com/wolfman30/trading-academy/internal/challenges"
	"github.com/wolfman30/trading-academy/internal/chatbot"
	"github.com/wolfman30/trading-academy/internal/economy"
	httpmiddleware "github.com/wolfman30/trading-academy/internal/http/middleware"
	"github.com/wolfman30/trading-academy/internal/http/respond"
	"github.com/wolfman30/trading-academy/internal/immersion"
	"github.com/wolfman30/trading-academy/internal/leads"
	"github.com/wolfman30/trading-academy/internal/newsletter"
	"github.com/wolfman30/trading-academy/internal/observability/metrics"
	"github.com/wolfman30/trading-academy/internal/payments"
	"github.com/wolfman30/trading-academy/internal/ratelimit"
	"github.com/wolfman30/trading-academy/internal/support"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

// RateLimits holds one limiter per public scope. A nil limiter disables
// limiting for that scope.
type RateLimits struct {
	Leads      ratelimit.Limiter
	Checkout   ratelimit.Limiter
	Newsletter ratelimit.Limiter
	Chatbot    ratelimit.Limiter
	Contact    ratelimit.Limiter
	Analytics  ratelimit.Limiter
}

// Config holds router configuration. Nil handlers leave their routes
// unmounted.
type Config struct {
	Logger         *logging.Logger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	CORS           httpmiddleware.CORSConfig
	RateLimits     RateLimits

	// TrustProxyHeaders mounts chi's RealIP so limits key on the forwarded
	// client address.
	TrustProxyHeaders bool

	AdminJWTSecret  string
	MemberJWTSecret string

	Appointments  *appointments.Handler
	Leads         *leads.Handler
	Payments      *payments.Handler
	StripeWebhook *payments.StripeWebhookHandler
	Newsletter    *newsletter.Handler
	Chatbot       *chatbot.Handler
	ChatbotWS     *chatbot.WSHandler
	Economy       *economy.Handler
	Challenges    *challenges.Handler
	Immersion     *immersion.Handler
	Support       *support.Handler
	Analytics     *analytics.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.CORS(cfg.CORS))
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(httpmiddleware.Metrics(cfg.Metrics))

	limit := func(l ratelimit.Limiter, scope string) func(http.Handler) http.Handler {
		if l == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return httpmiddleware.RateLimit(l, scope, cfg.Metrics, cfg.Logger)
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.StripeWebhook != nil {
			public.Post("/webhooks/stripe", cfg.StripeWebhook.Handle)
		}
		if cfg.Appointments != nil {
			public.With(limit(cfg.RateLimits.Leads, "appointments")).Post("/appointments", cfg.Appointments.Create)
		}
		if cfg.Leads != nil {
			public.Route("/leads", func(lr chi.Router) {
				lr.Use(limit(cfg.RateLimits.Leads, "leads"))
				lr.Post("/register", cfg.Leads.Register)
				lr.Post("/capital", cfg.Leads.UpdateCapital)
			})
		}
		if cfg.Payments != nil {
			public.With(limit(cfg.RateLimits.Checkout, "checkout")).Post("/checkout", cfg.Payments.Checkout)
		}
		if cfg.Newsletter != nil {
			public.With(limit(cfg.RateLimits.Newsletter, "newsletter")).Post("/newsletter/subscribe", cfg.Newsletter.Subscribe)
		}
		if cfg.Chatbot != nil || cfg.ChatbotWS != nil {
			public.Route("/chatbot", func(cr chi.Router) {
				cr.Use(limit(cfg.RateLimits.Chatbot, "chatbot"))
				if cfg.Chatbot != nil {
					cr.Post("/message", cfg.Chatbot.Message)
					cr.Post("/booking/start", cfg.Chatbot.StartBooking)
					cr.Post("/ai", cfg.Chatbot.AI)
				}
				if cfg.ChatbotWS != nil {
					cr.Handle("/ws", cfg.ChatbotWS)
				}
			})
		}
		if cfg.Support != nil {
			public.With(limit(cfg.RateLimits.Contact, "contact")).Post("/contact", cfg.Support.Create)
		}
		if cfg.Analytics != nil {
			public.With(limit(cfg.RateLimits.Analytics, "analytics")).Post("/analytics/events", cfg.Analytics.Ingest)
		}
		if cfg.Immersion != nil {
			public.Get("/immersion-sessions", cfg.Immersion.ListUpcoming)
		}
		if cfg.Economy != nil {
			public.Get("/store", cfg.Economy.ListStore)
		}
	})

	// Member routes (portal session token)
	if cfg.Economy != nil {
		r.Group(func(member chi.Router) {
			member.Use(httpmiddleware.MemberJWT(cfg.MemberJWTSecret))
			member.Post("/store/{itemID}/purchase", cfg.Economy.Purchase)
			member.Route("/me", func(me chi.Router) {
				me.Get("/wallet", cfg.Economy.GetWallet)
				me.Get("/ledger", cfg.Economy.GetLedger)
				me.Get("/inventory", cfg.Economy.ListInventory)
				me.Post("/inventory/{id}/equip", cfg.Economy.Equip)
				me.Post("/inventory/{id}/activate", cfg.Economy.ActivateBooster)
			})
		})
	}

	// Back-office routes
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))

		if cfg.Appointments != nil {
			admin.Route("/appointments", func(ar chi.Router) {
				ar.Get("/", cfg.Appointments.List)
				ar.Get("/{id}", cfg.Appointments.Get)
				ar.Patch("/{id}/status", cfg.Appointments.UpdateStatus)
				ar.Patch("/{id}/notes", cfg.Appointments.UpdateNotes)
				ar.Delete("/{id}", cfg.Appointments.Delete)
			})
		}
		if cfg.Leads != nil {
			admin.Get("/leads", cfg.Leads.ListLeads)
			admin.Get("/leads/{id}", cfg.Leads.GetLead)
			admin.Post("/leads/{id}/convert", cfg.Leads.Convert)
		}
		if cfg.Payments != nil {
			admin.Get("/purchases", cfg.Payments.ListPurchases)
		}
		if cfg.Economy != nil {
			admin.Get("/store", cfg.Economy.ListStore)
			admin.Get("/wallets/{userID}", cfg.Economy.AdminGetWallet)
			admin.Post("/wallets/{userID}/adjust", cfg.Economy.AdjustWallet)
		}
		if cfg.Challenges != nil {
			admin.Route("/challenges", cfg.Challenges.Routes)
		}
		if cfg.Immersion != nil {
			admin.Route("/immersion-sessions", cfg.Immersion.AdminRoutes)
		}
		if cfg.Support != nil {
			admin.Route("/support-messages", cfg.Support.AdminRoutes)
		}
		if cfg.Analytics != nil {
			admin.Get("/analytics", cfg.Analytics.Dashboard)
		}
	})

	return r
}
