package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// CORS
	CORSAllowedOrigins []string
	CORSPreviewPattern string
	CORSDefaultOrigin  string

	AdminJWTSecret  string
	MemberJWTSecret string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePrices        map[string]string // price id -> license tier
	CheckoutSuccessURL  string
	CheckoutCancelURL   string
	StripeDryRun        bool
	WebhookDedupeTTL    time.Duration
	ProcessedRetention  time.Duration

	// Chatbot
	LLMProvider       string
	OpenAIAPIKey      string
	OpenAIModel       string
	GeminiAPIKey      string
	GeminiModel       string
	ChatbotSessionTTL time.Duration

	// Email
	EmailProvider    string
	EmailFromAddress string
	EmailFromName    string
	SendGridAPIKey   string
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPassword     string
	SupportInbox     string

	// AWS (SES + newsletter archive)
	AWSRegion               string
	AWSAccessKeyID          string
	AWSSecretAccessKey      string
	AWSEndpointOverride     string
	NewsletterArchiveBucket string

	// Rate limits (requests per window, keyed by client IP)
	RateLimitWindow     time.Duration
	RateLimitLeads      int
	RateLimitLeadEmail  int
	RateLimitCheckout   int
	RateLimitNewsletter int
	RateLimitChatbot    int
	RateLimitContact    int
	RateLimitAnalytics  int

	// TrustProxyHeaders takes the client IP from X-Real-IP / X-Forwarded-For.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
		CORSPreviewPattern: getEnv("CORS_PREVIEW_PATTERN", `^https://[a-z0-9-]+\.vercel\.app$`),
		CORSDefaultOrigin:  getEnv("CORS_DEFAULT_ORIGIN", "http://localhost:5173"),

		AdminJWTSecret:  getEnv("ADMIN_JWT_SECRET", ""),
		MemberJWTSecret: getEnv("MEMBER_JWT_SECRET", ""),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePrices:        getEnvAsMap("STRIPE_PRICE_TIERS"),
		CheckoutSuccessURL:  getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:5173/merci"),
		CheckoutCancelURL:   getEnv("CHECKOUT_CANCEL_URL", "http://localhost:5173/tarifs"),
		StripeDryRun:        getEnvAsBool("STRIPE_DRY_RUN", false),
		WebhookDedupeTTL:    getEnvAsDuration("WEBHOOK_DEDUPE_TTL", 10*time.Minute),
		ProcessedRetention:  getEnvAsDuration("PROCESSED_EVENTS_RETENTION", 30*24*time.Hour),

		LLMProvider:       strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "openai"))),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ChatbotSessionTTL: getEnvAsDuration("CHATBOT_SESSION_TTL", 30*time.Minute),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "contact@example.com"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Trading Academy"),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:         getEnv("SMTP_USER", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		SupportInbox:     getEnv("SUPPORT_INBOX_EMAIL", ""),

		AWSRegion:               getEnv("AWS_REGION", "eu-west-3"),
		AWSAccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:     getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		NewsletterArchiveBucket: getEnv("NEWSLETTER_ARCHIVE_BUCKET", ""),

		RateLimitWindow:     getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitLeads:      getEnvAsInt("RATE_LIMIT_LEADS", 5),
		RateLimitLeadEmail:  getEnvAsInt("RATE_LIMIT_LEAD_EMAIL", 3),
		RateLimitCheckout:   getEnvAsInt("RATE_LIMIT_CHECKOUT", 10),
		RateLimitNewsletter: getEnvAsInt("RATE_LIMIT_NEWSLETTER", 3),
		RateLimitChatbot:    getEnvAsInt("RATE_LIMIT_CHATBOT", 30),
		RateLimitContact:    getEnvAsInt("RATE_LIMIT_CONTACT", 3),
		RateLimitAnalytics:  getEnvAsInt("RATE_LIMIT_ANALYTICS", 20),

		TrustProxyHeaders: getEnvAsBool("TRUST_PROXY_HEADERS", false),
	}
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnvAsMap parses "k1:v1,k2:v2". Malformed pairs are skipped.
func getEnvAsMap(key string) map[string]string {
	out := map[string]string{}
	for _, pair := range getEnvAsList(key, nil) {
		k, v, ok := strings.Cut(pair, ":")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = strings.ToLower(v)
	}
	return out
}
