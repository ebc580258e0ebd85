package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/trading-academy/internal/api/router"
	"github.com/wolfman30/trading-academy/internal/chatbot"
	appconfig "github.com/wolfman30/trading-academy/internal/config"
	"github.com/wolfman30/trading-academy/internal/notify"
	"github.com/wolfman30/trading-academy/internal/ratelimit"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

// BuildLLMClient selects the chatbot fallback model. Provider "none" (or a
// missing key) disables the fallback; the bot then answers from intents only.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (chatbot.LLMClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.LLMProvider {
	case "", "none":
		return nil, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("openai selected but OPENAI_API_KEY empty; llm fallback disabled")
			return nil, nil
		}
		client, err := chatbot.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		logger.Info("llm fallback enabled", "provider", "openai", "model", cfg.OpenAIModel)
		return client, nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			logger.Warn("gemini selected but GEMINI_API_KEY empty; llm fallback disabled")
			return nil, nil
		}
		client, err := chatbot.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		logger.Info("llm fallback enabled", "provider", "gemini", "model", cfg.GeminiModel)
		return client, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

// BuildEmailSender picks the outbound email provider. Unknown or
// unconfigured providers fall back to the logging stub.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			return s, "sendgrid"
		}
		logger.Warn("sendgrid selected but SENDGRID_API_KEY empty")
	case "ses":
		if awsCfg != nil {
			client := sesv2.NewFromConfig(*awsCfg)
			return notify.NewSESSender(client, notify.SESConfig{
				FromEmail: cfg.EmailFromAddress,
				FromName:  cfg.EmailFromName,
			}, logger), "ses"
		}
		logger.Warn("ses selected but aws config unavailable")
	case "smtp":
		if cfg.SMTPHost != "" {
			return notify.NewSMTPSender(notify.SMTPConfig{
				Host:      cfg.SMTPHost,
				Port:      cfg.SMTPPort,
				User:      cfg.SMTPUser,
				Password:  cfg.SMTPPassword,
				FromEmail: cfg.EmailFromAddress,
				FromName:  cfg.EmailFromName,
			}, logger), "smtp"
		}
		logger.Warn("smtp selected but SMTP_HOST empty")
	}
	return notify.NewStubEmailSender(logger), "stub"
}

// BuildRateLimits returns per-scope limiters, shared through Redis when a
// client is available. The second value limits lead registrations per email.
func BuildRateLimits(cfg *appconfig.Config, client *redis.Client) (router.RateLimits, ratelimit.Limiter) {
	build := func(scope string, limit int) ratelimit.Limiter {
		if limit <= 0 {
			return nil
		}
		if client != nil {
			return ratelimit.NewRedisLimiter(client, scope, limit, cfg.RateLimitWindow)
		}
		return ratelimit.NewMemoryLimiter(limit, cfg.RateLimitWindow)
	}
	limits := router.RateLimits{
		Leads:      build("leads", cfg.RateLimitLeads),
		Checkout:   build("checkout", cfg.RateLimitCheckout),
		Newsletter: build("newsletter", cfg.RateLimitNewsletter),
		Chatbot:    build("chatbot", cfg.RateLimitChatbot),
		Contact:    build("contact", cfg.RateLimitContact),
		Analytics:  build("analytics", cfg.RateLimitAnalytics),
	}
	return limits, build("lead-email", cfg.RateLimitLeadEmail)
}
