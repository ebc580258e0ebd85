package middleware

import (
	"net"
	"net/http"

	"github.com/wolfman30/trading-academy/internal/http/respond"
	"github.com/wolfman30/trading-academy/internal/observability/metrics"
	"github.com/wolfman30/trading-academy/internal/ratelimit"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

// ClientIP is the host part of RemoteAddr. Forwarded headers count only
// when the router mounts chi's RealIP, which rewrites RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects requests over the limiter's window with 429. Limiter
// errors fail open: the request proceeds and the error is logged.
func RateLimit(limiter ratelimit.Limiter, scope string, m *metrics.Metrics, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			res, err := limiter.Allow(r.Context(), scope+":ip:"+ip)
			if err != nil {
				logger.Warn("rate limiter unavailable", "error", err, "scope", scope)
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				logger.Info("rate limit exceeded", "scope", scope, "ip", ip, "count", res.Count)
				m.ObserveRateLimited(scope)
				respond.RateLimited(w, res.RetryAfterSeconds())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
