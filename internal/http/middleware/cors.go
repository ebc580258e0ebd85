package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// CORSConfig lists the origins the public site is served from.
type CORSConfig struct {
	AllowedOrigins []string
	// PreviewPattern matches preview deployment origins, e.g. per-branch subdomains.
	PreviewPattern string
	// DefaultOrigin is echoed when the request origin is not allowed.
	DefaultOrigin string
}

// CORS applies the allow-list. Unknown origins receive DefaultOrigin in
// Access-Control-Allow-Origin, so the browser blocks them without the
// request being refused server-side.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	allowed := cfg.OriginChecker()
	allowedHeaders := "Authorization, Content-Type, Stripe-Signature, X-Session-Id"
	allowedMethods := "GET, POST, PUT, PATCH, DELETE, OPTIONS"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin != "" {
				echo := origin
				if !allowed(origin) {
					echo = cfg.DefaultOrigin
				}
				if echo != "" {
					w.Header().Set("Access-Control-Allow-Origin", echo)
					w.Header().Add("Vary", "Origin")
					w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
					w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
					w.Header().Set("Access-Control-Max-Age", "600")
				}
			}

			if r.Method == http.MethodOptions && origin != "" && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// OriginChecker compiles the allow-list into a predicate, shared with the
// WebSocket upgrader.
func (cfg CORSConfig) OriginChecker() func(origin string) bool {
	allowAny := false
	allow := map[string]struct{}{}
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAny = true
			continue
		}
		allow[origin] = struct{}{}
	}

	var preview *regexp.Regexp
	if p := strings.TrimSpace(cfg.PreviewPattern); p != "" {
		preview = regexp.MustCompile(p)
	}

	return func(origin string) bool {
		if allowAny {
			return true
		}
		if _, ok := allow[origin]; ok {
			return true
		}
		return preview != nil && preview.MatchString(origin)
	}
}
