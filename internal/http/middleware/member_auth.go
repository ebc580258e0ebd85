package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/trading-academy/internal/http/respond"
)

const memberClaimsKey contextKey = "memberClaims"

// MemberClaims are the claims carried by portal session tokens. Subject is
// the profile id.
type MemberClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// MemberJWT enforces an HS256 JWT with a subject.
func MemberJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				respond.Error(w, http.StatusUnauthorized, "member auth disabled")
				return
			}
			var claims MemberClaims
			if err := parseBearer(r, secret, &claims); err != nil {
				respond.Error(w, http.StatusUnauthorized, bearerFailure(err))
				return
			}
			if strings.TrimSpace(claims.Subject) == "" {
				respond.Error(w, http.StatusUnauthorized, "token has no subject")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithMemberClaims(r.Context(), claims)))
		})
	}
}

// MemberIDFromContext returns the authenticated profile id.
func MemberIDFromContext(ctx context.Context) (string, bool) {
	claims, ok := ctx.Value(memberClaimsKey).(MemberClaims)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// WithMemberClaims stores claims on ctx.
func WithMemberClaims(ctx context.Context, claims MemberClaims) context.Context {
	return context.WithValue(ctx, memberClaimsKey, claims)
}
