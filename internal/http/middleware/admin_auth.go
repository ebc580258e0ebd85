package middleware

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/trading-academy/internal/http/respond"
)

const adminClaimsKey contextKey = "adminClaims"

// RoleAdmin is the role claim required on back-office tokens.
const RoleAdmin = "admin"

type AdminClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AdminJWT guards the back-office routes. A valid token without role=admin
// is a 403, anything else unauthenticated is a 401.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				respond.Error(w, http.StatusUnauthorized, "admin auth disabled")
				return
			}
			var claims AdminClaims
			if err := parseBearer(r, secret, &claims); err != nil {
				respond.Error(w, http.StatusUnauthorized, bearerFailure(err))
				return
			}
			if claims.Role != RoleAdmin {
				respond.Error(w, http.StatusForbidden, "admin role required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdminClaims(r.Context(), claims)))
		})
	}
}

func AdminClaimsFromContext(ctx context.Context) (AdminClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(AdminClaims)
	return claims, ok
}

func WithAdminClaims(ctx context.Context, claims AdminClaims) context.Context {
	return context.WithValue(ctx, adminClaimsKey, claims)
}
