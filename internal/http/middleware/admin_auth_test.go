package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedAdminToken(t *testing.T, secret, role string, method jwt.SigningMethod) string {
	t.Helper()
	claims := AdminClaims{
		Role:  role,
		Email: "ops@trading-academy.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAdminJWT(t *testing.T) {
	cases := []struct {
		name   string
		secret string
		header string
		status int
	}{
		{name: "disabled", secret: "", status: http.StatusUnauthorized},
		{name: "no header", secret: "secret", status: http.StatusUnauthorized},
		{name: "not bearer", secret: "secret", header: "Basic YWRtaW46YWRtaW4=", status: http.StatusUnauthorized},
		{name: "wrong secret", secret: "secret", header: "Bearer " + signedAdminToken(t, "other", RoleAdmin, jwt.SigningMethodHS256), status: http.StatusUnauthorized},
		{name: "hs512 refused", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", RoleAdmin, jwt.SigningMethodHS512), status: http.StatusUnauthorized},
		{name: "member role", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", "member", jwt.SigningMethodHS256), status: http.StatusForbidden},
		{name: "admin", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", RoleAdmin, jwt.SigningMethodHS256), status: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got AdminClaims
			h := AdminJWT(tc.secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = AdminClaimsFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))
			req := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d (%s)", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status == http.StatusNoContent && (got.Subject != "admin-1" || got.Email != "ops@trading-academy.test") {
				t.Fatalf("unexpected claims in context: %+v", got)
			}
		})
	}
}
