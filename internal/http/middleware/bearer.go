package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

var errMissingBearer = errors.New("missing authorization header")

// parseBearer verifies the request's HS256 bearer token into claims.
func parseBearer(r *http.Request, secret string, claims jwt.Claims) error {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return errMissingBearer
	}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err
}

func bearerFailure(err error) string {
	if errors.Is(err, errMissingBearer) {
		return errMissingBearer.Error()
	}
	return "invalid token"
}
