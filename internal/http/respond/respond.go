// Package respond writes the JSON bodies shared by every HTTP handler.
package respond

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/wolfman30/trading-academy/internal/validation"
)

// ErrorBody is the error envelope returned to clients.
type ErrorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// Validation writes a field-level 400.
func Validation(w http.ResponseWriter, fe *validation.FieldError) {
	JSON(w, http.StatusBadRequest, ErrorBody{Error: fe.Message, Field: fe.Field})
}

// Decode reads a JSON body into dst, rejecting bodies over 1 MiB.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(dst)
}

// RateLimited writes a 429 with a Retry-After hint in seconds.
func RateLimited(w http.ResponseWriter, retryAfterSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	JSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate limit exceeded",
		"retry_after": retryAfterSeconds,
	})
}
