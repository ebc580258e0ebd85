// Package validation holds the field checks shared by the public forms and
// the chatbot booking dialogue.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Permissive international format: optional +, 8 to 15 digits once
	// spaces, dots, dashes and parentheses are removed.
	phoneRegex     = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
	phoneSeparator = strings.NewReplacer(" ", "", ".", "", "-", "", "(", "", ")", "")
)

// FieldError is a field-level validation failure. Handlers return it as 400.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewFieldError builds a FieldError.
func NewFieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}

// AsFieldError extracts a FieldError from an error chain.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) <= 254 && emailRegex.MatchString(s)
}

// IsPhone reports whether s looks like a phone number.
func IsPhone(s string) bool {
	return phoneRegex.MatchString(NormalizePhone(s))
}

// NormalizePhone removes common separators, keeping a leading +.
func NormalizePhone(s string) string {
	return phoneSeparator.Replace(strings.TrimSpace(s))
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Required returns a FieldError when value is blank.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewFieldError(field, "is required")
	}
	return nil
}

// Email returns a FieldError when value is not a valid email.
func Email(field, value string) error {
	if err := Required(field, value); err != nil {
		return err
	}
	if !IsEmail(value) {
		return NewFieldError(field, "must be a valid email address")
	}
	return nil
}
