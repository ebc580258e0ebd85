package validation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"Valid", "trader@example.com", true},
		{"Subdomain", "a.b@mail.example.fr", true},
		{"Surrounding Spaces", "  trader@example.com ", true},
		{"Missing Domain", "trader@", false},
		{"Missing At", "trader.example.com", false},
		{"Inner Space", "tra der@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmail(tt.email))
		})
	}
}

func TestIsPhone(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		phone string
		want  bool
	}{
		{"French Mobile", "06 12 34 56 78", true},
		{"International", "+33 6 12 34 56 78", true},
		{"Dotted", "06.12.34.56.78", true},
		{"Too Short", "12345", false},
		{"Letters", "06 12 AB 56 78", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPhone(tt.phone))
		})
	}
}

func TestFieldErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("leads: register: %w", Email("email", "nope"))
	fe, ok := AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, "email", fe.Field)

	_, ok = AsFieldError(fmt.Errorf("other"))
	assert.False(t, ok)
	assert.NoError(t, Required("name", "Jo"))
}
