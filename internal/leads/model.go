// Package leads captures prospects from the public forms and promotes them
// to member accounts from the back-office.
package leads

import (
	"math"
	"strings"
	"time"

	"github.com/wolfman30/trading-academy/internal/validation"
)

// Capital bounds accepted by the registration form, in euros.
const (
	MinCapital = 200
	MaxCapital = 10_000_000
)

// Segment buckets leads by declared trading capital.
type Segment string

const (
	SegmentLow    Segment = "low"
	SegmentMedium Segment = "medium"
	SegmentHigh   Segment = "high"
)

// SegmentFor maps a capital amount to its segment.
func SegmentFor(capital float64) Segment {
	switch {
	case capital < 2_000:
		return SegmentLow
	case capital < 10_000:
		return SegmentMedium
	default:
		return SegmentHigh
	}
}

// ParseSegment accepts "", low, medium or high.
func ParseSegment(s string) (Segment, error) {
	switch seg := Segment(strings.ToLower(strings.TrimSpace(s))); seg {
	case "", SegmentLow, SegmentMedium, SegmentHigh:
		return seg, nil
	default:
		return "", ErrInvalidSegment
	}
}

// Status tracks a lead through the sales funnel.
type Status string

const (
	StatusNew       Status = "new"
	StatusConverted Status = "converted"
)

// Lead represents a prospect captured by the registration form
type Lead struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Capital   float64   `json:"capital"`
	Segment   Segment   `json:"segment"`
	Source    string    `json:"source,omitempty"`
	Consent   bool      `json:"consent"`
	Status    Status    `json:"status"`
	ProfileID string    `json:"profile_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RegisterLeadRequest represents the request body for register-lead
type RegisterLeadRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Capital   float64 `json:"capital"`
	Source    string  `json:"source"`
	Consent   bool    `json:"consent"`
}

// Validate checks and normalizes the request in place.
func (r *RegisterLeadRequest) Validate() error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Source = strings.TrimSpace(r.Source)
	if err := validation.Required("first_name", r.FirstName); err != nil {
		return err
	}
	if err := validation.Email("email", r.Email); err != nil {
		return err
	}
	r.Email = validation.NormalizeEmail(r.Email)
	if strings.TrimSpace(r.Phone) != "" {
		if !validation.IsPhone(r.Phone) {
			return validation.NewFieldError("phone", "must be a valid phone number")
		}
		r.Phone = validation.NormalizePhone(r.Phone)
	}
	return validateCapital(r.Capital)
}

// UpdateCapitalRequest represents the request body for update-capital
type UpdateCapitalRequest struct {
	Email   string  `json:"email"`
	Capital float64 `json:"capital"`
}

func (r *UpdateCapitalRequest) Validate() error {
	if err := validation.Email("email", r.Email); err != nil {
		return err
	}
	r.Email = validation.NormalizeEmail(r.Email)
	return validateCapital(r.Capital)
}

func validateCapital(capital float64) error {
	switch {
	case math.IsNaN(capital) || math.IsInf(capital, 0):
		return validation.NewFieldError("capital", "must be a number")
	case capital < MinCapital:
		return validation.NewFieldError("capital", "must be at least 200")
	case capital > MaxCapital:
		return validation.NewFieldError("capital", "is unrealistic")
	}
	return nil
}

// ListFilter narrows the admin listing.
type ListFilter struct {
	Segment Segment
	Status  Status
	Limit   int
	Offset  int
}

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
