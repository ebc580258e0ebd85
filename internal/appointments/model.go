// Package appointments stores appointment requests (rdv_requests) submitted
// by the chatbot booking dialogue or the public booking form, and exposes
// the admin back-office operations over them.
package appointments

import (
	"strings"
	"time"

	"github.com/wolfman30/trading-academy/internal/validation"
)

// Status is the admin-managed lifecycle of a request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusContacted Status = "contacted"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusContacted, StatusCancelled},
	StatusContacted: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusContacted, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an admin may move a request from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Request is a persisted appointment request.
type Request struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Location     string    `json:"location"`
	Type         string    `json:"type"`
	Availability string    `json:"availability"`
	Goals        string    `json:"goals"`
	OfferID      string    `json:"offer_id,omitempty"`
	OfferName    string    `json:"offer_name,omitempty"`
	Source       string    `json:"source,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	Status       Status    `json:"status"`
	AdminNotes   string    `json:"admin_notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateRequest is the submission payload.
type CreateRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Location     string `json:"location"`
	Type         string `json:"type"`
	Availability string `json:"availability"`
	Goals        string `json:"goals"`
	OfferID      string `json:"offer_id,omitempty"`
	OfferName    string `json:"offer_name,omitempty"`
	Source       string `json:"source,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}

// CallTypes are the accepted values for Type.
var CallTypes = map[string]struct{}{"discovery": {}, "strategy": {}}

// Validate checks required fields and normalizes email and phone in place.
func (r *CreateRequest) Validate() error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if err := validation.Required("first_name", r.FirstName); err != nil {
		return err
	}
	if err := validation.Email("email", r.Email); err != nil {
		return err
	}
	r.Email = validation.NormalizeEmail(r.Email)
	if !validation.IsPhone(r.Phone) {
		return validation.NewFieldError("phone", "must be a valid phone number")
	}
	r.Phone = validation.NormalizePhone(r.Phone)
	if _, ok := CallTypes[r.Type]; !ok {
		return validation.NewFieldError("type", "must be discovery or strategy")
	}
	if err := validation.Required("availability", r.Availability); err != nil {
		return err
	}
	return nil
}

// ListFilter narrows admin listings.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
