// Package immersion manages in-person immersion sessions (trading floor
// days). It is the only writer of immersion_sessions.
package immersion

import (
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/trading-academy/internal/listing"
	"github.com/wolfman30/trading-academy/internal/validation"
)

var ErrNotFound = errors.New("immersion: session not found")

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusFull      Status = "full"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

const defaultDurationMinutes = 240

type Session struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Location        string    `json:"location"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Capacity        int       `json:"capacity"`
	PriceCents      int64     `json:"price_cents"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Input struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Capacity        int       `json:"capacity"`
	PriceCents      int64     `json:"price_cents"`
	Status          Status    `json:"status"`
}

func (in *Input) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	if err := validation.Required("title", in.Title); err != nil {
		return err
	}
	if err := validation.Required("location", in.Location); err != nil {
		return err
	}
	if in.StartsAt.IsZero() {
		return validation.NewFieldError("starts_at", "is required")
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = defaultDurationMinutes
	}
	if in.DurationMinutes < 0 {
		return validation.NewFieldError("duration_minutes", "must be positive")
	}
	if in.Capacity <= 0 {
		return validation.NewFieldError("capacity", "must be at least 1")
	}
	if in.PriceCents < 0 {
		return validation.NewFieldError("price_cents", "must not be negative")
	}
	if in.Status == "" {
		in.Status = StatusScheduled
	}
	switch in.Status {
	case StatusScheduled, StatusFull, StatusCancelled, StatusCompleted:
	default:
		return validation.NewFieldError("status", "unknown status")
	}
	return nil
}

var Schema = listing.Schema{
	Filterable:  []string{"status", "location"},
	Sortable:    []string{"starts_at", "created_at", "title", "capacity"},
	DefaultSort: "starts_at",
}
