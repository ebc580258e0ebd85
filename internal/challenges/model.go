// Package challenges backs the admin challenges page: trading challenges
// members can join to earn Focus Coins.
package challenges

import (
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/trading-academy/internal/listing"
	"github.com/wolfman30/trading-academy/internal/validation"
)

var ErrNotFound = errors.New("challenges: challenge not found")

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

type Challenge struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
	RewardCoins int64      `json:"reward_coins"`
	Status      Status     `json:"status"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Input is the create/update body. Blank difficulty and status default to
// beginner and draft.
type Input struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  Difficulty `json:"difficulty"`
	RewardCoins int64      `json:"reward_coins"`
	Status      Status     `json:"status"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

func (in *Input) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Required("title", in.Title); err != nil {
		return err
	}
	if in.Difficulty == "" {
		in.Difficulty = DifficultyBeginner
	}
	switch in.Difficulty {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
	default:
		return validation.NewFieldError("difficulty", "must be beginner, intermediate or advanced")
	}
	if in.Status == "" {
		in.Status = StatusDraft
	}
	switch in.Status {
	case StatusDraft, StatusActive, StatusArchived:
	default:
		return validation.NewFieldError("status", "must be draft, active or archived")
	}
	if in.RewardCoins < 0 {
		return validation.NewFieldError("reward_coins", "must not be negative")
	}
	if in.StartsAt != nil && in.EndsAt != nil && !in.EndsAt.After(*in.StartsAt) {
		return validation.NewFieldError("ends_at", "must be after starts_at")
	}
	return nil
}

// Schema lists the query-string columns accepted by the admin listing.
var Schema = listing.Schema{
	Filterable:  []string{"status", "difficulty"},
	Sortable:    []string{"created_at", "starts_at", "title", "reward_coins"},
	DefaultSort: "created_at",
	DefaultDesc: true,
}
