// Package accounts owns member profiles and their license tier. Profiles are
// created on first purchase (or by an admin converting a lead) and a tier is
// only ever upgraded.
package accounts

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("accounts: profile not found")
	ErrInvalidTier = errors.New("accounts: unknown license tier")
)

// Tier is a license level. The empty tier means no license.
type Tier string

const (
	TierNone    Tier = ""
	TierStarter Tier = "starter"
	TierPro     Tier = "pro"
	TierElite   Tier = "elite"
)

var tierRank = map[Tier]int{TierNone: 0, TierStarter: 1, TierPro: 2, TierElite: 3}

// ParseTier accepts a tier name in any case.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tierRank[t]; !ok {
		return TierNone, ErrInvalidTier
	}
	return t, nil
}

// Outranks reports whether t is strictly above other.
func (t Tier) Outranks(other Tier) bool {
	return tierRank[t] > tierRank[other]
}

// Profile is a member account.
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	License      Tier      `json:"license"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
