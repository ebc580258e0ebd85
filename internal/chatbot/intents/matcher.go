// Package intents matches visitor messages against the static FAQ table.
package intents

import (
	"strings"
	"unicode/utf8"
)

// ActionStartBooking tells the chatbot engine to open the appointment dialogue.
const ActionStartBooking = "start_booking"

// Intent is one FAQ entry.
type Intent struct {
	ID        string   `json:"id"`
	Patterns  []string `json:"patterns"`
	Answer    string   `json:"answer"`
	FollowUps []string `json:"follow_ups,omitempty"`
	Action    string   `json:"action,omitempty"`
}

// Match is the selected intent and the pattern that won.
type Match struct {
	Intent  Intent
	Pattern string
}

type compiledPattern struct {
	raw        string
	normalized string
	length     int
}

// Matcher scans an immutable intent table.
type Matcher struct {
	intents  []Intent
	patterns [][]compiledPattern
}

// NewMatcher normalizes every pattern once. Empty patterns are ignored.
func NewMatcher(table []Intent) *Matcher {
	m := &Matcher{
		intents:  make([]Intent, len(table)),
		patterns: make([][]compiledPattern, len(table)),
	}
	copy(m.intents, table)
	for i, intent := range m.intents {
		for _, p := range intent.Patterns {
			n := Normalize(p)
			if n == "" {
				continue
			}
			m.patterns[i] = append(m.patterns[i], compiledPattern{raw: p, normalized: n, length: utf8.RuneCountInString(n)})
		}
	}
	return m
}

// Match returns the intent whose matching pattern is the longest substring
// of the normalized message. Ties keep the earliest intent in the table.
func (m *Matcher) Match(message string) (Match, bool) {
	msg := Normalize(message)
	if msg == "" {
		return Match{}, false
	}

	best := -1
	bestLen := 0
	bestPattern := ""
	for i, patterns := range m.patterns {
		for _, p := range patterns {
			if p.length > bestLen && strings.Contains(msg, p.normalized) {
				best, bestLen, bestPattern = i, p.length, p.raw
			}
		}
	}
	if best < 0 {
		return Match{}, false
	}
	return Match{Intent: m.intents[best], Pattern: bestPattern}, true
}

// Intents returns a copy of the table.
func (m *Matcher) Intents() []Intent {
	out := make([]Intent, len(m.intents))
	copy(out, m.intents)
	return out
}
