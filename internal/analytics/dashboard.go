// Package analytics serves the admin analytics page and ingests the
// browser's client-side event log.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wolfman30/trading-academy/pkg/logging"
)

const (
	defaultPeriodDays = 30
	maxPeriodDays     = 365
	topIntentsLimit   = 5

	eventIntentMatched = "intent_matched"
	eventLLMFallback   = "llm_fallback"
)

// Dashboard is the overview returned to the admin analytics page.
type Dashboard struct {
	Since                time.Time        `json:"since"`
	LeadsBySegment       map[string]int   `json:"leads_by_segment"`
	AppointmentsByStatus map[string]int   `json:"appointments_by_status"`
	Chatbot              ChatbotMetrics   `json:"chatbot"`
	Sales                SalesMetrics     `json:"sales"`
	Runtime              *RuntimeSnapshot `json:"runtime,omitempty"`
}

type ChatbotMetrics struct {
	Conversations int            `json:"conversations"`
	Events        map[string]int `json:"events"`
	TopIntents    []IntentCount  `json:"top_intents"`
	// FallbackRate is llm_fallback / (intent_matched + llm_fallback).
	FallbackRate float64 `json:"fallback_rate"`
}

type IntentCount struct {
	IntentID string `json:"intent_id"`
	Count    int    `json:"count"`
}

type SalesMetrics struct {
	Purchases    int   `json:"purchases"`
	RevenueCents int64 `json:"revenue_cents"`
}

// DashboardStore runs the aggregate queries on database/sql.
type DashboardStore struct {
	db     *sql.DB
	logger *logging.Logger
	now    func() time.Time
}

func NewDashboardStore(db *sql.DB, logger *logging.Logger) *DashboardStore {
	if db == nil {
		panic("analytics: sql db required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DashboardStore{db: db, logger: logger, now: time.Now}
}

// Overview aggregates the last days of activity. days outside 1..365 fall
// back to 30.
func (s *DashboardStore) Overview(ctx context.Context, days int) (*Dashboard, error) {
	if days <= 0 || days > maxPeriodDays {
		days = defaultPeriodDays
	}
	since := s.now().UTC().AddDate(0, 0, -days)
	d := &Dashboard{Since: since}

	var err error
	if d.LeadsBySegment, err = s.countBy(ctx, `
		SELECT segment, COUNT(*) FROM leads WHERE created_at >= $1 GROUP BY segment`, since); err != nil {
		return nil, fmt.Errorf("analytics: leads by segment: %w", err)
	}
	if d.AppointmentsByStatus, err = s.countBy(ctx, `
		SELECT status, COUNT(*) FROM rdv_requests WHERE created_at >= $1 GROUP BY status`, since); err != nil {
		return nil, fmt.Errorf("analytics: appointments by status: %w", err)
	}
	if d.Chatbot.Events, err = s.countBy(ctx, `
		SELECT event_type, COUNT(*) FROM chatbot_analytics WHERE created_at >= $1 GROUP BY event_type`, since); err != nil {
		return nil, fmt.Errorf("analytics: chatbot events: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chatbot_conversations WHERE started_at >= $1`, since).
		Scan(&d.Chatbot.Conversations); err != nil {
		return nil, fmt.Errorf("analytics: conversations: %w", err)
	}
	if d.Chatbot.TopIntents, err = s.topIntents(ctx, since); err != nil {
		return nil, fmt.Errorf("analytics: top intents: %w", err)
	}
	if matched, fallback := d.Chatbot.Events[eventIntentMatched], d.Chatbot.Events[eventLLMFallback]; matched+fallback > 0 {
		d.Chatbot.FallbackRate = float64(fallback) / float64(matched+fallback)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount_total), 0) FROM purchases WHERE created_at >= $1`, since).
		Scan(&d.Sales.Purchases, &d.Sales.RevenueCents); err != nil {
		return nil, fmt.Errorf("analytics: purchases: %w", err)
	}
	return d, nil
}

func (s *DashboardStore) countBy(ctx context.Context, query string, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		out[key] = count
	}
	return out, rows.Err()
}

func (s *DashboardStore) topIntents(ctx context.Context, since time.Time) ([]IntentCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT intent_id, COUNT(*) AS hits FROM chatbot_analytics
		WHERE event_type = $2 AND intent_id IS NOT NULL AND created_at >= $1
		GROUP BY intent_id
		ORDER BY hits DESC, intent_id
		LIMIT $3`, since, eventIntentMatched, topIntentsLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []IntentCount{}
	for rows.Next() {
		var ic IntentCount
		if err := rows.Scan(&ic.IntentID, &ic.Count); err != nil {
			return nil, err
		}
		out = append(out, ic)
	}
	return out, rows.Err()
}
