// Package events deduplicates provider webhook deliveries.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ProcessedStore is the durable half of webhook dedupe: one processed_events
// row per (provider, event id) claimed.
type ProcessedStore struct {
	db execer
}

// NewProcessedStore accepts a *pgxpool.Pool or any compatible querier.
func NewProcessedStore(db execer) *ProcessedStore {
	if db == nil {
		panic("events: pgx pool required")
	}
	return &ProcessedStore{db: db}
}

// MarkProcessed claims an event id, returning false if another delivery
// already holds it.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	ct, err := s.db.Exec(ctx, `
		INSERT INTO processed_events (provider, event_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, provider, eventID)
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// Unmark removes an event id so a provider retry is processed again.
func (s *ProcessedStore) Unmark(ctx context.Context, provider, eventID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM processed_events WHERE provider = $1 AND event_id = $2`, provider, eventID); err != nil {
		return fmt.Errorf("events: unmark processed: %w", err)
	}
	return nil
}

// Purge drops claims older than before. Stripe retries a delivery for up
// to three days; the retention window must stay longer than that.
func (s *ProcessedStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	ct, err := s.db.Exec(ctx, `DELETE FROM processed_events WHERE processed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("events: purge processed: %w", err)
	}
	return ct.RowsAffected(), nil
}
