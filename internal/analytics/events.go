package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/trading-academy/internal/validation"
)

// MaxBatch matches the size of the browser's local event log.
const MaxBatch = 100

const maxNameLength = 64

var eventColumns = []string{"id", "session_id", "name", "path", "properties", "occurred_at"}

type Event struct {
	Name       string         `json:"name"`
	Path       string         `json:"path,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Batch struct {
	SessionID string  `json:"session_id"`
	Events    []Event `json:"events"`
}

func (b *Batch) Validate() error {
	b.SessionID = strings.TrimSpace(b.SessionID)
	if err := validation.Required("session_id", b.SessionID); err != nil {
		return err
	}
	switch {
	case len(b.Events) == 0:
		return validation.NewFieldError("events", "is required")
	case len(b.Events) > MaxBatch:
		return validation.NewFieldError("events", fmt.Sprintf("at most %d events per batch", MaxBatch))
	}
	for i := range b.Events {
		name := strings.TrimSpace(b.Events[i].Name)
		if name == "" || len(name) > maxNameLength {
			return validation.NewFieldError(fmt.Sprintf("events[%d].name", i), "is required (max 64 characters)")
		}
		b.Events[i].Name = name
	}
	return nil
}

type copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// EventStore bulk-loads client events with COPY.
type EventStore struct {
	db  copier
	now func() time.Time
}

func NewEventStore(db copier) *EventStore {
	if db == nil {
		panic("analytics: pgx pool required")
	}
	return &EventStore{db: db, now: time.Now}
}

// Record validates and stores a batch, returning how many rows were written.
// Events without a client timestamp get the server time.
func (s *EventStore) Record(ctx context.Context, b *Batch) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	now := s.now().UTC()
	rows := make([][]any, 0, len(b.Events))
	for _, e := range b.Events {
		props := []byte("{}")
		if len(e.Properties) > 0 {
			raw, err := json.Marshal(e.Properties)
			if err != nil {
				return 0, validation.NewFieldError("properties", "must be a JSON object")
			}
			props = raw
		}
		occurred := e.OccurredAt.UTC()
		if e.OccurredAt.IsZero() || occurred.After(now) {
			occurred = now
		}
		rows = append(rows, []any{uuid.New(), b.SessionID, e.Name, e.Path, props, occurred})
	}
	n, err := s.db.CopyFrom(ctx, pgx.Identifier{"analytics_events"}, eventColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("analytics: copy events: %w", err)
	}
	return n, nil
}
