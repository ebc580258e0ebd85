package chatbot

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Analytics event types written to chatbot_analytics.
const (
	EventIntentMatched    = "intent_matched"
	EventLLMFallback      = "llm_fallback"
	EventLLMError         = "llm_error"
	EventBookingStarted   = "booking_started"
	EventBookingSubmitted = "booking_submitted"
	EventBookingFailed    = "booking_failed"
	EventBookingCancelled = "booking_cancelled"
)

// Transcript records conversations for the admin analytics page. Writes are
// best-effort: the engine logs failures and carries on.
type Transcript interface {
	RecordMessage(ctx context.Context, sessionID, role, content, source string) error
	RecordEvent(ctx context.Context, sessionID, eventType, intentID string) error
}

type nopTranscript struct{}

func (nopTranscript) RecordMessage(context.Context, string, string, string, string) error { return nil }
func (nopTranscript) RecordEvent(context.Context, string, string, string) error           { return nil }

// TranscriptStore persists chatbot_conversations, chatbot_messages and
// chatbot_analytics rows.
type TranscriptStore struct {
	db *sql.DB
}

// NewTranscriptStore returns nil for a nil db.
func NewTranscriptStore(db *sql.DB) *TranscriptStore {
	if db == nil {
		return nil
	}
	return &TranscriptStore{db: db}
}

func (s *TranscriptStore) RecordMessage(ctx context.Context, sessionID, role, content, source string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chatbot_conversations (id, session_id, started_at, last_message_at, message_count)
		VALUES ($1, $2, now(), now(), 1)
		ON CONFLICT (session_id) DO UPDATE
		SET last_message_at = now(), message_count = chatbot_conversations.message_count + 1
	`, uuid.New(), sessionID)
	if err != nil {
		return fmt.Errorf("chatbot: upsert conversation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chatbot_messages (id, session_id, role, content, source, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, uuid.New(), sessionID, role, content, source)
	if err != nil {
		return fmt.Errorf("chatbot: insert message: %w", err)
	}
	return nil
}

func (s *TranscriptStore) RecordEvent(ctx context.Context, sessionID, eventType, intentID string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chatbot_analytics (id, session_id, event_type, intent_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), now())
	`, uuid.New(), sessionID, eventType, intentID)
	if err != nil {
		return fmt.Errorf("chatbot: insert analytics event: %w", err)
	}
	return nil
}
