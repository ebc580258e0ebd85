// Package newsletter signs visitors up for the mailing list and emails them
// the beginner guide as a PDF attachment.
package newsletter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wolfman30/trading-academy/internal/validation"
)

var ErrSubscriberNotFound = errors.New("newsletter: subscriber not found")

// Subscriber is a newsletter_subscribers row.
type Subscriber struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name,omitempty"`
	Source      string     `json:"source,omitempty"`
	GuideSentAt *time.Time `json:"guide_sent_at,omitempty"`
	ArchiveKey  string     `json:"archive_key,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SubscribeRequest is the public subscription body.
type SubscribeRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Source    string `json:"source"`
}

func (r *SubscribeRequest) Validate() error {
	if err := validation.Email("email", r.Email); err != nil {
		return err
	}
	r.Email = validation.NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.Source = strings.TrimSpace(r.Source)
	return nil
}

// Repository persists subscribers. Upsert is keyed by email.
type Repository interface {
	Upsert(ctx context.Context, req *SubscribeRequest) (*Subscriber, error)
	MarkGuideSent(ctx context.Context, id, archiveKey string) error
}

// MemoryRepository keeps subscribers in process memory.
type MemoryRepository struct {
	mu      sync.Mutex
	byEmail map[string]*Subscriber
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byEmail: make(map[string]*Subscriber), now: time.Now}
}

func (m *MemoryRepository) Upsert(_ context.Context, req *SubscribeRequest) (*Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byEmail[req.Email]; ok {
		if req.FirstName != "" {
			s.FirstName = req.FirstName
		}
		cp := *s
		return &cp, nil
	}
	s := &Subscriber{
		ID:        uuid.New().String(),
		Email:     req.Email,
		FirstName: req.FirstName,
		Source:    req.Source,
		CreatedAt: m.now().UTC(),
	}
	m.byEmail[s.Email] = s
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) MarkGuideSent(_ context.Context, id, archiveKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byEmail {
		if s.ID == id {
			at := m.now().UTC()
			s.GuideSentAt = &at
			if archiveKey != "" {
				s.ArchiveKey = archiveKey
			}
			return nil
		}
	}
	return ErrSubscriberNotFound
}

// Get returns a copy of the subscriber with email, for tests and tooling.
func (m *MemoryRepository) Get(email string) (*Subscriber, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byEmail[email]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores subscribers in newsletter_subscribers.
type PostgresRepository struct {
	db querier
}

func NewPostgresRepository(db querier) *PostgresRepository {
	if db == nil {
		panic("newsletter: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, req *SubscribeRequest) (*Subscriber, error) {
	query := `
		INSERT INTO newsletter_subscribers (id, email, first_name, source)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		ON CONFLICT (email) DO UPDATE SET
			first_name = COALESCE(EXCLUDED.first_name, newsletter_subscribers.first_name)
		RETURNING id, email, COALESCE(first_name, ''), COALESCE(source, ''), guide_sent_at, COALESCE(archive_key, ''), created_at
	`
	var s Subscriber
	err := r.db.QueryRow(ctx, query, uuid.New(), req.Email, req.FirstName, req.Source).
		Scan(&s.ID, &s.Email, &s.FirstName, &s.Source, &s.GuideSentAt, &s.ArchiveKey, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("newsletter: upsert subscriber: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) MarkGuideSent(ctx context.Context, id, archiveKey string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE newsletter_subscribers
		SET guide_sent_at = now(), archive_key = COALESCE(NULLIF($2, ''), archive_key)
		WHERE id = $1
	`, id, archiveKey)
	if err != nil {
		return fmt.Errorf("newsletter: mark guide sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}
