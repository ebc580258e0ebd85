package payments

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Purchase is one completed checkout.
type Purchase struct {
	ID              string    `json:"id"`
	ProfileID       string    `json:"profile_id"`
	Email           string    `json:"email"`
	Tier            string    `json:"tier"`
	PriceID         string    `json:"price_id"`
	StripeSessionID string    `json:"stripe_session_id"`
	StripeEventID   string    `json:"stripe_event_id"`
	AmountTotal     int64     `json:"amount_total"`
	Currency        string    `json:"currency"`
	CreatedAt       time.Time `json:"created_at"`
}

// PurchaseRepository records purchases. Record reports false when the
// Stripe session was already recorded.
type PurchaseRepository interface {
	Record(ctx context.Context, p *Purchase) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*Purchase, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresPurchaseRepository stores rows in purchases.
type PostgresPurchaseRepository struct {
	db querier
}

func NewPostgresPurchaseRepository(db querier) *PostgresPurchaseRepository {
	if db == nil {
		panic("payments: pgx pool required")
	}
	return &PostgresPurchaseRepository{db: db}
}

func (r *PostgresPurchaseRepository) Record(ctx context.Context, p *Purchase) (bool, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query := `
		INSERT INTO purchases (id, profile_id, email, tier, price_id, stripe_session_id, stripe_event_id, amount_total, currency)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, NULLIF($9, ''))
		ON CONFLICT (stripe_session_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		p.ID, p.ProfileID, p.Email, p.Tier, p.PriceID, p.StripeSessionID, p.StripeEventID, p.AmountTotal, p.Currency)
	if err != nil {
		return false, fmt.Errorf("payments: insert purchase: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresPurchaseRepository) List(ctx context.Context, limit, offset int) ([]*Purchase, error) {
	limit, offset = pageBounds(limit, offset)
	rows, err := r.db.Query(ctx, `
		SELECT id, profile_id, email, tier, COALESCE(price_id, ''), stripe_session_id, COALESCE(stripe_event_id, ''),
			amount_total, COALESCE(currency, ''), created_at
		FROM purchases
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("payments: list purchases: %w", err)
	}
	defer rows.Close()

	var out []*Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.ProfileID, &p.Email, &p.Tier, &p.PriceID, &p.StripeSessionID,
			&p.StripeEventID, &p.AmountTotal, &p.Currency, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("payments: scan purchase: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// MemoryPurchaseRepository is used in tests and local runs without a database.
type MemoryPurchaseRepository struct {
	mu        sync.Mutex
	bySession map[string]*Purchase
	now       func() time.Time
}

func NewMemoryPurchaseRepository() *MemoryPurchaseRepository {
	return &MemoryPurchaseRepository{bySession: make(map[string]*Purchase), now: time.Now}
}

func (m *MemoryPurchaseRepository) Record(_ context.Context, p *Purchase) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bySession[p.StripeSessionID]; ok {
		return false, nil
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	cp := *p
	cp.CreatedAt = m.now().UTC()
	m.bySession[p.StripeSessionID] = &cp
	return true, nil
}

func (m *MemoryPurchaseRepository) List(_ context.Context, limit, offset int) ([]*Purchase, error) {
	limit, offset = pageBounds(limit, offset)
	m.mu.Lock()
	out := make([]*Purchase, 0, len(m.bySession))
	for _, p := range m.bySession {
		cp := *p
		out = append(out, &cp)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
