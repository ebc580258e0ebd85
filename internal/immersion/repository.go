package immersion

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/trading-academy/internal/listing"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const columns = `id, title, COALESCE(description, ''), location, starts_at, duration_minutes, capacity, price_cents, status, created_at, updated_at`

type Repository struct {
	db querier
}

func NewRepository(db querier) *Repository {
	if db == nil {
		panic("immersion: pgx pool required")
	}
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, p listing.Params) ([]*Session, error) {
	query, args := listing.Build(`SELECT `+columns+` FROM immersion_sessions`, Schema, p)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("immersion: list: %w", err)
	}
	defer rows.Close()

	out := []*Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("immersion: scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Upcoming lists scheduled sessions that have not started, for the public
// calendar.
func (r *Repository) Upcoming(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 || limit > listing.MaxLimit {
		limit = listing.DefaultLimit
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+columns+` FROM immersion_sessions
		WHERE status IN ('scheduled', 'full') AND starts_at > now()
		ORDER BY starts_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("immersion: upcoming: %w", err)
	}
	defer rows.Close()

	out := []*Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("immersion: scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, `SELECT `+columns+` FROM immersion_sessions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("immersion: get: %w", err)
	}
	return s, nil
}

func (r *Repository) Create(ctx context.Context, in *Input) (*Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s, err := scanSession(r.db.QueryRow(ctx, `
		INSERT INTO immersion_sessions (id, title, description, location, starts_at, duration_minutes, capacity, price_cents, status)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
		RETURNING `+columns,
		uuid.New(), in.Title, in.Description, in.Location, in.StartsAt, in.DurationMinutes, in.Capacity, in.PriceCents, string(in.Status)))
	if err != nil {
		return nil, fmt.Errorf("immersion: insert: %w", err)
	}
	return s, nil
}

func (r *Repository) Update(ctx context.Context, id string, in *Input) (*Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s, err := scanSession(r.db.QueryRow(ctx, `
		UPDATE immersion_sessions SET title = $2, description = NULLIF($3, ''), location = $4, starts_at = $5,
			duration_minutes = $6, capacity = $7, price_cents = $8, status = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+columns,
		id, in.Title, in.Description, in.Location, in.StartsAt, in.DurationMinutes, in.Capacity, in.PriceCents, string(in.Status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("immersion: update: %w", err)
	}
	return s, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM immersion_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("immersion: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var (
		s      Session
		status string
	)
	if err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Location, &s.StartsAt, &s.DurationMinutes,
		&s.Capacity, &s.PriceCents, &status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Status = Status(status)
	return &s, nil
}
