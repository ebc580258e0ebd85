package challenges

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

const columns = `id, title, COALESCE(description, ''), difficulty, reward_coins, status, starts_at, ends_at, created_at, updated_at`

// Repository stores challenges in Postgres.
type Repository struct {
	db querier
}

func NewRepository(db querier) *Repository {
	if db == nil {
		panic("challenges: pgx pool required")
	}
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, p listing.Params) ([]*Challenge, error) {
	query, args := listing.Build(`SELECT `+columns+` FROM challenges`, Schema, p)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("challenges: list: %w", err)
	}
	defer rows.Close()

	out := []*Challenge{}
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("challenges: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (*Challenge, error) {
	c, err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM challenges WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("challenges: get: %w", err)
	}
	return c, nil
}

func (r *Repository) Create(ctx context.Context, in *Input) (*Challenge, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, err := scan(r.db.QueryRow(ctx, `
		INSERT INTO challenges (id, title, description, difficulty, reward_coins, status, starts_at, ends_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		RETURNING `+columns,
		uuid.New(), in.Title, in.Description, string(in.Difficulty), in.RewardCoins, string(in.Status), in.StartsAt, in.EndsAt))
	if err != nil {
		return nil, fmt.Errorf("challenges: insert: %w", err)
	}
	return c, nil
}

func (r *Repository) Update(ctx context.Context, id string, in *Input) (*Challenge, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, err := scan(r.db.QueryRow(ctx, `
		UPDATE challenges SET title = $2, description = NULLIF($3, ''), difficulty = $4, reward_coins = $5,
			status = $6, starts_at = $7, ends_at = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+columns,
		id, in.Title, in.Description, string(in.Difficulty), in.RewardCoins, string(in.Status), in.StartsAt, in.EndsAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("challenges: update: %w", err)
	}
	return c, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM challenges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("challenges: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scan(row pgx.Row) (*Challenge, error) {
	var (
		c                  Challenge
		difficulty, status string
	)
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &difficulty, &c.RewardCoins, &status,
		&c.StartsAt, &c.EndsAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Difficulty = Difficulty(difficulty)
	c.Status = Status(status)
	return &c, nil
}
