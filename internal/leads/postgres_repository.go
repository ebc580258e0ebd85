package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const leadColumns = `id, first_name, COALESCE(last_name, ''), email, COALESCE(phone, ''), capital::float8, segment,
		COALESCE(source, ''), consent, status, COALESCE(profile_id::text, ''), created_at, updated_at`

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(db querier) *PostgresRepository {
	if db == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

// Upsert inserts a lead or refreshes the row with the same email.
func (r *PostgresRepository) Upsert(ctx context.Context, req *RegisterLeadRequest) (*Lead, error) {
	query := `
		INSERT INTO leads (id, first_name, last_name, email, phone, capital, segment, source, consent, status)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6, $7, NULLIF($8, ''), $9, $10)
		ON CONFLICT (email) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone = COALESCE(EXCLUDED.phone, leads.phone),
			capital = EXCLUDED.capital,
			segment = EXCLUDED.segment,
			source = COALESCE(EXCLUDED.source, leads.source),
			consent = leads.consent OR EXCLUDED.consent,
			updated_at = now()
		RETURNING ` + leadColumns
	row := r.db.QueryRow(ctx, query,
		uuid.New(),
		req.FirstName,
		req.LastName,
		req.Email,
		req.Phone,
		req.Capital,
		string(SegmentFor(req.Capital)),
		req.Source,
		req.Consent,
		string(StatusNew),
	)
	lead, err := scanLead(row)
	if err != nil {
		return nil, fmt.Errorf("leads: upsert failed: %w", err)
	}
	return lead, nil
}

func (r *PostgresRepository) UpdateCapital(ctx context.Context, email string, capital float64) (*Lead, error) {
	query := `
		UPDATE leads SET capital = $2, segment = $3, updated_at = now()
		WHERE email = $1
		RETURNING ` + leadColumns
	lead, err := scanLead(r.db.QueryRow(ctx, query, email, capital, string(SegmentFor(capital))))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leads: update capital failed: %w", err)
	}
	return lead, nil
}

// GetByID fetches a lead by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	lead, err := scanLead(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	filter = filter.normalized()
	var (
		where []string
		args  []any
	)
	if filter.Segment != "" {
		args = append(args, string(filter.Segment))
		where = append(where, fmt.Sprintf("segment = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + leadColumns + ` FROM leads`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) MarkConverted(ctx context.Context, id, profileID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE leads SET status = $2, profile_id = $3, updated_at = now()
		WHERE id = $1
	`, id, string(StatusConverted), profileID)
	if err != nil {
		return fmt.Errorf("leads: mark converted failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var (
		lead    Lead
		segment string
		status  string
	)
	if err := row.Scan(
		&lead.ID,
		&lead.FirstName,
		&lead.LastName,
		&lead.Email,
		&lead.Phone,
		&lead.Capital,
		&segment,
		&lead.Source,
		&lead.Consent,
		&status,
		&lead.ProfileID,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	lead.Segment = Segment(segment)
	lead.Status = Status(status)
	return &lead, nil
}
