package appointments

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

const selectColumns = `id, first_name, last_name, email, phone, location, type, availability, goals,
		COALESCE(offer_id, ''), COALESCE(offer_name, ''), COALESCE(source, ''), COALESCE(session_id, ''),
		status, COALESCE(admin_notes, ''), created_at, updated_at`

// PostgresRepository stores requests in rdv_requests.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository accepts a *pgxpool.Pool or any compatible querier.
func NewPostgresRepository(db querier) *PostgresRepository {
	if db == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, req *CreateRequest) (*Request, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO rdv_requests (id, first_name, last_name, email, phone, location, type, availability, goals,
			offer_id, offer_name, source, session_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''), $14)
		RETURNING ` + selectColumns
	row := r.db.QueryRow(ctx, query,
		uuid.New(),
		req.FirstName,
		req.LastName,
		req.Email,
		req.Phone,
		req.Location,
		req.Type,
		req.Availability,
		req.Goals,
		req.OfferID,
		req.OfferName,
		req.Source,
		req.SessionID,
		string(StatusPending),
	)
	out, err := scanRequest(row)
	if err != nil {
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Request, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM rdv_requests WHERE id = $1`, id)
	out, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Request, error) {
	filter = filter.normalized()

	var b strings.Builder
	b.WriteString(`SELECT ` + selectColumns + ` FROM rdv_requests`)
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		fmt.Fprintf(&b, " WHERE status = $%d", len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	fmt.Fprintf(&b, " ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	out := []*Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id string, from, to Status) (*Request, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE rdv_requests SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+selectColumns, id, string(from), string(to))
	out, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the row is gone or another admin changed it first.
			if _, getErr := r.Get(ctx, id); errors.Is(getErr, ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("appointments: update status: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) SetNotes(ctx context.Context, id, notes string) (*Request, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE rdv_requests SET admin_notes = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+selectColumns, id, notes)
	out, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: update notes: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM rdv_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointments: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRequest(row pgx.Row) (*Request, error) {
	var (
		req    Request
		status string
	)
	if err := row.Scan(
		&req.ID,
		&req.FirstName,
		&req.LastName,
		&req.Email,
		&req.Phone,
		&req.Location,
		&req.Type,
		&req.Availability,
		&req.Goals,
		&req.OfferID,
		&req.OfferName,
		&req.Source,
		&req.SessionID,
		&status,
		&req.AdminNotes,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	req.Status = Status(status)
	return &req, nil
}
