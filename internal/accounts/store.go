package accounts

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
)

// Store persists profiles.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	// Create inserts p unless the email already exists, in which case the
	// existing profile is returned with created=false.
	Create(ctx context.Context, p *Profile) (out *Profile, created bool, err error)
	SetLicense(ctx context.Context, id string, tier Tier) error
}

// MemoryStore keeps profiles in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	byEmail map[string]*Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEmail: make(map[string]*Profile)}
}

func (m *MemoryStore) FindByEmail(_ context.Context, email string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) Create(_ context.Context, p *Profile) (*Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(p.Email)
	if existing, ok := m.byEmail[key]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *p
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cp.CreatedAt, cp.UpdatedAt = now, now
	m.byEmail[key] = &cp
	out := cp
	return &out, true, nil
}

func (m *MemoryStore) SetLicense(_ context.Context, id string, tier Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byEmail {
		if p.ID == id {
			p.License = tier
			p.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore stores profiles in the profiles table.
type PostgresStore struct {
	db querier
}

func NewPostgresStore(db querier) *PostgresStore {
	if db == nil {
		panic("accounts: pgx pool required")
	}
	return &PostgresStore{db: db}
}

const profileColumns = `id, email, COALESCE(full_name, ''), COALESCE(password_hash, ''), COALESCE(license, ''), created_at, updated_at`

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	row := s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, email)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("accounts: find profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Create(ctx context.Context, p *Profile) (*Profile, bool, error) {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO profiles (id, email, full_name, password_hash, license)
		VALUES ($1, lower($2), $3, $4, NULLIF($5, ''))
		ON CONFLICT (email) DO NOTHING
		RETURNING `+profileColumns, id, p.Email, p.FullName, p.PasswordHash, string(p.License))
	out, err := scanProfile(row)
	if err == nil {
		return out, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("accounts: insert profile: %w", err)
	}
	existing, err := s.FindByEmail(ctx, p.Email)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *PostgresStore) SetLicense(ctx context.Context, id string, tier Tier) error {
	tag, err := s.db.Exec(ctx, `UPDATE profiles SET license = $2, updated_at = now() WHERE id = $1`, id, string(tier))
	if err != nil {
		return fmt.Errorf("accounts: update license: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var (
		p       Profile
		license string
	)
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.PasswordHash, &license, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.License = Tier(license)
	return &p, nil
}
