// Package support stores the public contact form messages and serves the
// admin support inbox.
package support

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/trading-academy/internal/listing"
	"github.com/wolfman30/trading-academy/internal/notify"
	"github.com/wolfman30/trading-academy/internal/validation"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

var tracer = otel.Tracer("academy.internal.support")

var (
	ErrNotFound      = errors.New("support: message not found")
	ErrInvalidStatus = errors.New("support: unknown status")
)

type Status string

const (
	StatusNew      Status = "new"
	StatusRead     Status = "read"
	StatusReplied  Status = "replied"
	StatusArchived Status = "archived"
)

// ParseStatus validates an admin-supplied status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusNew, StatusRead, StatusReplied, StatusArchived:
		return st, nil
	}
	return "", ErrInvalidStatus
}

const maxMessageLength = 5000

type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (r *CreateRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Message = strings.TrimSpace(r.Message)
	if err := validation.Required("name", r.Name); err != nil {
		return err
	}
	if err := validation.Email("email", r.Email); err != nil {
		return err
	}
	r.Email = validation.NormalizeEmail(r.Email)
	if err := validation.Required("message", r.Message); err != nil {
		return err
	}
	if len(r.Message) > maxMessageLength {
		return validation.NewFieldError("message", "is too long")
	}
	return nil
}

var Schema = listing.Schema{
	Filterable:  []string{"status", "email"},
	Sortable:    []string{"created_at", "updated_at", "email"},
	DefaultSort: "created_at",
	DefaultDesc: true,
}

const columns = `id, name, email, COALESCE(subject, ''), message, status, created_at, updated_at`

// Store persists contact_messages through database/sql.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("support: sql db required")
	}
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, req *CreateRequest) (*Message, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO contact_messages (id, name, email, subject, message, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		RETURNING `+columns,
		uuid.NewString(), req.Name, req.Email, req.Subject, req.Message, string(StatusNew))
	m, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("support: insert message: %w", err)
	}
	return m, nil
}

func (s *Store) List(ctx context.Context, p listing.Params) ([]*Message, error) {
	query, args := listing.Build(`SELECT `+columns+` FROM contact_messages`, Schema, p)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("support: list messages: %w", err)
	}
	defer rows.Close()

	out := []*Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("support: scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) SetStatus(ctx context.Context, id string, status Status) (*Message, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE contact_messages SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+columns, id, string(status))
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("support: update status: %w", err)
	}
	return m, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contact_messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("support: delete message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var (
		m      Message
		status string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Status = Status(status)
	return &m, nil
}

type inboxNotifier interface {
	SendSupportNotice(ctx context.Context, n notify.SupportNotice) error
}

type repository interface {
	Insert(ctx context.Context, req *CreateRequest) (*Message, error)
	List(ctx context.Context, p listing.Params) ([]*Message, error)
	SetStatus(ctx context.Context, id string, status Status) (*Message, error)
	Delete(ctx context.Context, id string) error
}

// Service stores contact messages and pings the team inbox.
type Service struct {
	repo     repository
	notifier inboxNotifier
	inbox    string
	logger   *logging.Logger
}

// NewService builds the support service. With an empty inbox no
// notification is sent.
func NewService(repo repository, notifier inboxNotifier, inbox string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, notifier: notifier, inbox: strings.TrimSpace(inbox), logger: logger}
}

func (s *Service) Submit(ctx context.Context, req *CreateRequest) (*Message, error) {
	ctx, span := tracer.Start(ctx, "support.submit")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	m, err := s.repo.Insert(ctx, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("support.message_id", m.ID))

	if s.notifier != nil && s.inbox != "" {
		if err := s.notifier.SendSupportNotice(ctx, notify.SupportNotice{
			Inbox:   s.inbox,
			From:    m.Email,
			Name:    m.Name,
			Subject: m.Subject,
			Message: m.Message,
		}); err != nil {
			// The message is stored; the inbox ping is best-effort.
			s.logger.Warn("support inbox notification failed", "error", err, "message_id", m.ID)
		}
	}
	s.logger.Info("contact message received", "message_id", m.ID)
	return m, nil
}

func (s *Service) List(ctx context.Context, p listing.Params) ([]*Message, error) {
	return s.repo.List(ctx, p)
}

func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*Message, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.repo.SetStatus(ctx, id, st)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
