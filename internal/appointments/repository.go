package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists appointment requests.
type Repository interface {
	Create(ctx context.Context, req *CreateRequest) (*Request, error)
	Get(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context, filter ListFilter) ([]*Request, error)
	// SetStatus moves id from -> to. It returns ErrInvalidTransition when
	// the stored status is no longer from.
	SetStatus(ctx context.Context, id string, from, to Status) (*Request, error)
	SetNotes(ctx context.Context, id, notes string) (*Request, error)
	Delete(ctx context.Context, id string) error
}

// MemoryRepository keeps requests in process memory.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]*Request
	now  func() time.Time
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[string]*Request), now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, req *CreateRequest) (*Request, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := r.now().UTC()
	row := &Request{
		ID:           uuid.New().String(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		Location:     req.Location,
		Type:         req.Type,
		Availability: req.Availability,
		Goals:        req.Goals,
		OfferID:      req.OfferID,
		OfferName:    req.OfferName,
		Source:       req.Source,
		SessionID:    req.SessionID,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.mu.Lock()
	r.rows[row.ID] = row
	r.mu.Unlock()
	out := *row
	return &out, nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *row
	return &out, nil
}

func (r *MemoryRepository) List(_ context.Context, filter ListFilter) ([]*Request, error) {
	filter = filter.normalized()
	r.mu.RLock()
	out := make([]*Request, 0, len(r.rows))
	for _, row := range r.rows {
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset >= len(out) {
		return []*Request{}, nil
	}
	out = out[filter.Offset:]
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) SetStatus(_ context.Context, id string, from, to Status) (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if row.Status != from {
		return nil, ErrInvalidTransition
	}
	row.Status = to
	row.UpdatedAt = r.now().UTC()
	out := *row
	return &out, nil
}

func (r *MemoryRepository) SetNotes(_ context.Context, id, notes string) (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	row.AdminNotes = notes
	row.UpdatedAt = r.now().UTC()
	out := *row
	return &out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}
