package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage. Emails are stored
// normalized, so lookups by email are case-insensitive.
type Repository interface {
	Upsert(ctx context.Context, req *RegisterLeadRequest) (*Lead, error)
	UpdateCapital(ctx context.Context, email string, capital float64) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, filter ListFilter) ([]*Lead, error)
	MarkConverted(ctx context.Context, id, profileID string) error
}

// InMemoryRepository is a stub implementation of Repository using in-memory storage
type InMemoryRepository struct {
	mu      sync.RWMutex
	leads   map[string]*Lead
	byEmail map[string]string
	now     func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads:   make(map[string]*Lead),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *InMemoryRepository) Upsert(_ context.Context, req *RegisterLeadRequest) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()

	if id, ok := r.byEmail[req.Email]; ok {
		lead := r.leads[id]
		lead.FirstName = req.FirstName
		lead.LastName = req.LastName
		if req.Phone != "" {
			lead.Phone = req.Phone
		}
		if req.Source != "" {
			lead.Source = req.Source
		}
		lead.Capital = req.Capital
		lead.Segment = SegmentFor(req.Capital)
		lead.Consent = lead.Consent || req.Consent
		lead.UpdatedAt = now
		cp := *lead
		return &cp, nil
	}

	lead := &Lead{
		ID:        uuid.New().String(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Capital:   req.Capital,
		Segment:   SegmentFor(req.Capital),
		Source:    req.Source,
		Consent:   req.Consent,
		Status:    StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.leads[lead.ID] = lead
	r.byEmail[lead.Email] = lead.ID
	cp := *lead
	return &cp, nil
}

func (r *InMemoryRepository) UpdateCapital(_ context.Context, email string, capital float64) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrLeadNotFound
	}
	lead := r.leads[id]
	lead.Capital = capital
	lead.Segment = SegmentFor(capital)
	lead.UpdatedAt = r.now().UTC()
	cp := *lead
	return &cp, nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	cp := *lead
	return &cp, nil
}

func (r *InMemoryRepository) List(_ context.Context, filter ListFilter) ([]*Lead, error) {
	filter = filter.normalized()
	r.mu.RLock()
	var out []*Lead
	for _, lead := range r.leads {
		if filter.Segment != "" && lead.Segment != filter.Segment {
			continue
		}
		if filter.Status != "" && lead.Status != filter.Status {
			continue
		}
		cp := *lead
		out = append(out, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *InMemoryRepository) MarkConverted(_ context.Context, id, profileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	lead.Status = StatusConverted
	lead.ProfileID = profileID
	lead.UpdatedAt = r.now().UTC()
	return nil
}
