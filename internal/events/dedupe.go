package events

import (
	"context"
	"sync"
	"time"
)

// Deduper claims provider event ids so each delivery is handled once.
type Deduper interface {
	// Claim returns true the first time (provider, eventID) is seen.
	Claim(ctx context.Context, provider, eventID string) (bool, error)
	// Release forgets a claim after a processing failure.
	Release(ctx context.Context, provider, eventID string) error
}

// MemoryDeduper is a short-lived in-process cache of handled event ids.
type MemoryDeduper struct {
	mu        sync.Mutex
	ttl       time.Duration
	seen      map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryDeduper{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

func dedupeKey(provider, eventID string) string {
	return provider + ":" + eventID
}

func (m *MemoryDeduper) Claim(_ context.Context, provider, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if now.Sub(m.lastSweep) >= m.ttl {
		for k, exp := range m.seen {
			if !now.Before(exp) {
				delete(m.seen, k)
			}
		}
		m.lastSweep = now
	}
	key := dedupeKey(provider, eventID)
	if exp, ok := m.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.seen[key] = now.Add(m.ttl)
	return true, nil
}

func (m *MemoryDeduper) Release(_ context.Context, provider, eventID string) error {
	m.mu.Lock()
	delete(m.seen, dedupeKey(provider, eventID))
	m.mu.Unlock()
	return nil
}

// LayeredDeduper checks the memory cache first and then the
// processed_events table, so replays are caught across restarts too.
type LayeredDeduper struct {
	cache *MemoryDeduper
	store *ProcessedStore
}

func NewLayeredDeduper(cache *MemoryDeduper, store *ProcessedStore) *LayeredDeduper {
	return &LayeredDeduper{cache: cache, store: store}
}

func (l *LayeredDeduper) Claim(ctx context.Context, provider, eventID string) (bool, error) {
	fresh, err := l.cache.Claim(ctx, provider, eventID)
	if err != nil || !fresh {
		return fresh, err
	}
	if l.store == nil {
		return true, nil
	}
	inserted, err := l.store.MarkProcessed(ctx, provider, eventID)
	if err != nil {
		_ = l.cache.Release(ctx, provider, eventID)
		return false, err
	}
	return inserted, nil
}

func (l *LayeredDeduper) Release(ctx context.Context, provider, eventID string) error {
	_ = l.cache.Release(ctx, provider, eventID)
	if l.store == nil {
		return nil
	}
	return l.store.Unmark(ctx, provider, eventID)
}
