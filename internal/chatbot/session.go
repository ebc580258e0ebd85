package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/trading-academy/internal/chatbot/booking"
)

const maxHistory = 10

// Session is the transient per-visitor state: the booking machine and a
// short rolling history for the LLM fallback.
type Session struct {
	ID        string          `json:"id"`
	Machine   booking.Machine `json:"machine"`
	History   []ChatMessage   `json:"history,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func newSession(id string) *Session {
	return &Session{ID: id, Machine: booking.Initial()}
}

func (s *Session) remember(role, content string) {
	s.History = append(s.History, ChatMessage{Role: role, Content: content})
	if len(s.History) > maxHistory {
		s.History = s.History[len(s.History)-maxHistory:]
	}
}

// SessionStore caches sessions. It is never the system of record.
type SessionStore interface {
	// Load returns a fresh session when id is unknown or expired.
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemorySessionStore keeps sessions in process memory with a TTL.
type MemorySessionStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	sessions  map[string]*Session
	lastSweep time.Time
	now       func() time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemorySessionStore{ttl: ttl, sessions: make(map[string]*Session), now: time.Now}
}

func (m *MemorySessionStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	s, ok := m.sessions[id]
	if !ok || now.Sub(s.UpdatedAt) > m.ttl {
		return newSession(id), nil
	}
	cp := *s
	cp.History = append([]ChatMessage(nil), s.History...)
	return &cp, nil
}

func (m *MemorySessionStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.History = append([]ChatMessage(nil), s.History...)
	cp.UpdatedAt = m.now()
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.ttl {
		return
	}
	m.lastSweep = now
	for id, s := range m.sessions {
		if now.Sub(s.UpdatedAt) > m.ttl {
			delete(m.sessions, id)
		}
	}
}

// RedisSessionStore stores sessions as JSON with a TTL so that several API
// instances share booking progress.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		panic("chatbot: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return "chatbot:session:" + id
}

func (r *RedisSessionStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return newSession(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("chatbot: load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("chatbot: decode session: %w", err)
	}
	s.ID = id
	return &s, nil
}

func (r *RedisSessionStore) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("chatbot: encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(s.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("chatbot: save session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("chatbot: delete session: %w", err)
	}
	return nil
}
