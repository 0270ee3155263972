package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ashureev/honeytrap/internal/domain"
)

// MemoryStore implements Repository in process memory. Sessions are cloned
// on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	now      func() time.Time
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.Session), now: time.Now}
}

// GetSession retrieves a session by id.
func (m *MemoryStore) GetSession(_ context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

// CreateSession stores a new session.
func (m *MemoryStore) CreateSession(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return ErrSessionExists
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

// UpdateSession replaces a stored session.
func (m *MemoryStore) UpdateSession(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrSessionNotFound
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

// DeleteSession removes a session.
func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// ListIdleSessions returns sessions idle for longer than idle, oldest first.
func (m *MemoryStore) ListIdleSessions(_ context.Context, idle time.Duration) ([]*domain.Session, error) {
	threshold := m.now().Add(-idle)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Session
	for _, s := range m.sessions {
		if s.LastActivity.Before(threshold) {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.Before(out[j].LastActivity) })
	return out, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
