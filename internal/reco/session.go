package reco

import (
	"context"
	"sync"
	"time"

	"moovstream/recoservice/internal/domain"
)

// SessionStore holds the last result set and preferences per client session.
// Writes always win over older entries; reads of expired entries miss.
type SessionStore interface {
	Get(ctx context.Context, id string) (domain.Session, bool)
	Put(ctx context.Context, id string, session domain.Session)
}

// MemoryStore is the in-process session store. Expired entries are pruned
// lazily on writes.
type MemoryStore struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]domain.Session
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]domain.Session),
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (domain.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.entries[id]
	if !ok || time.Since(session.UpdatedAt) > m.ttl {
		return domain.Session{}, false
	}
	return session, true
}

func (m *MemoryStore) Put(_ context.Context, id string, session domain.Session) {
	if id == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.entries {
		if time.Since(entry.UpdatedAt) > m.ttl {
			delete(m.entries, key)
		}
	}
	m.entries[id] = session
}

// MirroredStore layers a best-effort durable mirror under the primary store:
// writes go to both, reads fall back to the mirror on a primary miss (e.g.
// after a process restart).
type MirroredStore struct {
	primary SessionStore
	mirror  SessionStore
}

func NewMirroredStore(primary, mirror SessionStore) *MirroredStore {
	return &MirroredStore{primary: primary, mirror: mirror}
}

func (m *MirroredStore) Get(ctx context.Context, id string) (domain.Session, bool) {
	if session, ok := m.primary.Get(ctx, id); ok {
		return session, true
	}
	session, ok := m.mirror.Get(ctx, id)
	if ok {
		m.primary.Put(ctx, id, session)
	}
	return session, ok
}

func (m *MirroredStore) Put(ctx context.Context, id string, session domain.Session) {
	m.primary.Put(ctx, id, session)
	m.mirror.Put(ctx, id, session)
}
