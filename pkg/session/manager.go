package session

import (
	"context"
	"sort"
	"sync"

	"github.com/agora-dev/agora/pkg/observability"
)

// DefaultSessionID names the session used when a caller does not pick one.
const DefaultSessionID = "default"

// Manager owns the live sessions of the process. Sessions are independent:
// rounds in different sessions may run fully in parallel.
// Manager is safe for concurrent use.
type Manager struct {
	backend StorageBackend

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager journaling through the given backend.
// A nil backend disables journaling.
func NewManager(backend StorageBackend) *Manager {
	if backend == nil {
		backend = NewNopBackend()
	}
	return &Manager{
		backend:  backend,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the named session, creating a mediator-only state on
// first use. Idempotent: the topic only applies when the session is created.
func (m *Manager) GetOrCreate(ctx context.Context, id, topic string) *Session {
	if id == "" {
		id = DefaultSessionID
	}

	m.mu.RLock()
	if sess, ok := m.sessions[id]; ok {
		m.mu.RUnlock()
		return sess
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		return sess
	}
	sess := newSession(id, topic, m.backend)
	sess.journalState(ctx)
	m.sessions[id] = sess
	observability.SetActiveSessions(len(m.sessions))
	return sess
}

// Get returns the named session, or nil when it does not exist.
func (m *Manager) Get(id string) *Session {
	if id == "" {
		id = DefaultSessionID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// List returns the ids of all live sessions, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Delete removes a session and its journal.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	observability.SetActiveSessions(len(m.sessions))
	m.mu.Unlock()

	return m.backend.DeleteSession(ctx, id)
}

// Close releases the storage backend.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.sessions = make(map[string]*Session)
	observability.SetActiveSessions(0)
	m.mu.Unlock()

	return m.backend.Close()
}
