package dialog

import (
	"context"
	"sync"
)

// SessionStore keeps one Session per user. Implementations return a copy on
// Get and persist a copy on Put, so callers always work on their own session
// and write it back explicitly.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Put(ctx context.Context, session *Session) error
	Delete(ctx context.Context, userID int64) error
}

// MemorySessionStore is the default single-process store.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[int64]Session)}
}

func (m *MemorySessionStore) Get(ctx context.Context, userID int64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (m *MemorySessionStore) Put(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.UserID] = *session
	return nil
}

func (m *MemorySessionStore) Delete(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}
