package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. It backs single-node
// deployments without Redis and all of the tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	pending  map[string]pendingEntry
}

type pendingEntry struct {
	login     PendingLogin
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		pending:  make(map[string]pendingEntry),
	}
}

func (m *MemoryStore) Create(ctx context.Context, s Session) error {
	if s.SessionID == "" || s.UserID == 0 {
		return fmt.Errorf("session: missing session_id or user_id")
	}
	if !s.ExpiresAt.After(time.Now()) {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = s
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if time.Now().After(s.ExpiresAt) {
		delete(m.sessions, sessionID)
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) Update(ctx context.Context, s Session) error {
	if s.SessionID == "" {
		return fmt.Errorf("session: missing session_id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Now().After(s.ExpiresAt) {
		delete(m.sessions, s.SessionID)
		return nil
	}
	m.sessions[s.SessionID] = s
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStore) PutPending(
	ctx context.Context,
	sessionID string,
	p PendingLogin,
	ttl time.Duration,
) error {
	if sessionID == "" {
		return fmt.Errorf("session: missing session_id")
	}
	if ttl <= 0 {
		return fmt.Errorf("session: pending ttl must be positive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[sessionID] = pendingEntry{
		login:     p,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *MemoryStore) TakePending(
	ctx context.Context,
	sessionID string,
) (*PendingLogin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.pending[sessionID]
	if !ok {
		return nil, nil
	}
	delete(m.pending, sessionID)

	if time.Now().After(e.expiresAt) {
		return nil, nil
	}
	return &e.login, nil
}
