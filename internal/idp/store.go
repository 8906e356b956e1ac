package idp

import (
	"context"
	"sync"
	"time"
)

// SessionStore is the provider's local session store, keyed by tab
// identifier. The poller reads it; SetSession writes it.
type SessionStore interface {
	Get(ctx context.Context, tabID string) (*Session, error)
	Put(ctx context.Context, tabID string, session *Session) error
	Delete(ctx context.Context, tabID string) error
}

// MemorySessionStore is an in-process SessionStore with TTL-based expiry.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]storedSession
	ttl      time.Duration
}

type storedSession struct {
	session Session
	expires time.Time
}

// DefaultSessionTTL bounds how long an unrefreshed session stays readable
const DefaultSessionTTL = 24 * time.Hour

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates a session store. A zero ttl uses
// DefaultSessionTTL.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{
		sessions: make(map[string]storedSession),
		ttl:      ttl,
	}
}

// Get returns a copy of the stored session, or ErrNoSession
func (s *MemorySessionStore) Get(ctx context.Context, tabID string) (*Session, error) {
	s.mu.RLock()
	stored, ok := s.sessions[tabID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNoSession
	}
	if time.Now().After(stored.expires) {
		s.mu.Lock()
		delete(s.sessions, tabID)
		s.mu.Unlock()
		return nil, ErrNoSession
	}

	session := stored.session
	return &session, nil
}

// Put stores a copy of the session under the tab identifier
func (s *MemorySessionStore) Put(ctx context.Context, tabID string, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[tabID] = storedSession{
		session: *session,
		expires: time.Now().Add(s.ttl),
	}
	return nil
}

// Delete removes the session for the tab
func (s *MemorySessionStore) Delete(ctx context.Context, tabID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, tabID)
	return nil
}
