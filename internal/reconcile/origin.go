package reconcile

import "sync"

// Origin distinguishes how the session reached the tab. Downstream app
// logic treats a password-recovery return differently from a sign-in.
type Origin string

const (
	OriginNone     Origin = ""
	OriginOAuth    Origin = "oauth"
	OriginRecovery Origin = "recovery"
)

// OriginStore holds the per-tab session origin marker.
type OriginStore struct {
	mu      sync.RWMutex
	origins map[string]Origin
}

// NewOriginStore creates an empty origin store
func NewOriginStore() *OriginStore {
	return &OriginStore{
		origins: make(map[string]Origin),
	}
}

// Set records the origin for a tab
func (s *OriginStore) Set(tabID string, origin Origin) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.origins[tabID] = origin
}

// Get returns the origin for a tab, or "" when unset
func (s *OriginStore) Get(tabID string) Origin {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.origins[tabID]
}

// Clear removes the origin marker for a tab
func (s *OriginStore) Clear(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.origins, tabID)
}
