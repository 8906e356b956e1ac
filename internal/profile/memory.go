package profile

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process profile store, used in development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty profile store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*Profile),
	}
}

// Get returns a copy of the profile for the subject, or ErrProfileNotFound
func (s *MemoryStore) Get(ctx context.Context, subjectID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[subjectID]
	if !ok {
		return nil, ErrProfileNotFound
	}

	profile := *p
	return &profile, nil
}

// Upsert inserts the profile if absent, else ignores it
func (s *MemoryStore) Upsert(ctx context.Context, profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[profile.SubjectID]; exists {
		return nil
	}

	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	s.profiles[profile.SubjectID] = &profile
	return nil
}

// Put stores or replaces a profile unconditionally. Used to seed tests
// and by administrative tooling; the reconciliation flow only uses Upsert.
func (s *MemoryStore) Put(ctx context.Context, profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile.UpdatedAt = time.Now()
	if existing, ok := s.profiles[profile.SubjectID]; ok {
		profile.CreatedAt = existing.CreatedAt
	} else {
		profile.CreatedAt = profile.UpdatedAt
	}
	s.profiles[profile.SubjectID] = &profile
	return nil
}
