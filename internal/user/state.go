package user

import (
	"sync"
)

// State is the shared user record per tab. Writers carry a monotonic
// sequence number; a commit with a stale sequence is discarded, so a slow
// hydration can never overwrite a fresher record.
type State struct {
	mu      sync.RWMutex
	records map[string]versioned
}

type versioned struct {
	record Record
	seq    uint64
}

// NewState creates empty shared user state
func NewState() *State {
	return &State{
		records: make(map[string]versioned),
	}
}

// Commit stores the record for the tab if seq is not older than the last
// applied sequence. Returns whether the write was applied.
func (s *State) Commit(tabID string, record Record, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.records[tabID]; ok && seq < current.seq {
		return false
	}
	s.records[tabID] = versioned{record: record, seq: seq}
	return true
}

// Get returns the current record for the tab
func (s *State) Get(tabID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.records[tabID]
	return v.record, ok
}

// Clear removes the record for the tab
func (s *State) Clear(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, tabID)
}
