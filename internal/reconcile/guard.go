package reconcile

import "sync"

// Guard prevents two overlapping reconciliations for the same browsing
// context. It is keyed by a caller-supplied tab identifier rather than
// ambient shared storage, which keeps it testable in isolation.
//
// Leave must run on every exit path. A guard left set would turn every
// later callback in that tab into a silent skip.
type Guard struct {
	mu       sync.Mutex
	inFlight map[string]bool
}

// NewGuard creates an empty guard
func NewGuard() *Guard {
	return &Guard{
		inFlight: make(map[string]bool),
	}
}

// TryEnter marks the tab as in-flight. Returns false without side effects
// when a prior invocation still owns the flow.
func (g *Guard) TryEnter(tabID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight[tabID] {
		return false
	}
	g.inFlight[tabID] = true
	return true
}

// Leave clears the in-flight mark unconditionally
func (g *Guard) Leave(tabID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.inFlight, tabID)
}

// Held reports whether the tab is currently marked in-flight
func (g *Guard) Held(tabID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.inFlight[tabID]
}
