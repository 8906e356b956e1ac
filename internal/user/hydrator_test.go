package user

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/givebridge/authfront/internal/idp"
	"github.com/givebridge/authfront/internal/profile"
)

// slowStore wraps a profile store with a configurable delay
type slowStore struct {
	inner profile.Store
	delay time.Duration

	mu      sync.Mutex
	gets    int
	upserts []profile.Profile
}

func (s *slowStore) Get(ctx context.Context, subjectID string) (*profile.Profile, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.inner.Get(ctx, subjectID)
}

func (s *slowStore) Upsert(ctx context.Context, p profile.Profile) error {
	s.mu.Lock()
	s.upserts = append(s.upserts, p)
	s.mu.Unlock()
	return s.inner.Upsert(ctx, p)
}

func (s *slowStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.upserts)
}

func testSession() *idp.Session {
	return &idp.Session{
		SubjectID: "subject-123",
		Email:     "jane@example.com",
		Provider:  "google",
		RawClaims: map[string]any{
			"user_metadata": map[string]any{"full_name": "Jane Donor"},
		},
	}
}

func TestHydrate_MergesStoredProfile(t *testing.T) {
	store := profile.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), profile.Profile{
		SubjectID:   "subject-123",
		FullName:    "Jane Q. Donor",
		PhoneNumber: "+1-555-0100",
	}))

	h := NewHydrator(store, time.Second)
	state := NewState()
	session := testSession()
	base := Basic(session)

	rec := h.Hydrate(context.Background(), "tab-1", session, base, state)

	assert.Equal(t, "Jane Q. Donor", rec.DisplayName)
	assert.Equal(t, "+1-555-0100", rec.PhoneNumber)

	stored, ok := state.Get("tab-1")
	assert.True(t, ok)
	assert.Equal(t, rec, stored)
}

func TestHydrate_TimeoutReturnsBaseThenAppliesLater(t *testing.T) {
	inner := profile.NewMemoryStore()
	require.NoError(t, inner.Put(context.Background(), profile.Profile{
		SubjectID: "subject-123",
		FullName:  "Jane Q. Donor",
	}))
	store := &slowStore{inner: inner, delay: 100 * time.Millisecond}

	h := NewHydrator(store, 10*time.Millisecond)
	state := NewState()
	session := testSession()
	base := Basic(session)

	rec := h.Hydrate(context.Background(), "tab-1", session, base, state)
	assert.Equal(t, base, rec, "foreground result is the basic record")

	// The lookup keeps running and applies its result to shared state
	assert.Eventually(t, func() bool {
		stored, ok := state.Get("tab-1")
		return ok && stored.DisplayName == "Jane Q. Donor"
	}, time.Second, 10*time.Millisecond)
}

func TestHydrate_NotFoundSeedsMinimalProfile(t *testing.T) {
	store := &slowStore{inner: profile.NewMemoryStore()}

	h := NewHydrator(store, time.Second)
	state := NewState()
	session := testSession()
	base := Basic(session)

	rec := h.Hydrate(context.Background(), "tab-1", session, base, state)
	assert.Equal(t, base, rec)

	assert.Eventually(t, func() bool {
		return store.upsertCount() == 1
	}, time.Second, 10*time.Millisecond)

	seeded, err := store.inner.Get(context.Background(), "subject-123")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", seeded.Email)
	assert.Equal(t, RoleDonor, seeded.Role)
	assert.Equal(t, "Jane Donor", seeded.FullName)
}

func TestHydrate_StaleResultDiscarded(t *testing.T) {
	inner := profile.NewMemoryStore()
	require.NoError(t, inner.Put(context.Background(), profile.Profile{
		SubjectID: "subject-123",
		FullName:  "From Store",
	}))
	store := &slowStore{inner: inner, delay: 50 * time.Millisecond}

	h := NewHydrator(store, 10*time.Millisecond)
	state := NewState()
	session := testSession()
	base := Basic(session)

	// Slow hydration times out in the foreground
	_ = h.Hydrate(context.Background(), "tab-1", session, base, state)

	// A later writer commits with a fresher sequence
	freshSeq := h.NextSeq()
	state.Commit("tab-1", Record{DisplayName: "Fresher"}, freshSeq)

	// The slow result must not overwrite the fresher record
	time.Sleep(100 * time.Millisecond)
	rec, _ := state.Get("tab-1")
	assert.Equal(t, "Fresher", rec.DisplayName)
}

func TestHydrate_ConcurrentLookupsShared(t *testing.T) {
	inner := profile.NewMemoryStore()
	require.NoError(t, inner.Put(context.Background(), profile.Profile{
		SubjectID: "subject-123",
		FullName:  "Jane Q. Donor",
	}))
	store := &slowStore{inner: inner, delay: 30 * time.Millisecond}

	h := NewHydrator(store, time.Second)
	state := NewState()
	session := testSession()
	base := Basic(session)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Hydrate(context.Background(), "tab-1", session, base, state)
		}()
	}
	wg.Wait()

	store.mu.Lock()
	gets := store.gets
	store.mu.Unlock()
	assert.Less(t, gets, 5, "concurrent hydrations should share lookups")
}
