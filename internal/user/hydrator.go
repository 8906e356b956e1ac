package user

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/givebridge/authfront/internal/idp"
	"github.com/givebridge/authfront/internal/log"
	"github.com/givebridge/authfront/internal/profile"
)

// DefaultHydrateWait bounds how long Hydrate waits in the foreground for
// the profile lookup before settling for the basic record.
const DefaultHydrateWait = 2 * time.Second

// seedTimeout bounds the fire-and-forget minimal-profile insert
const seedTimeout = 10 * time.Second

// Hydrator enriches basic records with profile-store attributes.
// Concurrent hydrations for the same subject share one lookup, and every
// attempt carries a sequence number so out-of-order results are dropped
// instead of applied last-write-wins.
type Hydrator struct {
	profiles profile.Store
	wait     time.Duration
	group    singleflight.Group
	seq      atomic.Uint64
}

// NewHydrator creates a hydrator over the given profile store. A zero
// wait uses DefaultHydrateWait.
func NewHydrator(profiles profile.Store, wait time.Duration) *Hydrator {
	if wait <= 0 {
		wait = DefaultHydrateWait
	}
	return &Hydrator{
		profiles: profiles,
		wait:     wait,
	}
}

// NextSeq reserves the next sequence number. The controller uses it to
// stamp the basic-record commit so later hydrations always outrank it.
func (h *Hydrator) NextSeq() uint64 {
	return h.seq.Add(1)
}

// Hydrate looks up the subject's stored profile, bounded by the
// configured wait, and merges it over base. On timeout it returns base
// while the lookup keeps running and applies its result to state when it
// lands. A missing profile returns base and triggers a background
// minimal-profile insert.
func (h *Hydrator) Hydrate(ctx context.Context, tabID string, session *idp.Session, base Record, state *State) Record {
	seq := h.seq.Add(1)

	// The lookup outlives the foreground wait: detach it from the
	// caller's deadline but keep its cancellation cause out of play.
	lookupCtx := context.WithoutCancel(ctx)

	done := make(chan Record, 1)
	go func() {
		record := h.lookup(lookupCtx, session, base)
		if state.Commit(tabID, record, seq) {
			log.LogDebugWithFields("hydrator", "Hydration applied", map[string]any{
				"tab":     tabID,
				"subject": session.SubjectID,
				"seq":     seq,
			})
		} else {
			log.LogDebugWithFields("hydrator", "Stale hydration discarded", map[string]any{
				"tab":     tabID,
				"subject": session.SubjectID,
				"seq":     seq,
			})
		}
		done <- record
	}()

	timer := time.NewTimer(h.wait)
	defer timer.Stop()

	select {
	case record := <-done:
		return record
	case <-timer.C:
		log.LogDebugWithFields("hydrator", "Profile lookup exceeded wait, continuing in background", map[string]any{
			"subject": session.SubjectID,
			"wait":    h.wait.String(),
		})
		return base
	case <-ctx.Done():
		return base
	}
}

// lookup fetches and merges the stored profile, deduplicating concurrent
// fetches for the same subject
func (h *Hydrator) lookup(ctx context.Context, session *idp.Session, base Record) Record {
	v, err, _ := h.group.Do(session.SubjectID, func() (any, error) {
		return h.profiles.Get(ctx, session.SubjectID)
	})
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			go h.seed(session, base)
		} else {
			log.LogWarnWithFields("hydrator", "Profile lookup failed", map[string]any{
				"subject": session.SubjectID,
				"error":   err.Error(),
			})
		}
		return base
	}
	return base.MergeProfile(v.(*profile.Profile))
}

// seed inserts a minimal profile for a first-time user. Not awaited by
// the reconciliation flow; failures are logged and retried on the next
// sign-in.
func (h *Hydrator) seed(session *idp.Session, base Record) {
	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()

	err := h.profiles.Upsert(ctx, profile.Profile{
		SubjectID: session.SubjectID,
		Email:     session.Email,
		FullName:  session.MetadataClaim("user_metadata", "full_name"),
		Role:      base.Role,
	})
	if err != nil {
		log.LogWarnWithFields("hydrator", "Minimal profile insert failed", map[string]any{
			"subject": session.SubjectID,
			"error":   err.Error(),
		})
		return
	}

	log.LogInfoWithFields("hydrator", "Minimal profile created", map[string]any{
		"subject": session.SubjectID,
	})
}
