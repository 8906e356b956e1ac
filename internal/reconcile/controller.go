package reconcile

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/givebridge/authfront/internal/callback"
	"github.com/givebridge/authfront/internal/idp"
	"github.com/givebridge/authfront/internal/log"
	"github.com/givebridge/authfront/internal/probe"
	"github.com/givebridge/authfront/internal/user"
)

// Status is a terminal reconciliation outcome.
type Status string

const (
	// StatusSkipped means another invocation owns the flow for this tab
	StatusSkipped Status = "skipped"

	// StatusAborted means the caller went away mid-flight; no state was
	// committed and no navigation was triggered
	StatusAborted Status = "aborted"

	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

// Source names which path produced the authoritative session.
type Source string

const (
	SourceFragment      Source = "fragment"
	SourceBackend       Source = "backend"
	SourcePoll          Source = "poll"
	SourceFragmentRetry Source = "fragment_retry"
)

// FailureReason classifies terminal failures for event emission.
type FailureReason string

const (
	ReasonProviderError   FailureReason = "provider_error"
	ReasonSessionRejected FailureReason = "session_rejected"
	ReasonNoSession       FailureReason = "no_session"
	ReasonUnexpected      FailureReason = "unexpected"
)

const (
	genericRejectedMessage = "Authentication failed. Please try again."
	noSessionMessage       = "No session found. Please sign in again."
	unexpectedMessage      = "Something went wrong during sign-in. Please try again."
)

// Navigator is the navigation primitive. Terminal transitions always use
// replace semantics so the callback URL never remains in history.
type Navigator interface {
	Go(path string, replace bool)
}

// Outcome is the controller's terminal decision plus everything the
// transport layer needs to act on it.
type Outcome struct {
	Status       Status
	Source       Source
	Reason       FailureReason
	RedirectPath string
	// Delay is how long the failure message stays visible before the
	// redirect fires. Zero on success.
	Delay   time.Duration
	Message string
	Origin  Origin
	User    *user.Record
	Session *idp.Session
}

// Config carries the controller's timing knobs and routes.
type Config struct {
	HomePath  string
	LoginPath string

	// PollBackoff is the wait before the single poll retry
	PollBackoff time.Duration

	// ErrorDelay keeps provider-error and rejection messages readable
	// before redirecting to login
	ErrorDelay time.Duration

	// NoSessionDelay is the shorter delay for the generic no-session case
	NoSessionDelay time.Duration
}

// DefaultConfig returns the production timing defaults
func DefaultConfig() Config {
	return Config{
		HomePath:       "/",
		LoginPath:      "/login",
		PollBackoff:    500 * time.Millisecond,
		ErrorDelay:     3 * time.Second,
		NoSessionDelay: 2 * time.Second,
	}
}

// Request is one reconciliation invocation. TabID scopes the guard, the
// session store, and the shared user record; Cookies are forwarded to the
// backend probe; Nav receives the single terminal navigation.
type Request struct {
	TabID   string
	URL     string
	Cookies []*http.Cookie
	Nav     Navigator
}

// Controller sequences the callback reconciliation flow: extract, then at
// most one of fragment bootstrap, backend probe, poll, or fragment retry,
// then hydration and navigation. It owns the terminal decision and
// triggers navigation exactly once per invocation.
type Controller struct {
	idp      idp.Client
	prober   probe.Prober
	hydrator *user.Hydrator
	users    *user.State
	guard    *Guard
	origins  *OriginStore
	cfg      Config
}

// NewController wires the reconciliation flow
func NewController(
	idpClient idp.Client,
	prober probe.Prober,
	hydrator *user.Hydrator,
	users *user.State,
	origins *OriginStore,
	cfg Config,
) *Controller {
	return &Controller{
		idp:      idpClient,
		prober:   prober,
		hydrator: hydrator,
		users:    users,
		guard:    NewGuard(),
		origins:  origins,
		cfg:      cfg,
	}
}

// Run executes one reconciliation. It always settles on a terminal
// outcome, always releases the guard, and never lets a panic escape.
func (c *Controller) Run(ctx context.Context, req Request) (outcome Outcome) {
	flowID := uuid.NewString()

	if !c.guard.TryEnter(req.TabID) {
		log.LogDebugWithFields("reconcile", "Reconciliation already in flight, skipping", map[string]any{
			"tab":  req.TabID,
			"flow": flowID,
		})
		return Outcome{Status: StatusSkipped}
	}
	defer c.guard.Leave(req.TabID)

	defer func() {
		if r := recover(); r != nil {
			log.LogErrorWithFields("reconcile", "Reconciliation panicked", map[string]any{
				"tab":   req.TabID,
				"flow":  flowID,
				"panic": r,
			})
			outcome = c.fail(ctx, req, ReasonUnexpected, unexpectedMessage, c.cfg.NoSessionDelay)
		}
	}()

	// Extraction is pure and happens before any provider call: the
	// provider client may consume the fragment as a side effect.
	payload := callback.Parse(req.URL)

	if payload.FragmentError != nil {
		log.LogWarnWithFields("reconcile", "Provider reported an error", map[string]any{
			"tab":  req.TabID,
			"flow": flowID,
			"code": payload.FragmentError.Code,
		})
		return c.fail(ctx, req, ReasonProviderError, payload.FragmentError.Message(), c.cfg.ErrorDelay)
	}

	// Fragment tokens are the fast path: resolving here skips the
	// backend probe and the poll entirely.
	rejected := false
	if payload.FragmentTokens.Valid() {
		session, err := c.establish(ctx, payload.FragmentTokens, SourceFragment, flowID)
		if err == nil {
			return c.finishSession(ctx, req, payload, session, SourceFragment, flowID)
		}
		rejected = true
	}

	if payload.ServerAuthSuccess {
		record, err := c.prober.Probe(ctx, req.Cookies)
		if err == nil {
			return c.finishRecord(ctx, req, payload, record, flowID)
		}
		if !errors.Is(err, probe.ErrProbeMiss) {
			log.LogWarnWithFields("reconcile", "Backend probe failed unexpectedly", map[string]any{
				"flow":  flowID,
				"error": err.Error(),
			})
		}
		// A miss is not an error; fall through to the poll.
	}

	if session := c.poll(ctx, req.TabID, flowID); session != nil {
		return c.finishSession(ctx, req, payload, session, SourcePoll, flowID)
	}

	// A caller gone during the poll backoff is a teardown, not a failure.
	if ctx.Err() != nil {
		return Outcome{Status: StatusAborted}
	}

	// Last resort: the provider client may have raced its own fragment
	// consumption against the poll, so the already-parsed tokens get one
	// more bootstrap attempt. Capped at this single retry.
	if rejected && payload.FragmentTokens.Valid() {
		session, err := c.establish(ctx, payload.FragmentTokens, SourceFragmentRetry, flowID)
		if err == nil {
			return c.finishSession(ctx, req, payload, session, SourceFragmentRetry, flowID)
		}
	}

	if rejected {
		return c.fail(ctx, req, ReasonSessionRejected, genericRejectedMessage, c.cfg.ErrorDelay)
	}
	return c.fail(ctx, req, ReasonNoSession, noSessionMessage, c.cfg.NoSessionDelay)
}

// establish is the single bootstrap call path, parameterized by which
// source triggered it
func (c *Controller) establish(ctx context.Context, tokens callback.Tokens, source Source, flowID string) (*idp.Session, error) {
	session, err := c.idp.SessionFromTokens(ctx, idp.Tokens{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
	if err != nil {
		log.LogWarnWithFields("reconcile", "Session bootstrap rejected", map[string]any{
			"flow":   flowID,
			"source": string(source),
			"error":  err.Error(),
		})
		return nil, err
	}
	return session, nil
}

// poll checks the provider's local session immediately and once more
// after a fixed backoff. Absence after the retry is final.
func (c *Controller) poll(ctx context.Context, tabID, flowID string) *idp.Session {
	session, err := c.idp.CurrentSession(ctx, tabID)
	if err == nil {
		return session
	}
	if !errors.Is(err, idp.ErrNoSession) {
		log.LogWarnWithFields("reconcile", "Session poll failed", map[string]any{
			"flow":  flowID,
			"error": err.Error(),
		})
	}

	timer := time.NewTimer(c.cfg.PollBackoff)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil
	}

	session, err = c.idp.CurrentSession(ctx, tabID)
	if err != nil {
		return nil
	}
	return session
}

// finishSession commits a provider session: persist, mark origin, commit
// the basic record, navigate, then hand off to background hydration.
// Navigation is the last synchronous effect.
func (c *Controller) finishSession(ctx context.Context, req Request, payload callback.Payload, session *idp.Session, source Source, flowID string) Outcome {
	if ctx.Err() != nil {
		return Outcome{Status: StatusAborted}
	}

	if err := c.idp.SetSession(ctx, req.TabID, session); err != nil {
		log.LogErrorWithFields("reconcile", "Failed to persist session", map[string]any{
			"flow":  flowID,
			"error": err.Error(),
		})
		return c.fail(ctx, req, ReasonUnexpected, unexpectedMessage, c.cfg.NoSessionDelay)
	}

	// Persistence may suspend on a remote store; the caller can go away
	// in the meantime. No shared state is touched once it has.
	if ctx.Err() != nil {
		return Outcome{Status: StatusAborted}
	}

	origin := OriginOAuth
	if payload.FlowType == "recovery" {
		origin = OriginRecovery
	}
	c.origins.Set(req.TabID, origin)

	basic := user.Basic(session)
	c.users.Commit(req.TabID, basic, c.hydrator.NextSeq())

	log.LogInfoWithFields("reconcile", "Session resolved", map[string]any{
		"tab":     req.TabID,
		"flow":    flowID,
		"source":  string(source),
		"subject": session.SubjectID,
	})

	req.Nav.Go(c.cfg.HomePath, true)

	bg := context.WithoutCancel(ctx)
	go c.hydrator.Hydrate(bg, req.TabID, session, basic, c.users)

	return Outcome{
		Status:       StatusResolved,
		Source:       source,
		RedirectPath: c.cfg.HomePath,
		Origin:       origin,
		User:         &basic,
		Session:      session,
	}
}

// finishRecord commits a backend-probed user. The cookie session is the
// backend's; there is no provider session to persist and nothing to
// hydrate beyond what the backend already returned.
func (c *Controller) finishRecord(ctx context.Context, req Request, payload callback.Payload, record *user.Record, flowID string) Outcome {
	if ctx.Err() != nil {
		return Outcome{Status: StatusAborted}
	}

	origin := OriginOAuth
	if payload.FlowType == "recovery" {
		origin = OriginRecovery
	}
	c.origins.Set(req.TabID, origin)

	c.users.Commit(req.TabID, *record, c.hydrator.NextSeq())

	log.LogInfoWithFields("reconcile", "Session resolved", map[string]any{
		"tab":    req.TabID,
		"flow":   flowID,
		"source": string(SourceBackend),
	})

	req.Nav.Go(c.cfg.HomePath, true)

	return Outcome{
		Status:       StatusResolved,
		Source:       SourceBackend,
		RedirectPath: c.cfg.HomePath,
		Origin:       origin,
		User:         record,
	}
}

// fail settles on the failed terminal state. The origin marker is
// cleared, the event emitted, and navigation triggered unless the caller
// already went away.
func (c *Controller) fail(ctx context.Context, req Request, reason FailureReason, message string, delay time.Duration) Outcome {
	c.origins.Clear(req.TabID)

	log.LogInfoWithFields("reconcile", "Reconciliation failed", map[string]any{
		"tab":    req.TabID,
		"reason": string(reason),
	})

	if ctx.Err() == nil {
		req.Nav.Go(c.cfg.LoginPath, true)
	}

	return Outcome{
		Status:       StatusFailed,
		Reason:       reason,
		RedirectPath: c.cfg.LoginPath,
		Delay:        delay,
		Message:      message,
	}
}
