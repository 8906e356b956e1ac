package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/givebridge/authfront/internal/log"
	"github.com/givebridge/authfront/internal/user"
)

// ErrProbeMiss is the single outcome for every way the backend probe can
// fail to produce a session: timeout, transport error, non-2xx, or an
// explicit authenticated:false. None of these are surfaced to the user;
// the controller falls through to the next source.
var ErrProbeMiss = errors.New("backend session probe miss")

// DefaultTimeout bounds the who-am-I round trip
const DefaultTimeout = 1 * time.Second

// Prober checks whether the backend holds a cookie session for the caller.
type Prober interface {
	Probe(ctx context.Context, cookies []*http.Cookie) (*user.Record, error)
}

// HTTPProber probes a who-am-I endpoint with forwarded browser cookies.
type HTTPProber struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
}

var _ Prober = (*HTTPProber)(nil)

// NewHTTPProber creates a prober for the given who-am-I URL. A zero
// timeout uses DefaultTimeout.
func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPProber{
		url:        url,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// whoAmIResponse is the backend's session-check body
type whoAmIResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *user.Record `json:"user,omitempty"`
}

// Probe asks the backend whether a session exists, bounded by the
// configured timeout
func (p *HTTPProber) Probe(ctx context.Context, cookies []*http.Cookie) (*user.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbeMiss, err)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.LogDebugWithFields("probe", "Backend probe request failed", map[string]any{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrProbeMiss, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.LogDebugWithFields("probe", "Backend probe returned non-2xx", map[string]any{
			"status": resp.StatusCode,
		})
		return nil, fmt.Errorf("%w: status %d", ErrProbeMiss, resp.StatusCode)
	}

	var body whoAmIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbeMiss, err)
	}

	if !body.Authenticated || body.User == nil {
		return nil, ErrProbeMiss
	}

	record := *body.User
	if record.Role == "" {
		record.Role = user.RoleDonor
	}
	return &record, nil
}
