package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/givebridge/authfront/internal/emailutil"
	"github.com/givebridge/authfront/internal/ioutil"
	"github.com/givebridge/authfront/internal/log"
	"github.com/givebridge/authfront/internal/urlutil"
)

var (
	// ErrSessionRejected is returned when the provider rejects the token pair
	ErrSessionRejected = errors.New("session rejected by identity provider")

	// ErrNoSession is returned when no local provider session exists
	ErrNoSession = errors.New("no identity provider session")
)

// Client abstracts identity-provider session operations per browsing
// context. Sessions are keyed by the caller-supplied tab identifier.
type Client interface {
	// SessionFromTokens validates a raw token pair and builds a Session
	// from its claims. It does not persist anything.
	SessionFromTokens(ctx context.Context, tokens Tokens) (*Session, error)

	// SetSession persists a session in the provider's local session store.
	SetSession(ctx context.Context, tabID string, session *Session) error

	// CurrentSession returns the locally stored session for the tab, or
	// ErrNoSession.
	CurrentSession(ctx context.Context, tabID string) (*Session, error)
}

// GoTrueClient talks to a GoTrue-compatible identity provider. Access
// tokens are HS256 JWTs; when a JWT secret is configured tokens are
// verified locally, otherwise they are validated against the provider's
// user endpoint. Expired access tokens are refreshed through the
// provider's token endpoint before being rejected.
type GoTrueClient struct {
	baseURL    string
	anonKey    string
	jwtSecret  []byte
	httpClient *http.Client
	sessions   SessionStore
}

var _ Client = (*GoTrueClient)(nil)

// NewGoTrueClient creates a provider client backed by the given session store
func NewGoTrueClient(baseURL, anonKey string, jwtSecret []byte, sessions SessionStore) *GoTrueClient {
	return &GoTrueClient{
		baseURL:    baseURL,
		anonKey:    anonKey,
		jwtSecret:  jwtSecret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		sessions:   sessions,
	}
}

// SessionFromTokens validates the token pair and builds a Session.
// A token pair with an expired access token is refreshed once; anything
// else that fails validation maps to ErrSessionRejected.
func (c *GoTrueClient) SessionFromTokens(ctx context.Context, tokens Tokens) (*Session, error) {
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return nil, fmt.Errorf("%w: incomplete token pair", ErrSessionRejected)
	}

	session, err := c.buildSession(ctx, tokens)
	if err == nil {
		return session, nil
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		log.LogDebugWithFields("idp", "Access token expired, refreshing", nil)
		refreshed, refreshErr := c.refresh(ctx, tokens.RefreshToken)
		if refreshErr != nil {
			return nil, fmt.Errorf("%w: refresh failed: %v", ErrSessionRejected, refreshErr)
		}
		return c.buildSession(ctx, refreshed)
	}

	return nil, err
}

// SetSession persists the session for the tab
func (c *GoTrueClient) SetSession(ctx context.Context, tabID string, session *Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	return c.sessions.Put(ctx, tabID, session)
}

// CurrentSession reads the locally stored session for the tab
func (c *GoTrueClient) CurrentSession(ctx context.Context, tabID string) (*Session, error) {
	return c.sessions.Get(ctx, tabID)
}

// buildSession verifies the access token and assembles a Session from its
// claims, falling back to the provider's user endpoint when no JWT secret
// is configured.
func (c *GoTrueClient) buildSession(ctx context.Context, tokens Tokens) (*Session, error) {
	if len(c.jwtSecret) > 0 {
		claims, err := c.verifyAccessToken(tokens.AccessToken)
		if err != nil {
			return nil, err
		}
		return sessionFromClaims(claims, tokens), nil
	}
	return c.fetchUser(ctx, tokens)
}

func (c *GoTrueClient) verifyAccessToken(accessToken string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("access token expired: %w", jwt.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionRejected, err)
	}
	return claims, nil
}

func sessionFromClaims(claims jwt.MapClaims, tokens Tokens) *Session {
	session := &Session{
		RawClaims: map[string]any(claims),
		CreatedAt: time.Now(),
		Tokens:    tokens,
	}

	if sub, ok := claims["sub"].(string); ok {
		session.SubjectID = sub
	}
	if email, ok := claims["email"].(string); ok {
		session.Email = emailutil.Normalize(email)
	}

	session.Provider = "email"
	if app, ok := claims["app_metadata"].(map[string]any); ok {
		if provider, ok := app["provider"].(string); ok && provider != "" {
			session.Provider = provider
		}
	}
	if iat, ok := claims["iat"].(float64); ok {
		session.CreatedAt = time.Unix(int64(iat), 0)
	}

	return session
}

// gotrueUser is the provider's user endpoint response
type gotrueUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	CreatedAt    time.Time      `json:"created_at"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (c *GoTrueClient) fetchUser(ctx context.Context, tokens Tokens) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlutil.MustJoinPath(c.baseURL, "auth", "v1", "user"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	req.Header.Set("apikey", c.anonKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: user endpoint returned %d", ErrSessionRejected, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user endpoint returned status %d: %s", resp.StatusCode, ioutil.ReadLimited(resp.Body, 1024))
	}

	var user gotrueUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}

	provider := "email"
	if p, ok := user.AppMetadata["provider"].(string); ok && p != "" {
		provider = p
	}

	return &Session{
		SubjectID: user.ID,
		Email:     emailutil.Normalize(user.Email),
		Provider:  provider,
		CreatedAt: user.CreatedAt,
		RawClaims: map[string]any{
			"sub":           user.ID,
			"email":         user.Email,
			"app_metadata":  user.AppMetadata,
			"user_metadata": user.UserMetadata,
		},
		Tokens: tokens,
	}, nil
}

// refresh exchanges a refresh token for a fresh token pair through the
// provider's token endpoint. The provider routes on a grant_type query
// parameter and reads a JSON body, so the request is built by hand.
func (c *GoTrueClient) refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	endpoint := urlutil.MustJoinPath(c.baseURL, "auth", "v1", "token") + "?grant_type=refresh_token"

	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Tokens{}, fmt.Errorf("token refresh failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Tokens{}, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, ioutil.ReadLimited(resp.Body, 1024))
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Tokens{}, fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if body.AccessToken == "" {
		return Tokens{}, fmt.Errorf("token endpoint returned no access token")
	}

	refreshed := Tokens{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = refreshToken
	}
	return refreshed, nil
}
