package idp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("super-secret-jwt-signing-key")

func signAccessToken(t *testing.T, claims jwt.MapClaims, secret []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func validClaims(expiry time.Duration) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "subject-123",
		"email": "Donor@Example.com",
		"app_metadata": map[string]any{
			"provider": "google",
		},
		"user_metadata": map[string]any{
			"full_name": "Jane Donor",
		},
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(expiry).Unix(),
	}
}

func TestSessionFromTokens_ValidJWT(t *testing.T) {
	client := NewGoTrueClient("http://idp.invalid", "anon", testSecret, NewMemorySessionStore(0))

	access := signAccessToken(t, validClaims(time.Hour), testSecret)
	session, err := client.SessionFromTokens(context.Background(), Tokens{
		AccessToken:  access,
		RefreshToken: "refresh-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "subject-123", session.SubjectID)
	assert.Equal(t, "donor@example.com", session.Email)
	assert.Equal(t, "google", session.Provider)
	assert.Equal(t, "refresh-1", session.Tokens.RefreshToken)
	assert.Equal(t, "Jane Donor", session.MetadataClaim("user_metadata", "full_name"))
}

func TestSessionFromTokens_IncompletePair(t *testing.T) {
	client := NewGoTrueClient("http://idp.invalid", "anon", testSecret, NewMemorySessionStore(0))

	_, err := client.SessionFromTokens(context.Background(), Tokens{AccessToken: "only-access"})
	assert.ErrorIs(t, err, ErrSessionRejected)

	_, err = client.SessionFromTokens(context.Background(), Tokens{})
	assert.ErrorIs(t, err, ErrSessionRejected)
}

func TestSessionFromTokens_BadSignature(t *testing.T) {
	client := NewGoTrueClient("http://idp.invalid", "anon", testSecret, NewMemorySessionStore(0))

	access := signAccessToken(t, validClaims(time.Hour), []byte("wrong-secret"))
	_, err := client.SessionFromTokens(context.Background(), Tokens{
		AccessToken:  access,
		RefreshToken: "refresh-1",
	})
	assert.ErrorIs(t, err, ErrSessionRejected)
}

func TestSessionFromTokens_ExpiredTokenRefreshes(t *testing.T) {
	fresh := signAccessToken(t, validClaims(time.Hour), testSecret)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The provider routes on the query parameter and requires the
		// apikey header; anything else is a 401.
		require.Equal(t, "/auth/v1/token", r.URL.Path)
		if r.URL.Query().Get("grant_type") != "refresh_token" || r.Header.Get("apikey") != "anon" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}

		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "refresh-1", body.RefreshToken)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  fresh,
			"refresh_token": "refresh-2",
			"token_type":    "bearer",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	client := NewGoTrueClient(srv.URL, "anon", testSecret, NewMemorySessionStore(0))

	expired := signAccessToken(t, validClaims(-time.Minute), testSecret)
	session, err := client.SessionFromTokens(context.Background(), Tokens{
		AccessToken:  expired,
		RefreshToken: "refresh-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "subject-123", session.SubjectID)
	assert.Equal(t, fresh, session.Tokens.AccessToken)
	assert.Equal(t, "refresh-2", session.Tokens.RefreshToken)
}

func TestSessionFromTokens_RefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewGoTrueClient(srv.URL, "anon", testSecret, NewMemorySessionStore(0))

	expired := signAccessToken(t, validClaims(-time.Minute), testSecret)
	_, err := client.SessionFromTokens(context.Background(), Tokens{
		AccessToken:  expired,
		RefreshToken: "refresh-1",
	})
	assert.ErrorIs(t, err, ErrSessionRejected)
}

func TestSessionFromTokens_UserEndpointFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/user", r.URL.Path)
		require.Equal(t, "Bearer opaque-token", r.Header.Get("Authorization"))
		require.Equal(t, "anon", r.Header.Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           "subject-456",
			"email":        "Someone@Example.com",
			"created_at":   time.Now().Format(time.RFC3339),
			"app_metadata": map[string]any{"provider": "email"},
			"user_metadata": map[string]any{
				"name": "Someone",
			},
		})
	}))
	defer srv.Close()

	// No JWT secret configured: validation goes through the user endpoint
	client := NewGoTrueClient(srv.URL, "anon", nil, NewMemorySessionStore(0))

	session, err := client.SessionFromTokens(context.Background(), Tokens{
		AccessToken:  "opaque-token",
		RefreshToken: "refresh-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "subject-456", session.SubjectID)
	assert.Equal(t, "someone@example.com", session.Email)
	assert.Equal(t, "email", session.Provider)
}

func TestSessionFromTokens_UserEndpointRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewGoTrueClient(srv.URL, "anon", nil, NewMemorySessionStore(0))

	_, err := client.SessionFromTokens(context.Background(), Tokens{
		AccessToken:  "bad-token",
		RefreshToken: "refresh-1",
	})
	assert.ErrorIs(t, err, ErrSessionRejected)
}

func TestSetAndCurrentSession(t *testing.T) {
	client := NewGoTrueClient("http://idp.invalid", "anon", testSecret, NewMemorySessionStore(0))
	ctx := context.Background()

	_, err := client.CurrentSession(ctx, "tab-1")
	assert.ErrorIs(t, err, ErrNoSession)

	session := &Session{SubjectID: "subject-123", Email: "donor@example.com", Provider: "google"}
	require.NoError(t, client.SetSession(ctx, "tab-1", session))

	got, err := client.CurrentSession(ctx, "tab-1")
	require.NoError(t, err)
	assert.Equal(t, "subject-123", got.SubjectID)

	// Other tabs do not see it
	_, err = client.CurrentSession(ctx, "tab-2")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSetSession_NilSession(t *testing.T) {
	client := NewGoTrueClient("http://idp.invalid", "anon", testSecret, NewMemorySessionStore(0))
	assert.Error(t, client.SetSession(context.Background(), "tab-1", nil))
}
