package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Addr:           ":8080",
		IDPURL:         "https://idp.example.com",
		IDPAnonKey:     "anon-key",
		ProbeTimeout:   time.Second,
		PollBackoff:    500 * time.Millisecond,
		HomePath:       "/",
		LoginPath:      "/login",
		ProfileBackend: "memory",
		SigningKey:     "signing-key",
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateAggregatesProblems(t *testing.T) {
	cfg := validConfig()
	cfg.IDPURL = ""
	cfg.SigningKey = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IDP_URL")
	assert.Contains(t, err.Error(), "COOKIE_SIGNING_KEY")
}

func TestValidateFirestoreRequiresProject(t *testing.T) {
	cfg := validConfig()
	cfg.ProfileBackend = "firestore"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIRESTORE_PROJECT")

	cfg.FirestoreProject = "my-project"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := validConfig()
	cfg.ProfileBackend = "redis"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROFILE_BACKEND")
}

func TestValidateEncryptionKeyLength(t *testing.T) {
	cfg := validConfig()
	cfg.EncryptionKey = "short"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")

	cfg.EncryptionKey = strings.Repeat("k", 32)
	require.NoError(t, cfg.Validate())
}

func TestValidateRelativePathsRejected(t *testing.T) {
	cfg := validConfig()
	cfg.HomePath = "home"
	cfg.LoginPath = "login"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOME_PATH")
	assert.Contains(t, err.Error(), "LOGIN_PATH")
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("IDP_URL", "https://idp.example.com")
	t.Setenv("IDP_ANON_KEY", "anon-key")
	t.Setenv("COOKIE_SIGNING_KEY", "signing-key")
	t.Setenv("POLL_BACKOFF", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "https://idp.example.com", cfg.IDPURL)
	assert.Equal(t, 250*time.Millisecond, cfg.PollBackoff)
	assert.Equal(t, "memory", cfg.ProfileBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}
