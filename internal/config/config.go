package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full service configuration, loaded from environment
// variables. A .env file in the working directory is honored when present
// so local development does not need exported variables.
type Config struct {
	Addr    string `env:"ADDR" envDefault:":8080"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Identity provider (GoTrue-compatible)
	IDPURL       string `env:"IDP_URL"`
	IDPAnonKey   string `env:"IDP_ANON_KEY"`
	IDPJWTSecret string `env:"IDP_JWT_SECRET"`

	// Backend whose cookie session the probe checks
	BackendProbeURL string        `env:"BACKEND_PROBE_URL"`
	ProbeTimeout    time.Duration `env:"PROBE_TIMEOUT" envDefault:"1s"`

	// Reconciliation timing
	PollBackoff    time.Duration `env:"POLL_BACKOFF" envDefault:"500ms"`
	HydrateWait    time.Duration `env:"HYDRATE_WAIT" envDefault:"2s"`
	ErrorDelay     time.Duration `env:"ERROR_REDIRECT_DELAY" envDefault:"3s"`
	NoSessionDelay time.Duration `env:"NO_SESSION_REDIRECT_DELAY" envDefault:"2s"`

	// Post-reconciliation routes
	HomePath  string `env:"HOME_PATH" envDefault:"/"`
	LoginPath string `env:"LOGIN_PATH" envDefault:"/login"`

	// Profile storage: "memory" or "firestore"
	ProfileBackend      string `env:"PROFILE_BACKEND" envDefault:"memory"`
	FirestoreProject    string `env:"FIRESTORE_PROJECT"`
	FirestoreCollection string `env:"FIRESTORE_COLLECTION" envDefault:"profiles"`

	// Cookie protection keys
	SigningKey    string `env:"COOKIE_SIGNING_KEY"`
	EncryptionKey string `env:"COOKIE_ENCRYPTION_KEY"`

	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
}

// Load reads configuration from the environment, preferring an optional
// .env file for local development
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration and aggregates every problem
// into a single error so operators fix them in one pass
func (c *Config) Validate() error {
	var problems []string

	if c.IDPURL == "" {
		problems = append(problems, "IDP_URL is required")
	}
	if c.IDPAnonKey == "" {
		problems = append(problems, "IDP_ANON_KEY is required")
	}
	switch c.ProfileBackend {
	case "memory":
	case "firestore":
		if c.FirestoreProject == "" {
			problems = append(problems, "FIRESTORE_PROJECT is required when PROFILE_BACKEND=firestore")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown PROFILE_BACKEND %q (expected memory or firestore)", c.ProfileBackend))
	}

	if c.SigningKey == "" {
		problems = append(problems, "COOKIE_SIGNING_KEY is required")
	}
	if c.EncryptionKey != "" && len(c.EncryptionKey) != 32 {
		problems = append(problems, "COOKIE_ENCRYPTION_KEY must be exactly 32 bytes")
	}

	if c.ProbeTimeout <= 0 {
		problems = append(problems, "PROBE_TIMEOUT must be positive")
	}
	if c.PollBackoff <= 0 {
		problems = append(problems, "POLL_BACKOFF must be positive")
	}
	if !strings.HasPrefix(c.HomePath, "/") {
		problems = append(problems, "HOME_PATH must be an absolute path")
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		problems = append(problems, "LOGIN_PATH must be an absolute path")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
