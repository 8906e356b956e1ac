package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/givebridge/authfront/internal/config"
	"github.com/givebridge/authfront/internal/crypto"
	"github.com/givebridge/authfront/internal/idp"
	"github.com/givebridge/authfront/internal/log"
	"github.com/givebridge/authfront/internal/probe"
	"github.com/givebridge/authfront/internal/profile"
	"github.com/givebridge/authfront/internal/reconcile"
	"github.com/givebridge/authfront/internal/server"
	"github.com/givebridge/authfront/internal/user"
)

const csrfTTL = 1 * time.Hour

// AuthFront is the complete auth front application
type AuthFront struct {
	config     *config.Config
	httpServer *server.HTTPServer
	profiles   profile.Store
	closer     func() error
}

// NewAuthFront builds the application with all dependencies wired
func NewAuthFront(ctx context.Context, cfg *config.Config) (*AuthFront, error) {
	log.LogInfoWithFields("authfront", "Building auth front application", map[string]any{
		"addr":     cfg.Addr,
		"idp":      cfg.IDPURL,
		"profiles": cfg.ProfileBackend,
	})

	profiles, closer, err := setupProfiles(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup profile storage: %w", err)
	}

	sessions := idp.NewMemorySessionStore(cfg.SessionTTL)
	idpClient := idp.NewGoTrueClient(cfg.IDPURL, cfg.IDPAnonKey, []byte(cfg.IDPJWTSecret), sessions)

	prober := probe.NewHTTPProber(cfg.BackendProbeURL, cfg.ProbeTimeout)
	hydrator := user.NewHydrator(profiles, cfg.HydrateWait)

	controller := reconcile.NewController(
		idpClient,
		prober,
		hydrator,
		user.NewState(),
		reconcile.NewOriginStore(),
		reconcile.Config{
			HomePath:       cfg.HomePath,
			LoginPath:      cfg.LoginPath,
			PollBackoff:    cfg.PollBackoff,
			ErrorDelay:     cfg.ErrorDelay,
			NoSessionDelay: cfg.NoSessionDelay,
		},
	)

	signingKey := []byte(cfg.SigningKey)

	var encryptor crypto.Encryptor
	if cfg.EncryptionKey != "" {
		encryptor, err = crypto.NewEncryptor([]byte(cfg.EncryptionKey))
		if err != nil {
			return nil, fmt.Errorf("failed to setup session encryption: %w", err)
		}
	} else {
		log.LogWarnWithFields("authfront", "No encryption key configured, session cookie disabled", nil)
	}

	srv := server.New(controller, server.Options{
		CSRF:       crypto.NewCSRFProtection(signingKey, csrfTTL),
		Signer:     crypto.NewTokenSigner(signingKey, cfg.SessionTTL),
		Encryptor:  encryptor,
		SessionTTL: cfg.SessionTTL,
		LoginPath:  cfg.LoginPath,
	})

	return &AuthFront{
		config:     cfg,
		httpServer: server.NewHTTPServer(srv.Handler(), cfg.Addr),
		profiles:   profiles,
		closer:     closer,
	}, nil
}

// Run starts the application and blocks until shutdown
func (a *AuthFront) Run() error {
	log.LogInfoWithFields("authfront", "Starting auth front application", map[string]any{
		"addr": a.config.Addr,
	})

	errChan := make(chan error, 1)
	go func() {
		if err := a.httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var shutdownReason string
	select {
	case sig := <-sigChan:
		shutdownReason = fmt.Sprintf("signal %v", sig)
		log.LogInfoWithFields("authfront", "Received shutdown signal", map[string]any{
			"signal": sig.String(),
		})
	case err := <-errChan:
		shutdownReason = fmt.Sprintf("error: %v", err)
		log.LogErrorWithFields("authfront", "Shutting down due to error", map[string]any{
			"error": err.Error(),
		})
	}

	log.LogInfoWithFields("authfront", "Starting graceful shutdown", map[string]any{
		"reason":  shutdownReason,
		"timeout": "30s",
	})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		log.LogErrorWithFields("authfront", "HTTP server shutdown error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	if a.closer != nil {
		if err := a.closer(); err != nil {
			log.LogErrorWithFields("authfront", "Profile storage close error", map[string]any{
				"error": err.Error(),
			})
		}
	}

	log.LogInfoWithFields("authfront", "Application shutdown complete", map[string]any{
		"reason": shutdownReason,
	})
	return nil
}

// Profiles exposes the profile store for operational tooling
func (a *AuthFront) Profiles() profile.Store {
	return a.profiles
}

func setupProfiles(ctx context.Context, cfg *config.Config) (profile.Store, func() error, error) {
	switch cfg.ProfileBackend {
	case "firestore":
		store, err := profile.NewFirestoreStore(ctx, cfg.FirestoreProject, cfg.FirestoreCollection)
		if err != nil {
			return nil, nil, err
		}
		log.LogInfoWithFields("authfront", "Using Firestore profile storage", map[string]any{
			"project":    cfg.FirestoreProject,
			"collection": cfg.FirestoreCollection,
		})
		return store, store.Close, nil
	case "memory":
		log.LogInfoWithFields("authfront", "Using in-memory profile storage", nil)
		return profile.NewMemoryStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown profile backend: %s", cfg.ProfileBackend)
	}
}
