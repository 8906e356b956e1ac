package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/givebridge/authfront/internal"
	"github.com/givebridge/authfront/internal/config"
	"github.com/givebridge/authfront/internal/log"
	"github.com/givebridge/authfront/internal/profile"
)

var BuildVersion = "dev"

// dumpProfiles prints every stored profile as indented JSON, for
// operational inspection of the Firestore collection
func dumpProfiles(ctx context.Context, cfg *config.Config) error {
	if cfg.ProfileBackend != "firestore" {
		return fmt.Errorf("profile dump requires PROFILE_BACKEND=firestore")
	}

	store, err := profile.NewFirestoreStore(ctx, cfg.FirestoreProject, cfg.FirestoreCollection)
	if err != nil {
		return fmt.Errorf("failed to open profile storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	profiles, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func main() {
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	dump := flag.Bool("dump-profiles", false, "print all stored profiles and exit")
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *dump {
		if err := dumpProfiles(ctx, cfg); err != nil {
			log.LogError("Failed to dump profiles: %v", err)
			os.Exit(1)
		}
		return
	}

	log.LogInfoWithFields("main", "Starting authfront", map[string]any{
		"version": BuildVersion,
	})

	app, err := internal.NewAuthFront(ctx, cfg)
	if err != nil {
		log.LogError("Failed to create auth front: %v", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		log.LogError("Failed to start server: %v", err)
		os.Exit(1)
	}
}
