// Package main is the entry point for the videotube API server.
//
// main stays minimal: load configuration, build the logger, open the store
// and the asset store, hand them to the server and block until shutdown.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/videotube/internal/auth"
	"github.com/sakif/videotube/internal/config"
	"github.com/sakif/videotube/internal/logging"
	"github.com/sakif/videotube/internal/repository"
	mongoRepo "github.com/sakif/videotube/internal/repository/mongo"
	sqliteRepo "github.com/sakif/videotube/internal/repository/sqlite"
	"github.com/sakif/videotube/internal/server"
	"github.com/sakif/videotube/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "videotube:", err)
		os.Exit(1)
	}
}

func run() error {
	// === 1. CONFIGURATION & LOGGING ===
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// === 2. STORE ===
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}

	// === 3. ASSET STORE ===
	assets, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		store.Close()
		return fmt.Errorf("creating asset store: %w", err)
	}

	// === 4. AUTH ===
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  cfg.Auth.AccessTokenSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshSecret: cfg.Auth.RefreshTokenSecret,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
		Issuer:        cfg.Auth.Issuer,
	})
	if err != nil {
		store.Close()
		return err
	}
	passwords := auth.NewPasswordService(cfg.Auth.BcryptCost)

	// === 5. SERVER ===
	srv, err := server.New(cfg, server.Deps{
		Store:     store,
		Assets:    assets,
		Tokens:    tokens,
		Passwords: passwords,
	}, logger)
	if err != nil {
		store.Close()
		return err
	}

	// Start blocks until SIGINT/SIGTERM and closes the store on the way out.
	return srv.Start()
}

// openStore opens the backend selected by database.driver.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		db, err := mongoRepo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("opening mongo: %w", err)
		}
		logger.Info("store opened", slog.String("driver", cfg.Driver), slog.String("database", cfg.MongoDatabase))
		return db, nil

	default:
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		logger.Info("store opened", slog.String("driver", cfg.Driver), slog.String("path", cfg.Path))
		return db, nil
	}
}
