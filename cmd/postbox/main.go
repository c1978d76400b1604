package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	_ "github.com/lib/pq"

	"Postbox/internal/cli"
	"Postbox/internal/config"
	"Postbox/internal/core/posts"
	"Postbox/internal/db/filestore"
	"Postbox/internal/db/migrations"
	postgresRepo "Postbox/internal/db/postgres"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("postbox: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx := context.Background()

	repo, closeRepo, err := openRepository(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
	}
	defer closeRepo()

	linker := posts.NewLinker(cfg.ShareBaseURL)
	logger.Info("share links configured", "base_url", linker.BaseURL())
	store := posts.NewStore(linker, logger)

	if err := restore(ctx, store, repo, logger); err != nil {
		return err
	}

	menu := cli.NewMenu(store, repo, os.Stdin, os.Stdout, logger)
	if err := menu.Run(ctx); err != nil {
		return fmt.Errorf("menu stopped: %w", err)
	}
	return nil
}

// restore loads the saved snapshot into store
// Nothing saved means an empty start; any other load failure is returned so the next save cannot overwrite unreadable data
func restore(ctx context.Context, store *posts.Store, repo posts.SnapshotRepository, logger *slog.Logger) error {
	if repo == nil {
		return nil
	}

	snap, err := repo.Load(ctx)
	if errors.Is(err, posts.ErrNoSnapshot) {
		logger.Info("no saved posts, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load saved posts: %w", err)
	}
	if err := store.Restore(snap); err != nil {
		return fmt.Errorf("failed to restore saved posts: %w", err)
	}

	attrs := []any{"posts", store.Len(), "rev", snap.Rev}
	if savedAt, err := snap.RevTime(); err == nil {
		attrs = append(attrs, "saved_at", savedAt)
	}
	logger.Info("posts restored", attrs...)
	return nil
}

// openRepository builds the snapshot repository for the configured storage backend
// The memory backend has no repository; the returned close func is always safe to call
func openRepository(cfg *config.Config, logger *slog.Logger) (posts.SnapshotRepository, func(), error) {
	noop := func() {}

	switch cfg.Storage {
	case config.StorageMemory:
		return nil, noop, nil

	case config.StorageFile:
		return filestore.NewSnapshotRepository(cfg.SnapshotPath, logger), noop, nil

	case config.StoragePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to database: %w", err)
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Warn("failed to close database", "error", err)
			}
		}
		if err := db.Ping(); err != nil {
			closeDB()
			return nil, noop, fmt.Errorf("failed to ping database: %w", err)
		}
		if err := migrations.Up(db); err != nil {
			closeDB()
			return nil, noop, err
		}
		logger.Info("connected to postgres, migrations applied")
		return postgresRepo.NewSnapshotRepository(db, logger), closeDB, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}
