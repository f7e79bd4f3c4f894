package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"creatorpulse/internal/config"
	"creatorpulse/internal/fetch"
	"creatorpulse/internal/llm"
	"creatorpulse/internal/logger"
	"creatorpulse/internal/newsletter"
	"creatorpulse/internal/persistence"
	"creatorpulse/internal/publish"
	"creatorpulse/internal/runlock"
	"creatorpulse/internal/sources"
)

// app bundles the services a command works with.
type app struct {
	cfg       *config.Config
	db        persistence.Database
	locker    runlock.Locker
	publisher publish.Publisher
	sources   *sources.Manager
	drafts    *newsletter.Service
}

// generatorMode says whether a command needs the text generator.
type generatorMode int

const (
	// noGenerator lets commands that never call the model run without an API key.
	noGenerator generatorMode = iota
	requireGenerator
	// optionalGenerator logs a construction failure and continues without one.
	optionalGenerator
)

// openApp connects storage and builds the services.
func openApp(ctx context.Context, mode generatorMode) (*app, error) {
	cfg := config.Get()

	db, err := getDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, db: db}

	a.locker, err = runlock.New(cfg.Lock)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create run lock: %w", err)
	}

	a.publisher, err = publish.New(cfg.Publish)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	var gen llm.Generator
	if mode != noGenerator {
		gen, err = llm.New(ctx, cfg.Generation)
		switch {
		case err != nil && mode == optionalGenerator:
			logger.Warn("Draft generation disabled", "error", err)
			gen = nil
		case err != nil:
			a.Close()
			return nil, fmt.Errorf("failed to create generator: %w", err)
		}
	}

	fetcher := fetch.New(fetch.Options{
		Timeout:   config.Duration(cfg.Sync.FetchTimeout, 30*time.Second),
		UserAgent: cfg.Sync.UserAgent,
		MaxItems:  cfg.Sync.MaxItemsPerSource,
	})

	a.sources = sources.NewManager(db, fetcher, sources.WithLocker(a.locker))
	a.drafts = newsletter.NewService(db, gen,
		newsletter.WithPublisher(a.publisher),
		newsletter.WithLocker(a.locker),
	)
	return a, nil
}

// getDatabase opens the configured backend. SQLite is migrated on open;
// PostgreSQL schemas are managed explicitly with `migrate up`.
func getDatabase(ctx context.Context, cfg config.Database) (persistence.Database, error) {
	db, err := persistence.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == "" || cfg.Driver == "sqlite" {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return db, nil
}

// Close releases every resource the app holds.
func (a *app) Close() {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if c, ok := a.locker.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("Failed to close resources", "error", err)
	}
}
