// Package application assembles the configured store, metrics and ingestion
// service shared by the server and the command-line tool.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/railcsv/internal/config"
	"github.com/JonMunkholm/railcsv/internal/core"
	_ "github.com/JonMunkholm/railcsv/internal/core/systems" // Register all measurement systems
	"github.com/JonMunkholm/railcsv/internal/metrics"
	"github.com/JonMunkholm/railcsv/internal/store"
)

// App holds the long-lived collaborators built from a Config.
type App struct {
	Config  *config.Config
	Store   store.Backend
	Metrics *metrics.Recorder
	Service *core.Service
}

// New opens the store, migrates it and builds the service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	backend, err := store.Open(ctx, StoreConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := backend.Ping(ctx); err != nil {
		backend.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	recorder := metrics.NewRecorder()
	service := core.NewService(backend,
		core.WithLimiter(core.NewIngestLimiter(cfg.Ingest.MaxConcurrent, cfg.Ingest.MaxWaitTime)),
		core.WithRecorder(recorder),
		core.WithLocker(backend, core.LockSettings{
			Name:    cfg.Lock.Name,
			TTL:     cfg.Lock.TTL,
			MaxWait: cfg.Lock.MaxWait,
		}),
		core.WithMaxFileSize(cfg.Ingest.MaxFileSize),
		core.WithIngestTimeout(cfg.Ingest.Timeout),
	)

	slog.Info("application ready",
		"driver", cfg.Database.Driver,
		"systems", core.SystemCount(),
		"max_concurrent", cfg.Ingest.MaxConcurrent,
	)

	return &App{
		Config:  cfg,
		Store:   backend,
		Metrics: recorder,
		Service: service,
	}, nil
}

// StoreConfig maps the database section onto store settings.
func StoreConfig(cfg *config.Config) store.Config {
	return store.Config{
		Driver:          cfg.Database.Driver,
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	}
}

// Close releases the store.
func (a *App) Close() {
	a.Store.Close()
}
