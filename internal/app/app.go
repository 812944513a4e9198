// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the slidesmith server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/slidesmith/internal/api"
	"github.com/wingedpig/slidesmith/internal/api/handlers"
	"github.com/wingedpig/slidesmith/internal/config"
	"github.com/wingedpig/slidesmith/internal/events"
	"github.com/wingedpig/slidesmith/internal/generator"
	"github.com/wingedpig/slidesmith/internal/prompt"
	"github.com/wingedpig/slidesmith/internal/watcher"
)

// scratchMaxAge is how long a staged image may outlive the run that used it.
const scratchMaxAge = 24 * time.Hour

// App is the main application container.
type App struct {
	mu sync.Mutex

	configPath string
	config     *config.Config
	eventBus   *events.MemoryBus
	pool       *generator.Pool
	watcher    *watcher.DesignSystemWatcher
	apiServer  *api.Server

	// generators run under genCtx so shutdown reaches processes whose request
	// is still streaming
	genCtx    context.Context
	genCancel context.CancelFunc

	done     chan struct{}
	stopOnce sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string
	Host       string
	Port       int
}

// New loads configuration and creates a new App instance.
func New(opts Options) (*App, error) {
	loader := config.NewLoader()
	cfg, err := loader.LoadWithDefaults(context.Background(), opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg, opts)
}

// NewWithConfig creates an App from an already loaded configuration.
func NewWithConfig(cfg *config.Config, opts Options) (*App, error) {
	// Override host/port if specified
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &App{
		configPath: opts.ConfigPath,
		config:     cfg,
		done:       make(chan struct{}),
	}

	// Initialize event bus
	app.eventBus = events.NewMemoryBus(events.HistoryConfig{
		MaxEvents: cfg.Events.History.MaxEvents,
		MaxAge:    config.ParseDuration(cfg.Events.History.MaxAge, time.Hour),
	})

	return app, nil
}

// Config returns the effective configuration.
func (app *App) Config() *config.Config {
	return app.config
}

// Initialize sets up all components.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.config
	log.Printf("Project root: %s", cfg.Project.Root)

	cleanupScratch(cfg.ScratchDir(), scratchMaxAge)

	app.genCtx, app.genCancel = context.WithCancel(context.Background())
	app.pool = generator.NewPool()
	spawner := generator.NewCLISpawner(cfg.Generator, app.pool)

	genHandler := handlers.NewGenerationHandler(app.genCtx, spawner, app.eventBus, prompt.NewStager(cfg.ScratchDir()), handlers.GenerationSettings{
		Root:         cfg.Project.Root,
		Slides:       cfg.Slides,
		DesignSystem: cfg.DesignSystem,
		CheckResume:  cfg.Generator.ShouldCheckResume(),
	})

	if cfg.Watch.IsEnabled() {
		w, err := watcher.NewDesignSystemWatcher(app.eventBus, watcher.Options{
			Root:     cfg.Project.Root,
			Dir:      cfg.DesignSystem.Dir,
			Brief:    cfg.DesignSystem.BriefPath(),
			Debounce: config.ParseDuration(cfg.Watch.Debounce, 250*time.Millisecond),
		})
		if err != nil {
			log.Printf("Warning: design-system watcher disabled: %v", err)
		} else {
			app.watcher = w
		}
	}

	app.apiServer = api.NewServer(api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		TLSCert:      cfg.Server.TLSCert,
		TLSKey:       cfg.Server.TLSKey,
		TailscaleTLS: cfg.Server.TailscaleTLS,
	}, api.Dependencies{
		Generation: genHandler,
		EventBus:   app.eventBus,
		Pool:       app.pool,
	})

	return nil
}

// Run starts the app and blocks until a signal, ctx cancellation, Stop, or a server
// failure, then shuts down.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Starting API server on %s", app.apiServer.Addr())
		if err := app.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})

	if app.watcher != nil {
		g.Go(func() error {
			return app.watcher.Run(gctx)
		})
	}

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down...", sig)
		case <-gctx.Done():
			log.Printf("Context cancelled, shutting down...")
		case <-app.done:
			log.Printf("Shutdown requested...")
		}
		return app.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown stops accepting requests, kills running generators and closes the bus.
func (app *App) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	log.Println("Shutting down...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Generators first: open SSE streams end with their done frame, which lets
	// the server's graceful shutdown complete
	if app.genCancel != nil {
		app.genCancel()
	}
	if app.pool != nil {
		if err := app.pool.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error stopping generators: %v", err)
		}
	}

	if app.apiServer != nil {
		if err := app.apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down API server: %v", err)
		}
	}

	if app.watcher != nil {
		app.watcher.Close()
	}

	if app.eventBus != nil {
		app.eventBus.Close()
	}

	log.Println("Shutdown complete")
	return nil
}

// Stop signals the app to shut down. Safe to call multiple times.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}

// cleanupScratch removes staged images left behind by runs that never finished,
// such as when the server was killed.
func cleanupScratch(dir string, maxAge time.Duration) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return // Nothing staged yet
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
			removed++
		}
	}

	if removed > 0 {
		log.Printf("Cleaned up %d stale scratch files in %s", removed, dir)
	}
}
