package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/lanepipe/internal/config"
	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/tagstore"
	"github.com/vk/lanepipe/internal/tools"
)

// App holds the configuration and the collaborators of one invocation.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	pipeline   *config.Model
	store      tagstore.Store
	runner     tools.Runner
	httpServer *http.Server
}

// Option customises an App, mostly for tests.
type Option func(*App)

// WithStore replaces the configured metadata store.
func WithStore(s tagstore.Store) Option {
	return func(a *App) { a.store = s }
}

// WithRunner replaces the process runner used by the unit functions.
func WithRunner(r tools.Runner) Option {
	return func(a *App) { a.runner = r }
}

// New loads and validates the pipeline configuration.
func New(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	pipeline, err := loader.Load(ctx, cfg.ConfigPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Backend != "" {
		pipeline.Platform.Kind = cfg.Backend
	}
	if err := pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Debug("Configuration loaded.", "stage", cfg.Stage, "platform", pipeline.Platform.Kind, "store", pipeline.Store.Kind)

	a := &App{outW: outW, logger: logger, config: cfg, pipeline: pipeline}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Pipeline returns the loaded configuration.
func (a *App) Pipeline() *config.Model {
	return a.pipeline
}
