package container

import (
	"context"
	"fmt"

	"actinvoting/adapters/store"
	"actinvoting/internal"
	"actinvoting/internal/asymptotic"
	"actinvoting/internal/batch"
	"actinvoting/internal/config"
	"actinvoting/internal/montecarlo"
	"actinvoting/ports"
)

// Container holds the application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	Store ports.ResultStore
	RNG   ports.RNGPort

	// Batch driver shared by the commands and the HTTP server
	Runner *batch.Runner
}

// New creates a container without opening the store
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	c := &Container{
		Config: cfg,
		Logger: logger,
		Store:  store.NopStore{},
		RNG:    montecarlo.Streams{},
	}
	c.Runner = &batch.Runner{
		Store:  c.Store,
		Jobs:   cfg.Batch.Jobs,
		RNG:    c.RNG,
		Logger: logger.Named("batch"),
	}
	return c, nil
}

// InitStore opens the configured result store and attaches it to the runner
func (c *Container) InitStore(ctx context.Context) error {
	st, err := store.OpenFromConfig(ctx, c.Config.Store.Driver, c.Config.Store.DSN)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", c.Config.Store.Driver, err)
	}
	c.Store = st
	c.Runner.Store = st
	c.Logger.Debug("result store %s ready", c.Config.Store.Driver)
	return nil
}

// SessionOptions are the configured numerical settings of asymptotic
// sessions.
func (c *Container) SessionOptions() []asymptotic.Option {
	return []asymptotic.Option{
		asymptotic.WithCriticalTolerance(c.Config.Session.CriticalTolerance),
		asymptotic.WithQuadratureNodes(c.Config.Session.QuadratureNodes),
		asymptotic.WithLogger(c.Logger.Named("asymptotic")),
	}
}

// Shutdown closes the store and flushes the logger
func (c *Container) Shutdown(ctx context.Context) error {
	defer c.Logger.Sync()
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
