package di

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"catalog-migrator/internal/migrator"
	"catalog-migrator/internal/migrator/config"
	"catalog-migrator/internal/shared/logger"
)

const shutdownTimeout = 30 * time.Second

// Container represents a dependency injection container with proper lifecycle management
type Container struct {
	mu sync.RWMutex
	// Module instances
	MigratorModule *migrator.MigratorModule
	// Configuration
	Config *config.Config
	// Logger
	Logger logger.Logger
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{}
}

// InitializeConfig loads configuration from .env files and the environment.
func (c *Container) InitializeConfig(files ...string) error {
	cfg, err := config.LoadConfig(files...)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Config = cfg
	return nil
}

// InitializeLogger builds the logger for the given CLI verbosity, using the
// backend and format from the loaded configuration.
func (c *Container) InitializeLogger(verbosity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	logCfg := logger.Config{Verbosity: verbosity, Output: os.Stderr}
	if c.Config != nil {
		logCfg.Backend = c.Config.LogBackend
		logCfg.Format = c.Config.LogFormat
	}
	c.Logger = logger.NewLoggerWithConfig(logCfg)
}

// InitializeMigrator assembles the migrator module. Configuration must be
// loaded first.
func (c *Container) InitializeMigrator(ctx context.Context, opts migrator.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Config == nil {
		return fmt.Errorf("configuration must be initialized before the migrator module")
	}
	if c.Logger == nil {
		c.Logger = logger.NewLogger()
	}

	module, err := migrator.NewMigratorModule(ctx, c.Config, opts, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create migrator module: %w", err)
	}
	c.MigratorModule = module
	return nil
}

// GetMigratorModule returns the migrator module instance
func (c *Container) GetMigratorModule() *migrator.MigratorModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.MigratorModule
}

// Cleanup stops the module and releases its resources.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.MigratorModule == nil {
		return nil
	}
	err := c.MigratorModule.Stop(ctx)
	c.MigratorModule = nil
	if err != nil {
		return fmt.Errorf("cleanup errors: %w", err)
	}
	return nil
}

// Close shuts down all services in the container with a timeout.
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return c.Cleanup(ctx)
}
