// Package runtime loads the configuration and the environment shared by the CLI commands.
package runtime

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flowdapp/profile-dapp/config"
	"github.com/flowdapp/profile-dapp/environment"
	"github.com/flowdapp/profile-dapp/pkg/commands/flags"
	"github.com/flowdapp/profile-dapp/pkg/logger"
)

// ConfigLoaderFunc loads the configuration from the file at path and the environment.
type ConfigLoaderFunc func(path string) (*config.Config, error)

// EnvironmentLoaderFunc connects to the network and opens the wallet described by cfg.
type EnvironmentLoaderFunc func(ctx context.Context, cfg *config.Config, lggr logger.Logger) (*environment.Environment, error)

// defaultEnvironmentLoader is the production implementation that loads an environment.
func defaultEnvironmentLoader(ctx context.Context, cfg *config.Config, lggr logger.Logger) (*environment.Environment, error) {
	return environment.Load(ctx, cfg, lggr)
}

// Deps holds the injectable dependencies of the commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ConfigLoader loads the configuration.
	// Default: config.Load
	ConfigLoader ConfigLoaderFunc

	// EnvironmentLoader loads the environment.
	// Default: environment.Load
	EnvironmentLoader EnvironmentLoaderFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = config.Load
	}
	if d.EnvironmentLoader == nil {
		d.EnvironmentLoader = defaultEnvironmentLoader
	}
}

// Config holds the configuration shared by the commands.
type Config struct {
	// Logger is the logger passed to the loaded components. Required.
	Logger logger.Logger

	// Level, when set, is changed to log.level of the loaded configuration.
	Level *zap.AtomicLevel

	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// deps returns the Deps with defaults applied.
func (c *Config) deps() *Deps {
	c.Deps.applyDefaults()

	return &c.Deps
}

// LoadConfig loads the configuration named by the --config flag of cmd.
func (c *Config) LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := flags.MustString(cmd.Flags().GetString(flags.ConfigFlag))

	cfg, err := c.deps().ConfigLoader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if c.Level != nil {
		lvl, err := logger.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		c.Level.SetLevel(lvl)
	}

	return cfg, nil
}

// LoadEnvironment loads the configuration and then the environment.
func (c *Config) LoadEnvironment(cmd *cobra.Command) (*environment.Environment, error) {
	cfg, err := c.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}

	env, err := c.deps().EnvironmentLoader(cmd.Context(), cfg, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	return env, nil
}
