// Package commands provides modular CLI command packages for the dapp.
//
// There are two ways to use commands from this package:
//
// 1. Via NewRootCommand, which mounts every command:
//
//	root := commands.NewRootCommand(lggr, &level)
//	root.ExecuteContext(ctx)
//
// 2. Via the Commands factory or direct package imports (for advanced DI/testing):
//
//	import "github.com/flowdapp/profile-dapp/pkg/commands/profile"
//
//	app.AddCommand(profile.NewCommand(runtime.Config{
//	    Logger: lggr,
//	    Deps:   runtime.Deps{...}, // inject loaders for testing
//	}))
package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flowdapp/profile-dapp/pkg/commands/app"
	configcmd "github.com/flowdapp/profile-dapp/pkg/commands/config"
	"github.com/flowdapp/profile-dapp/pkg/commands/devledger"
	"github.com/flowdapp/profile-dapp/pkg/commands/flags"
	"github.com/flowdapp/profile-dapp/pkg/commands/profile"
	"github.com/flowdapp/profile-dapp/pkg/commands/runtime"
	"github.com/flowdapp/profile-dapp/pkg/commands/session"
	"github.com/flowdapp/profile-dapp/pkg/commands/text"
	"github.com/flowdapp/profile-dapp/pkg/logger"
)

// Commands provides a factory for creating CLI commands with shared configuration.
// This allows setting the logger once and reusing it across all commands.
type Commands struct {
	rt runtime.Config
}

// New creates a new Commands factory with the given logger. When level is set, it follows
// log.level of the loaded configuration.
func New(lggr logger.Logger, level *zap.AtomicLevel) *Commands {
	return &Commands{rt: runtime.Config{Logger: lggr, Level: level}}
}

// WithDeps returns a factory whose commands use deps to load the configuration and the
// environment.
func (c *Commands) WithDeps(deps runtime.Deps) *Commands {
	rt := c.rt
	rt.Deps = deps

	return &Commands{rt: rt}
}

// Session creates the login, signup, logout, whoami and import commands.
func (c *Commands) Session() []*cobra.Command {
	return session.NewCommands(c.rt)
}

// Profile creates the profile command group.
func (c *Commands) Profile() *cobra.Command {
	return profile.NewCommand(c.rt)
}

// App creates the interactive app command.
func (c *Commands) App() *cobra.Command {
	return app.NewCommand(c.rt)
}

// DevLedger creates the dev-ledger command group.
func (c *Commands) DevLedger() *cobra.Command {
	return devledger.NewCommand(c.rt)
}

// Config creates the config command group.
func (c *Commands) Config() *cobra.Command {
	return configcmd.NewCommand(c.rt)
}

var rootLong = text.LongDesc(`
	Reads and changes Profile resources on the Flow blockchain.

	Configuration comes from the file named by --config and FLOWDAPP_* environment
	variables. Start with "dapp config init", then "dapp signup" or "dapp login".
`)

// Root creates the root command with every command of the factory mounted.
func (c *Commands) Root() *cobra.Command {
	root := &cobra.Command{
		Use:           "dapp",
		Short:         "Profile dapp for the Flow blockchain",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.Config(root)

	root.AddCommand(c.Session()...)
	root.AddCommand(
		c.Profile(),
		c.App(),
		c.DevLedger(),
		c.Config(),
	)

	return root
}

// NewRootCommand creates the root command of the dapp CLI.
func NewRootCommand(lggr logger.Logger, level *zap.AtomicLevel) *cobra.Command {
	return New(lggr, level).Root()
}
