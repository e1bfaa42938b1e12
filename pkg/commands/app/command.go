// Package app provides the interactive terminal interface of the dapp.
package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/flowdapp/profile-dapp/pkg/commands/runtime"
	"github.com/flowdapp/profile-dapp/pkg/commands/text"
)

var appLong = text.LongDesc(`
	Opens the interactive dapp screen.

	Logged out, the screen offers Log In and Sign Up. Logged in, it shows the address, the
	profile name and the status of the last profile name change, with actions to read the
	profile, initialize the account, change the name and log out.

	Logging in or out from another terminal with the same wallet home updates the screen.
`)

// NewCommand creates the app command.
func NewCommand(cfg runtime.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "app",
		Short: "Open the interactive dapp",
		Long:  appLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd, cfg)
		},
	}
}

func runApp(cmd *cobra.Command, cfg runtime.Config) error {
	env, err := cfg.LoadEnvironment(cmd)
	if err != nil {
		return err
	}
	ctrl, err := env.NewController()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	// info logs would draw over the screen
	if cfg.Level != nil && cfg.Level.Enabled(zapcore.InfoLevel) {
		cfg.Level.SetLevel(zapcore.WarnLevel)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	p := tea.NewProgram(newModel(gctx, ctrl),
		tea.WithContext(gctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	g.Go(func() error {
		return env.Wallet.Watch(gctx)
	})
	g.Go(func() error {
		defer cancel()

		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("failed to run app: %w", err)
		}

		return nil
	})

	return g.Wait()
}
