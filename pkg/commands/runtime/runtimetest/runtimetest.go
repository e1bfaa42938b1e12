// Package runtimetest builds command runtimes that load an environmenttest.Network instead of
// the configuration file.
package runtimetest

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/flowdapp/profile-dapp/config"
	"github.com/flowdapp/profile-dapp/environment"
	"github.com/flowdapp/profile-dapp/environment/environmenttest"
	"github.com/flowdapp/profile-dapp/pkg/commands/flags"
	"github.com/flowdapp/profile-dapp/pkg/commands/runtime"
	"github.com/flowdapp/profile-dapp/pkg/logger"
)

// New returns a runtime whose every command shares cfg, and so the wallet home of cfg.
func New(t *testing.T, cfg *config.Config) runtime.Config {
	t.Helper()

	return runtime.Config{
		Logger: logger.Test(t),
		Deps: runtime.Deps{
			ConfigLoader: func(string) (*config.Config, error) {
				c := *cfg

				return &c, nil
			},
			EnvironmentLoader: func(ctx context.Context, cfg *config.Config, lggr logger.Logger) (*environment.Environment, error) {
				return environment.Load(ctx, cfg, lggr, environment.WithScryptN(environmenttest.ScryptN))
			},
		},
	}
}

// Execute runs args against cmd mounted under a root carrying the persistent flags, and returns
// the output.
func Execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	root := &cobra.Command{Use: "dapp", SilenceUsage: true, SilenceErrors: true}
	flags.Config(root)
	root.AddCommand(cmd)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{cmd.Name()}, args...))
	err := root.ExecuteContext(t.Context())

	return out.String(), err
}

// MustExecute is like Execute but fails t on error.
func MustExecute(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()

	out, err := Execute(t, cmd, args...)
	require.NoError(t, err, out)

	return out
}
