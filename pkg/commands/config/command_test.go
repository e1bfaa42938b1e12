package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/flowdapp/profile-dapp/config"
	"github.com/flowdapp/profile-dapp/pkg/commands/runtime"
	"github.com/flowdapp/profile-dapp/pkg/commands/runtime/runtimetest"
	"github.com/flowdapp/profile-dapp/pkg/logger"
)

func TestNewCommand_Structure(t *testing.T) {
	t.Parallel()

	cmd := NewCommand(runtime.Config{Logger: logger.Nop()})
	assert.Equal(t, "config", cmd.Use)

	subs := cmd.Commands()
	require.Len(t, subs, 2)
	assert.ElementsMatch(t, []string{"init", "show"}, []string{subs[0].Name(), subs[1].Name()})

	initCmd, _, err := cmd.Find([]string{"init"})
	require.NoError(t, err)
	network := initCmd.Flags().Lookup("network")
	require.NotNil(t, network)
	assert.Equal(t, "n", network.Shorthand)
	assert.Equal(t, cfgpkg.NetworkEmulator, network.DefValue)
	out := initCmd.Flags().Lookup("out")
	require.NotNil(t, out)
	assert.Equal(t, cfgpkg.DefaultFileName, out.DefValue)
}

func TestInit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing bool
		give     []string
		want     string
		wantErr  string
	}{
		{
			name: "emulator",
			want: "Wrote %s for network emulator\n",
		},
		{
			name: "testnet",
			give: []string{"-n", "testnet"},
			want: "Wrote %s for network testnet\n",
		},
		{
			name: "mainnet",
			give: []string{"-n", "mainnet"},
			want: "Wrote %s for network mainnet\nSet contracts.profile before use, the Profile contract has no known address on mainnet\n",
		},
		{
			name:    "unknown network",
			give:    []string{"-n", "localnet"},
			wantErr: `unknown network "localnet"`,
		},
		{
			name:     "existing file",
			existing: true,
			wantErr:  "already exists, use --force to overwrite",
		},
		{
			name:     "forced",
			existing: true,
			give:     []string{"--force"},
			want:     "Wrote %s for network emulator\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "nested", cfgpkg.DefaultFileName)
			if tt.existing {
				require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
				require.NoError(t, os.WriteFile(path, []byte("network: testnet\n"), 0o600))
			}

			out, err := runtimetest.Execute(t, NewCommand(runtime.Config{Logger: logger.Nop()}),
				append([]string{"init", "--out", path}, tt.give...)...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf(tt.want, path), out)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
		})
	}
}

func TestInit_ThenShow(t *testing.T) { //nolint:paralleltest // Load reads the process environment
	path := filepath.Join(t.TempDir(), cfgpkg.DefaultFileName)
	t.Setenv("FLOWDAPP_WALLET_PASSPHRASE", "hunter2")
	t.Setenv("FLOWDAPP_WALLET_SERVICE_PRIVATE_KEY", "abcdef")

	rt := runtime.Config{Logger: logger.Nop()}
	runtimetest.MustExecute(t, NewCommand(rt), "init", "-n", "testnet", "-o", path)

	out := runtimetest.MustExecute(t, NewCommand(rt), "show", "-c", path)
	assert.Contains(t, out, "network: testnet\n")
	assert.Contains(t, out, "access_node: https://rest-testnet.onflow.org\n")
	assert.Contains(t, out, "passphrase: REDACTED\n")
	assert.Contains(t, out, "private_key: REDACTED\n")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "abcdef")
}
