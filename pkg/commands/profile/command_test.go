package profile

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdapp/profile-dapp/config"
	"github.com/flowdapp/profile-dapp/controller"
	"github.com/flowdapp/profile-dapp/environment"
	"github.com/flowdapp/profile-dapp/environment/environmenttest"
	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/pkg/commands/runtime/runtimetest"
	"github.com/flowdapp/profile-dapp/pkg/logger"
)

// signUp creates an account on the network of cfg and logs in with it.
func signUp(t *testing.T, cfg *config.Config) ledger.Address {
	t.Helper()

	env, err := environment.Load(t.Context(), cfg, logger.Test(t), environment.WithScryptN(environmenttest.ScryptN))
	require.NoError(t, err)
	require.NoError(t, env.Wallet.SignUp(t.Context()))

	return env.Wallet.Current().Addr
}

func TestNewCommand_Structure(t *testing.T) {
	t.Parallel()

	cmd := NewCommand(runtimetest.New(t, environmenttest.New(t).Config(t)))
	assert.Equal(t, "profile", cmd.Use)

	subs := cmd.Commands()
	require.Len(t, subs, 3)
	names := []string{subs[0].Name(), subs[1].Name(), subs[2].Name()}
	assert.ElementsMatch(t, []string{"read", "init", "set-name"}, names)

	setName, _, err := cmd.Find([]string{"set-name"})
	require.NoError(t, err)
	wait := setName.Flags().Lookup("wait")
	require.NotNil(t, wait)
	assert.Equal(t, "true", wait.DefValue)
}

func TestProfileLifecycle(t *testing.T) {
	t.Parallel()

	network := environmenttest.New(t)
	cfg := network.Config(t)
	rt := runtimetest.New(t, cfg)
	addr := signUp(t, cfg)

	out := runtimetest.MustExecute(t, newReadCmd(rt))
	assert.Equal(t, fmt.Sprintf("Address: %s\nProfile Name: No Profile\n", addr), out)

	out = runtimetest.MustExecute(t, newInitCmd(rt))
	assert.Contains(t, out, "Account initialized in transaction ")
	assert.True(t, strings.HasSuffix(out, "Transaction Status: SEALED\n"), out)

	out = runtimetest.MustExecute(t, newSetNameCmd(rt), "Edoye")
	assert.True(t, strings.HasPrefix(out, "Submitted transaction "), out)
	assert.True(t, strings.HasSuffix(out, "Transaction Status: SEALED\n"), out)

	got, ok := network.Profiles.Get(addr)
	require.True(t, ok)
	assert.Equal(t, "Edoye", got.Name)

	out = runtimetest.MustExecute(t, newReadCmd(rt), "-a", addr.String())
	assert.Equal(t, fmt.Sprintf("Address: %s\nProfile Name: Edoye\n", addr), out)
}

func TestRead(t *testing.T) {
	t.Parallel()

	network := environmenttest.New(t)
	rt := runtimetest.New(t, network.Config(t))

	tests := []struct {
		name    string
		give    []string
		want    string
		wantErr string
	}{
		{
			name: "other account",
			give: []string{"-a", "0x01cf0e2f2f715450"},
			want: "Address: 0x01cf0e2f2f715450\nProfile Name: No Profile\n",
		},
		{
			name:    "logged out",
			wantErr: "not logged in",
		},
		{
			name:    "invalid address",
			give:    []string{"-a", "0xnope"},
			wantErr: "invalid address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := runtimetest.Execute(t, newReadCmd(rt), tt.give...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSetName_NoWait(t *testing.T) {
	t.Parallel()

	network := environmenttest.New(t)
	cfg := network.Config(t)
	rt := runtimetest.New(t, cfg)
	signUp(t, cfg)

	out := runtimetest.MustExecute(t, newSetNameCmd(rt), "Edoye", "--wait=false")
	assert.Equal(t, fmt.Sprintf("Submitted transaction %s\n", network.Ledger.Transactions()[1]), out)
}

func TestSetName_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		giveLogIn bool
		giveInit  bool
		giveName  string
		wantErr   error
	}{
		{
			name:     "logged out",
			giveName: "Edoye",
			wantErr:  controller.ErrNotAuthenticated,
		},
		{
			name:      "no profile",
			giveLogIn: true,
			giveName:  "Edoye",
			wantErr:   ledger.ErrTransactionReverted,
		},
		{
			name:      "name too long",
			giveLogIn: true,
			giveInit:  true,
			giveName:  "A name far too long",
			wantErr:   ledger.ErrTransactionReverted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			network := environmenttest.New(t)
			cfg := network.Config(t)
			rt := runtimetest.New(t, cfg)
			if tt.giveLogIn {
				signUp(t, cfg)
			}
			if tt.giveInit {
				runtimetest.MustExecute(t, newInitCmd(rt))
			}

			out, err := runtimetest.Execute(t, newSetNameCmd(rt), tt.giveName)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.giveLogIn {
				// a reverted transaction is still sealed
				assert.Contains(t, out, "Transaction Status: SEALED\n")
			}
		})
	}
}
