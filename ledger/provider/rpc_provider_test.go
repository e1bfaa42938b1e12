package provider

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdapp/profile-dapp/ledger/ledgertest"
)

func Test_RPCChainProviderConfig_validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  RPCChainProviderConfig
		wantErr string
	}{
		{
			name:   "valid config",
			config: RPCChainProviderConfig{Network: "testnet", AccessURL: "https://rest-testnet.onflow.org"},
		},
		{
			name:    "missing network",
			config:  RPCChainProviderConfig{AccessURL: "https://rest-testnet.onflow.org"},
			wantErr: "network is required",
		},
		{
			name:    "missing access url",
			config:  RPCChainProviderConfig{Network: "testnet"},
			wantErr: "access url is required",
		},
		{
			name: "invalid version constraint",
			config: RPCChainProviderConfig{
				Network:        "testnet",
				AccessURL:      "https://rest-testnet.onflow.org",
				MinNodeVersion: "at least one",
			},
			wantErr: "invalid min node version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.validate()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_RPCChainProvider_Initialize(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(ledgertest.NewHandler(ledgertest.New(ledgertest.WithNodeVersion("v0.40.1"))))
	t.Cleanup(srv.Close)

	tests := []struct {
		name       string
		giveConfig RPCChainProviderConfig
		wantErr    string
	}{
		{
			name:       "valid initialization",
			giveConfig: RPCChainProviderConfig{Network: "emulator", AccessURL: srv.URL},
		},
		{
			name: "node version satisfies constraint",
			giveConfig: RPCChainProviderConfig{
				Network:        "emulator",
				AccessURL:      srv.URL,
				MinNodeVersion: ">= 0.38",
				PollInterval:   10 * time.Millisecond,
			},
		},
		{
			name: "node version too old",
			giveConfig: RPCChainProviderConfig{
				Network:        "emulator",
				AccessURL:      srv.URL,
				MinNodeVersion: ">= 0.41",
			},
			wantErr: "node version 0.40.1 does not satisfy >= 0.41",
		},
		{
			name:       "fails config validation",
			giveConfig: RPCChainProviderConfig{Network: "emulator"},
			wantErr:    "access url is required",
		},
		{
			name:       "invalid url",
			giveConfig: RPCChainProviderConfig{Network: "emulator", AccessURL: "localhost:8888"},
			wantErr:    "failed to create access client",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewRPCChainProvider(tt.giveConfig)

			got, err := p.Initialize(t.Context())
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "emulator", got.Network)
			assert.Equal(t, srv.URL, got.URL)
			assert.NotNil(t, got.Client)
			assert.NotNil(t, got.Confirm)
			assert.NotNil(t, p.Tracker())
			assert.Equal(t, got.URL, p.Chain().URL)

			again, err := p.Initialize(t.Context())
			require.NoError(t, err)
			assert.Equal(t, got.URL, again.URL)
		})
	}
}

func Test_RPCChainProvider_Name(t *testing.T) {
	t.Parallel()

	p := &RPCChainProvider{}
	assert.Equal(t, "Flow RPC Chain Provider", p.Name())
}
