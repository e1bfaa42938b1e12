package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// fileCfg is the config loaded from the testdata/config.yml file.
var fileCfg = &Config{
	Network:    NetworkTestnet,
	AccessNode: "https://rest-testnet.onflow.org",
	Contracts:  ContractsConfig{Profile: "0xba1132bc08f82fe2"},
	Transaction: TransactionConfig{
		ComputeLimit:   100,
		PollInterval:   2 * time.Second,
		SealTimeout:    time.Minute,
		MinNodeVersion: ">= 0.38",
	},
	Wallet: WalletConfig{
		Home:    "/tmp/flowdapp",
		Account: "0x01cf0e2f2f715450",
		Service: ServiceAccountConfig{SigAlgo: "ECDSA_P256", HashAlgo: "SHA3_256"},
	},
	Log: LogConfig{Level: "debug"},
}

// CAUTION: Because this function uses t.Setenv which affects the entire process, tests which call
// it cannot run in parallel.
func setupEnvVars(t *testing.T, envVars map[string]string) {
	t.Helper()

	for key, value := range envVars {
		t.Setenv(key, value)
	}
}

func Test_Load(t *testing.T) { //nolint:paralleltest // see comment in setupEnvVars
	tests := []struct {
		name     string
		givePath string
		giveEnv  map[string]string
		want     func() *Config
		wantErr  string
	}{
		{
			name:     "file",
			givePath: "./testdata/config.yml",
			want:     func() *Config { return fileCfg },
		},
		{
			name:     "env overrides file",
			givePath: "./testdata/config.yml",
			giveEnv: map[string]string{
				"FLOWDAPP_TRANSACTION_COMPUTE_LIMIT": "9999",
				"FLOWDAPP_WALLET_PASSPHRASE":         "hunter2",
				"FLOW_SERVICEPRIVATEKEY":             "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d",
			},
			want: func() *Config {
				cfg := *fileCfg
				cfg.Transaction.ComputeLimit = 9999
				cfg.Wallet.Passphrase = "hunter2"
				cfg.Wallet.Service.PrivateKey = "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d"

				return &cfg
			},
		},
		{
			name:     "missing file uses defaults",
			givePath: "./testdata/missing.yml",
			giveEnv:  map[string]string{"FLOWDAPP_WALLET_HOME": "/srv/wallet"},
			want: func() *Config {
				cfg := Default()
				cfg.AccessNode = "http://localhost:8888"
				cfg.Contracts.Profile = "0xf8d6e0586b0a20c7"
				cfg.Wallet.Home = "/srv/wallet"

				return cfg
			},
		},
		{
			name:     "custom network",
			givePath: "",
			giveEnv: map[string]string{
				"FLOWDAPP_NETWORK":           "previewnet",
				"FLOWDAPP_ACCESS_NODE":       "https://rest-previewnet.onflow.org",
				"FLOWDAPP_CONTRACTS_PROFILE": "0x01",
				"FLOWDAPP_WALLET_HOME":       "/srv/wallet",
			},
			want: func() *Config {
				cfg := Default()
				cfg.Network = "previewnet"
				cfg.AccessNode = "https://rest-previewnet.onflow.org"
				cfg.Contracts.Profile = "0x01"
				cfg.Wallet.Home = "/srv/wallet"

				return cfg
			},
		},
		{
			name:     "mainnet needs a profile address",
			givePath: "",
			giveEnv:  map[string]string{"FLOWDAPP_NETWORK": "mainnet"},
			wantErr:  `contracts.profile is required for network "mainnet"`,
		},
		{
			name:     "unknown network needs an access node",
			givePath: "",
			giveEnv:  map[string]string{"FLOWDAPP_NETWORK": "previewnet"},
			wantErr:  `access_node is required for network "previewnet"`,
		},
		{
			name:     "invalid file",
			givePath: "./testdata/invalid.yml",
			wantErr:  "failed to read config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupEnvVars(t, tt.giveEnv)

			got, err := Load(tt.givePath)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want(), got)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    func(c *Config)
		wantErr string
	}{
		{name: "valid", give: func(*Config) {}},
		{name: "no network", give: func(c *Config) { c.Network = "" }, wantErr: "network is required"},
		{
			name:    "bad profile address",
			give:    func(c *Config) { c.Contracts.Profile = "0xnothex" },
			wantErr: "invalid contracts.profile",
		},
		{
			name:    "zero compute limit",
			give:    func(c *Config) { c.Transaction.ComputeLimit = 0 },
			wantErr: "transaction.compute_limit must be positive",
		},
		{
			name:    "zero poll interval",
			give:    func(c *Config) { c.Transaction.PollInterval = 0 },
			wantErr: "transaction.poll_interval must be positive",
		},
		{
			name:    "negative seal timeout",
			give:    func(c *Config) { c.Transaction.SealTimeout = -time.Second },
			wantErr: "transaction.seal_timeout must not be negative",
		},
		{
			name:    "bad version constraint",
			give:    func(c *Config) { c.Transaction.MinNodeVersion = "newest" },
			wantErr: "invalid transaction.min_node_version",
		},
		{
			name:    "bad wallet account",
			give:    func(c *Config) { c.Wallet.Account = "alice" },
			wantErr: "invalid wallet.account",
		},
		{
			name:    "bad service algorithm",
			give:    func(c *Config) { c.Wallet.Service.SigAlgo = "ed25519" },
			wantErr: "invalid wallet.service.sig_algo",
		},
		{
			name:    "bad log level",
			give:    func(c *Config) { c.Log.Level = "loud" },
			wantErr: "invalid log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			cfg.applyPreset()
			tt.give(cfg)

			err := cfg.Validate()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func Test_Write(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	require.NoError(t, Write(path, fileCfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(b, &raw))
	assert.Equal(t, "2s", raw["transaction"].(map[string]any)["poll_interval"])
	assert.NotContains(t, string(b), "passphrase")
}

func Test_WriteLoad(t *testing.T) { //nolint:paralleltest // Load reads the process environment
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, Write(path, fileCfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, fileCfg, got)
}

func TestConfig_ProfileAddress(t *testing.T) {
	t.Parallel()

	addr, err := fileCfg.ProfileAddress()
	require.NoError(t, err)
	assert.Equal(t, "0xba1132bc08f82fe2", addr.String())
}

func TestForNetwork(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		give        string
		wantNode    string
		wantProfile string
		wantErr     string
	}{
		{
			name:        "emulator",
			give:        NetworkEmulator,
			wantNode:    "http://localhost:8888",
			wantProfile: "0xf8d6e0586b0a20c7",
		},
		{
			name:        "testnet",
			give:        NetworkTestnet,
			wantNode:    "https://rest-testnet.onflow.org",
			wantProfile: "0xba1132bc08f82fe2",
		},
		{
			name:     "mainnet has no profile contract",
			give:     NetworkMainnet,
			wantNode: "https://rest-mainnet.onflow.org",
		},
		{
			name:    "unknown",
			give:    "previewnet",
			wantErr: `unknown network "previewnet", expected one of emulator, mainnet, testnet`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ForNetwork(tt.give)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.give, got.Network)
			assert.Equal(t, tt.wantNode, got.AccessNode)
			assert.Equal(t, tt.wantProfile, got.Contracts.Profile)
			assert.Equal(t, Default().Transaction, got.Transaction)
		})
	}
}
