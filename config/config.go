// Package config loads the configuration of the dapp from a YAML file and FLOWDAPP_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
	"github.com/flowdapp/profile-dapp/pkg/logger"
)

// Network names with built in presets.
const (
	NetworkEmulator = "emulator"
	NetworkTestnet  = "testnet"
	NetworkMainnet  = "mainnet"
)

// DefaultFileName is the name of the config file looked up in the working directory.
const DefaultFileName = "flowdapp.yml"

// Preset holds the defaults of a known network.
type Preset struct {
	AccessNode string
	// Profile is the address of the Profile contract, empty when it is not deployed.
	Profile string
}

// Presets of the known networks.
var Presets = map[string]Preset{
	NetworkEmulator: {AccessNode: "http://localhost:8888", Profile: "0xf8d6e0586b0a20c7"},
	NetworkTestnet:  {AccessNode: "https://rest-testnet.onflow.org", Profile: "0xba1132bc08f82fe2"},
	NetworkMainnet:  {AccessNode: "https://rest-mainnet.onflow.org"},
}

// Config is the configuration of the dapp.
//
// WARNING: This data type contains sensitive fields and should not be logged.
type Config struct {
	Network     string            `mapstructure:"network" yaml:"network"`         // A preset name, or any name when access_node is set
	AccessNode  string            `mapstructure:"access_node" yaml:"access_node"` // The Access REST API URL. Defaults to the network preset.
	Contracts   ContractsConfig   `mapstructure:"contracts" yaml:"contracts"`
	Transaction TransactionConfig `mapstructure:"transaction" yaml:"transaction"`
	Wallet      WalletConfig      `mapstructure:"wallet" yaml:"wallet"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// ContractsConfig holds contract addresses.
type ContractsConfig struct {
	Profile string `mapstructure:"profile" yaml:"profile"` // The Profile contract address. Defaults to the network preset.
}

// TransactionConfig controls how transactions are submitted and followed.
type TransactionConfig struct {
	ComputeLimit   uint64        `mapstructure:"compute_limit" yaml:"compute_limit"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	SealTimeout    time.Duration `mapstructure:"seal_timeout" yaml:"seal_timeout"`                   // Zero waits without a limit
	MinNodeVersion string        `mapstructure:"min_node_version" yaml:"min_node_version,omitempty"` // A semver constraint, e.g. ">= 0.38"
}

type transactionYAML struct {
	ComputeLimit   uint64 `yaml:"compute_limit"`
	PollInterval   string `yaml:"poll_interval"`
	SealTimeout    string `yaml:"seal_timeout"`
	MinNodeVersion string `yaml:"min_node_version,omitempty"`
}

// MarshalYAML writes the durations in their string form so they read back the same.
func (c TransactionConfig) MarshalYAML() (any, error) {
	return transactionYAML{
		ComputeLimit:   c.ComputeLimit,
		PollInterval:   c.PollInterval.String(),
		SealTimeout:    c.SealTimeout.String(),
		MinNodeVersion: c.MinNodeVersion,
	}, nil
}

// WalletConfig configures the developer wallet.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type WalletConfig struct {
	Home       string               `mapstructure:"home" yaml:"home"`
	Passphrase string               `mapstructure:"passphrase" yaml:"passphrase,omitempty"` // Secret: Encrypts the stored keys
	Account    string               `mapstructure:"account" yaml:"account,omitempty"`       // The account to log in with when several are stored
	Service    ServiceAccountConfig `mapstructure:"service" yaml:"service"`
}

// ServiceAccountConfig is the account paying for sign ups.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type ServiceAccountConfig struct {
	Address    string `mapstructure:"address" yaml:"address,omitempty"`
	PrivateKey string `mapstructure:"private_key" yaml:"private_key,omitempty"` // Secret: Hex encoded private key
	KeyIndex   uint32 `mapstructure:"key_index" yaml:"key_index"`
	SigAlgo    string `mapstructure:"sig_algo" yaml:"sig_algo"`
	HashAlgo   string `mapstructure:"hash_algo" yaml:"hash_algo"`
}

// Configured reports whether a service account is set up.
func (c ServiceAccountConfig) Configured() bool {
	return c.Address != "" && c.PrivateKey != ""
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Default returns the configuration of a local emulator.
func Default() *Config {
	return &Config{
		Network: NetworkEmulator,
		Transaction: TransactionConfig{
			ComputeLimit: ledger.DefaultComputeLimit,
			PollInterval: time.Second,
			SealTimeout:  5 * time.Minute,
		},
		Wallet: WalletConfig{
			Home: defaultWalletHome(),
			Service: ServiceAccountConfig{
				SigAlgo:  crypto.ECDSA_P256.String(),
				HashAlgo: crypto.SHA3_256.String(),
			},
		},
		Log: LogConfig{Level: "info"},
	}
}

// ForNetwork returns the defaults with the preset of network applied.
func ForNetwork(network string) (*Config, error) {
	if _, ok := Presets[network]; !ok {
		return nil, fmt.Errorf("unknown network %q, expected one of %s", network, strings.Join(PresetNames(), ", "))
	}

	cfg := Default()
	cfg.Network = network
	cfg.applyPreset()

	return cfg, nil
}

// PresetNames returns the sorted names of the network presets.
func PresetNames() []string {
	return slices.Sorted(maps.Keys(Presets))
}

func defaultWalletHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowdapp"
	}

	return filepath.Join(home, ".flowdapp")
}

// Load loads the config from the file at filePath and the environment, which takes precedence.
// A missing file is not an error. Network presets are applied and the result is validated.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyPreset()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("network", d.Network)
	v.SetDefault("transaction.compute_limit", d.Transaction.ComputeLimit)
	v.SetDefault("transaction.poll_interval", d.Transaction.PollInterval)
	v.SetDefault("transaction.seal_timeout", d.Transaction.SealTimeout)
	v.SetDefault("wallet.home", d.Wallet.Home)
	v.SetDefault("wallet.service.sig_algo", d.Wallet.Service.SigAlgo)
	v.SetDefault("wallet.service.hash_algo", d.Wallet.Service.HashAlgo)
	v.SetDefault("log.level", d.Log.Level)
}

// applyPreset fills the access node and the contract address from the network preset.
func (c *Config) applyPreset() {
	p, ok := Presets[c.Network]
	if !ok {
		return
	}
	if c.AccessNode == "" {
		c.AccessNode = p.AccessNode
	}
	if c.Contracts.Profile == "" {
		c.Contracts.Profile = p.Profile
	}
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Network == "" {
		return errors.New("network is required")
	}
	if c.AccessNode == "" {
		return fmt.Errorf("access_node is required for network %q", c.Network)
	}
	if c.Contracts.Profile == "" {
		return fmt.Errorf("contracts.profile is required for network %q", c.Network)
	}
	if _, err := ledger.ParseAddress(c.Contracts.Profile); err != nil {
		return fmt.Errorf("invalid contracts.profile: %w", err)
	}
	if c.Transaction.ComputeLimit == 0 {
		return errors.New("transaction.compute_limit must be positive")
	}
	if c.Transaction.PollInterval <= 0 {
		return errors.New("transaction.poll_interval must be positive")
	}
	if c.Transaction.SealTimeout < 0 {
		return errors.New("transaction.seal_timeout must not be negative")
	}
	if c.Transaction.MinNodeVersion != "" {
		if _, err := semver.NewConstraint(c.Transaction.MinNodeVersion); err != nil {
			return fmt.Errorf("invalid transaction.min_node_version: %w", err)
		}
	}
	if c.Wallet.Account != "" {
		if _, err := ledger.ParseAddress(c.Wallet.Account); err != nil {
			return fmt.Errorf("invalid wallet.account: %w", err)
		}
	}
	if err := c.Wallet.Service.validate(); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}

	return nil
}

func (c ServiceAccountConfig) validate() error {
	if c.Address != "" {
		if _, err := ledger.ParseAddress(c.Address); err != nil {
			return fmt.Errorf("invalid wallet.service.address: %w", err)
		}
	}
	if _, err := crypto.ParseSignatureAlgorithm(c.SigAlgo); err != nil {
		return fmt.Errorf("invalid wallet.service.sig_algo: %w", err)
	}
	if _, err := crypto.ParseHashAlgorithm(c.HashAlgo); err != nil {
		return fmt.Errorf("invalid wallet.service.hash_algo: %w", err)
	}

	return nil
}

// ProfileAddress returns the parsed Profile contract address.
func (c *Config) ProfileAddress() (ledger.Address, error) {
	return ledger.ParseAddress(c.Contracts.Profile)
}

// Write renders cfg as YAML to filePath, readable only by the owner.
func Write(filePath string, cfg *Config) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	return os.WriteFile(filePath, b, 0o600)
}

var (
	// envBindings maps config keys to the environment variables providing them. The first name
	// is preferred; the others are the names used by the Flow tooling.
	envBindings = map[string][]string{
		"network":                      {"FLOWDAPP_NETWORK", "FLOW_NETWORK"},
		"access_node":                  {"FLOWDAPP_ACCESS_NODE", "FLOW_ACCESS_NODE"},
		"contracts.profile":            {"FLOWDAPP_CONTRACTS_PROFILE"},
		"transaction.compute_limit":    {"FLOWDAPP_TRANSACTION_COMPUTE_LIMIT"},
		"transaction.poll_interval":    {"FLOWDAPP_TRANSACTION_POLL_INTERVAL"},
		"transaction.seal_timeout":     {"FLOWDAPP_TRANSACTION_SEAL_TIMEOUT"},
		"transaction.min_node_version": {"FLOWDAPP_TRANSACTION_MIN_NODE_VERSION"},
		"wallet.home":                  {"FLOWDAPP_WALLET_HOME"},
		"wallet.passphrase":            {"FLOWDAPP_WALLET_PASSPHRASE"},
		"wallet.account":               {"FLOWDAPP_WALLET_ACCOUNT"},
		"wallet.service.address":       {"FLOWDAPP_WALLET_SERVICE_ADDRESS", "FLOW_SERVICEADDRESS"},
		"wallet.service.private_key":   {"FLOWDAPP_WALLET_SERVICE_PRIVATE_KEY", "FLOW_SERVICEPRIVATEKEY"},
		"wallet.service.key_index":     {"FLOWDAPP_WALLET_SERVICE_KEY_INDEX"},
		"wallet.service.sig_algo":      {"FLOWDAPP_WALLET_SERVICE_SIG_ALGO", "FLOW_SERVICEKEYSIGALGO"},
		"wallet.service.hash_algo":     {"FLOWDAPP_WALLET_SERVICE_HASH_ALGO", "FLOW_SERVICEKEYHASHALGO"},
		"log.level":                    {"FLOWDAPP_LOG_LEVEL"},
	}
)

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
