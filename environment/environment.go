// Package environment assembles the collaborators of the dapp from its configuration.
package environment

import (
	"context"
	"fmt"

	"github.com/flowdapp/profile-dapp/config"
	"github.com/flowdapp/profile-dapp/controller"
	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/access"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
	"github.com/flowdapp/profile-dapp/ledger/provider"
	"github.com/flowdapp/profile-dapp/pkg/logger"
	"github.com/flowdapp/profile-dapp/profile"
	"github.com/flowdapp/profile-dapp/wallet/devwallet"
)

// Environment holds everything a command needs to talk to the network as the wallet user.
type Environment struct {
	Config  *config.Config
	Logger  logger.Logger
	Chain   ledger.Chain
	Tracker *ledger.Tracker
	Wallet  *devwallet.Wallet
	Profile *profile.Contract
}

// LoadOptions contains configuration options for Load.
type LoadOptions struct {
	scryptN    int
	clientOpts []access.Option
}

// LoadOption is a function that modifies LoadOptions.
type LoadOption func(*LoadOptions)

// WithScryptN sets the scrypt cost of keys stored by the wallet.
func WithScryptN(n int) LoadOption {
	return func(o *LoadOptions) {
		o.scryptN = n
	}
}

// WithClientOptions adds options of the Access API client.
func WithClientOptions(opts ...access.Option) LoadOption {
	return func(o *LoadOptions) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// Load connects to the access node of cfg and opens the wallet.
func Load(ctx context.Context, cfg *config.Config, lggr logger.Logger, opts ...LoadOption) (*Environment, error) {
	options := &LoadOptions{}
	for _, opt := range opts {
		opt(options)
	}

	addr, err := cfg.ProfileAddress()
	if err != nil {
		return nil, fmt.Errorf("invalid profile contract address: %w", err)
	}
	contract, err := profile.New(addr)
	if err != nil {
		return nil, err
	}

	p := provider.NewRPCChainProvider(provider.RPCChainProviderConfig{
		Network:        cfg.Network,
		AccessURL:      cfg.AccessNode,
		MinNodeVersion: cfg.Transaction.MinNodeVersion,
		PollInterval:   cfg.Transaction.PollInterval,
		ClientOpts:     options.clientOpts,
		Logger:         lggr,
	})
	chain, err := p.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", p.Name(), err)
	}

	wcfg := devwallet.Config{
		Home:         cfg.Wallet.Home,
		Passphrase:   cfg.Wallet.Passphrase,
		Account:      cfg.Wallet.Account,
		ComputeLimit: cfg.Transaction.ComputeLimit,
		ScryptN:      options.scryptN,
		Logger:       lggr,
	}
	if svc := cfg.Wallet.Service; svc.Configured() {
		gen, err := serviceAccount(svc)
		if err != nil {
			return nil, err
		}
		wcfg.Ledger = chain
		wcfg.Confirm = chain.Confirm
		wcfg.Service = gen
	}
	w, err := devwallet.New(wcfg)
	if err != nil {
		return nil, err
	}

	lggr.Debugw("Loaded environment", "network", chain.Network, "accessNode", chain.URL, "profile", addr)

	return &Environment{
		Config:  cfg,
		Logger:  lggr,
		Chain:   chain,
		Tracker: p.Tracker(),
		Wallet:  w,
		Profile: contract,
	}, nil
}

func serviceAccount(svc config.ServiceAccountConfig) (provider.AccountGenerator, error) {
	sigAlgo, err := crypto.ParseSignatureAlgorithm(svc.SigAlgo)
	if err != nil {
		return nil, err
	}
	hashAlgo, err := crypto.ParseHashAlgorithm(svc.HashAlgo)
	if err != nil {
		return nil, err
	}

	return provider.AccountGenPrivateKey(svc.Address, svc.PrivateKey, svc.KeyIndex, sigAlgo, hashAlgo), nil
}

// NewController returns a controller acting through the wallet and the chain of e. The caller
// must Close it.
func (e *Environment) NewController() (*controller.Controller, error) {
	return controller.New(controller.Config{
		Logger:       e.Logger,
		Wallet:       e.Wallet,
		Ledger:       e.Chain,
		Tracker:      e.Tracker,
		Profile:      e.Profile,
		ComputeLimit: e.Config.Transaction.ComputeLimit,
		SealTimeout:  e.Config.Transaction.SealTimeout,
	})
}
