package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/access"
	"github.com/flowdapp/profile-dapp/pkg/logger"
)

// RPCChainProviderConfig holds the configuration to initialize the RPCChainProvider.
type RPCChainProviderConfig struct {
	// Required: The name of the network, e.g. "testnet".
	Network string
	// Required: The REST URL of the Access node.
	AccessURL string
	// Optional: A semver constraint the node version must satisfy, e.g. ">= 0.38". The version is
	// not checked when empty.
	MinNodeVersion string
	// Optional: The interval between transaction result polls. Defaults to one second.
	PollInterval time.Duration
	// Optional: Options passed to the Access API client.
	ClientOpts []access.Option
	// Optional: The logger. Defaults to a no-op logger.
	Logger logger.Logger
}

// validate checks if the RPCChainProviderConfig is valid.
func (c RPCChainProviderConfig) validate() error {
	if c.Network == "" {
		return errors.New("network is required")
	}
	if c.AccessURL == "" {
		return errors.New("access url is required")
	}
	if c.MinNodeVersion != "" {
		if _, err := semver.NewConstraint(c.MinNodeVersion); err != nil {
			return fmt.Errorf("invalid min node version %q: %w", c.MinNodeVersion, err)
		}
	}

	return nil
}

var _ ChainProvider = (*RPCChainProvider)(nil)

// RPCChainProvider provides a chain that connects to a Flow Access node over REST.
type RPCChainProvider struct {
	config RPCChainProviderConfig

	chain   *ledger.Chain
	tracker *ledger.Tracker
}

// NewRPCChainProvider creates a new RPCChainProvider with the given configuration.
func NewRPCChainProvider(config RPCChainProviderConfig) *RPCChainProvider {
	return &RPCChainProvider{config: config}
}

// Initialize validates the configuration, checks the node version and sets up the chain.
func (p *RPCChainProvider) Initialize(ctx context.Context) (ledger.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	if err := p.config.validate(); err != nil {
		return ledger.Chain{}, fmt.Errorf("failed to validate provider config: %w", err)
	}

	lggr := p.config.Logger
	if lggr == nil {
		lggr = logger.Nop()
	}

	opts := append([]access.Option{access.WithLogger(lggr)}, p.config.ClientOpts...)
	client, err := access.NewClient(p.config.AccessURL, opts...)
	if err != nil {
		return ledger.Chain{}, fmt.Errorf("failed to create access client for %s: %w", p.config.Network, err)
	}

	if p.config.MinNodeVersion != "" {
		if err := checkNodeVersion(ctx, client, p.config.MinNodeVersion); err != nil {
			return ledger.Chain{}, err
		}
	}

	p.chain = &ledger.Chain{
		Network: p.config.Network,
		URL:     client.URL(),
		Client:  client,
	}
	p.tracker = newTracker(*p.chain, p.config.PollInterval, lggr)
	p.chain.Confirm = p.tracker.OnceSealed

	return *p.chain, nil
}

// Name returns the name of the RPCChainProvider.
func (*RPCChainProvider) Name() string {
	return "Flow RPC Chain Provider"
}

// Chain returns the chain managed by this provider. You must call Initialize before using this
// method.
func (p *RPCChainProvider) Chain() ledger.Chain {
	return *p.chain
}

// Tracker returns the tracker polling the chain. You must call Initialize before using this
// method.
func (p *RPCChainProvider) Tracker() *ledger.Tracker {
	return p.tracker
}

func checkNodeVersion(ctx context.Context, client *access.Client, constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid min node version %q: %w", constraint, err)
	}

	info, err := client.GetNodeVersionInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to get node version: %w", err)
	}
	v, err := semver.NewVersion(info.Semver)
	if err != nil {
		return fmt.Errorf("failed to parse node version %q: %w", info.Semver, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("node version %s does not satisfy %s", v, constraint)
	}

	return nil
}

func newTracker(chain ledger.Chain, interval time.Duration, lggr logger.Logger) *ledger.Tracker {
	opts := []ledger.TrackerOption{ledger.WithTrackerLogger(lggr)}
	if interval > 0 {
		opts = append(opts, ledger.WithTickInterval(interval))
	}

	return ledger.NewTracker(chain, opts...)
}
