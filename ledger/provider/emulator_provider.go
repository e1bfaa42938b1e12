package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/access"
	"github.com/flowdapp/profile-dapp/pkg/logger"
)

const (
	// DefaultEmulatorImage is the Flow emulator image started by the EmulatorChainProvider.
	DefaultEmulatorImage = "gcr.io/flow-container-registry/emulator:v1"

	emulatorRESTPort = "8888/tcp"
)

// EmulatorServiceAddress is the address of the service account of a fresh emulator.
var EmulatorServiceAddress = ledger.MustParseAddress("0xf8d6e0586b0a20c7")

// EmulatorChainProviderConfig holds the configuration to initialize the EmulatorChainProvider.
type EmulatorChainProviderConfig struct {
	// Optional: The emulator image. Defaults to DefaultEmulatorImage.
	Image string
	// Optional: A generator for the service account key. The generated key is installed as the
	// service key of the emulator, so its address must be EmulatorServiceAddress. Defaults to
	// AccountRandom(EmulatorServiceAddress).
	ServiceAccountGen AccountGenerator
	// Optional: Registers container cleanup with the test when set.
	T *testing.T
	// Optional: The interval between transaction result polls. Defaults to 200ms.
	PollInterval time.Duration
	// Optional: The logger. Defaults to a no-op logger.
	Logger logger.Logger
}

var _ ChainProvider = (*EmulatorChainProvider)(nil)

// EmulatorChainProvider manages a Flow emulator running inside a Docker container.
//
// This provider requires Docker to be installed and operational. Starting a container is slow,
// so initialize the provider once per test suite.
type EmulatorChainProvider struct {
	config EmulatorChainProviderConfig

	chain     *ledger.Chain
	tracker   *ledger.Tracker
	service   Account
	container testcontainers.Container
}

// NewEmulatorChainProvider creates a new EmulatorChainProvider with the given configuration.
func NewEmulatorChainProvider(config EmulatorChainProviderConfig) *EmulatorChainProvider {
	return &EmulatorChainProvider{config: config}
}

// Initialize starts the emulator with the generated service key and sets up the chain.
func (p *EmulatorChainProvider) Initialize(ctx context.Context) (ledger.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	gen := p.config.ServiceAccountGen
	if gen == nil {
		gen = AccountRandom(EmulatorServiceAddress)
	}
	service, err := gen.Generate()
	if err != nil {
		return ledger.Chain{}, fmt.Errorf("failed to generate service account: %w", err)
	}
	if service.Address != EmulatorServiceAddress {
		return ledger.Chain{}, fmt.Errorf("service account must be %s, got %s", EmulatorServiceAddress, service.Address)
	}
	p.service = service

	lggr := p.config.Logger
	if lggr == nil {
		lggr = logger.Nop()
	}

	url, err := p.startContainer(ctx)
	if err != nil {
		return ledger.Chain{}, err
	}

	client, err := access.NewClient(url, access.WithLogger(lggr))
	if err != nil {
		return ledger.Chain{}, err
	}

	interval := p.config.PollInterval
	if interval == 0 {
		interval = 200 * time.Millisecond
	}

	p.chain = &ledger.Chain{Network: "emulator", URL: url, Client: client}
	p.tracker = newTracker(*p.chain, interval, lggr)
	p.chain.Confirm = p.tracker.OnceSealed

	return *p.chain, nil
}

// Name returns the name of the EmulatorChainProvider.
func (*EmulatorChainProvider) Name() string {
	return "Flow Emulator Chain Provider"
}

// Chain returns the chain managed by this provider. You must call Initialize before using this
// method.
func (p *EmulatorChainProvider) Chain() ledger.Chain {
	return *p.chain
}

// Tracker returns the tracker polling the chain. You must call Initialize before using this
// method.
func (p *EmulatorChainProvider) Tracker() *ledger.Tracker {
	return p.tracker
}

// ServiceAccount returns the service account of the emulator.
func (p *EmulatorChainProvider) ServiceAccount() Account {
	return p.service
}

// Cleanup terminates the emulator container. It is safe to call multiple times.
func (p *EmulatorChainProvider) Cleanup(ctx context.Context) error {
	if p.container != nil {
		if err := p.container.Terminate(ctx); err != nil {
			return fmt.Errorf("failed to terminate emulator container: %w", err)
		}
		p.container = nil
	}

	return nil
}

// startContainer starts the emulator and returns the URL of its REST API.
func (p *EmulatorChainProvider) startContainer(ctx context.Context) (string, error) {
	const attempts = uint(3)

	image := p.config.Image
	if image == "" {
		image = DefaultEmulatorImage
	}

	req := testcontainers.ContainerRequest{
		Image: image,
		Env: map[string]string{
			"FLOW_SERVICEPRIVATEKEY":  p.service.PrivateKey.Hex(),
			"FLOW_SERVICEKEYSIGALGO":  p.service.PrivateKey.Algorithm().String(),
			"FLOW_SERVICEKEYHASHALGO": p.service.HashAlgo.String(),
			"FLOW_RESTPORT":           "8888",
		},
		ExposedPorts: []string{emulatorRESTPort},
		WaitingFor: wait.ForHTTP("/v1/blocks?height=sealed").
			WithPort(emulatorRESTPort).
			WithStatusCodeMatcher(func(status int) bool { return status == http.StatusOK }).
			WithStartupTimeout(60 * time.Second).
			WithPollInterval(500 * time.Millisecond),
	}

	url, err := retry.DoWithData(func() (string, error) {
		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if p.config.T != nil {
			testcontainers.CleanupContainer(p.config.T, container)
		}
		if err != nil {
			return "", fmt.Errorf("failed to start emulator container: %w", err)
		}
		p.container = container

		host, err := container.Host(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to get emulator host: %w", err)
		}
		port, err := container.MappedPort(ctx, emulatorRESTPort)
		if err != nil {
			return "", fmt.Errorf("failed to get emulator mapped port: %w", err)
		}
		if host == "" {
			return "", errors.New("container started but host is empty")
		}

		return fmt.Sprintf("http://%s:%s", host, port.Port()), nil
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.FixedDelay),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start emulator after %d attempts: %w", attempts, err)
	}

	return url, nil
}
