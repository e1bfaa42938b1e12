// Package environmenttest serves an in-memory Flow network over HTTP for tests of code that
// loads an environment from configuration.
package environmenttest

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowdapp/profile-dapp/config"
	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
	"github.com/flowdapp/profile-dapp/ledger/ledgertest"
	"github.com/flowdapp/profile-dapp/profile"
	"github.com/flowdapp/profile-dapp/profile/profiletest"
	"github.com/flowdapp/profile-dapp/wallet/devwallet"
)

const (
	// ScryptN keeps key files cheap to open in tests.
	ScryptN = 1 << 10

	// Passphrase of the wallets configured by Config.
	Passphrase = "correct horse battery staple"
)

// ServiceAddress hosts the Profile contract and pays for sign ups.
var ServiceAddress = ledger.MustParseAddress("0xf8d6e0586b0a20c7")

// Network is a ledgertest.Ledger with the Profile contract and account creation installed,
// served over the Access REST API.
type Network struct {
	Ledger   *ledgertest.Ledger
	Profiles *profiletest.Store
	Contract *profile.Contract
	URL      string

	serviceKey crypto.PrivateKey
}

// New starts a Network that is shut down when t ends.
func New(t *testing.T) *Network {
	t.Helper()

	key, err := crypto.GeneratePrivateKey(crypto.ECDSA_P256)
	require.NoError(t, err)

	l := ledgertest.New()
	l.AddAccount(ServiceAddress, ledger.AccountKey{
		PublicKey: key.PublicKey().Encode(),
		SigAlgo:   crypto.ECDSA_P256,
		HashAlgo:  crypto.SHA3_256,
		Weight:    1000,
	})
	l.HandleAccountCreation(devwallet.CreateAccountCode)

	contract, err := profile.New(ServiceAddress)
	require.NoError(t, err)
	profiles := profiletest.Install(l, contract)

	srv := httptest.NewServer(ledgertest.NewHandler(l))
	t.Cleanup(srv.Close)

	return &Network{
		Ledger:     l,
		Profiles:   profiles,
		Contract:   contract,
		URL:        srv.URL,
		serviceKey: key,
	}
}

// Config returns a configuration pointing at n, with a fresh wallet home and the service
// account set up for sign ups.
func (n *Network) Config(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Network = "ledgertest"
	cfg.AccessNode = n.URL
	cfg.Contracts.Profile = ServiceAddress.String()
	cfg.Transaction.PollInterval = time.Millisecond
	cfg.Transaction.SealTimeout = 10 * time.Second
	cfg.Wallet.Home = t.TempDir()
	cfg.Wallet.Passphrase = Passphrase
	cfg.Wallet.Service = config.ServiceAccountConfig{
		Address:    ServiceAddress.String(),
		PrivateKey: n.serviceKey.Hex(),
		SigAlgo:    crypto.ECDSA_P256.String(),
		HashAlgo:   crypto.SHA3_256.String(),
	}
	require.NoError(t, cfg.Validate())

	return cfg
}
