// Package devledger provides a command serving an in-memory Flow network for local development.
package devledger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
	"github.com/flowdapp/profile-dapp/ledger/ledgertest"
	"github.com/flowdapp/profile-dapp/ledger/provider"
	"github.com/flowdapp/profile-dapp/pkg/commands/flags"
	"github.com/flowdapp/profile-dapp/pkg/commands/runtime"
	"github.com/flowdapp/profile-dapp/pkg/commands/text"
	"github.com/flowdapp/profile-dapp/profile"
	"github.com/flowdapp/profile-dapp/profile/profiletest"
	"github.com/flowdapp/profile-dapp/wallet/devwallet"
)

const shutdownTimeout = 5 * time.Second

// NewCommand creates the dev-ledger command with all subcommands.
func NewCommand(cfg runtime.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev-ledger",
		Short: "Local development network commands",
	}

	cmd.AddCommand(newServeCmd(cfg, nil))

	return cmd
}

var (
	serveLong = text.LongDesc(`
		Serves an in-memory Flow network over the Access REST API.

		The Profile contract and the service account live at the emulator service address, so
		the emulator network preset works against it. State is lost when the command exits.
	`)

	serveExample = text.Examples(`
		# Serve on the emulator port with a fresh service key
		dapp dev-ledger serve

		# Keep the service key across restarts
		dapp dev-ledger serve --service-key $FLOWDAPP_WALLET_SERVICE_PRIVATE_KEY
	`)
)

type serveFlags struct {
	addr       string
	serviceKey string
}

// newServeCmd creates the serve command. ready, when set, is called with the listening address.
func newServeCmd(cfg runtime.Config, ready func(net.Addr)) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve an in-memory Flow network",
		Long:    serveLong,
		Example: serveExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := serveFlags{
				addr:       flags.MustString(cmd.Flags().GetString("addr")),
				serviceKey: flags.MustString(cmd.Flags().GetString("service-key")),
			}

			return runServe(cmd, cfg, f, ready)
		},
	}

	cmd.Flags().String("addr", "127.0.0.1:8888", "Listen address")
	cmd.Flags().String("service-key", "", "Hex ECDSA_P256 private key of the service account, generated when empty")

	return cmd
}

// newNetwork builds the in-memory ledger with the Profile contract and account creation.
func newNetwork(key crypto.PrivateKey) (*ledgertest.Ledger, error) {
	l := ledgertest.New()
	l.AddAccount(provider.EmulatorServiceAddress, ledger.AccountKey{
		PublicKey: key.PublicKey().Encode(),
		SigAlgo:   crypto.ECDSA_P256,
		HashAlgo:  crypto.SHA3_256,
		Weight:    1000,
	})
	l.HandleAccountCreation(devwallet.CreateAccountCode)

	contract, err := profile.New(provider.EmulatorServiceAddress)
	if err != nil {
		return nil, err
	}
	profiletest.Install(l, contract)

	return l, nil
}

func serviceKey(hex string) (crypto.PrivateKey, error) {
	if hex == "" {
		return crypto.GeneratePrivateKey(crypto.ECDSA_P256)
	}

	key, err := crypto.DecodePrivateKeyHex(crypto.ECDSA_P256, hex)
	if err != nil {
		return crypto.PrivateKey{}, fmt.Errorf("invalid service key: %w", err)
	}

	return key, nil
}

func runServe(cmd *cobra.Command, cfg runtime.Config, f serveFlags, ready func(net.Addr)) error {
	key, err := serviceKey(f.serviceKey)
	if err != nil {
		return err
	}
	l, err := newNetwork(key)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", f.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.addr, err)
	}
	srv := &http.Server{
		Handler:           ledgertest.NewHandler(l),
		ReadHeaderTimeout: 10 * time.Second,
	}

	cmd.Printf("Serving Flow Access API on http://%s\n", lis.Addr())
	cmd.Printf("Service account: %s\n", provider.EmulatorServiceAddress)
	cmd.Printf("\nConfigure the dapp with:\n")
	cmd.Printf("  export FLOWDAPP_NETWORK=emulator\n")
	cmd.Printf("  export FLOWDAPP_ACCESS_NODE=http://%s\n", lis.Addr())
	cmd.Printf("  export FLOWDAPP_WALLET_SERVICE_ADDRESS=%s\n", provider.EmulatorServiceAddress)
	cmd.Printf("  export FLOWDAPP_WALLET_SERVICE_PRIVATE_KEY=%s\n", key.Hex())

	lggr := cfg.Logger.Named("devledger")
	lggr.Infow("Dev ledger started", "addr", lis.Addr().String())
	if ready != nil {
		ready(lis.Addr())
	}

	g, gctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dev ledger server failed: %w", err)
		}

		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(ctx)
	})

	err = g.Wait()
	lggr.Infow("Dev ledger stopped", "transactions", len(l.Transactions()))

	return err
}
