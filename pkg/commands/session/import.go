package session

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowdapp/profile-dapp/ledger/crypto"
	"github.com/flowdapp/profile-dapp/ledger/provider"
	"github.com/flowdapp/profile-dapp/pkg/commands/flags"
	"github.com/flowdapp/profile-dapp/pkg/commands/runtime"
	"github.com/flowdapp/profile-dapp/pkg/commands/text"
)

var (
	importLong = text.LongDesc(`
		Stores an existing account key in the wallet, encrypted with the wallet passphrase.

		The key is not checked against the network. Log in afterwards to use it.
	`)

	importExample = text.Examples(`
		# Import the emulator service account
		dapp import -a 0xf8d6e0586b0a20c7 --private-key $FLOW_SERVICEPRIVATEKEY
	`)
)

type importFlags struct {
	address    string
	privateKey string
	keyIndex   uint32
	sigAlgo    string
	hashAlgo   string
}

func newImportCmd(cfg runtime.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "import",
		Short:   "Import an account key into the wallet",
		Long:    importLong,
		Example: importExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := importFlags{
				address:    flags.MustString(cmd.Flags().GetString("address")),
				privateKey: flags.MustString(cmd.Flags().GetString("private-key")),
				sigAlgo:    flags.MustString(cmd.Flags().GetString("sig-algo")),
				hashAlgo:   flags.MustString(cmd.Flags().GetString("hash-algo")),
			}
			f.keyIndex, _ = cmd.Flags().GetUint32("key-index")

			return runImport(cmd, cfg, f)
		},
	}

	flags.Address(cmd, "Address of the account (required)")
	_ = cmd.MarkFlagRequired("address")
	cmd.Flags().String("private-key", "", "Hex encoded private key (required)")
	_ = cmd.MarkFlagRequired("private-key")
	cmd.Flags().Uint32("key-index", 0, "Index of the key on the account")
	cmd.Flags().String("sig-algo", crypto.ECDSA_P256.String(), "Signature algorithm of the key")
	cmd.Flags().String("hash-algo", crypto.SHA3_256.String(), "Hash algorithm of the key")

	return cmd
}

func runImport(cmd *cobra.Command, cfg runtime.Config, f importFlags) error {
	sigAlgo, err := crypto.ParseSignatureAlgorithm(f.sigAlgo)
	if err != nil {
		return err
	}
	hashAlgo, err := crypto.ParseHashAlgorithm(f.hashAlgo)
	if err != nil {
		return err
	}
	acc, err := provider.AccountGenPrivateKey(f.address, f.privateKey, f.keyIndex, sigAlgo, hashAlgo).Generate()
	if err != nil {
		return fmt.Errorf("failed to read key: %w", err)
	}

	env, err := cfg.LoadEnvironment(cmd)
	if err != nil {
		return err
	}
	if err := env.Wallet.Import(acc); err != nil {
		return fmt.Errorf("failed to import key: %w", err)
	}

	cmd.Printf("Imported key %d of %s\n", acc.KeyIndex, acc.Address)

	return nil
}
