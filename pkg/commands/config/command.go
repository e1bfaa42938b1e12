// Package config provides the CLI commands creating and inspecting the configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/flowdapp/profile-dapp/config"
	"github.com/flowdapp/profile-dapp/pkg/commands/flags"
	"github.com/flowdapp/profile-dapp/pkg/commands/runtime"
	"github.com/flowdapp/profile-dapp/pkg/commands/text"
)

const redacted = "REDACTED"

// NewCommand creates the config command with all subcommands.
func NewCommand(cfg runtime.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(
		newInitCmd(),
		newShowCmd(cfg),
	)

	return cmd
}

var (
	initLong = text.LongDesc(`
		Writes a configuration file with the defaults of a network preset.

		Secrets are not written. Provide the wallet passphrase and the service account key
		with FLOWDAPP_WALLET_PASSPHRASE and FLOWDAPP_WALLET_SERVICE_PRIVATE_KEY.
	`)

	initExample = text.Examples(`
		# Local emulator or dev ledger
		dapp config init

		# Testnet, replacing an existing file
		dapp config init -n testnet --force
	`)

	showLong = text.LongDesc(`
		Prints the configuration after environment overrides and presets, with secrets
		redacted.
	`)
)

type initFlags struct {
	network string
	out     string
	force   bool
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Write a configuration file",
		Long:    initLong,
		Example: initExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := initFlags{
				network: flags.MustString(cmd.Flags().GetString("network")),
				out:     flags.MustString(cmd.Flags().GetString("out")),
				force:   flags.MustBool(cmd.Flags().GetBool("force")),
			}

			return runInit(cmd, f)
		},
	}

	cmd.Flags().StringP("network", "n", cfgpkg.NetworkEmulator, "Network preset")
	flags.Output(cmd, cfgpkg.DefaultFileName)
	cmd.Flags().Bool("force", false, "Overwrite an existing file")

	return cmd
}

func runInit(cmd *cobra.Command, f initFlags) error {
	cfg, err := cfgpkg.ForNetwork(f.network)
	if err != nil {
		return err
	}

	if !f.force {
		if _, err := os.Stat(f.out); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", f.out)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to check %s: %w", f.out, err)
		}
	}

	if err := cfgpkg.Write(f.out, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	cmd.Printf("Wrote %s for network %s\n", f.out, cfg.Network)
	if cfg.Contracts.Profile == "" {
		cmd.Printf("Set contracts.profile before use, the Profile contract has no known address on %s\n", cfg.Network)
	}

	return nil
}

func newShowCmd(cfg runtime.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the loaded configuration",
		Long:  showLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShow(cmd, cfg)
		},
	}
}

func runShow(cmd *cobra.Command, rt runtime.Config) error {
	cfg, err := rt.LoadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Wallet.Passphrase != "" {
		cfg.Wallet.Passphrase = redacted
	}
	if cfg.Wallet.Service.PrivateKey != "" {
		cfg.Wallet.Service.PrivateKey = redacted
	}

	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	cmd.Print(string(b))

	return nil
}
