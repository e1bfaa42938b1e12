// Package flags provides reusable flag helpers for CLI commands.
//
// This package should only contain common flags that can be used by multiple commands
// to ensure unified naming and consistent behavior across the CLI.
// Command-specific flags should be defined locally in the command file.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/flowdapp/profile-dapp/config"
	"github.com/flowdapp/profile-dapp/ledger"
)

// ConfigFlag is the name of the flag holding the config file path.
const ConfigFlag = "config"

// MustString returns the string value, ignoring the error.
// Safe to use with registered flags where GetString cannot fail.
func MustString(s string, _ error) string { return s }

// MustBool returns the bool value, ignoring the error.
// Safe to use with registered flags where GetBool cannot fail.
func MustBool(b bool, _ error) bool { return b }

// Config adds the persistent --config/-c flag to a command, defaulting to config.DefaultFileName.
// Subcommands retrieve the value with cmd.Flags().GetString(flags.ConfigFlag).
func Config(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP(ConfigFlag, "c", config.DefaultFileName, "Config file path")
}

// Address adds the optional --address/-a flag. Retrieve the value with GetAddress.
//
// Usage:
//
//	flags.Address(cmd, "Account to read, defaults to the logged in account")
//	// later in RunE:
//	addr, set, err := flags.GetAddress(cmd)
func Address(cmd *cobra.Command, usage string) {
	cmd.Flags().StringP("address", "a", "", usage)
}

// GetAddress parses the --address flag. It reports false when the flag is empty.
func GetAddress(cmd *cobra.Command) (ledger.Address, bool, error) {
	s := MustString(cmd.Flags().GetString("address"))
	if s == "" {
		return ledger.Address{}, false, nil
	}
	addr, err := ledger.ParseAddress(s)
	if err != nil {
		return ledger.Address{}, false, err
	}

	return addr, true, nil
}

// Wait adds the --wait flag for waiting until a transaction is final (default: true).
// Retrieve the value with cmd.Flags().GetBool("wait").
func Wait(cmd *cobra.Command) {
	cmd.Flags().Bool("wait", true, "Follow the transaction until it is sealed or expired")
}

// Output adds the --out/-o flag for specifying an output file path.
// Also supports the deprecated --path alias for backwards compatibility.
// Retrieve the value with cmd.Flags().GetString("out").
func Output(cmd *cobra.Command, defaultValue string) {
	cmd.Flags().StringP("out", "o", defaultValue, "Output file path")

	// Normalize --path to --out for backward compatibility (silent)
	existingNormalize := cmd.Flags().GetNormalizeFunc()
	cmd.Flags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "path" {
			return pflag.NormalizedName("out")
		}
		if existingNormalize != nil {
			return existingNormalize(f, name)
		}

		return pflag.NormalizedName(name)
	})
}
