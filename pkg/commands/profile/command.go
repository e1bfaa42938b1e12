// Package profile provides the CLI commands reading and changing Profile resources.
package profile

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowdapp/profile-dapp/controller"
	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/pkg/commands/flags"
	"github.com/flowdapp/profile-dapp/pkg/commands/runtime"
	"github.com/flowdapp/profile-dapp/pkg/commands/text"
)

// NewCommand creates the profile command with all subcommands.
//
// Usage:
//
//	rootCmd.AddCommand(profile.NewCommand(runtime.Config{Logger: lggr}))
func NewCommand(cfg runtime.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Profile commands",
	}

	cmd.AddCommand(
		newReadCmd(cfg),
		newInitCmd(cfg),
		newSetNameCmd(cfg),
	)

	return cmd
}

var (
	readLong = text.LongDesc(`
		Reads the profile name of an account with a script.

		Accounts without a Profile resource show "No Profile".
	`)

	readExample = text.Examples(`
		# Read your own profile
		dapp profile read

		# Read another account
		dapp profile read -a 0x01cf0e2f2f715450
	`)

	initLong = text.LongDesc(`
		Creates the Profile resource of the logged in account and waits until the transaction
		is sealed. Accounts that already hold one are left unchanged.
	`)

	setNameLong = text.LongDesc(`
		Submits a transaction changing the profile name of the logged in account.

		The command prints every status the transaction reaches until it is sealed or expired.
		With --wait=false it prints the transaction id and returns.
	`)

	setNameExample = text.Examples(`
		dapp profile set-name Edoye
		dapp profile set-name Edoye --wait=false
	`)
)

func newReadCmd(cfg runtime.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "read",
		Short:   "Read a profile name",
		Long:    readLong,
		Example: readExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRead(cmd, cfg)
		},
	}

	flags.Address(cmd, "Account to read, defaults to the logged in account")

	return cmd
}

func newInitCmd(cfg runtime.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the Profile resource of the logged in account",
		Long:  initLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, cfg)
		},
	}
}

func newSetNameCmd(cfg runtime.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "set-name <name>",
		Short:   "Change the profile name of the logged in account",
		Long:    setNameLong,
		Example: setNameExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wait := flags.MustBool(cmd.Flags().GetBool("wait"))

			return runSetName(cmd, cfg, args[0], wait)
		},
	}

	flags.Wait(cmd)

	return cmd
}

// openController loads the environment and returns a controller the caller must Close.
func openController(cmd *cobra.Command, cfg runtime.Config) (*controller.Controller, error) {
	env, err := cfg.LoadEnvironment(cmd)
	if err != nil {
		return nil, err
	}

	return env.NewController()
}

func runRead(cmd *cobra.Command, cfg runtime.Config) error {
	addr, set, err := flags.GetAddress(cmd)
	if err != nil {
		return err
	}

	ctrl, err := openController(cmd, cfg)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if !set {
		session := ctrl.State().Session
		if !session.Authenticated() {
			return errors.New("not logged in, log in or pass --address")
		}
		addr = session.Identity
	}

	p, err := ctrl.ReadProfile(cmd.Context(), addr)
	if err != nil {
		return err
	}
	cmd.Printf("Address: %s\n", addr)
	cmd.Printf("Profile Name: %s\n", p.DisplayName)

	return nil
}

func runInit(cmd *cobra.Command, cfg runtime.Config) error {
	ctrl, err := openController(cmd, cfg)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	res, err := ctrl.InitializeAccountResource(cmd.Context(), ctrl.State().Session.Identity)
	if err != nil {
		return err
	}
	cmd.Printf("Account initialized in transaction %s\n", res.ID)
	cmd.Printf("Transaction Status: %s\n", res.Status)

	return nil
}

func runSetName(cmd *cobra.Command, cfg runtime.Config, name string, wait bool) error {
	ctrl, err := openController(cmd, cfg)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	sub, err := ctrl.SetProfileName(cmd.Context(), ctrl.State().Session.Identity, name)
	if err != nil {
		return err
	}
	cmd.Printf("Submitted transaction %s\n", sub.TxID())
	if !wait {
		return nil
	}

	if err := follow(cmd, ctrl, sub); err != nil {
		return err
	}

	res := sub.Result()
	switch {
	case res.Status == ledger.StatusExpired:
		return &ledger.TransactionError{ID: res.ID, Err: ledger.ErrTransactionExpired}
	case res.Failed():
		return &ledger.TransactionError{ID: res.ID, Err: fmt.Errorf("%w: %s", ledger.ErrTransactionReverted, res.ErrorMessage)}
	}

	return nil
}

// follow prints the statuses the controller publishes for the transaction of sub until sub ends.
// Statuses published in quick succession may be skipped, the last one is always printed.
func follow(cmd *cobra.Command, ctrl *controller.Controller, sub *controller.StatusSubscription) error {
	last := ledger.StatusUnknown
	show := func(tx controller.TxView) {
		if tx.ID == sub.TxID() && last.Advances(tx.Status) {
			last = tx.Status
			cmd.Printf("Transaction Status: %s\n", tx.Status)
		}
	}

	for {
		select {
		case s, ok := <-ctrl.Updates():
			if !ok {
				return controller.ErrClosed
			}
			show(s.Tx)
		case <-sub.Done():
			// the final status is applied before the subscription ends
			show(ctrl.State().Tx)

			return sub.Err()
		case <-cmd.Context().Done():
			sub.Stop()

			return cmd.Context().Err()
		}
	}
}
