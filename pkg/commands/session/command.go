// Package session provides the CLI commands managing the wallet session: logging in and out,
// signing up and importing keys.
package session

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowdapp/profile-dapp/pkg/commands/runtime"
	"github.com/flowdapp/profile-dapp/pkg/commands/text"
	"github.com/flowdapp/profile-dapp/view"
	"github.com/flowdapp/profile-dapp/wallet"
)

// NewCommands creates the session commands. They are mounted at the root because they are the
// first thing a user runs.
//
// Usage:
//
//	rootCmd.AddCommand(session.NewCommands(runtime.Config{Logger: lggr})...)
func NewCommands(cfg runtime.Config) []*cobra.Command {
	return []*cobra.Command{
		newLogInCmd(cfg),
		newSignUpCmd(cfg),
		newLogOutCmd(cfg),
		newWhoAmICmd(cfg),
		newImportCmd(cfg),
	}
}

var (
	logInLong = text.LongDesc(`
		Logs in with a key of the wallet.

		The account is wallet.account of the config, or the only key of the wallet. The session
		is shared by every process using the same wallet home.
	`)

	signUpLong = text.LongDesc(`
		Creates a new account paid by the service account, stores its key in the wallet and
		logs in.
	`)
)

func newLogInCmd(cfg runtime.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in with a wallet key",
		Long:  logInLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSessionChange(cmd, cfg, (*sessionActions).logIn)
		},
	}
}

func newSignUpCmd(cfg runtime.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Long:  signUpLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSessionChange(cmd, cfg, (*sessionActions).signUp)
		},
	}
}

func newLogOutCmd(cfg runtime.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the wallet session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSessionChange(cmd, cfg, (*sessionActions).logOut)
		},
	}
}

func newWhoAmICmd(cfg runtime.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWhoAmI(cmd, cfg)
		},
	}
}

type sessionActions struct {
	cmd *cobra.Command
	w   wallet.Provider
}

func (a *sessionActions) logIn() (string, error) {
	if err := a.w.LogIn(a.cmd.Context()); err != nil {
		return "", fmt.Errorf("failed to log in: %w", err)
	}

	return "Logged in", nil
}

func (a *sessionActions) signUp() (string, error) {
	if err := a.w.SignUp(a.cmd.Context()); err != nil {
		return "", fmt.Errorf("failed to sign up: %w", err)
	}

	return "Signed up", nil
}

func (a *sessionActions) logOut() (string, error) {
	if err := a.w.Unauthenticate(a.cmd.Context()); err != nil {
		return "", fmt.Errorf("failed to log out: %w", err)
	}

	return "Logged out", nil
}

// runSessionChange performs action with the wallet of the environment and prints the session
// it leads to.
func runSessionChange(cmd *cobra.Command, cfg runtime.Config, action func(*sessionActions) (string, error)) error {
	env, err := cfg.LoadEnvironment(cmd)
	if err != nil {
		return err
	}

	msg, err := action(&sessionActions{cmd: cmd, w: env.Wallet})
	if err != nil {
		return err
	}

	u := env.Wallet.Current()
	if u.HasAddr() {
		cmd.Printf("%s as %s\n", msg, u.Addr)
	} else {
		cmd.Printf("%s\n", msg)
	}

	return nil
}

func runWhoAmI(cmd *cobra.Command, cfg runtime.Config) error {
	env, err := cfg.LoadEnvironment(cmd)
	if err != nil {
		return err
	}

	u := env.Wallet.Current()
	addr := view.NoAddress
	if u.HasAddr() {
		addr = u.Addr.String()
	}
	cmd.Printf("Address: %s\n", addr)
	cmd.Printf("Status: %s\n", u.Status)

	return nil
}
