// Package wallet defines the authentication provider the controller talks to.
package wallet

import (
	"context"
	"errors"

	"github.com/flowdapp/profile-dapp/ledger"
)

var (
	// ErrNotLoggedIn is returned when an action needs a logged in user.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrUnknownAccount is returned when the wallet holds no key for an account.
	ErrUnknownAccount = errors.New("unknown account")
)

// AuthStatus is the authentication state of the current user.
type AuthStatus int

const (
	// AuthUnknown is reported until the provider has resolved the session.
	AuthUnknown AuthStatus = iota
	AuthAuthenticated
	AuthUnauthenticated
)

func (s AuthStatus) String() string {
	switch s {
	case AuthAuthenticated:
		return "authenticated"
	case AuthUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// CurrentUser is a snapshot of the authentication state. A zero Addr means no identity.
type CurrentUser struct {
	Addr   ledger.Address
	Status AuthStatus
}

// HasAddr reports whether the snapshot carries an identity.
func (u CurrentUser) HasAddr() bool { return !u.Addr.IsZero() }

// Authenticated returns the snapshot of addr being logged in.
func Authenticated(addr ledger.Address) CurrentUser {
	return CurrentUser{Addr: addr, Status: AuthAuthenticated}
}

// Unauthenticated returns the snapshot of nobody being logged in.
func Unauthenticated() CurrentUser {
	return CurrentUser{Status: AuthUnauthenticated}
}

// Listener receives snapshots, or a non-nil error when the provider failed to resolve the
// session.
type Listener func(user CurrentUser, err error)

// Provider authenticates users and signs for them.
type Provider interface {
	// Subscribe calls fn with the current snapshot, then with every later snapshot in emission
	// order, until the returned function is called.
	Subscribe(fn Listener) (unsubscribe func())
	LogIn(ctx context.Context) error
	SignUp(ctx context.Context) error
	Unauthenticate(ctx context.Context) error
	// Authz returns the authorizer for addr, which must be the logged in user.
	Authz(ctx context.Context, addr ledger.Address) (ledger.Authorizer, error)
}
