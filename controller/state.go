package controller

import (
	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/wallet"
)

// NoProfile is the display name of an account without a profile.
const NoProfile = "No Profile"

// Session is the authentication state. A zero Identity means no identity.
type Session struct {
	Identity ledger.Address
	Status   wallet.AuthStatus
}

// Authenticated reports whether a user is logged in. It is false while the status is unknown.
func (s Session) Authenticated() bool { return s.Status == wallet.AuthAuthenticated }

// ProfileView is the profile shown to the user. It is only set by ReadProfile.
type ProfileView struct {
	DisplayName string
	Loaded      bool
}

// TxView is the most recently submitted tracked transaction. A zero ID means none.
type TxView struct {
	ID     ledger.TransactionID
	Status ledger.TransactionStatus
}

// State is everything the controller knows. Session, Profile and Tx change independently.
type State struct {
	Session Session
	Profile ProfileView
	Tx      TxView
}

type event interface{ isEvent() }

type (
	sessionChanged  struct{ user wallet.CurrentUser }
	sessionFailed   struct{ err error }
	profileRead     struct{ view ProfileView }
	txSubmitted     struct{ id ledger.TransactionID }
	txStatusChanged struct {
		id     ledger.TransactionID
		status ledger.TransactionStatus
	}
)

func (sessionChanged) isEvent()  {}
func (sessionFailed) isEvent()   {}
func (profileRead) isEvent()     {}
func (txSubmitted) isEvent()     {}
func (txStatusChanged) isEvent() {}

// reduce applies ev to s.
func reduce(s State, ev event) State {
	switch ev := ev.(type) {
	case sessionChanged:
		s.Session = Session{Identity: ev.user.Addr, Status: ev.user.Status}
	case sessionFailed:
		s.Session = Session{Status: wallet.AuthUnauthenticated}
	case profileRead:
		s.Profile = ev.view
	case txSubmitted:
		s.Tx = TxView{ID: ev.id, Status: ledger.StatusUnknown}
	case txStatusChanged:
		// stale transactions and out of order statuses are dropped
		if ev.id == s.Tx.ID && s.Tx.Status.Advances(ev.status) {
			s.Tx.Status = ev.status
		}
	}

	return s
}
