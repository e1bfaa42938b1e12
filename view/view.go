// Package view projects the controller state onto the screen of the dapp.
package view

import (
	"github.com/flowdapp/profile-dapp/controller"
	"github.com/flowdapp/profile-dapp/ledger"
)

// Fallbacks shown when a field has no value yet.
const (
	NoAddress = "No Address"
	NoValue   = "--"
)

// Variant selects which screen is shown.
type Variant int

const (
	// VariantUnauthenticated offers to log in or sign up. It is also shown while the session is
	// still unknown.
	VariantUnauthenticated Variant = iota
	VariantAuthenticated
)

func (v Variant) String() string {
	if v == VariantAuthenticated {
		return "authenticated"
	}

	return "unauthenticated"
}

// Action is a button of the screen.
type Action string

const (
	ActionLogIn              Action = "Log In"
	ActionSignUp             Action = "Sign Up"
	ActionSendQuery          Action = "Send Query"
	ActionInitAccount        Action = "Init Account"
	ActionExecuteTransaction Action = "Execute Transaction"
	ActionLogOut             Action = "Log Out"
)

var (
	unauthenticatedActions = []Action{ActionLogIn, ActionSignUp}
	authenticatedActions   = []Action{ActionSendQuery, ActionInitAccount, ActionExecuteTransaction, ActionLogOut}
)

// Model is everything a screen shows. The text fields are only set for VariantAuthenticated.
type Model struct {
	Variant           Variant
	Address           string
	ProfileName       string
	TransactionStatus string
	Actions           []Action
}

// Project derives the Model of s.
func Project(s controller.State) Model {
	if !s.Session.Authenticated() {
		return Model{
			Variant: VariantUnauthenticated,
			Actions: unauthenticatedActions,
		}
	}

	m := Model{
		Variant:           VariantAuthenticated,
		Address:           NoAddress,
		ProfileName:       NoValue,
		TransactionStatus: NoValue,
		Actions:           authenticatedActions,
	}
	if !s.Session.Identity.IsZero() {
		m.Address = s.Session.Identity.String()
	}
	if s.Profile.Loaded {
		m.ProfileName = s.Profile.DisplayName
	}
	if !s.Tx.ID.IsZero() && s.Tx.Status != ledger.StatusUnknown {
		m.TransactionStatus = s.Tx.Status.String()
	}

	return m
}
