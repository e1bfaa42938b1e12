package controller

import (
	"github.com/google/uuid"

	"github.com/flowdapp/profile-dapp/ledger"
)

// StatusSubscription follows the status of a transaction submitted by SetProfileName.
type StatusSubscription struct {
	ID  uuid.UUID
	sub *ledger.Subscription
}

// TxID returns the followed transaction.
func (s *StatusSubscription) TxID() ledger.TransactionID { return s.sub.TransactionID() }

// Stop ends the subscription and waits until no more updates are delivered.
func (s *StatusSubscription) Stop() { s.sub.Stop() }

// Done is closed once the transaction reached a final status, following it failed or the
// subscription was stopped.
func (s *StatusSubscription) Done() <-chan struct{} { return s.sub.Done() }

// Err returns why the subscription ended early, if it did.
func (s *StatusSubscription) Err() error { return s.sub.Err() }

// Result returns the last delivered result.
func (s *StatusSubscription) Result() ledger.TransactionResult { return s.sub.Result() }
