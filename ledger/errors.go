package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrTransactionExpired is wrapped by a TransactionError when the network expired the
	// transaction before it was finalized.
	ErrTransactionExpired = errors.New("transaction expired")

	// ErrTransactionReverted is wrapped by a TransactionError when execution failed.
	ErrTransactionReverted = errors.New("transaction reverted")
)

// QueryError reports a failed read-only script execution.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// TransactionError reports a failed mutation: rejected authorization, a submission error,
// an execution error or expiry. ID is set once the transaction was accepted by the network.
type TransactionError struct {
	ID  TransactionID
	Err error
}

func (e *TransactionError) Error() string {
	if e.ID.IsZero() {
		return fmt.Sprintf("transaction failed: %v", e.Err)
	}

	return fmt.Sprintf("transaction %s failed: %v", e.ID, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// IsQueryError reports whether err is or wraps a QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError

	return errors.As(err, &qe)
}

// IsTransactionError reports whether err is or wraps a TransactionError.
func IsTransactionError(err error) bool {
	var te *TransactionError

	return errors.As(err, &te)
}
