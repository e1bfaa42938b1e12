package ledger

import (
	"context"

	"github.com/flowdapp/profile-dapp/ledger/cadence"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
)

// DefaultComputeLimit is the computation limit used when a Mutation does not set one.
const DefaultComputeLimit uint64 = 50

// Query is a read-only Cadence script and its arguments.
type Query struct {
	Code []byte
	Args []cadence.Value
}

// Authorizer is an account key able to sign for a transaction role.
type Authorizer struct {
	Address  Address
	KeyIndex uint32
	// Signer may be nil for ledgers that do not check signatures.
	Signer crypto.Signer
}

// Mutation is a transaction to submit. Payer, Proposer and every authorization sign it.
type Mutation struct {
	Code           []byte
	Args           []cadence.Value
	Payer          Authorizer
	Proposer       Authorizer
	Authorizations []Authorizer
	// ComputeLimit bounds the computation the transaction may use. Exceeding it fails the
	// transaction on the network.
	ComputeLimit uint64
}

// SingleAuthorizer returns a Mutation of code in which auth fills every role, the common shape
// of user initiated transactions.
func SingleAuthorizer(code []byte, args []cadence.Value, auth Authorizer, limit uint64) Mutation {
	return Mutation{
		Code:           code,
		Args:           args,
		Payer:          auth,
		Proposer:       auth,
		Authorizations: []Authorizer{auth},
		ComputeLimit:   limit,
	}
}

// Event is an event emitted by a transaction.
type Event struct {
	Type             string
	TransactionID    TransactionID
	TransactionIndex uint32
	EventIndex       uint32
	Payload          cadence.Composite
}

// TransactionResult is the network's view of a submitted transaction.
type TransactionResult struct {
	ID              TransactionID
	BlockID         Identifier
	Status          TransactionStatus
	StatusCode      uint
	ErrorMessage    string
	ComputationUsed uint64
	Events          []Event
}

// Failed reports whether execution failed.
func (r TransactionResult) Failed() bool {
	return r.ErrorMessage != "" || r.StatusCode != 0
}

// EventsOfType returns the events whose type matches typ.
func (r TransactionResult) EventsOfType(typ string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Type == typ {
			out = append(out, e)
		}
	}

	return out
}

// Querier executes read-only scripts.
type Querier interface {
	// Query executes the script against the latest sealed state. Failures are returned as
	// *QueryError.
	Query(ctx context.Context, q Query) (cadence.Value, error)
}

// Mutator submits transactions.
type Mutator interface {
	// Mutate signs and submits the transaction and returns its ID without waiting for it.
	// Failures are returned as *TransactionError.
	Mutate(ctx context.Context, m Mutation) (TransactionID, error)
}

// ResultFetcher looks up the current result of a transaction.
type ResultFetcher interface {
	TransactionResult(ctx context.Context, id TransactionID) (TransactionResult, error)
}

// Client is the full ledger surface used by the dapp.
type Client interface {
	Querier
	Mutator
	ResultFetcher
}
