package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowdapp/profile-dapp/ledger/cadence"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
)

// BlockHeader is the header of a block.
type BlockHeader struct {
	ID        Identifier
	ParentID  Identifier
	Height    uint64
	Timestamp time.Time
}

// AccountKey is a public key registered on an account.
type AccountKey struct {
	Index          uint32
	PublicKey      []byte
	SigAlgo        crypto.SignatureAlgorithm
	HashAlgo       crypto.HashAlgorithm
	Weight         int
	SequenceNumber uint64
	Revoked        bool
}

// Account is an on-chain account and its keys.
type Account struct {
	Address Address
	Balance uint64
	Keys    []AccountKey
}

// Key returns the key with the given index.
func (a Account) Key(index uint32) (AccountKey, bool) {
	for _, k := range a.Keys {
		if k.Index == index {
			return k, true
		}
	}

	return AccountKey{}, false
}

// AccessAPI is the subset of the Flow Access API the Chain needs. It is implemented by
// access.Client.
type AccessAPI interface {
	ExecuteScript(ctx context.Context, code []byte, args [][]byte) ([]byte, error)
	SendTransaction(ctx context.Context, tx *Transaction) (Identifier, error)
	GetTransactionResult(ctx context.Context, id Identifier) (TransactionResult, error)
	GetLatestSealedBlockHeader(ctx context.Context) (BlockHeader, error)
	GetAccount(ctx context.Context, addr Address) (Account, error)
}

// ConfirmFunc waits for a transaction to be sealed and returns its final result.
type ConfirmFunc func(ctx context.Context, id TransactionID) (TransactionResult, error)

var _ Client = Chain{}

// Chain is a Flow network reachable through the Access API.
type Chain struct {
	// Network is the name of the network, e.g. "testnet".
	Network string
	URL     string
	Client  AccessAPI

	Confirm ConfirmFunc
}

// String returns the network name and URL.
func (c Chain) String() string {
	return fmt.Sprintf("%s (%s)", c.Network, c.URL)
}

// Query implements Querier.
func (c Chain) Query(ctx context.Context, q Query) (cadence.Value, error) {
	args, err := encodeArgs(q.Args)
	if err != nil {
		return nil, &QueryError{Err: err}
	}

	raw, err := c.Client.ExecuteScript(ctx, q.Code, args)
	if err != nil {
		return nil, &QueryError{Err: err}
	}

	v, err := cadence.Decode(raw)
	if err != nil {
		return nil, &QueryError{Err: fmt.Errorf("failed to decode script result: %w", err)}
	}

	return v, nil
}

// Mutate implements Mutator. It looks up the reference block and the proposer's sequence
// number, signs and sends the transaction.
func (c Chain) Mutate(ctx context.Context, m Mutation) (TransactionID, error) {
	id, err := c.mutate(ctx, m)
	if err != nil {
		return TransactionID{}, &TransactionError{Err: err}
	}

	return id, nil
}

func (c Chain) mutate(ctx context.Context, m Mutation) (TransactionID, error) {
	if m.Payer.Address.IsZero() || m.Proposer.Address.IsZero() {
		return TransactionID{}, errors.New("payer and proposer are required")
	}

	block, err := c.Client.GetLatestSealedBlockHeader(ctx)
	if err != nil {
		return TransactionID{}, fmt.Errorf("failed to get reference block: %w", err)
	}

	proposer, err := c.Client.GetAccount(ctx, m.Proposer.Address)
	if err != nil {
		return TransactionID{}, fmt.Errorf("failed to get proposer account: %w", err)
	}
	key, ok := proposer.Key(m.Proposer.KeyIndex)
	if !ok {
		return TransactionID{}, fmt.Errorf("proposer %s has no key %d", m.Proposer.Address, m.Proposer.KeyIndex)
	}
	if key.Revoked {
		return TransactionID{}, fmt.Errorf("proposer key %d of %s is revoked", key.Index, m.Proposer.Address)
	}

	tx, err := NewTransaction(m, block.ID, key.SequenceNumber)
	if err != nil {
		return TransactionID{}, err
	}
	if err := SignMutation(tx, m); err != nil {
		return TransactionID{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	id, err := c.Client.SendTransaction(ctx, tx)
	if err != nil {
		return TransactionID{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return id, nil
}

// TransactionResult implements ResultFetcher.
func (c Chain) TransactionResult(ctx context.Context, id TransactionID) (TransactionResult, error) {
	return c.Client.GetTransactionResult(ctx, id)
}

func encodeArgs(values []cadence.Value) ([][]byte, error) {
	args := make([][]byte, len(values))
	for i, v := range values {
		b, err := cadence.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode argument %d: %w", i, err)
		}
		args[i] = b
	}

	return args, nil
}
