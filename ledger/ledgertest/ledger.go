// Package ledgertest provides an in-memory Flow ledger for tests and local development.
//
// The ledger does not execute Cadence. Scripts and transactions are dispatched to Go handlers
// registered for their exact code, which lets tests emulate contracts with a few lines of Go.
// Transactions move through the status lifecycle one step per result lookup, or under manual
// control with WithManualProgress.
package ledgertest

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/cadence"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
)

// ErrNotFound is returned for unknown transactions and accounts.
var ErrNotFound = errors.New("not found")

// ScriptHandler emulates a read-only script.
type ScriptHandler func(args []cadence.Value) (cadence.Value, error)

// TxHandler emulates the execution of a transaction. Returned events are attached to the
// result; a returned error fails the transaction with the error as its message.
//
// Handlers run with the ledger locked and must not call methods of the Ledger. Use the Txn to
// change ledger state.
type TxHandler func(tx *Txn) ([]cadence.Composite, error)

// Txn is a transaction being executed by a TxHandler.
type Txn struct {
	ID          ledger.TransactionID
	Payer       ledger.Address
	Proposer    ledger.Address
	Authorizers []ledger.Address
	Args        []cadence.Value

	l *Ledger
}

// CreateAccount creates a new account with the given keys and returns its address.
func (tx *Txn) CreateAccount(keys ...ledger.AccountKey) ledger.Address {
	return tx.l.createAccountLocked(keys)
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithManualProgress disables automatic status progression. Use Advance, Expire and SealAll.
func WithManualProgress() Option {
	return func(l *Ledger) {
		l.manual = true
	}
}

// WithNodeVersion sets the version reported by the Access API handler.
func WithNodeVersion(v string) Option {
	return func(l *Ledger) {
		l.nodeVersion = v
	}
}

type txRecord struct {
	result   ledger.TransactionResult
	txn      *Txn
	handler  TxHandler
	executed bool
	observed bool
}

var _ ledger.Client = (*Ledger)(nil)

// Ledger is an in-memory ledger. It is safe for concurrent use.
type Ledger struct {
	mu          sync.Mutex
	manual      bool
	nodeVersion string

	scripts  map[string]ScriptHandler
	handlers map[string]TxHandler
	accounts map[ledger.Address]*ledger.Account
	txs      map[ledger.TransactionID]*txRecord
	order    []ledger.TransactionID

	height      uint64
	nextAccount uint64
	nonce       uint64

	queryErr  error
	mutateErr error
	resultErr error
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		nodeVersion: "v0.40.0",
		scripts:     map[string]ScriptHandler{},
		handlers:    map[string]TxHandler{},
		accounts:    map[ledger.Address]*ledger.Account{},
		txs:         map[ledger.TransactionID]*txRecord{},
		height:      1,
		nextAccount: 0x01cf0e2f2f715450,
	}
	for _, o := range opts {
		o(l)
	}

	return l
}

// HandleScript registers h for scripts whose code equals code.
func (l *Ledger) HandleScript(code []byte, h ScriptHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.scripts[string(code)] = h
}

// HandleTransaction registers h for transactions whose code equals code.
func (l *Ledger) HandleTransaction(code []byte, h TxHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.handlers[string(code)] = h
}

// AccountCreatedEvent is the type of the event emitted for every new account.
const AccountCreatedEvent = "flow.AccountCreated"

// HandleAccountCreation registers a handler for code that creates an account from the
// arguments (publicKey: String, signatureAlgorithm: UInt8, hashAlgorithm: UInt8) and emits
// AccountCreatedEvent with the new address.
func (l *Ledger) HandleAccountCreation(code []byte) {
	l.HandleTransaction(code, func(tx *Txn) ([]cadence.Composite, error) {
		key, err := accountKeyArgs(tx.Args)
		if err != nil {
			return nil, err
		}
		addr := tx.CreateAccount(key)

		return []cadence.Composite{AccountCreated(addr)}, nil
	})
}

// AccountCreated returns the payload of AccountCreatedEvent for addr.
func AccountCreated(addr ledger.Address) cadence.Composite {
	return cadence.Composite{
		Kind:   cadence.KindEvent,
		ID:     AccountCreatedEvent,
		Fields: []cadence.Field{{Name: "address", Value: addr.Cadence()}},
	}
}

func accountKeyArgs(args []cadence.Value) (ledger.AccountKey, error) {
	if len(args) != 3 {
		return ledger.AccountKey{}, fmt.Errorf("expected 3 arguments, got %d", len(args))
	}
	pubHex, ok := args[0].(cadence.String)
	if !ok {
		return ledger.AccountKey{}, fmt.Errorf("publicKey must be a String, got %s", args[0].Type())
	}
	sigAlgo, ok := args[1].(cadence.UInt8)
	if !ok {
		return ledger.AccountKey{}, fmt.Errorf("signatureAlgorithm must be a UInt8, got %s", args[1].Type())
	}
	hashAlgo, ok := args[2].(cadence.UInt8)
	if !ok {
		return ledger.AccountKey{}, fmt.Errorf("hashAlgorithm must be a UInt8, got %s", args[2].Type())
	}
	pub, err := hex.DecodeString(strings.TrimPrefix(string(pubHex), "0x"))
	if err != nil {
		return ledger.AccountKey{}, fmt.Errorf("invalid public key: %w", err)
	}
	if _, err := crypto.DecodePublicKey(crypto.SignatureAlgorithm(sigAlgo), pub); err != nil {
		return ledger.AccountKey{}, err
	}

	return ledger.AccountKey{
		PublicKey: pub,
		SigAlgo:   crypto.SignatureAlgorithm(sigAlgo),
		HashAlgo:  crypto.HashAlgorithm(hashAlgo),
		Weight:    1000,
	}, nil
}

// FailQueries makes every query fail with err until called with nil.
func (l *Ledger) FailQueries(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.queryErr = err
}

// FailMutations makes every submission fail with err until called with nil.
func (l *Ledger) FailMutations(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.mutateErr = err
}

// FailResults makes every result lookup fail with err until called with nil.
func (l *Ledger) FailResults(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resultErr = err
}

// AddAccount registers an account at addr, replacing any existing one.
func (l *Ledger) AddAccount(addr ledger.Address, keys ...ledger.AccountKey) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.accounts[addr] = &ledger.Account{Address: addr, Keys: normalizeKeys(keys)}
}

// CreateAccount creates an account at the next free address.
func (l *Ledger) CreateAccount(keys ...ledger.AccountKey) ledger.Address {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.createAccountLocked(keys)
}

func (l *Ledger) createAccountLocked(keys []ledger.AccountKey) ledger.Address {
	var addr ledger.Address
	for {
		binary.BigEndian.PutUint64(addr[:], l.nextAccount)
		l.nextAccount++
		if _, taken := l.accounts[addr]; !taken {
			break
		}
	}
	l.accounts[addr] = &ledger.Account{Address: addr, Keys: normalizeKeys(keys)}

	return addr
}

// normalizeKeys gives every account at least one key and numbers keys by position.
func normalizeKeys(keys []ledger.AccountKey) []ledger.AccountKey {
	if len(keys) == 0 {
		keys = []ledger.AccountKey{{SigAlgo: crypto.ECDSA_P256, HashAlgo: crypto.SHA3_256, Weight: 1000}}
	}
	out := make([]ledger.AccountKey, len(keys))
	for i, k := range keys {
		k.Index = uint32(i)
		out[i] = k
	}

	return out
}

// Account returns a copy of the account at addr.
func (l *Ledger) Account(addr ledger.Address) (ledger.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[addr]
	if !ok {
		return ledger.Account{}, fmt.Errorf("account %s: %w", addr, ErrNotFound)
	}
	out := *acc
	out.Keys = append([]ledger.AccountKey(nil), acc.Keys...)

	return out, nil
}

// LatestBlock returns the header of the latest sealed block.
func (l *Ledger) LatestBlock() ledger.BlockHeader {
	l.mu.Lock()
	defer l.mu.Unlock()

	return blockHeader(l.height)
}

func blockHeader(height uint64) ledger.BlockHeader {
	return ledger.BlockHeader{
		ID:        blockID(height),
		ParentID:  blockID(height - 1),
		Height:    height,
		Timestamp: time.Unix(1700000000+int64(height), 0).UTC(),
	}
}

func blockID(height uint64) ledger.Identifier {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], height)

	return ledger.Identifier(sha3.Sum256(append([]byte("block"), b[:]...)))
}

// NodeVersion returns the version reported by the Access API handler.
func (l *Ledger) NodeVersion() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.nodeVersion
}

// Query implements ledger.Querier.
func (l *Ledger) Query(_ context.Context, q ledger.Query) (cadence.Value, error) {
	l.mu.Lock()
	if err := l.queryErr; err != nil {
		l.mu.Unlock()
		return nil, &ledger.QueryError{Err: err}
	}
	h, ok := l.scripts[string(q.Code)]
	l.mu.Unlock()

	if !ok {
		return nil, &ledger.QueryError{Err: errors.New("cannot execute script: no handler registered")}
	}
	v, err := h(q.Args)
	if err != nil {
		return nil, &ledger.QueryError{Err: err}
	}

	return v, nil
}

// Mutate implements ledger.Mutator. Signatures are not checked.
func (l *Ledger) Mutate(_ context.Context, m ledger.Mutation) (ledger.TransactionID, error) {
	authorizers := make([]ledger.Address, len(m.Authorizations))
	for i, a := range m.Authorizations {
		authorizers[i] = a.Address
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.mutateErr; err != nil {
		return ledger.TransactionID{}, &ledger.TransactionError{Err: err}
	}
	id, err := l.submitLocked(
		ledger.TransactionID{}, m.Code, m.Args, m.Payer.Address, m.Proposer.Address, m.Proposer.KeyIndex, authorizers,
	)
	if err != nil {
		return ledger.TransactionID{}, &ledger.TransactionError{Err: err}
	}

	return id, nil
}

// submitLocked records a pending transaction. A zero id is replaced by a generated one.
func (l *Ledger) submitLocked(
	id ledger.TransactionID, code []byte, args []cadence.Value, payer, proposer ledger.Address, keyIndex uint32, authorizers []ledger.Address,
) (ledger.TransactionID, error) {
	for _, addr := range append([]ledger.Address{payer, proposer}, authorizers...) {
		if _, ok := l.accounts[addr]; !ok {
			return ledger.TransactionID{}, fmt.Errorf("account %s: %w", addr, ErrNotFound)
		}
	}
	acc := l.accounts[proposer]
	if int(keyIndex) >= len(acc.Keys) {
		return ledger.TransactionID{}, fmt.Errorf("account %s has no key %d", proposer, keyIndex)
	}
	acc.Keys[keyIndex].SequenceNumber++

	if id.IsZero() {
		l.nonce++
		var nonce [8]byte
		binary.BigEndian.PutUint64(nonce[:], l.nonce)
		id = ledger.TransactionID(sha3.Sum256(append(nonce[:], code...)))
	}

	l.txs[id] = &txRecord{
		result: ledger.TransactionResult{ID: id, Status: ledger.StatusPending},
		txn: &Txn{
			ID:          id,
			Payer:       payer,
			Proposer:    proposer,
			Authorizers: authorizers,
			Args:        args,
			l:           l,
		},
		handler: l.handlers[string(code)],
	}
	l.order = append(l.order, id)

	return id, nil
}

// TransactionResult implements ledger.ResultFetcher. Without WithManualProgress the first
// lookup reports PENDING and every later lookup advances the transaction by one lifecycle step.
func (l *Ledger) TransactionResult(_ context.Context, id ledger.TransactionID) (ledger.TransactionResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.resultErr; err != nil {
		return ledger.TransactionResult{}, err
	}
	rec, ok := l.txs[id]
	if !ok {
		return ledger.TransactionResult{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if !l.manual && rec.observed && !rec.result.Status.IsFinal() {
		l.advanceLocked(rec, rec.result.Status+1)
	}
	rec.observed = true

	return copyResult(rec.result), nil
}

// Advance moves a transaction forward to status. Execution effects are applied when the
// transaction reaches EXECUTED.
func (l *Ledger) Advance(id ledger.TransactionID, status ledger.TransactionStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.txs[id]
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if !rec.result.Status.Advances(status) {
		return fmt.Errorf("cannot move transaction %s from %s to %s", id, rec.result.Status, status)
	}
	l.advanceLocked(rec, status)

	return nil
}

// Expire expires a transaction that is not yet final.
func (l *Ledger) Expire(id ledger.TransactionID) error {
	return l.Advance(id, ledger.StatusExpired)
}

// SealAll seals every pending transaction in submission order.
func (l *Ledger) SealAll() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range l.order {
		if rec := l.txs[id]; !rec.result.Status.IsFinal() {
			l.advanceLocked(rec, ledger.StatusSealed)
		}
	}
}

// Transactions returns the IDs of every submitted transaction in submission order.
func (l *Ledger) Transactions() []ledger.TransactionID {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]ledger.TransactionID(nil), l.order...)
}

func (l *Ledger) advanceLocked(rec *txRecord, status ledger.TransactionStatus) {
	if status != ledger.StatusExpired && status >= ledger.StatusExecuted && !rec.executed {
		l.executeLocked(rec)
	}
	if status >= ledger.StatusFinalized && status != ledger.StatusExpired && rec.result.BlockID.IsZero() {
		l.height++
		rec.result.BlockID = blockID(l.height)
	}
	rec.result.Status = status
}

func (l *Ledger) executeLocked(rec *txRecord) {
	rec.executed = true
	if rec.handler == nil {
		rec.result.StatusCode = 1
		rec.result.ErrorMessage = "cannot execute transaction: no handler registered"
		return
	}

	events, err := rec.handler(rec.txn)
	if err != nil {
		rec.result.StatusCode = 1
		rec.result.ErrorMessage = err.Error()
		return
	}
	rec.result.ComputationUsed = uint64(1 + len(events))
	for i, e := range events {
		rec.result.Events = append(rec.result.Events, ledger.Event{
			Type:          e.ID,
			TransactionID: rec.result.ID,
			EventIndex:    uint32(i),
			Payload:       e,
		})
	}
}

func copyResult(r ledger.TransactionResult) ledger.TransactionResult {
	r.Events = append([]ledger.Event(nil), r.Events...)

	return r
}
