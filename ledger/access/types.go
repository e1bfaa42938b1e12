package access

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/cadence"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
)

// Wire types of the Access REST API. Integers are encoded as decimal strings, byte strings as
// base64 and identifiers as hex.

type ScriptRequest struct {
	Script    string   `json:"script"`
	Arguments []string `json:"arguments"`
}

type ProposalKeyBody struct {
	Address        string `json:"address"`
	KeyIndex       string `json:"key_index"`
	SequenceNumber string `json:"sequence_number"`
}

type SignatureBody struct {
	Address   string `json:"address"`
	KeyIndex  string `json:"key_index"`
	Signature string `json:"signature"`
}

type TransactionBody struct {
	ID                 string          `json:"id,omitempty"`
	Script             string          `json:"script"`
	Arguments          []string        `json:"arguments"`
	ReferenceBlockID   string          `json:"reference_block_id"`
	GasLimit           string          `json:"gas_limit"`
	Payer              string          `json:"payer"`
	ProposalKey        ProposalKeyBody `json:"proposal_key"`
	Authorizers        []string        `json:"authorizers"`
	PayloadSignatures  []SignatureBody `json:"payload_signatures"`
	EnvelopeSignatures []SignatureBody `json:"envelope_signatures"`
}

type EventBody struct {
	Type             string `json:"type"`
	TransactionID    string `json:"transaction_id"`
	TransactionIndex string `json:"transaction_index"`
	EventIndex       string `json:"event_index"`
	Payload          string `json:"payload"`
}

type TransactionResultBody struct {
	BlockID         string      `json:"block_id"`
	CollectionID    string      `json:"collection_id"`
	Execution       string      `json:"execution"`
	Status          string      `json:"status"`
	StatusCode      int         `json:"status_code"`
	ErrorMessage    string      `json:"error_message"`
	ComputationUsed string      `json:"computation_used"`
	Events          []EventBody `json:"events"`
}

type BlockHeaderBody struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id"`
	Height    string    `json:"height"`
	Timestamp time.Time `json:"timestamp"`
}

type BlockBody struct {
	Header BlockHeaderBody `json:"header"`
}

type AccountKeyBody struct {
	Index            string `json:"index"`
	PublicKey        string `json:"public_key"`
	SigningAlgorithm string `json:"signing_algorithm"`
	HashingAlgorithm string `json:"hashing_algorithm"`
	SequenceNumber   string `json:"sequence_number"`
	Weight           string `json:"weight"`
	Revoked          bool   `json:"revoked"`
}

type AccountBody struct {
	Address string           `json:"address"`
	Balance string           `json:"balance"`
	Keys    []AccountKeyBody `json:"keys"`
}

// NodeVersionInfo describes the software of the Access node.
type NodeVersionInfo struct {
	Semver               string `json:"semver"`
	Commit               string `json:"commit"`
	SporkID              string `json:"spork_id"`
	ProtocolVersion      string `json:"protocol_version"`
	SporkRootBlockHeight string `json:"spork_root_block_height"`
	NodeRootBlockHeight  string `json:"node_root_block_height"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func formatUint(n uint64) string { return strconv.FormatUint(n, 10) }

func parseUint(field, s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}

	return n, nil
}

func encodeBytes(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func decodeBytes(field, s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}

	return b, nil
}

func encodeSignatures(sigs []ledger.TransactionSignature) []SignatureBody {
	out := make([]SignatureBody, len(sigs))
	for i, s := range sigs {
		out[i] = SignatureBody{
			Address:   s.Address.Hex(),
			KeyIndex:  formatUint(uint64(s.KeyIndex)),
			Signature: encodeBytes(s.Signature),
		}
	}

	return out
}

func decodeSignatures(bodies []SignatureBody) ([]ledger.TransactionSignature, error) {
	out := make([]ledger.TransactionSignature, len(bodies))
	for i, b := range bodies {
		addr, err := ledger.ParseAddress(b.Address)
		if err != nil {
			return nil, err
		}
		keyIndex, err := parseUint("key_index", b.KeyIndex)
		if err != nil {
			return nil, err
		}
		sig, err := decodeBytes("signature", b.Signature)
		if err != nil {
			return nil, err
		}
		out[i] = ledger.TransactionSignature{Address: addr, KeyIndex: uint32(keyIndex), Signature: sig}
	}

	return out, nil
}

// EncodeTransaction converts a signed transaction to its wire form.
func EncodeTransaction(tx *ledger.Transaction) TransactionBody {
	args := make([]string, len(tx.Arguments))
	for i, a := range tx.Arguments {
		args[i] = encodeBytes(a)
	}
	authorizers := make([]string, len(tx.Authorizers))
	for i, a := range tx.Authorizers {
		authorizers[i] = a.Hex()
	}

	return TransactionBody{
		Script:           encodeBytes(tx.Script),
		Arguments:        args,
		ReferenceBlockID: tx.ReferenceBlockID.Hex(),
		GasLimit:         formatUint(tx.ComputeLimit),
		Payer:            tx.Payer.Hex(),
		ProposalKey: ProposalKeyBody{
			Address:        tx.ProposalKey.Address.Hex(),
			KeyIndex:       formatUint(uint64(tx.ProposalKey.KeyIndex)),
			SequenceNumber: formatUint(tx.ProposalKey.SequenceNumber),
		},
		Authorizers:        authorizers,
		PayloadSignatures:  encodeSignatures(tx.PayloadSignatures),
		EnvelopeSignatures: encodeSignatures(tx.EnvelopeSignatures),
	}
}

// Decode converts the wire form back to a transaction.
func (b TransactionBody) Decode() (*ledger.Transaction, error) {
	script, err := decodeBytes("script", b.Script)
	if err != nil {
		return nil, err
	}
	args := make([][]byte, len(b.Arguments))
	for i, a := range b.Arguments {
		if args[i], err = decodeBytes("argument", a); err != nil {
			return nil, err
		}
	}
	refID, err := ledger.ParseIdentifier(b.ReferenceBlockID)
	if err != nil {
		return nil, err
	}
	limit, err := parseUint("gas_limit", b.GasLimit)
	if err != nil {
		return nil, err
	}
	payer, err := ledger.ParseAddress(b.Payer)
	if err != nil {
		return nil, fmt.Errorf("invalid payer: %w", err)
	}
	proposer, err := ledger.ParseAddress(b.ProposalKey.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid proposer: %w", err)
	}
	keyIndex, err := parseUint("key_index", b.ProposalKey.KeyIndex)
	if err != nil {
		return nil, err
	}
	seq, err := parseUint("sequence_number", b.ProposalKey.SequenceNumber)
	if err != nil {
		return nil, err
	}
	authorizers := make([]ledger.Address, len(b.Authorizers))
	for i, a := range b.Authorizers {
		if authorizers[i], err = ledger.ParseAddress(a); err != nil {
			return nil, fmt.Errorf("invalid authorizer: %w", err)
		}
	}
	payloadSigs, err := decodeSignatures(b.PayloadSignatures)
	if err != nil {
		return nil, err
	}
	envelopeSigs, err := decodeSignatures(b.EnvelopeSignatures)
	if err != nil {
		return nil, err
	}

	return &ledger.Transaction{
		Script:           script,
		Arguments:        args,
		ReferenceBlockID: refID,
		ComputeLimit:     limit,
		ProposalKey: ledger.ProposalKey{
			Address:        proposer,
			KeyIndex:       uint32(keyIndex),
			SequenceNumber: seq,
		},
		Payer:              payer,
		Authorizers:        authorizers,
		PayloadSignatures:  payloadSigs,
		EnvelopeSignatures: envelopeSigs,
	}, nil
}

// EncodeResult converts a transaction result to its wire form.
func EncodeResult(r ledger.TransactionResult) (TransactionResultBody, error) {
	events := make([]EventBody, len(r.Events))
	for i, e := range r.Events {
		payload, err := cadence.Encode(e.Payload)
		if err != nil {
			return TransactionResultBody{}, fmt.Errorf("failed to encode event %s: %w", e.Type, err)
		}
		events[i] = EventBody{
			Type:             e.Type,
			TransactionID:    e.TransactionID.Hex(),
			TransactionIndex: formatUint(uint64(e.TransactionIndex)),
			EventIndex:       formatUint(uint64(e.EventIndex)),
			Payload:          encodeBytes(payload),
		}
	}

	execution := "Pending"
	switch {
	case r.Status < ledger.StatusExecuted || r.Status == ledger.StatusExpired:
	case r.Failed():
		execution = "Failure"
	default:
		execution = "Success"
	}

	return TransactionResultBody{
		BlockID:         r.BlockID.Hex(),
		Execution:       execution,
		Status:          statusName(r.Status),
		StatusCode:      int(r.StatusCode),
		ErrorMessage:    r.ErrorMessage,
		ComputationUsed: formatUint(r.ComputationUsed),
		Events:          events,
	}, nil
}

// Decode converts the wire form to a transaction result for id.
func (b TransactionResultBody) Decode(id ledger.TransactionID) (ledger.TransactionResult, error) {
	status, err := ledger.ParseTransactionStatus(b.Status)
	if err != nil {
		return ledger.TransactionResult{}, err
	}
	var blockID ledger.Identifier
	if b.BlockID != "" && strings.Trim(b.BlockID, "0") != "" {
		if blockID, err = ledger.ParseIdentifier(b.BlockID); err != nil {
			return ledger.TransactionResult{}, err
		}
	}
	used, err := parseUint("computation_used", b.ComputationUsed)
	if err != nil {
		return ledger.TransactionResult{}, err
	}

	events := make([]ledger.Event, 0, len(b.Events))
	for _, e := range b.Events {
		ev, err := e.decode()
		if err != nil {
			return ledger.TransactionResult{}, err
		}
		events = append(events, ev)
	}

	return ledger.TransactionResult{
		ID:              id,
		BlockID:         blockID,
		Status:          status,
		StatusCode:      uint(max(b.StatusCode, 0)),
		ErrorMessage:    b.ErrorMessage,
		ComputationUsed: used,
		Events:          events,
	}, nil
}

func (e EventBody) decode() (ledger.Event, error) {
	raw, err := decodeBytes("event payload", e.Payload)
	if err != nil {
		return ledger.Event{}, err
	}
	v, err := cadence.Decode(raw)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("invalid payload of event %s: %w", e.Type, err)
	}
	payload, ok := v.(cadence.Composite)
	if !ok {
		return ledger.Event{}, fmt.Errorf("payload of event %s is a %s, not an Event", e.Type, v.Type())
	}
	txID, err := ledger.ParseIdentifier(e.TransactionID)
	if err != nil {
		return ledger.Event{}, err
	}
	txIndex, err := parseUint("transaction_index", e.TransactionIndex)
	if err != nil {
		return ledger.Event{}, err
	}
	evIndex, err := parseUint("event_index", e.EventIndex)
	if err != nil {
		return ledger.Event{}, err
	}

	return ledger.Event{
		Type:             e.Type,
		TransactionID:    txID,
		TransactionIndex: uint32(txIndex),
		EventIndex:       uint32(evIndex),
		Payload:          payload,
	}, nil
}

// statusName renders a status the way the Access API does, e.g. "Sealed".
func statusName(s ledger.TransactionStatus) string {
	name := strings.ToLower(s.String())
	if name == "" {
		return name
	}

	return strings.ToUpper(name[:1]) + name[1:]
}

// EncodeBlockHeader converts a header to its wire form.
func EncodeBlockHeader(h ledger.BlockHeader) BlockBody {
	return BlockBody{Header: BlockHeaderBody{
		ID:        h.ID.Hex(),
		ParentID:  h.ParentID.Hex(),
		Height:    formatUint(h.Height),
		Timestamp: h.Timestamp,
	}}
}

// Decode converts the wire form to a block header.
func (b BlockBody) Decode() (ledger.BlockHeader, error) {
	id, err := ledger.ParseIdentifier(b.Header.ID)
	if err != nil {
		return ledger.BlockHeader{}, err
	}
	var parent ledger.Identifier
	if b.Header.ParentID != "" {
		if parent, err = ledger.ParseIdentifier(b.Header.ParentID); err != nil {
			return ledger.BlockHeader{}, err
		}
	}
	height, err := parseUint("height", b.Header.Height)
	if err != nil {
		return ledger.BlockHeader{}, err
	}

	return ledger.BlockHeader{ID: id, ParentID: parent, Height: height, Timestamp: b.Header.Timestamp}, nil
}

// EncodeAccount converts an account to its wire form.
func EncodeAccount(a ledger.Account) AccountBody {
	keys := make([]AccountKeyBody, len(a.Keys))
	for i, k := range a.Keys {
		keys[i] = AccountKeyBody{
			Index:            formatUint(uint64(k.Index)),
			PublicKey:        "0x" + hex.EncodeToString(k.PublicKey),
			SigningAlgorithm: k.SigAlgo.String(),
			HashingAlgorithm: k.HashAlgo.String(),
			SequenceNumber:   formatUint(k.SequenceNumber),
			Weight:           strconv.Itoa(k.Weight),
			Revoked:          k.Revoked,
		}
	}

	return AccountBody{Address: a.Address.Hex(), Balance: formatUint(a.Balance), Keys: keys}
}

// Decode converts the wire form to an account.
func (b AccountBody) Decode() (ledger.Account, error) {
	addr, err := ledger.ParseAddress(b.Address)
	if err != nil {
		return ledger.Account{}, err
	}
	balance, err := parseUint("balance", b.Balance)
	if err != nil {
		return ledger.Account{}, err
	}

	keys := make([]ledger.AccountKey, len(b.Keys))
	for i, k := range b.Keys {
		index, err := parseUint("key index", k.Index)
		if err != nil {
			return ledger.Account{}, err
		}
		pub, err := hex.DecodeString(strings.TrimPrefix(k.PublicKey, "0x"))
		if err != nil {
			return ledger.Account{}, fmt.Errorf("invalid public key: %w", err)
		}
		seq, err := parseUint("sequence_number", k.SequenceNumber)
		if err != nil {
			return ledger.Account{}, err
		}
		weight, err := parseUint("weight", k.Weight)
		if err != nil {
			return ledger.Account{}, err
		}
		// unknown algorithms are kept as zero values; the key may still be inspected
		sigAlgo, _ := crypto.ParseSignatureAlgorithm(k.SigningAlgorithm)
		hashAlgo, _ := crypto.ParseHashAlgorithm(k.HashingAlgorithm)
		keys[i] = ledger.AccountKey{
			Index:          uint32(index),
			PublicKey:      pub,
			SigAlgo:        sigAlgo,
			HashAlgo:       hashAlgo,
			Weight:         int(weight),
			SequenceNumber: seq,
			Revoked:        k.Revoked,
		}
	}

	return ledger.Account{Address: addr, Balance: balance, Keys: keys}, nil
}
