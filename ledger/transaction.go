package ledger

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"

	"github.com/flowdapp/profile-dapp/ledger/cadence"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
)

// TransactionDomainTag prefixes every transaction message before signing so that transaction
// signatures cannot be replayed as signatures over other data.
var TransactionDomainTag = paddedDomainTag("FLOW-V0.0-transaction")

func paddedDomainTag(s string) [32]byte {
	var tag [32]byte
	copy(tag[:], s)

	return tag
}

// ProposalKey is the account key whose sequence number the transaction consumes.
type ProposalKey struct {
	Address        Address
	KeyIndex       uint32
	SequenceNumber uint64
}

// TransactionSignature is a signature over the payload or the envelope of a transaction.
type TransactionSignature struct {
	Address     Address
	SignerIndex int
	KeyIndex    uint32
	Signature   []byte
}

// Transaction is a Flow transaction body and its signatures.
type Transaction struct {
	Script             []byte
	Arguments          [][]byte
	ReferenceBlockID   Identifier
	ComputeLimit       uint64
	ProposalKey        ProposalKey
	Payer              Address
	Authorizers        []Address
	PayloadSignatures  []TransactionSignature
	EnvelopeSignatures []TransactionSignature
}

// NewTransaction builds the unsigned transaction for m. The proposer's sequence number and the
// reference block are supplied by the caller.
func NewTransaction(m Mutation, referenceBlockID Identifier, sequenceNumber uint64) (*Transaction, error) {
	args := make([][]byte, len(m.Args))
	for i, a := range m.Args {
		b, err := cadence.Encode(a)
		if err != nil {
			return nil, fmt.Errorf("failed to encode argument %d: %w", i, err)
		}
		args[i] = b
	}

	limit := m.ComputeLimit
	if limit == 0 {
		limit = DefaultComputeLimit
	}

	authorizers := make([]Address, len(m.Authorizations))
	for i, a := range m.Authorizations {
		authorizers[i] = a.Address
	}

	return &Transaction{
		Script:           m.Code,
		Arguments:        args,
		ReferenceBlockID: referenceBlockID,
		ComputeLimit:     limit,
		ProposalKey: ProposalKey{
			Address:        m.Proposer.Address,
			KeyIndex:       m.Proposer.KeyIndex,
			SequenceNumber: sequenceNumber,
		},
		Payer:       m.Payer.Address,
		Authorizers: authorizers,
	}, nil
}

type payloadCanonicalForm struct {
	Script                    []byte
	Arguments                 [][]byte
	ReferenceBlockID          []byte
	GasLimit                  uint64
	ProposalKeyAddress        []byte
	ProposalKeyIndex          uint64
	ProposalKeySequenceNumber uint64
	Payer                     []byte
	Authorizers               [][]byte
}

type envelopeCanonicalForm struct {
	Payload           payloadCanonicalForm
	PayloadSignatures []signatureCanonicalForm
}

type transactionCanonicalForm struct {
	Payload            payloadCanonicalForm
	PayloadSignatures  []signatureCanonicalForm
	EnvelopeSignatures []signatureCanonicalForm
}

type signatureCanonicalForm struct {
	SignerIndex uint
	KeyIndex    uint
	Signature   []byte
}

func (t *Transaction) payloadCanonicalForm() payloadCanonicalForm {
	authorizers := make([][]byte, len(t.Authorizers))
	for i, a := range t.Authorizers {
		authorizers[i] = a.Bytes()
	}
	args := t.Arguments
	if args == nil {
		args = [][]byte{}
	}

	return payloadCanonicalForm{
		Script:                    t.Script,
		Arguments:                 args,
		ReferenceBlockID:          t.ReferenceBlockID[:],
		GasLimit:                  t.ComputeLimit,
		ProposalKeyAddress:        t.ProposalKey.Address.Bytes(),
		ProposalKeyIndex:          uint64(t.ProposalKey.KeyIndex),
		ProposalKeySequenceNumber: t.ProposalKey.SequenceNumber,
		Payer:                     t.Payer.Bytes(),
		Authorizers:               authorizers,
	}
}

func signaturesCanonicalForm(sigs []TransactionSignature) []signatureCanonicalForm {
	out := make([]signatureCanonicalForm, len(sigs))
	for i, s := range sigs {
		out[i] = signatureCanonicalForm{
			SignerIndex: uint(s.SignerIndex),
			KeyIndex:    uint(s.KeyIndex),
			Signature:   s.Signature,
		}
	}

	return out
}

// PayloadMessage returns the domain tagged message signed by proposers and authorizers that
// are not the payer.
func (t *Transaction) PayloadMessage() ([]byte, error) {
	b, err := rlp.EncodeToBytes(t.payloadCanonicalForm())
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	return append(TransactionDomainTag[:], b...), nil
}

// EnvelopeMessage returns the domain tagged message signed by the payer. It covers the payload
// signatures, so every payload signature must be added first.
func (t *Transaction) EnvelopeMessage() ([]byte, error) {
	b, err := rlp.EncodeToBytes(envelopeCanonicalForm{
		Payload:           t.payloadCanonicalForm(),
		PayloadSignatures: signaturesCanonicalForm(t.PayloadSignatures),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}

	return append(TransactionDomainTag[:], b...), nil
}

// ID returns the SHA3-256 hash of the signed transaction's canonical encoding.
func (t *Transaction) ID() (Identifier, error) {
	b, err := rlp.EncodeToBytes(transactionCanonicalForm{
		Payload:            t.payloadCanonicalForm(),
		PayloadSignatures:  signaturesCanonicalForm(t.PayloadSignatures),
		EnvelopeSignatures: signaturesCanonicalForm(t.EnvelopeSignatures),
	})
	if err != nil {
		return Identifier{}, fmt.Errorf("failed to encode transaction: %w", err)
	}

	return Identifier(sha3.Sum256(b)), nil
}

// signers returns the accounts required to sign, deduplicated, in the order proposer, payer,
// authorizers.
func (t *Transaction) signers() []Address {
	out := make([]Address, 0, 2+len(t.Authorizers))
	add := func(a Address) {
		if !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	add(t.ProposalKey.Address)
	add(t.Payer)
	for _, a := range t.Authorizers {
		add(a)
	}

	return out
}

func (t *Transaction) signerIndex(addr Address) (int, error) {
	idx := slices.Index(t.signers(), addr)
	if idx < 0 {
		return 0, fmt.Errorf("account %s is not a signer of the transaction", addr)
	}

	return idx, nil
}

// SignPayload adds a payload signature by addr's key.
func (t *Transaction) SignPayload(addr Address, keyIndex uint32, signer crypto.Signer) error {
	if addr == t.Payer {
		return errors.New("the payer signs the envelope, not the payload")
	}
	msg, err := t.PayloadMessage()
	if err != nil {
		return err
	}
	sig, err := t.sign(addr, keyIndex, signer, msg)
	if err != nil {
		return err
	}
	t.PayloadSignatures = appendSorted(t.PayloadSignatures, sig)

	return nil
}

// SignEnvelope adds the payer's envelope signature.
func (t *Transaction) SignEnvelope(addr Address, keyIndex uint32, signer crypto.Signer) error {
	msg, err := t.EnvelopeMessage()
	if err != nil {
		return err
	}
	sig, err := t.sign(addr, keyIndex, signer, msg)
	if err != nil {
		return err
	}
	t.EnvelopeSignatures = appendSorted(t.EnvelopeSignatures, sig)

	return nil
}

func (t *Transaction) sign(addr Address, keyIndex uint32, signer crypto.Signer, msg []byte) (TransactionSignature, error) {
	if signer == nil {
		return TransactionSignature{}, fmt.Errorf("no signer for account %s", addr)
	}
	idx, err := t.signerIndex(addr)
	if err != nil {
		return TransactionSignature{}, err
	}
	sig, err := signer.Sign(msg)
	if err != nil {
		return TransactionSignature{}, fmt.Errorf("failed to sign for account %s: %w", addr, err)
	}

	return TransactionSignature{Address: addr, SignerIndex: idx, KeyIndex: keyIndex, Signature: sig}, nil
}

func appendSorted(sigs []TransactionSignature, sig TransactionSignature) []TransactionSignature {
	sigs = append(sigs, sig)
	slices.SortStableFunc(sigs, func(a, b TransactionSignature) int {
		if a.SignerIndex != b.SignerIndex {
			return a.SignerIndex - b.SignerIndex
		}

		return int(a.KeyIndex) - int(b.KeyIndex)
	})

	return sigs
}

// SignMutation signs tx with the authorizers of m: every distinct non payer signer signs the
// payload, then the payer signs the envelope.
func SignMutation(tx *Transaction, m Mutation) error {
	signed := map[Address]bool{}
	nonPayer := append([]Authorizer{m.Proposer}, m.Authorizations...)
	for _, a := range nonPayer {
		if a.Address == m.Payer.Address || signed[a.Address] {
			continue
		}
		if err := tx.SignPayload(a.Address, a.KeyIndex, a.Signer); err != nil {
			return err
		}
		signed[a.Address] = true
	}

	return tx.SignEnvelope(m.Payer.Address, m.Payer.KeyIndex, m.Payer.Signer)
}
