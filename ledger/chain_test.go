package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdapp/profile-dapp/ledger/cadence"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
)

type fakeAccessAPI struct {
	scriptResult []byte
	scriptErr    error
	gotArgs      [][]byte

	account    Account
	accountErr error
	sent       *Transaction
	sendErr    error
}

func (f *fakeAccessAPI) ExecuteScript(_ context.Context, _ []byte, args [][]byte) ([]byte, error) {
	f.gotArgs = args

	return f.scriptResult, f.scriptErr
}

func (f *fakeAccessAPI) SendTransaction(_ context.Context, tx *Transaction) (Identifier, error) {
	f.sent = tx
	if f.sendErr != nil {
		return Identifier{}, f.sendErr
	}

	return tx.ID()
}

func (f *fakeAccessAPI) GetTransactionResult(_ context.Context, id Identifier) (TransactionResult, error) {
	return TransactionResult{ID: id, Status: StatusSealed}, nil
}

func (f *fakeAccessAPI) GetLatestSealedBlockHeader(context.Context) (BlockHeader, error) {
	return BlockHeader{ID: Identifier{0xbb}, Height: 10}, nil
}

func (f *fakeAccessAPI) GetAccount(_ context.Context, addr Address) (Account, error) {
	if f.accountErr != nil {
		return Account{}, f.accountErr
	}
	acc := f.account
	acc.Address = addr

	return acc, nil
}

func TestChain_Query(t *testing.T) {
	t.Parallel()

	api := &fakeAccessAPI{scriptResult: []byte(`{"type":"String","value":"Edoye"}`)}
	c := Chain{Network: "emulator", URL: "http://localhost:8888", Client: api}

	v, err := c.Query(t.Context(), Query{
		Code: []byte("access(all) fun main(a: Address): String { return \"\" }"),
		Args: []cadence.Value{MustParseAddress("0xABC").Cadence()},
	})
	require.NoError(t, err)
	assert.Equal(t, cadence.String("Edoye"), v)
	require.Len(t, api.gotArgs, 1)
	assert.JSONEq(t, `{"type":"Address","value":"0x0000000000000abc"}`, string(api.gotArgs[0]))
	assert.Equal(t, "emulator (http://localhost:8888)", c.String())
}

func TestChain_QueryErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    *fakeAccessAPI
		wantErr string
	}{
		{name: "script error", give: &fakeAccessAPI{scriptErr: errors.New("cannot find declaration")}, wantErr: "cannot find declaration"},
		{name: "bad result", give: &fakeAccessAPI{scriptResult: []byte(`not json`)}, wantErr: "failed to decode script result"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Chain{Client: tt.give}.Query(t.Context(), Query{Code: []byte("x")})
			require.ErrorContains(t, err, tt.wantErr)
			assert.True(t, IsQueryError(err))
		})
	}
}

func TestChain_Mutate(t *testing.T) {
	t.Parallel()

	auth := newTestAuthorizer(t, "0xABC")
	api := &fakeAccessAPI{account: Account{Keys: []AccountKey{
		{Index: 0, SigAlgo: crypto.ECDSA_P256, HashAlgo: crypto.SHA3_256, SequenceNumber: 12, Weight: 1000},
	}}}
	c := Chain{Client: api}

	id, err := c.Mutate(t.Context(), SingleAuthorizer([]byte("transaction {}"), nil, auth, 50))
	require.NoError(t, err)
	require.NotNil(t, api.sent)

	assert.False(t, id.IsZero())
	assert.Equal(t, uint64(12), api.sent.ProposalKey.SequenceNumber)
	assert.Equal(t, Identifier{0xbb}, api.sent.ReferenceBlockID)
	assert.Equal(t, uint64(50), api.sent.ComputeLimit)
	assert.Len(t, api.sent.EnvelopeSignatures, 1)
}

func TestChain_MutateErrors(t *testing.T) {
	t.Parallel()

	auth := newTestAuthorizer(t, "0xABC")
	keys := []AccountKey{{Index: 0, SequenceNumber: 1}}

	tests := []struct {
		name    string
		give    *fakeAccessAPI
		auth    Authorizer
		wantErr string
	}{
		{name: "no payer", give: &fakeAccessAPI{}, auth: Authorizer{}, wantErr: "payer and proposer are required"},
		{name: "account lookup", give: &fakeAccessAPI{accountErr: errors.New("not found")}, auth: auth, wantErr: "failed to get proposer account"},
		{name: "missing key", give: &fakeAccessAPI{}, auth: auth, wantErr: "has no key 0"},
		{
			name:    "revoked key",
			give:    &fakeAccessAPI{account: Account{Keys: []AccountKey{{Index: 0, Revoked: true}}}},
			auth:    auth,
			wantErr: "is revoked",
		},
		{
			name:    "no signer",
			give:    &fakeAccessAPI{account: Account{Keys: keys}},
			auth:    Authorizer{Address: auth.Address},
			wantErr: "failed to sign transaction",
		},
		{
			name:    "send rejected",
			give:    &fakeAccessAPI{account: Account{Keys: keys}, sendErr: errors.New("invalid signature")},
			auth:    auth,
			wantErr: "failed to send transaction: invalid signature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Chain{Client: tt.give}.Mutate(t.Context(), SingleAuthorizer([]byte("x"), nil, tt.auth, 50))
			require.ErrorContains(t, err, tt.wantErr)
			assert.True(t, IsTransactionError(err))
		})
	}
}
