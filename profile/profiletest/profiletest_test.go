package profiletest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/ledgertest"
	"github.com/flowdapp/profile-dapp/profile"
)

func setup(t *testing.T) (*ledgertest.Ledger, *profile.Contract, *Store, ledger.Authorizer) {
	t.Helper()

	l := ledgertest.New()
	contract, err := profile.New(profile.TestnetAddress)
	require.NoError(t, err)
	store := Install(l, contract)
	user := ledger.MustParseAddress("0xabc")
	l.AddAccount(user)

	return l, contract, store, ledger.Authorizer{Address: user}
}

func seal(t *testing.T, l *ledgertest.Ledger, m ledger.Mutation) ledger.TransactionResult {
	t.Helper()

	id, err := l.Mutate(t.Context(), m)
	require.NoError(t, err)

	tracker := ledger.NewTracker(l, ledger.WithTickInterval(time.Millisecond))
	res, _ := tracker.OnceSealed(t.Context(), id)

	return res
}

func readName(t *testing.T, l *ledgertest.Ledger, c *profile.Contract, addr ledger.Address) *profile.ReadOnly {
	t.Helper()

	v, err := l.Query(t.Context(), c.ReadQuery(addr))
	require.NoError(t, err)
	p, err := profile.DecodeReadOnly(v)
	require.NoError(t, err)

	return p
}

func TestStore_Lifecycle(t *testing.T) {
	t.Parallel()

	l, contract, store, auth := setup(t)

	assert.Nil(t, readName(t, l, contract, auth.Address))

	res := seal(t, l, contract.SetNameMutation(auth, "Edoye", 50))
	assert.True(t, res.Failed())
	assert.Contains(t, res.ErrorMessage, "found nil")

	res = seal(t, l, contract.InitMutation(auth, 50))
	require.False(t, res.Failed(), res.ErrorMessage)
	assert.Equal(t, "Anon", readName(t, l, contract, auth.Address).Name)

	res = seal(t, l, contract.SetNameMutation(auth, "Edoye", 50))
	require.False(t, res.Failed(), res.ErrorMessage)
	assert.Equal(t, "Edoye", readName(t, l, contract, auth.Address).Name)

	// initializing again keeps the existing profile
	res = seal(t, l, contract.InitMutation(auth, 50))
	require.False(t, res.Failed(), res.ErrorMessage)
	assert.Equal(t, "Edoye", readName(t, l, contract, auth.Address).Name)
	assert.Equal(t, 1, store.Len())
}

func TestStore_NameTooLong(t *testing.T) {
	t.Parallel()

	l, contract, store, auth := setup(t)
	store.Put(profile.ReadOnly{Address: auth.Address, Name: "Anon"})

	res := seal(t, l, contract.SetNameMutation(auth, "a name longer than fifteen", 50))
	assert.True(t, res.Failed())
	assert.Contains(t, res.ErrorMessage, "Names must be under 15 characters long.")

	p, ok := store.Get(auth.Address)
	require.True(t, ok)
	assert.Equal(t, "Anon", p.Name)
}

func TestStore_NameLengthCountsCharacters(t *testing.T) {
	t.Parallel()

	l, contract, _, auth := setup(t)
	require.False(t, seal(t, l, contract.InitMutation(auth, 50)).Failed())

	// 14 characters, 17 bytes
	name := "ÉdoyeÉdoyeÉdoy"
	res := seal(t, l, contract.SetNameMutation(auth, name, 50))
	require.False(t, res.Failed(), res.ErrorMessage)
	assert.Equal(t, name, readName(t, l, contract, auth.Address).Name)
}
