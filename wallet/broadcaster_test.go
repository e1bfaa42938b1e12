package wallet

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdapp/profile-dapp/ledger"
)

type recorder struct {
	mu    sync.Mutex
	users []CurrentUser
	errs  []error
}

func (r *recorder) listen(u CurrentUser, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.errs = append(r.errs, err)
		return
	}
	r.users = append(r.users, u)
}

func TestBroadcaster_DeliversCurrentThenInOrder(t *testing.T) {
	t.Parallel()

	addr := ledger.MustParseAddress("0xabc")
	b := NewBroadcaster(CurrentUser{})

	var r recorder
	unsubscribe := b.Subscribe(r.listen)

	b.Emit(Authenticated(addr))
	b.Fail(errors.New("session file unreadable"))
	b.Emit(Unauthenticated())
	unsubscribe()
	unsubscribe()
	b.Emit(Authenticated(addr))

	assert.Equal(t, []CurrentUser{{}, Authenticated(addr), Unauthenticated()}, r.users)
	require.Len(t, r.errs, 1)
	assert.Equal(t, Authenticated(addr), b.Current())
}

func TestBroadcaster_FailedUntilNextEmit(t *testing.T) {
	t.Parallel()

	addr := ledger.MustParseAddress("0xabc")
	b := NewBroadcaster(Authenticated(addr))
	assert.False(t, b.Failed())

	b.Fail(errors.New("session file unreadable"))
	assert.True(t, b.Failed())
	assert.Equal(t, Authenticated(addr), b.Current())

	b.Emit(Authenticated(addr))
	assert.False(t, b.Failed())
}

func TestBroadcaster_LateSubscriberSeesCurrent(t *testing.T) {
	t.Parallel()

	addr := ledger.MustParseAddress("0xabc")
	b := NewBroadcaster(Unauthenticated())
	b.Emit(Authenticated(addr))

	var r recorder
	defer b.Subscribe(r.listen)()

	assert.Equal(t, []CurrentUser{Authenticated(addr)}, r.users)
}

func TestBroadcaster_UnsubscribeDuringDelivery(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(CurrentUser{})
	calls := 0
	var unsubscribe func()
	unsubscribe = b.Subscribe(func(u CurrentUser, _ error) {
		calls++
		if u.Status == AuthUnauthenticated {
			unsubscribe()
		}
	})

	b.Emit(Unauthenticated())
	b.Emit(Authenticated(ledger.MustParseAddress("0x01")))

	assert.Equal(t, 2, calls)
}

func TestAuthStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown", AuthUnknown.String())
	assert.Equal(t, "authenticated", AuthAuthenticated.String())
	assert.Equal(t, "unauthenticated", AuthUnauthenticated.String())
	assert.False(t, Unauthenticated().HasAddr())
	assert.True(t, Authenticated(ledger.MustParseAddress("0x01")).HasAddr())
}
