package devwallet

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
	"github.com/flowdapp/profile-dapp/ledger/ledgertest"
	"github.com/flowdapp/profile-dapp/ledger/provider"
	"github.com/flowdapp/profile-dapp/wallet"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	testPassphrase = "correct horse battery staple"
	testScryptN    = 1 << 10
)

func newTestAccount(t *testing.T, addr string) provider.Account {
	t.Helper()

	key, err := crypto.GeneratePrivateKey(crypto.ECDSA_P256)
	require.NoError(t, err)

	return provider.Account{Address: ledger.MustParseAddress(addr), PrivateKey: key, HashAlgo: crypto.SHA3_256}
}

func newTestWallet(t *testing.T, home string, mutate func(*Config)) *Wallet {
	t.Helper()

	cfg := Config{Home: home, Passphrase: testPassphrase, ScryptN: testScryptN}
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := New(cfg)
	require.NoError(t, err)

	return w
}

type snapshots struct {
	mu    sync.Mutex
	users []wallet.CurrentUser
	errs  []error
}

func (s *snapshots) listen(u wallet.CurrentUser, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.errs = append(s.errs, err)
		return
	}
	s.users = append(s.users, u)
}

func (s *snapshots) last() wallet.CurrentUser {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.users) == 0 {
		return wallet.CurrentUser{}
	}

	return s.users[len(s.users)-1]
}

func TestKeystore(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	ks := NewKeystore(home, testPassphrase, testScryptN)
	acc := newTestAccount(t, "0x01cf0e2f2f715450")
	acc.KeyIndex = 1

	addrs, err := ks.List()
	require.NoError(t, err)
	assert.Empty(t, addrs)

	require.NoError(t, ks.Save(acc))

	got, err := ks.Load(acc.Address)
	require.NoError(t, err)
	assert.Equal(t, acc.Address, got.Address)
	assert.Equal(t, uint32(1), got.KeyIndex)
	assert.Equal(t, acc.PrivateKey.Hex(), got.PrivateKey.Hex())
	assert.Equal(t, crypto.SHA3_256, got.HashAlgo)

	info, err := os.Stat(filepath.Join(home, keysDir, acc.Address.Hex()+keyFileExt))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	addrs, err = ks.List()
	require.NoError(t, err)
	assert.Equal(t, []ledger.Address{acc.Address}, addrs)

	_, err = NewKeystore(home, "wrong", testScryptN).Load(acc.Address)
	require.ErrorIs(t, err, ErrWrongPassphrase)

	_, err = ks.Load(ledger.MustParseAddress("0x02"))
	require.ErrorIs(t, err, wallet.ErrUnknownAccount)
}

func TestConfig_validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    Config
		wantErr string
	}{
		{name: "valid", give: Config{Home: "/tmp/w", Passphrase: "p"}},
		{name: "missing home", give: Config{Passphrase: "p"}, wantErr: "wallet home is required"},
		{name: "missing passphrase", give: Config{Home: "/tmp/w"}, wantErr: "wallet passphrase is required"},
		{name: "bad account", give: Config{Home: "/tmp/w", Passphrase: "p", Account: "0xzz"}, wantErr: "invalid wallet account"},
		{
			name:    "ledger without service",
			give:    Config{Home: "/tmp/w", Passphrase: "p", Ledger: ledgertest.New()},
			wantErr: "service account are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.give.validate()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestWallet_LogInLogOut(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	w := newTestWallet(t, home, nil)
	assert.Equal(t, wallet.Unauthenticated(), w.Current())

	require.ErrorContains(t, w.LogIn(t.Context()), "no accounts in wallet")

	acc := newTestAccount(t, "0xabc")
	require.NoError(t, w.Import(acc))

	var got snapshots
	defer w.Subscribe(got.listen)()

	require.NoError(t, w.LogIn(t.Context()))
	assert.Equal(t, wallet.Authenticated(acc.Address), got.last())

	auth, err := w.Authz(t.Context(), acc.Address)
	require.NoError(t, err)
	assert.Equal(t, acc.PrivateKey.PublicKey().Hex(), auth.Signer.PublicKey().Hex())

	_, err = w.Authz(t.Context(), ledger.MustParseAddress("0xdef"))
	require.ErrorIs(t, err, wallet.ErrNotLoggedIn)

	// a second wallet on the same home resumes the session
	resumed := newTestWallet(t, home, nil)
	assert.Equal(t, wallet.Authenticated(acc.Address), resumed.Current())

	require.NoError(t, w.Unauthenticate(t.Context()))
	assert.Equal(t, wallet.Unauthenticated(), got.last())
	require.NoError(t, w.Unauthenticate(t.Context()))

	_, err = w.Authz(t.Context(), acc.Address)
	require.ErrorIs(t, err, wallet.ErrNotLoggedIn)

	assert.Equal(t, []wallet.CurrentUser{
		wallet.Unauthenticated(),
		wallet.Authenticated(acc.Address),
		wallet.Unauthenticated(),
		wallet.Unauthenticated(),
	}, got.users)
}

func TestWallet_LogInChoosesAccount(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	first := newTestAccount(t, "0x01")
	second := newTestAccount(t, "0x02")
	ks := NewKeystore(home, testPassphrase, testScryptN)
	require.NoError(t, ks.Save(first))
	require.NoError(t, ks.Save(second))

	w := newTestWallet(t, home, nil)
	require.ErrorContains(t, w.LogIn(t.Context()), "wallet holds 2 accounts")

	w = newTestWallet(t, home, func(c *Config) { c.Account = "0x02" })
	require.NoError(t, w.LogIn(t.Context()))
	assert.Equal(t, wallet.Authenticated(second.Address), w.Current())

	w = newTestWallet(t, home, func(c *Config) {
		c.Passphrase = "wrong"
		c.Account = "0x02"
	})
	require.ErrorIs(t, w.LogIn(t.Context()), ErrWrongPassphrase)
}

func TestWallet_CorruptSession(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, sessionFile), []byte("{"), 0o600))

	w := newTestWallet(t, home, nil)
	assert.Equal(t, wallet.AuthUnknown, w.Current().Status)
}

func TestWallet_ReloadAfterRepairedSession(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	addr := ledger.MustParseAddress("0xabc")
	require.NoError(t, saveSession(home, addr, time.Now()))

	w := newTestWallet(t, home, nil)
	require.Equal(t, wallet.Authenticated(addr), w.Current())

	var (
		mu      sync.Mutex
		lastU   wallet.CurrentUser
		lastErr error
	)
	unsubscribe := w.Subscribe(func(u wallet.CurrentUser, err error) {
		mu.Lock()
		defer mu.Unlock()
		lastU, lastErr = u, err
	})
	defer unsubscribe()

	require.NoError(t, os.WriteFile(filepath.Join(home, sessionFile), []byte("{"), 0o600))
	w.reload()

	mu.Lock()
	require.Error(t, lastErr)
	mu.Unlock()

	// the same account again: listeners still need to leave the failure
	require.NoError(t, saveSession(home, addr, time.Now()))
	w.reload()

	mu.Lock()
	defer mu.Unlock()
	require.NoError(t, lastErr)
	assert.Equal(t, wallet.Authenticated(addr), lastU)
	assert.False(t, w.Failed())
}

func TestKeystore_RejectsScryptParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    func(*keyFile)
		wantErr string
	}{
		{
			name:    "N too large",
			give:    func(kf *keyFile) { kf.N = 1 << 30 },
			wantErr: "invalid scrypt parameters",
		},
		{
			name:    "N not a power of two",
			give:    func(kf *keyFile) { kf.N = 1000 },
			wantErr: "invalid scrypt parameters",
		},
		{
			name:    "zero r",
			give:    func(kf *keyFile) { kf.R = 0 },
			wantErr: "invalid scrypt parameters",
		},
		{
			name:    "p too large",
			give:    func(kf *keyFile) { kf.P = 1 << 20 },
			wantErr: "invalid scrypt parameters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ks := NewKeystore(t.TempDir(), testPassphrase, testScryptN)
			acc := newTestAccount(t, "0x01")
			require.NoError(t, ks.Save(acc))

			var kf keyFile
			found, err := readJSON(ks.path(acc.Address), &kf)
			require.NoError(t, err)
			require.True(t, found)
			tt.give(&kf)
			require.NoError(t, writeJSON(ks.path(acc.Address), kf, 0o600))

			_, err = ks.Load(acc.Address)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestWallet_SignUp(t *testing.T) {
	t.Parallel()

	l := ledgertest.New()
	l.HandleAccountCreation(CreateAccountCode)
	service := newTestAccount(t, "0xf8d6e0586b0a20c7")
	l.AddAccount(service.Address)
	tracker := ledger.NewTracker(l, ledger.WithTickInterval(time.Millisecond))

	w := newTestWallet(t, t.TempDir(), func(c *Config) {
		c.Ledger = l
		c.Confirm = tracker.OnceSealed
		c.Service = provider.AccountGenPrivateKey(
			service.Address.String(), service.PrivateKey.Hex(), 0, crypto.ECDSA_P256, crypto.SHA3_256,
		)
	})

	require.NoError(t, w.SignUp(t.Context()))

	cur := w.Current()
	require.Equal(t, wallet.AuthAuthenticated, cur.Status)
	assert.NotEqual(t, service.Address, cur.Addr)

	created, err := l.Account(cur.Addr)
	require.NoError(t, err)
	auth, err := w.Authz(t.Context(), cur.Addr)
	require.NoError(t, err)
	assert.Equal(t, created.Keys[0].PublicKey, auth.Signer.PublicKey().Encode())
}

func TestWallet_SignUpWithoutLedger(t *testing.T) {
	t.Parallel()

	w := newTestWallet(t, t.TempDir(), nil)
	require.ErrorContains(t, w.SignUp(t.Context()), "sign up needs a ledger")
}

func TestWallet_Watch(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	acc := newTestAccount(t, "0xabc")
	cli := newTestWallet(t, home, nil)
	require.NoError(t, cli.Import(acc))

	app := newTestWallet(t, home, nil)
	var got snapshots
	defer app.Subscribe(got.listen)()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- app.Watch(ctx) }()

	// the watch may start after the log in; Watch reloads once it is in place
	require.NoError(t, cli.LogIn(t.Context()))
	require.Eventually(t, func() bool {
		return got.last() == wallet.Authenticated(acc.Address)
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, cli.Unauthenticate(t.Context()))
	require.Eventually(t, func() bool {
		return got.last() == wallet.Unauthenticated()
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
