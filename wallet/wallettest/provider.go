// Package wallettest provides a scriptable wallet.Provider for tests.
package wallettest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/wallet"
)

var _ wallet.Provider = (*Provider)(nil)

// Provider is a fake wallet. Snapshots are driven by Emit and Fail, or by LogIn, SignUp and
// Unauthenticate once scripted.
type Provider struct {
	*wallet.Broadcaster

	mu          sync.Mutex
	logInAddr   ledger.Address
	signUpAddr  ledger.Address
	authorizers map[ledger.Address]ledger.Authorizer
	authzErr    error
	calls       map[string]int
}

// New returns a provider whose initial snapshot has an unknown status.
func New() *Provider {
	return &Provider{
		Broadcaster: wallet.NewBroadcaster(wallet.CurrentUser{}),
		authorizers: map[ledger.Address]ledger.Authorizer{},
		calls:       map[string]int{},
	}
}

// OnLogIn makes LogIn authenticate addr.
func (p *Provider) OnLogIn(addr ledger.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logInAddr = addr
}

// OnSignUp makes SignUp authenticate addr.
func (p *Provider) OnSignUp(addr ledger.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.signUpAddr = addr
}

// AddAuthorizer makes Authz return auth for auth.Address. Accounts without an authorizer get
// one without a signer.
func (p *Provider) AddAuthorizer(auth ledger.Authorizer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.authorizers[auth.Address] = auth
}

// FailAuthz makes Authz fail with err until called with nil.
func (p *Provider) FailAuthz(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.authzErr = err
}

// Calls returns how often the named method was called.
func (p *Provider) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calls[method]
}

func (p *Provider) record(method string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls[method]++
}

// LogIn implements wallet.Provider.
func (p *Provider) LogIn(context.Context) error {
	p.record("LogIn")

	p.mu.Lock()
	addr := p.logInAddr
	p.mu.Unlock()
	if addr.IsZero() {
		return errors.New("log in declined")
	}
	p.Emit(wallet.Authenticated(addr))

	return nil
}

// SignUp implements wallet.Provider.
func (p *Provider) SignUp(context.Context) error {
	p.record("SignUp")

	p.mu.Lock()
	addr := p.signUpAddr
	p.mu.Unlock()
	if addr.IsZero() {
		return errors.New("sign up declined")
	}
	p.Emit(wallet.Authenticated(addr))

	return nil
}

// Unauthenticate implements wallet.Provider.
func (p *Provider) Unauthenticate(context.Context) error {
	p.record("Unauthenticate")
	p.Emit(wallet.Unauthenticated())

	return nil
}

// Authz implements wallet.Provider.
func (p *Provider) Authz(_ context.Context, addr ledger.Address) (ledger.Authorizer, error) {
	p.record("Authz")

	cur := p.Current()
	if cur.Status != wallet.AuthAuthenticated || cur.Addr != addr {
		return ledger.Authorizer{}, fmt.Errorf("authorize %s: %w", addr, wallet.ErrNotLoggedIn)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.authzErr != nil {
		return ledger.Authorizer{}, p.authzErr
	}
	if auth, ok := p.authorizers[addr]; ok {
		return auth, nil
	}

	return ledger.Authorizer{Address: addr}, nil
}
