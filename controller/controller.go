// Package controller holds the session, profile and transaction state of the dapp and runs the
// user actions against the wallet and the ledger.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/pkg/logger"
	"github.com/flowdapp/profile-dapp/profile"
	"github.com/flowdapp/profile-dapp/wallet"
)

var (
	// ErrNotAuthenticated is returned by actions that need a logged in user.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrIdentityMismatch is returned when an action names an identity other than the session's.
	ErrIdentityMismatch = errors.New("identity does not match the session")

	// ErrClosed is returned by actions on a closed Controller.
	ErrClosed = errors.New("controller is closed")
)

// Tracker follows submitted transactions. It is implemented by *ledger.Tracker.
type Tracker interface {
	OnceSealed(ctx context.Context, id ledger.TransactionID) (ledger.TransactionResult, error)
	Subscribe(ctx context.Context, id ledger.TransactionID, fn func(ledger.TransactionResult)) *ledger.Subscription
}

var _ Tracker = (*ledger.Tracker)(nil)

// Config holds the collaborators of a Controller.
type Config struct {
	Logger  logger.Logger
	Wallet  wallet.Provider
	Ledger  ledger.Client
	Tracker Tracker
	Profile *profile.Contract
	// ComputeLimit of submitted transactions. Defaults to ledger.DefaultComputeLimit.
	ComputeLimit uint64
	// SealTimeout bounds how long InitializeAccountResource waits for the seal. Zero waits as
	// long as the caller's context allows.
	SealTimeout time.Duration
}

func (c *Config) validate() error {
	if c.Wallet == nil {
		return errors.New("wallet is required")
	}
	if c.Ledger == nil {
		return errors.New("ledger client is required")
	}
	if c.Tracker == nil {
		return errors.New("transaction tracker is required")
	}
	if c.Profile == nil {
		return errors.New("profile contract is required")
	}
	if c.SealTimeout < 0 {
		return errors.New("seal timeout must not be negative")
	}

	return nil
}

// envelope carries an event to the loop. ack is closed once the event is applied.
type envelope struct {
	ev  event
	ack chan struct{}
}

// Controller is the single owner of the dapp State. Every change is an event applied in order by
// one goroutine, so State and Updates never observe a partial update.
type Controller struct {
	cfg  Config
	lggr logger.Logger

	// ctx lives as long as the controller and scopes the status subscriptions.
	ctx    context.Context
	cancel context.CancelFunc

	events   chan envelope
	done     chan struct{}
	loopDone chan struct{}
	updates  chan State

	stateMu sync.RWMutex
	state   State

	mu          sync.Mutex
	closed      bool
	unsubscribe func()
	subs        map[uuid.UUID]*StatusSubscription

	closeOnce sync.Once
}

// New returns a running Controller subscribed to the identity stream of cfg.Wallet. The first
// snapshot has been applied when New returns.
func New(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid controller config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.ComputeLimit == 0 {
		cfg.ComputeLimit = ledger.DefaultComputeLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:      cfg,
		lggr:     cfg.Logger.Named("controller"),
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan envelope),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		updates:  make(chan State, 1),
		subs:     map[uuid.UUID]*StatusSubscription{},
	}

	// the wallet delivers the current snapshot from within Subscribe
	go c.loop()
	unsubscribe := cfg.Wallet.Subscribe(c.onIdentity)

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	return c, nil
}

func (c *Controller) onIdentity(user wallet.CurrentUser, err error) {
	if err != nil {
		c.lggr.Warnw("Identity stream failed, resetting session", "err", err)
		c.dispatch(sessionFailed{err: err})

		return
	}

	c.lggr.Debugw("Identity changed", "addr", user.Addr, "status", user.Status)
	c.dispatch(sessionChanged{user: user})
}

func (c *Controller) loop() {
	defer close(c.loopDone)

	for {
		select {
		case <-c.done:
			return
		case env := <-c.events:
			c.stateMu.Lock()
			prev := c.state
			c.state = reduce(prev, env.ev)
			next := c.state
			c.stateMu.Unlock()

			if next != prev {
				c.publish(next)
			} else {
				c.lggr.Debugw("Event did not change state", "event", fmt.Sprintf("%T", env.ev))
			}
			close(env.ack)
		}
	}
}

// publish replaces any unread state in updates with s. Only the loop sends on updates.
func (c *Controller) publish(s State) {
	select {
	case <-c.updates:
	default:
	}
	c.updates <- s
}

// dispatch hands ev to the loop and waits until it is applied. It reports false when the
// controller closed first, in which case ev is dropped.
func (c *Controller) dispatch(ev event) bool {
	env := envelope{ev: ev, ack: make(chan struct{})}
	select {
	case c.events <- env:
	case <-c.done:
		return false
	}

	select {
	case <-env.ack:
		return true
	case <-c.done:
		return false
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	return c.state
}

// Updates returns a channel carrying the latest state after each change. A slow reader only
// sees the most recent state. The channel is closed by Close.
func (c *Controller) Updates() <-chan State {
	return c.updates
}

// ReadProfile reads the profile of addr and caches its display name. On failure the cached
// profile is left unchanged and the error is a *ledger.QueryError.
func (c *Controller) ReadProfile(ctx context.Context, addr ledger.Address) (ProfileView, error) {
	if c.isClosed() {
		return ProfileView{}, &ledger.QueryError{Err: ErrClosed}
	}
	if addr.IsZero() {
		return ProfileView{}, &ledger.QueryError{Err: errors.New("address is required")}
	}

	v, err := c.cfg.Ledger.Query(ctx, c.cfg.Profile.ReadQuery(addr))
	if err != nil {
		return ProfileView{}, asQueryError(err)
	}
	p, err := profile.DecodeReadOnly(v)
	if err != nil {
		return ProfileView{}, &ledger.QueryError{Err: fmt.Errorf("failed to decode profile of %s: %w", addr, err)}
	}

	view := ProfileView{DisplayName: NoProfile, Loaded: true}
	if p != nil {
		view.DisplayName = p.Name
	}
	if !c.dispatch(profileRead{view: view}) {
		return ProfileView{}, &ledger.QueryError{Err: ErrClosed}
	}

	return view, nil
}

// InitializeAccountResource submits the transaction creating the profile resource of identity
// and waits until it is sealed. Initializing twice is harmless. It does not change the State.
// Every failure is a *ledger.TransactionError.
func (c *Controller) InitializeAccountResource(ctx context.Context, identity ledger.Address) (ledger.TransactionResult, error) {
	auth, err := c.authorize(ctx, identity)
	if err != nil {
		return ledger.TransactionResult{}, err
	}

	id, err := c.cfg.Ledger.Mutate(ctx, c.cfg.Profile.InitMutation(auth, c.cfg.ComputeLimit))
	if err != nil {
		return ledger.TransactionResult{}, asTransactionError(err)
	}
	c.lggr.Debugw("Submitted account initialization", "tx", id, "account", identity)

	if c.cfg.SealTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.SealTimeout)
		defer cancel()
	}
	res, err := c.cfg.Tracker.OnceSealed(ctx, id)
	if err != nil {
		c.lggr.Errorw("Account initialization failed", "tx", id, "account", identity, "err", err)
		return res, asTransactionError(err)
	}

	c.lggr.Infow("Account initialized",
		"tx", res.ID,
		"account", identity,
		"status", res.Status,
		"block", res.BlockID,
		"computation", res.ComputationUsed,
		"events", len(res.Events),
	)

	return res, nil
}

// SetProfileName submits the transaction renaming the profile of identity and returns without
// waiting for it. The transaction becomes the tracked one: its status starts over at unknown and
// follows the status updates until the returned subscription ends.
func (c *Controller) SetProfileName(ctx context.Context, identity ledger.Address, name string) (*StatusSubscription, error) {
	auth, err := c.authorize(ctx, identity)
	if err != nil {
		return nil, err
	}

	id, err := c.cfg.Ledger.Mutate(ctx, c.cfg.Profile.SetNameMutation(auth, name, c.cfg.ComputeLimit))
	if err != nil {
		return nil, asTransactionError(err)
	}
	if !c.dispatch(txSubmitted{id: id}) {
		return nil, &ledger.TransactionError{ID: id, Err: ErrClosed}
	}
	c.lggr.Infow("Submitted profile name change", "tx", id, "account", identity, "name", name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, &ledger.TransactionError{ID: id, Err: ErrClosed}
	}
	c.pruneLocked()

	sub := &StatusSubscription{ID: uuid.New()}
	sub.sub = c.cfg.Tracker.Subscribe(c.ctx, id, func(res ledger.TransactionResult) {
		c.lggr.Debugw("Transaction status update", "tx", id, "status", res.Status, "subscription", sub.ID)
		c.dispatch(txStatusChanged{id: id, status: res.Status})
	})
	c.subs[sub.ID] = sub

	return sub, nil
}

// LogIn asks the wallet to authenticate a user.
func (c *Controller) LogIn(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}

	return c.cfg.Wallet.LogIn(ctx)
}

// SignUp asks the wallet to create an account and authenticate it.
func (c *Controller) SignUp(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}

	return c.cfg.Wallet.SignUp(ctx)
}

// LogOut ends the session. The unauthenticated state arrives through the identity stream.
func (c *Controller) LogOut(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}

	return c.cfg.Wallet.Unauthenticate(ctx)
}

// Close stops listening to the wallet and to every status subscription and closes Updates.
// Calling it again is a no-op.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		unsubscribe := c.unsubscribe
		subs := c.subs
		c.subs = nil
		c.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		// unblocks callbacks waiting in dispatch before the subscriptions are stopped
		close(c.done)
		c.cancel()
		for _, s := range subs {
			s.Stop()
		}
		<-c.loopDone
		close(c.updates)

		c.lggr.Debugw("Controller closed", "subscriptions", len(subs))
	})
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// authorize checks that identity is the logged in user and gets its authorizer from the wallet.
func (c *Controller) authorize(ctx context.Context, identity ledger.Address) (ledger.Authorizer, error) {
	if c.isClosed() {
		return ledger.Authorizer{}, &ledger.TransactionError{Err: ErrClosed}
	}

	session := c.State().Session
	switch {
	case !session.Authenticated():
		return ledger.Authorizer{}, &ledger.TransactionError{Err: ErrNotAuthenticated}
	case identity.IsZero() || identity != session.Identity:
		return ledger.Authorizer{}, &ledger.TransactionError{
			Err: fmt.Errorf("%w: got %s, logged in as %s", ErrIdentityMismatch, identity, session.Identity),
		}
	}

	auth, err := c.cfg.Wallet.Authz(ctx, identity)
	if err != nil {
		return ledger.Authorizer{}, &ledger.TransactionError{Err: fmt.Errorf("failed to authorize %s: %w", identity, err)}
	}

	return auth, nil
}

func (c *Controller) pruneLocked() {
	for id, s := range c.subs {
		select {
		case <-s.Done():
			delete(c.subs, id)
		default:
		}
	}
}

func asQueryError(err error) error {
	if ledger.IsQueryError(err) {
		return err
	}

	return &ledger.QueryError{Err: err}
}

func asTransactionError(err error) error {
	if ledger.IsTransactionError(err) {
		return err
	}

	return &ledger.TransactionError{Err: err}
}
