// Package devwallet is a local wallet for development. Account keys live encrypted in a home
// directory; the logged in account is a session file in the same directory, so every process
// sharing the home shares the session.
package devwallet

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/cadence"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
	"github.com/flowdapp/profile-dapp/ledger/provider"
	"github.com/flowdapp/profile-dapp/pkg/logger"
	"github.com/flowdapp/profile-dapp/wallet"
)

// CreateAccountCode is the transaction SignUp submits with the service account. Its arguments
// are the hex public key, the signature algorithm and the hash algorithm of the new key.
//
//go:embed cadence/create_account.cdc
var CreateAccountCode []byte

// AccountCreatedEvent is the event carrying the address of a created account.
const AccountCreatedEvent = "flow.AccountCreated"

// Config holds the configuration of a Wallet.
type Config struct {
	// Required: The directory holding keys and the session.
	Home string
	// Required: The passphrase encrypting the keys.
	Passphrase string
	// Optional: The account LogIn uses. When empty, LogIn uses the only stored key.
	Account string

	// Optional: The ledger SignUp creates accounts on. SignUp fails without it.
	Ledger ledger.Mutator
	// Optional: Waits for the account creation to be sealed. Required with Ledger.
	Confirm ledger.ConfirmFunc
	// Optional: The account paying for account creation. Required with Ledger.
	Service provider.AccountGenerator
	// Optional: The compute limit of the account creation. Defaults to ledger.DefaultComputeLimit.
	ComputeLimit uint64

	// Optional: The scrypt cost of new key files. Defaults to DefaultScryptN.
	ScryptN int
	// Optional: The logger. Defaults to a no-op logger.
	Logger logger.Logger
	// Optional: The clock. Defaults to time.Now.
	Now func() time.Time
}

func (c Config) validate() error {
	if c.Home == "" {
		return errors.New("wallet home is required")
	}
	if c.Passphrase == "" {
		return errors.New("wallet passphrase is required")
	}
	if c.Account != "" {
		if _, err := ledger.ParseAddress(c.Account); err != nil {
			return fmt.Errorf("invalid wallet account: %w", err)
		}
	}
	if c.Ledger != nil && (c.Confirm == nil || c.Service == nil) {
		return errors.New("confirm func and service account are required with a ledger")
	}

	return nil
}

var _ wallet.Provider = (*Wallet)(nil)

// Wallet is a wallet.Provider backed by files.
type Wallet struct {
	*wallet.Broadcaster

	config   Config
	keystore *Keystore
	lggr     logger.Logger
}

// New opens the wallet in config.Home and resolves the stored session. A session that cannot
// be read leaves the status unknown and is reported to subscribers as an error.
func New(config Config) (*Wallet, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("failed to validate wallet config: %w", err)
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	w := &Wallet{
		Broadcaster: wallet.NewBroadcaster(wallet.CurrentUser{}),
		config:      config,
		keystore:    NewKeystore(config.Home, config.Passphrase, config.ScryptN),
		lggr:        config.Logger.Named("devwallet"),
	}
	w.reload()

	return w, nil
}

// Keystore returns the keystore of the wallet.
func (w *Wallet) Keystore() *Keystore { return w.keystore }

// reload emits the stored session when it differs from the current snapshot, or when
// listeners were last handed an error.
func (w *Wallet) reload() {
	u, err := loadSession(w.config.Home)
	if err != nil {
		w.lggr.Warnw("Failed to load session", "err", err)
		w.Fail(err)

		return
	}
	if w.Failed() || u != w.Current() {
		w.Emit(u)
	}
}

// LogIn implements wallet.Provider. It checks that the key of the account opens with the
// passphrase before storing the session.
func (w *Wallet) LogIn(_ context.Context) error {
	addr, err := w.loginAccount()
	if err != nil {
		return err
	}
	if _, err := w.keystore.Load(addr); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", addr, err)
	}

	return w.startSession(addr)
}

func (w *Wallet) loginAccount() (ledger.Address, error) {
	if w.config.Account != "" {
		return ledger.ParseAddress(w.config.Account)
	}

	addrs, err := w.keystore.List()
	if err != nil {
		return ledger.Address{}, fmt.Errorf("failed to list keys: %w", err)
	}
	switch len(addrs) {
	case 0:
		return ledger.Address{}, errors.New("no accounts in wallet, sign up or import a key first")
	case 1:
		return addrs[0], nil
	default:
		return ledger.Address{}, fmt.Errorf("wallet holds %d accounts, choose one with wallet.account", len(addrs))
	}
}

func (w *Wallet) startSession(addr ledger.Address) error {
	if err := saveSession(w.config.Home, addr, w.config.Now()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	w.lggr.Infow("Logged in", "address", addr)
	w.Emit(wallet.Authenticated(addr))

	return nil
}

// Unauthenticate implements wallet.Provider.
func (w *Wallet) Unauthenticate(_ context.Context) error {
	if err := clearSession(w.config.Home); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	w.lggr.Infow("Logged out")
	w.Emit(wallet.Unauthenticated())

	return nil
}

// Import stores acc in the keystore without logging in.
func (w *Wallet) Import(acc provider.Account) error {
	return w.keystore.Save(acc)
}

// SignUp implements wallet.Provider. It generates a key, creates an account for it paid by the
// service account, stores the key and logs in.
func (w *Wallet) SignUp(ctx context.Context) error {
	if w.config.Ledger == nil {
		return errors.New("sign up needs a ledger and a service account")
	}

	service, err := w.config.Service.Generate()
	if err != nil {
		return fmt.Errorf("failed to load service account: %w", err)
	}
	auth, err := service.Authorizer()
	if err != nil {
		return fmt.Errorf("failed to load service account: %w", err)
	}

	key, err := crypto.GeneratePrivateKey(crypto.ECDSA_P256)
	if err != nil {
		return err
	}
	args := []cadence.Value{
		cadence.String(key.PublicKey().Hex()),
		cadence.UInt8(crypto.ECDSA_P256),
		cadence.UInt8(crypto.SHA3_256),
	}

	limit := w.config.ComputeLimit
	if limit == 0 {
		limit = ledger.DefaultComputeLimit
	}
	id, err := w.config.Ledger.Mutate(ctx, ledger.SingleAuthorizer(CreateAccountCode, args, auth, limit))
	if err != nil {
		return fmt.Errorf("failed to submit account creation: %w", err)
	}
	res, err := w.config.Confirm(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	addr, err := createdAddress(res)
	if err != nil {
		return err
	}
	if err := w.keystore.Save(provider.Account{Address: addr, PrivateKey: key, HashAlgo: crypto.SHA3_256}); err != nil {
		return fmt.Errorf("failed to store key of %s: %w", addr, err)
	}
	w.lggr.Infow("Created account", "address", addr, "txID", id)

	return w.startSession(addr)
}

func createdAddress(res ledger.TransactionResult) (ledger.Address, error) {
	events := res.EventsOfType(AccountCreatedEvent)
	if len(events) == 0 {
		return ledger.Address{}, fmt.Errorf("transaction %s emitted no %s event", res.ID, AccountCreatedEvent)
	}
	addr, ok := events[0].Payload.AddressField("address")
	if !ok {
		return ledger.Address{}, fmt.Errorf("%s event has no address", AccountCreatedEvent)
	}

	return ledger.Address(addr), nil
}

// Authz implements wallet.Provider.
func (w *Wallet) Authz(_ context.Context, addr ledger.Address) (ledger.Authorizer, error) {
	cur := w.Current()
	if cur.Status != wallet.AuthAuthenticated || cur.Addr != addr {
		return ledger.Authorizer{}, fmt.Errorf("authorize %s: %w", addr, wallet.ErrNotLoggedIn)
	}

	acc, err := w.keystore.Load(addr)
	if err != nil {
		return ledger.Authorizer{}, err
	}

	return acc.Authorizer()
}
