// Package profiletest emulates the Profile contract on a ledgertest.Ledger.
package profiletest

import (
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/cadence"
	"github.com/flowdapp/profile-dapp/ledger/ledgertest"
	"github.com/flowdapp/profile-dapp/profile"
)

// MaxNameLength is the longest name the contract accepts.
const MaxNameLength = 15

var errNoProfile = errors.New("unexpectedly found nil while forcing an Optional value")

// Store holds the profiles of every account on the ledger.
type Store struct {
	contract *profile.Contract

	mu       sync.Mutex
	profiles map[ledger.Address]profile.ReadOnly
}

// Install registers the read script and the init and set-name transactions of contract on l.
func Install(l *ledgertest.Ledger, contract *profile.Contract) *Store {
	s := &Store{
		contract: contract,
		profiles: map[ledger.Address]profile.ReadOnly{},
	}

	l.HandleScript(contract.ReadCode(), s.read)
	l.HandleTransaction(contract.InitCode(), s.initAccount)
	l.HandleTransaction(contract.SetNameCode(), s.setName)

	return s
}

// Put stores p as the profile of p.Address.
func (s *Store) Put(p profile.ReadOnly) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[p.Address] = p
}

// Get returns the profile of addr.
func (s *Store) Get(addr ledger.Address) (profile.ReadOnly, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[addr]

	return p, ok
}

// Len returns the number of stored profiles.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.profiles)
}

func (s *Store) read(args []cadence.Value) (cadence.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	addr, ok := args[0].(cadence.Address)
	if !ok {
		return nil, fmt.Errorf("address must be an Address, got %s", args[0].Type())
	}

	p, found := s.Get(ledger.Address(addr))
	if !found {
		return cadence.NewOptional(nil), nil
	}

	return cadence.NewOptional(profile.EncodeReadOnly(s.contract.Address, p)), nil
}

func (s *Store) initAccount(tx *ledgertest.Txn) ([]cadence.Composite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, addr := range tx.Authorizers {
		if _, ok := s.profiles[addr]; ok {
			continue
		}
		s.profiles[addr] = profile.ReadOnly{Address: addr, Name: "Anon", Color: "#232323"}
	}

	return nil, nil
}

func (s *Store) setName(tx *ledgertest.Txn) ([]cadence.Composite, error) {
	if len(tx.Args) != 1 || len(tx.Authorizers) != 1 {
		return nil, errors.New("expected one name argument and one authorizer")
	}
	name, ok := tx.Args[0].(cadence.String)
	if !ok {
		return nil, fmt.Errorf("name must be a String, got %s", tx.Args[0].Type())
	}
	if utf8.RuneCountInString(string(name)) > MaxNameLength {
		return nil, errors.New("pre-condition failed: Names must be under 15 characters long.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.profiles[tx.Authorizers[0]]
	if !found {
		return nil, errNoProfile
	}
	p.Name = string(name)
	s.profiles[tx.Authorizers[0]] = p

	return nil, nil
}
