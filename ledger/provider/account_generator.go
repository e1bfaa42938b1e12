package provider

import (
	"errors"
	"fmt"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
)

// Account is a Flow account key held in memory.
type Account struct {
	Address    ledger.Address
	KeyIndex   uint32
	PrivateKey crypto.PrivateKey
	HashAlgo   crypto.HashAlgorithm
}

// Authorizer returns an authorizer that signs with the account key.
func (a Account) Authorizer() (ledger.Authorizer, error) {
	signer, err := crypto.NewInMemorySigner(a.PrivateKey, a.HashAlgo)
	if err != nil {
		return ledger.Authorizer{}, err
	}

	return ledger.Authorizer{Address: a.Address, KeyIndex: a.KeyIndex, Signer: signer}, nil
}

// AccountGenerator is an interface for generating Flow account keys.
type AccountGenerator interface {
	Generate() (Account, error)
}

var (
	_ AccountGenerator = (*accountGenPrivateKey)(nil)
	_ AccountGenerator = (*accountGenRandom)(nil)
)

// accountGenPrivateKey generates an account from a known address and hex private key.
type accountGenPrivateKey struct {
	address    string
	privateKey string
	keyIndex   uint32
	sigAlgo    crypto.SignatureAlgorithm
	hashAlgo   crypto.HashAlgorithm
}

// AccountGenPrivateKey creates a generator for the account at address whose key keyIndex is the
// hex encoded privateKey.
func AccountGenPrivateKey(
	address, privateKey string, keyIndex uint32, sigAlgo crypto.SignatureAlgorithm, hashAlgo crypto.HashAlgorithm,
) *accountGenPrivateKey {
	return &accountGenPrivateKey{
		address:    address,
		privateKey: privateKey,
		keyIndex:   keyIndex,
		sigAlgo:    sigAlgo,
		hashAlgo:   hashAlgo,
	}
}

// Generate parses the address and the private key.
func (g *accountGenPrivateKey) Generate() (Account, error) {
	addr, err := ledger.ParseAddress(g.address)
	if err != nil {
		return Account{}, fmt.Errorf("failed to parse account address %s: %w", g.address, err)
	}
	if addr.IsZero() {
		return Account{}, errors.New("account address is required")
	}

	key, err := crypto.DecodePrivateKeyHex(g.sigAlgo, g.privateKey)
	if err != nil {
		return Account{}, fmt.Errorf("failed to parse private key: %w", err)
	}

	return Account{Address: addr, KeyIndex: g.keyIndex, PrivateKey: key, HashAlgo: g.hashAlgo}, nil
}

// accountGenRandom generates a fresh P-256 key for a fixed address. The key must be registered
// on the account by other means, e.g. as the service key of an emulator.
type accountGenRandom struct {
	address ledger.Address
}

// AccountRandom creates a generator of fresh ECDSA_P256/SHA3_256 keys for address.
func AccountRandom(address ledger.Address) *accountGenRandom {
	return &accountGenRandom{address: address}
}

// Generate creates a new key.
func (g *accountGenRandom) Generate() (Account, error) {
	key, err := crypto.GeneratePrivateKey(crypto.ECDSA_P256)
	if err != nil {
		return Account{}, err
	}

	return Account{Address: g.address, PrivateKey: key, HashAlgo: crypto.SHA3_256}, nil
}
