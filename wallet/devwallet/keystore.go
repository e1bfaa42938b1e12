package devwallet

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
	"github.com/flowdapp/profile-dapp/ledger/provider"
	"github.com/flowdapp/profile-dapp/wallet"
)

const (
	keystoreFormatVersion = 1
	keysDir               = "keys"
	keyFileExt            = ".json"

	// DefaultScryptN is the scrypt cost of new key files.
	DefaultScryptN = 1 << 15
	scryptR        = 8
	scryptP        = 1

	maxScryptN = 1 << 20
	maxScryptR = 32
	maxScryptP = 16
)

// ErrWrongPassphrase is returned when a key file cannot be opened with the passphrase.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted key file")

// keyFile is the on-disk form of an account key. Only the private key is encrypted.
type keyFile struct {
	V        int    `json:"v"`
	Address  string `json:"address"`
	KeyIndex uint32 `json:"key_index"`
	SigAlgo  string `json:"sig_algo"`
	HashAlgo string `json:"hash_algo"`
	Salt     []byte `json:"salt"`
	N        int    `json:"scrypt_N"`
	R        int    `json:"scrypt_r"`
	P        int    `json:"scrypt_p"`
	Cipher   []byte `json:"cipher"`
}

// Keystore stores account keys encrypted with a passphrase, one file per account.
type Keystore struct {
	dir        string
	passphrase string
	scryptN    int

	mu sync.Mutex
}

// NewKeystore returns a keystore rooted at home. scryptN of zero uses DefaultScryptN.
func NewKeystore(home, passphrase string, scryptN int) *Keystore {
	if scryptN == 0 {
		scryptN = DefaultScryptN
	}

	return &Keystore{dir: filepath.Join(home, keysDir), passphrase: passphrase, scryptN: scryptN}
}

func (k *Keystore) path(addr ledger.Address) string {
	return filepath.Join(k.dir, addr.Hex()+keyFileExt)
}

// Save encrypts and stores the key of acc, replacing any previous key of the account.
func (k *Keystore) Save(acc provider.Account) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := os.MkdirAll(k.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create keystore: %w", err)
	}

	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return err
	}
	key, err := scrypt.Key([]byte(k.passphrase), salt[:], k.scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return err
	}
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce, the salt makes every key unique
	ct := aead.Seal(nil, nonce[:], acc.PrivateKey.Encode(), salt[:])

	return writeJSON(k.path(acc.Address), keyFile{
		V:        keystoreFormatVersion,
		Address:  acc.Address.String(),
		KeyIndex: acc.KeyIndex,
		SigAlgo:  acc.PrivateKey.Algorithm().String(),
		HashAlgo: acc.HashAlgo.String(),
		Salt:     salt[:],
		N:        k.scryptN,
		R:        scryptR,
		P:        scryptP,
		Cipher:   ct,
	}, 0o600)
}

// Load decrypts the key of addr.
func (k *Keystore) Load(addr ledger.Address) (provider.Account, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	var kf keyFile
	found, err := readJSON(k.path(addr), &kf)
	if err != nil {
		return provider.Account{}, fmt.Errorf("failed to read key of %s: %w", addr, err)
	}
	if !found {
		return provider.Account{}, fmt.Errorf("no key for %s: %w", addr, wallet.ErrUnknownAccount)
	}
	if kf.V > keystoreFormatVersion {
		return provider.Account{}, fmt.Errorf("unsupported keystore version %d", kf.V)
	}

	sigAlgo, err := crypto.ParseSignatureAlgorithm(kf.SigAlgo)
	if err != nil {
		return provider.Account{}, err
	}
	hashAlgo, err := crypto.ParseHashAlgorithm(kf.HashAlgo)
	if err != nil {
		return provider.Account{}, err
	}

	if !validScryptParams(kf.N, kf.R, kf.P) {
		return provider.Account{}, fmt.Errorf("invalid scrypt parameters in key file of %s (N=%d r=%d p=%d)",
			addr, kf.N, kf.R, kf.P)
	}

	key, err := scrypt.Key([]byte(k.passphrase), kf.Salt, kf.N, kf.R, kf.P, chacha20poly1305.KeySize)
	if err != nil {
		return provider.Account{}, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return provider.Account{}, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	raw, err := aead.Open(nil, nonce[:], kf.Cipher, kf.Salt)
	if err != nil {
		return provider.Account{}, ErrWrongPassphrase
	}

	priv, err := crypto.DecodePrivateKey(sigAlgo, raw)
	if err != nil {
		return provider.Account{}, err
	}

	return provider.Account{Address: addr, KeyIndex: kf.KeyIndex, PrivateKey: priv, HashAlgo: hashAlgo}, nil
}

// validScryptParams bounds the cost read from a key file, so a damaged file cannot exhaust memory.
func validScryptParams(n, r, p int) bool {
	return n > 1 && n <= maxScryptN && n&(n-1) == 0 &&
		r > 0 && r <= maxScryptR &&
		p > 0 && p <= maxScryptP
}

// List returns the addresses with a stored key, sorted.
func (k *Keystore) List() ([]ledger.Address, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	entries, err := os.ReadDir(k.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []ledger.Address
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), keyFileExt)
		if e.IsDir() || !ok {
			continue
		}
		addr, err := ledger.ParseAddress(name)
		if err != nil {
			continue
		}
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })

	return out, nil
}
