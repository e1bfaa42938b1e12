package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signer signs arbitrary messages on behalf of an account key.
type Signer interface {
	// Sign hashes message and returns the r||s signature.
	Sign(message []byte) ([]byte, error)
	// PublicKey returns the key that verifies the signatures.
	PublicKey() PublicKey
}

var _ Signer = (*InMemorySigner)(nil)

// InMemorySigner signs with a private key held in memory.
type InMemorySigner struct {
	key  PrivateKey
	hash HashAlgorithm
}

// NewInMemorySigner returns a Signer for key that hashes messages with hashAlgo.
func NewInMemorySigner(key PrivateKey, hashAlgo HashAlgorithm) (*InMemorySigner, error) {
	if key.IsZero() {
		return nil, errors.New("private key is required")
	}
	if _, err := hashAlgo.New(); err != nil {
		return nil, err
	}

	return &InMemorySigner{key: key, hash: hashAlgo}, nil
}

// HashAlgorithm returns the hash algorithm applied before signing.
func (s *InMemorySigner) HashAlgorithm() HashAlgorithm { return s.hash }

// PublicKey implements Signer.
func (s *InMemorySigner) PublicKey() PublicKey { return s.key.PublicKey() }

// Sign implements Signer.
func (s *InMemorySigner) Sign(message []byte) ([]byte, error) {
	digest, err := s.hash.Sum(message)
	if err != nil {
		return nil, err
	}

	switch s.key.algo {
	case ECDSA_secp256k1:
		sig, err := gethcrypto.Sign(digest, s.key.key)
		if err != nil {
			return nil, fmt.Errorf("failed to sign message: %w", err)
		}

		// drop the recovery id
		return sig[:2*scalarLen], nil
	case ECDSA_P256:
		r, ss, err := ecdsa.Sign(rand.Reader, s.key.key, digest)
		if err != nil {
			return nil, fmt.Errorf("failed to sign message: %w", err)
		}
		out := make([]byte, 0, 2*scalarLen)
		out = append(out, padScalar(r)...)

		return append(out, padScalar(ss)...), nil
	default:
		return nil, fmt.Errorf("unsupported signature algorithm %s", s.key.algo)
	}
}
