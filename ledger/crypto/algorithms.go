// Package crypto implements the account key algorithms supported by Flow: ECDSA over P-256 and
// secp256k1, hashed with SHA2-256 or SHA3-256.
package crypto

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/sha3"
)

// SignatureAlgorithm identifies the curve of an account key. The numeric values match the
// raw values of Cadence's SignatureAlgorithm enum.
type SignatureAlgorithm uint8

const (
	UnknownSignatureAlgorithm SignatureAlgorithm = 0
	ECDSA_P256                SignatureAlgorithm = 1
	ECDSA_secp256k1           SignatureAlgorithm = 2
)

// String returns the name used by the Access API.
func (a SignatureAlgorithm) String() string {
	switch a {
	case ECDSA_P256:
		return "ECDSA_P256"
	case ECDSA_secp256k1:
		return "ECDSA_secp256k1"
	default:
		return "UNKNOWN"
	}
}

// ParseSignatureAlgorithm parses an algorithm name, case insensitive.
func ParseSignatureAlgorithm(s string) (SignatureAlgorithm, error) {
	switch strings.ToUpper(s) {
	case "ECDSA_P256", "P256":
		return ECDSA_P256, nil
	case "ECDSA_SECP256K1", "SECP256K1":
		return ECDSA_secp256k1, nil
	default:
		return UnknownSignatureAlgorithm, fmt.Errorf("unsupported signature algorithm %q", s)
	}
}

// HashAlgorithm identifies the hash applied to a message before signing. The numeric values
// match the raw values of Cadence's HashAlgorithm enum.
type HashAlgorithm uint8

const (
	UnknownHashAlgorithm HashAlgorithm = 0
	SHA2_256             HashAlgorithm = 1
	SHA3_256             HashAlgorithm = 3
)

// String returns the name used by the Access API.
func (h HashAlgorithm) String() string {
	switch h {
	case SHA2_256:
		return "SHA2_256"
	case SHA3_256:
		return "SHA3_256"
	default:
		return "UNKNOWN"
	}
}

// ParseHashAlgorithm parses a hash algorithm name, case insensitive.
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	switch strings.ToUpper(s) {
	case "SHA2_256", "SHA256":
		return SHA2_256, nil
	case "SHA3_256":
		return SHA3_256, nil
	default:
		return UnknownHashAlgorithm, fmt.Errorf("unsupported hash algorithm %q", s)
	}
}

// New returns a fresh hasher.
func (h HashAlgorithm) New() (hash.Hash, error) {
	switch h {
	case SHA2_256:
		return sha256.New(), nil
	case SHA3_256:
		return sha3.New256(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %d", h)
	}
}

// Sum hashes message with the algorithm.
func (h HashAlgorithm) Sum(message []byte) ([]byte, error) {
	hasher, err := h.New()
	if err != nil {
		return nil, err
	}
	hasher.Write(message)

	return hasher.Sum(nil), nil
}
