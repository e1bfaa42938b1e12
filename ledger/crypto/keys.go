package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const scalarLen = 32

// PrivateKey is an ECDSA account key together with the curve it belongs to.
type PrivateKey struct {
	algo SignatureAlgorithm
	key  *ecdsa.PrivateKey
}

// PublicKey is the public half of an account key.
type PublicKey struct {
	algo SignatureAlgorithm
	key  *ecdsa.PublicKey
}

// GeneratePrivateKey creates a random key for algo.
func GeneratePrivateKey(algo SignatureAlgorithm) (PrivateKey, error) {
	var (
		key *ecdsa.PrivateKey
		err error
	)
	switch algo {
	case ECDSA_P256:
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case ECDSA_secp256k1:
		key, err = gethcrypto.GenerateKey()
	default:
		return PrivateKey{}, fmt.Errorf("unsupported signature algorithm %s", algo)
	}
	if err != nil {
		return PrivateKey{}, fmt.Errorf("failed to generate %s key: %w", algo, err)
	}

	return PrivateKey{algo: algo, key: key}, nil
}

// DecodePrivateKeyHex decodes a 32 byte hex scalar, with or without the 0x prefix.
func DecodePrivateKeyHex(algo SignatureAlgorithm, s string) (PrivateKey, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 2*scalarLen {
		return PrivateKey{}, errors.New("invalid hex private key: must be 32 bytes")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("invalid hex private key: %w", err)
	}

	return DecodePrivateKey(algo, b)
}

// DecodePrivateKey decodes a raw 32 byte scalar.
func DecodePrivateKey(algo SignatureAlgorithm, b []byte) (PrivateKey, error) {
	if len(b) != scalarLen {
		return PrivateKey{}, fmt.Errorf("invalid private key length %d", len(b))
	}

	switch algo {
	case ECDSA_P256:
		curve := elliptic.P256()
		d := new(big.Int).SetBytes(b)
		if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
			return PrivateKey{}, errors.New("invalid private key: scalar out of range")
		}
		key := &ecdsa.PrivateKey{D: d}
		key.Curve = curve
		key.X, key.Y = curve.ScalarBaseMult(b)

		return PrivateKey{algo: algo, key: key}, nil
	case ECDSA_secp256k1:
		key, err := gethcrypto.ToECDSA(b)
		if err != nil {
			return PrivateKey{}, fmt.Errorf("invalid private key: %w", err)
		}

		return PrivateKey{algo: algo, key: key}, nil
	default:
		return PrivateKey{}, fmt.Errorf("unsupported signature algorithm %s", algo)
	}
}

// Algorithm returns the signature algorithm of the key.
func (k PrivateKey) Algorithm() SignatureAlgorithm { return k.algo }

// Encode returns the 32 byte scalar.
func (k PrivateKey) Encode() []byte {
	return padScalar(k.key.D)
}

// Hex returns the scalar as hex without a prefix.
func (k PrivateKey) Hex() string {
	return hex.EncodeToString(k.Encode())
}

// PublicKey returns the public half of the key.
func (k PrivateKey) PublicKey() PublicKey {
	return PublicKey{algo: k.algo, key: &k.key.PublicKey}
}

// IsZero reports whether the key is unset.
func (k PrivateKey) IsZero() bool { return k.key == nil }

// Algorithm returns the signature algorithm of the key.
func (k PublicKey) Algorithm() SignatureAlgorithm { return k.algo }

// Encode returns X||Y, 64 bytes, the format Flow stores account keys in.
func (k PublicKey) Encode() []byte {
	out := make([]byte, 0, 2*scalarLen)
	out = append(out, padScalar(k.key.X)...)

	return append(out, padScalar(k.key.Y)...)
}

// Hex returns the encoded key as hex without a prefix.
func (k PublicKey) Hex() string {
	return hex.EncodeToString(k.Encode())
}

// Verify checks an r||s signature over message hashed with hashAlgo.
func (k PublicKey) Verify(sig, message []byte, hashAlgo HashAlgorithm) (bool, error) {
	if len(sig) != 2*scalarLen {
		return false, nil
	}
	digest, err := hashAlgo.Sum(message)
	if err != nil {
		return false, err
	}
	r := new(big.Int).SetBytes(sig[:scalarLen])
	s := new(big.Int).SetBytes(sig[scalarLen:])

	return ecdsa.Verify(k.key, digest, r, s), nil
}

func padScalar(n *big.Int) []byte {
	out := make([]byte, scalarLen)
	n.FillBytes(out)

	return out
}

// DecodePublicKey decodes an X||Y encoded public key.
func DecodePublicKey(algo SignatureAlgorithm, b []byte) (PublicKey, error) {
	if len(b) != 2*scalarLen {
		return PublicKey{}, fmt.Errorf("invalid public key length %d", len(b))
	}

	switch algo {
	case ECDSA_P256:
		curve := elliptic.P256()
		x := new(big.Int).SetBytes(b[:scalarLen])
		y := new(big.Int).SetBytes(b[scalarLen:])
		if !curve.IsOnCurve(x, y) {
			return PublicKey{}, errors.New("invalid public key: point is not on curve")
		}

		return PublicKey{algo: algo, key: &ecdsa.PublicKey{Curve: curve, X: x, Y: y}}, nil
	case ECDSA_secp256k1:
		key, err := gethcrypto.UnmarshalPubkey(append([]byte{0x04}, b...))
		if err != nil {
			return PublicKey{}, fmt.Errorf("invalid public key: %w", err)
		}

		return PublicKey{algo: algo, key: key}, nil
	default:
		return PublicKey{}, fmt.Errorf("unsupported signature algorithm %s", algo)
	}
}
