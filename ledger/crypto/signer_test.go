package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d"

func TestDecodePrivateKeyHex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    string
		algo    SignatureAlgorithm
		wantErr string
	}{
		{name: "valid p256", give: testKeyHex, algo: ECDSA_P256},
		{name: "valid secp256k1 with prefix", give: "0x" + testKeyHex, algo: ECDSA_secp256k1},
		{name: "too short", give: "abcd", algo: ECDSA_P256, wantErr: "must be 32 bytes"},
		{
			name:    "not hex",
			give:    "zz3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d",
			algo:    ECDSA_P256,
			wantErr: "invalid hex private key",
		},
		{
			name:    "zero scalar",
			give:    "0000000000000000000000000000000000000000000000000000000000000000",
			algo:    ECDSA_P256,
			wantErr: "scalar out of range",
		},
		{name: "unknown algorithm", give: testKeyHex, algo: UnknownSignatureAlgorithm, wantErr: "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			key, err := DecodePrivateKeyHex(tt.algo, tt.give)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, testKeyHex, key.Hex())
			assert.Equal(t, tt.algo, key.Algorithm())
			assert.Len(t, key.PublicKey().Encode(), 64)
		})
	}
}

func TestInMemorySigner_SignVerify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		algo SignatureAlgorithm
		hash HashAlgorithm
	}{
		{name: "p256 sha3", algo: ECDSA_P256, hash: SHA3_256},
		{name: "p256 sha2", algo: ECDSA_P256, hash: SHA2_256},
		{name: "secp256k1 sha3", algo: ECDSA_secp256k1, hash: SHA3_256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			key, err := GeneratePrivateKey(tt.algo)
			require.NoError(t, err)
			signer, err := NewInMemorySigner(key, tt.hash)
			require.NoError(t, err)

			msg := []byte("FLOW-V0.0-transaction payload")
			sig, err := signer.Sign(msg)
			require.NoError(t, err)
			require.Len(t, sig, 64)

			ok, err := signer.PublicKey().Verify(sig, msg, tt.hash)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = signer.PublicKey().Verify(sig, []byte("tampered"), tt.hash)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestNewInMemorySigner_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewInMemorySigner(PrivateKey{}, SHA3_256)
	require.ErrorContains(t, err, "private key is required")

	key, err := GeneratePrivateKey(ECDSA_P256)
	require.NoError(t, err)
	_, err = NewInMemorySigner(key, UnknownHashAlgorithm)
	require.ErrorContains(t, err, "unsupported hash algorithm")
}

func TestParseAlgorithms(t *testing.T) {
	t.Parallel()

	sig, err := ParseSignatureAlgorithm("ecdsa_p256")
	require.NoError(t, err)
	assert.Equal(t, ECDSA_P256, sig)
	assert.Equal(t, "ECDSA_P256", sig.String())

	sig, err = ParseSignatureAlgorithm("ECDSA_secp256k1")
	require.NoError(t, err)
	assert.Equal(t, ECDSA_secp256k1, sig)

	_, err = ParseSignatureAlgorithm("ed25519")
	require.ErrorContains(t, err, "unsupported signature algorithm")

	h, err := ParseHashAlgorithm("sha3_256")
	require.NoError(t, err)
	assert.Equal(t, SHA3_256, h)
	assert.Equal(t, "SHA3_256", h.String())

	_, err = ParseHashAlgorithm("keccak")
	require.ErrorContains(t, err, "unsupported hash algorithm")
}

func TestDecodePublicKey(t *testing.T) {
	t.Parallel()

	for _, algo := range []SignatureAlgorithm{ECDSA_P256, ECDSA_secp256k1} {
		t.Run(algo.String(), func(t *testing.T) {
			t.Parallel()

			key, err := GeneratePrivateKey(algo)
			require.NoError(t, err)
			encoded := key.PublicKey().Encode()

			pub, err := DecodePublicKey(algo, encoded)
			require.NoError(t, err)
			assert.Equal(t, encoded, pub.Encode())
			assert.Equal(t, key.PublicKey().Hex(), pub.Hex())
		})
	}

	_, err := DecodePublicKey(ECDSA_P256, make([]byte, 64))
	require.ErrorContains(t, err, "not on curve")

	_, err = DecodePublicKey(ECDSA_P256, []byte{1, 2})
	require.ErrorContains(t, err, "invalid public key length")
}
