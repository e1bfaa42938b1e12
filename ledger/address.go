package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/flowdapp/profile-dapp/ledger/cadence"
)

// AddressLength is the byte length of a Flow account address.
const AddressLength = 8

// Address is a Flow account address.
type Address [AddressLength]byte

// EmptyAddress is the zero address. It never identifies an account.
var EmptyAddress = Address{}

// ParseAddress parses a hex address with or without the 0x prefix.
func ParseAddress(s string) (Address, error) {
	a, err := cadence.ParseAddress(strings.TrimSpace(s))
	if err != nil {
		return EmptyAddress, err
	}

	return Address(a), nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}

	return a
}

// BytesToAddress left pads b to an address. Longer inputs keep the trailing bytes.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)

	return a
}

// IsZero reports whether a is the empty address.
func (a Address) IsZero() bool { return a == EmptyAddress }

// Hex returns the address as 16 hex characters without a prefix, the Access API format.
func (a Address) Hex() string { return hex.EncodeToString(a[:]) }

// String returns the 0x prefixed hex address.
func (a Address) String() string { return "0x" + a.Hex() }

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte { return append([]byte(nil), a[:]...) }

// Cadence returns the address as a Cadence value.
func (a Address) Cadence() cadence.Address { return cadence.Address(a) }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed

	return nil
}

// Identifier is a 32 byte block, collection or transaction ID.
type Identifier [32]byte

// TransactionID identifies a submitted transaction.
type TransactionID = Identifier

// ParseIdentifier parses a 64 character hex identifier.
func ParseIdentifier(s string) (Identifier, error) {
	var id Identifier
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return id, fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("invalid identifier %q: want %d bytes, got %d", s, len(id), len(b))
	}
	copy(id[:], b)

	return id, nil
}

// IsZero reports whether id is unset.
func (id Identifier) IsZero() bool { return id == Identifier{} }

// Hex returns the identifier as hex without a prefix.
func (id Identifier) Hex() string { return hex.EncodeToString(id[:]) }

// String implements fmt.Stringer.
func (id Identifier) String() string { return id.Hex() }
