// Package cadence models the subset of Cadence values exchanged with the Flow Access API in the
// JSON-Cadence Data Interchange Format: script arguments, script results and event payloads.
package cadence

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Value is a Cadence value.
type Value interface {
	// Type returns the JSON-Cadence type name, e.g. "String" or "Optional".
	Type() string
	fmt.Stringer
}

type (
	Void   struct{}
	Bool   bool
	String string
	UInt8  uint8
	UInt64 uint64
	// UFix64 is a fixed point number with 8 decimal places, stored scaled by 1e8.
	UFix64 uint64
	// Address is a Flow account address.
	Address [8]byte
	// Array is a variable sized Cadence array.
	Array []Value
)

// Int is an arbitrary precision signed integer.
type Int struct {
	Value *big.Int
}

// NewInt returns an Int holding i.
func NewInt(i int64) Int {
	return Int{Value: big.NewInt(i)}
}

// Optional wraps a value that may be nil.
type Optional struct {
	Value Value
}

// NewOptional returns an Optional holding v. A nil v is the Cadence nil.
func NewOptional(v Value) Optional {
	return Optional{Value: v}
}

// KeyValuePair is a single Dictionary entry.
type KeyValuePair struct {
	Key   Value
	Value Value
}

// Dictionary is an ordered list of key value pairs.
type Dictionary []KeyValuePair

// CompositeKind distinguishes Struct, Resource and Event values, which share their encoding.
type CompositeKind string

const (
	KindStruct   CompositeKind = "Struct"
	KindResource CompositeKind = "Resource"
	KindEvent    CompositeKind = "Event"
)

// Field is a named field of a Composite.
type Field struct {
	Name  string
	Value Value
}

// Composite is a Struct, Resource or Event value identified by its fully qualified type ID,
// e.g. "A.ba1132bc08f82fe2.Profile.ReadOnly".
type Composite struct {
	Kind   CompositeKind
	ID     string
	Fields []Field
}

// Unsupported carries a value of a type this package does not model, kept as raw JSON.
type Unsupported struct {
	TypeName string
	Raw      []byte
}

func (Void) Type() string        { return "Void" }
func (Bool) Type() string        { return "Bool" }
func (String) Type() string      { return "String" }
func (UInt8) Type() string       { return "UInt8" }
func (UInt64) Type() string      { return "UInt64" }
func (UFix64) Type() string      { return "UFix64" }
func (Address) Type() string     { return "Address" }
func (Array) Type() string       { return "Array" }
func (Int) Type() string         { return "Int" }
func (Optional) Type() string    { return "Optional" }
func (Dictionary) Type() string  { return "Dictionary" }
func (c Composite) Type() string { return string(c.Kind) }
func (u Unsupported) Type() string {
	return u.TypeName
}

func (Void) String() string     { return "()" }
func (b Bool) String() string   { return strconv.FormatBool(bool(b)) }
func (s String) String() string { return strconv.Quote(string(s)) }
func (u UInt8) String() string  { return strconv.FormatUint(uint64(u), 10) }
func (u UInt64) String() string { return strconv.FormatUint(uint64(u), 10) }

func (u UFix64) String() string {
	return fmt.Sprintf("%d.%08d", uint64(u)/1e8, uint64(u)%1e8)
}

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Array) String() string {
	parts := make([]string, len(a))
	for i, v := range a {
		parts[i] = v.String()
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

func (i Int) String() string {
	if i.Value == nil {
		return "0"
	}

	return i.Value.String()
}

func (o Optional) String() string {
	if o.Value == nil {
		return "nil"
	}

	return o.Value.String()
}

func (d Dictionary) String() string {
	parts := make([]string, len(d))
	for i, kv := range d {
		parts[i] = kv.Key.String() + ": " + kv.Value.String()
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

func (c Composite) String() string {
	parts := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		parts[i] = f.Name + ": " + f.Value.String()
	}

	return c.ID + "(" + strings.Join(parts, ", ") + ")"
}

func (u Unsupported) String() string { return string(u.Raw) }

// Field returns the value of the named field.
func (c Composite) Field(name string) (Value, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}

	return nil, false
}

// StringField returns the named field as a Go string, unwrapping an Optional. ok is false when
// the field is missing, nil or not a String.
func (c Composite) StringField(name string) (s string, ok bool) {
	v, found := c.Field(name)
	if !found {
		return "", false
	}
	str, isStr := Unwrap(v).(String)
	if !isStr {
		return "", false
	}

	return string(str), true
}

// AddressField returns the named field as an Address, unwrapping an Optional.
func (c Composite) AddressField(name string) (Address, bool) {
	v, found := c.Field(name)
	if !found {
		return Address{}, false
	}
	addr, isAddr := Unwrap(v).(Address)

	return addr, isAddr
}

// Unwrap strips any number of Optional layers. It returns nil for a Cadence nil.
func Unwrap(v Value) Value {
	for {
		opt, ok := v.(Optional)
		if !ok {
			return v
		}
		v = opt.Value
	}
}
