package cadence

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

type jsonValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

type jsonField struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type jsonComposite struct {
	ID     string      `json:"id"`
	Fields []jsonField `json:"fields"`
}

type jsonKeyValue struct {
	Key   json.RawMessage `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Encode returns the JSON-Cadence encoding of v.
func Encode(v Value) ([]byte, error) {
	if v == nil {
		return nil, errors.New("cannot encode nil value")
	}

	switch val := v.(type) {
	case Void:
		return json.Marshal(jsonValue{Type: val.Type()})
	case Optional:
		if val.Value == nil {
			return []byte(`{"type":"Optional","value":null}`), nil
		}
		inner, err := Encode(val.Value)
		if err != nil {
			return nil, err
		}

		return json.Marshal(jsonValue{Type: val.Type(), Value: inner})
	case Bool:
		return marshalTyped(val.Type(), bool(val))
	case String:
		return marshalTyped(val.Type(), string(val))
	case UInt8, UInt64, UFix64, Address, Int:
		return marshalTyped(val.Type(), val.String())
	case Array:
		items := make([]json.RawMessage, len(val))
		for i, item := range val {
			b, err := Encode(item)
			if err != nil {
				return nil, fmt.Errorf("array element %d: %w", i, err)
			}
			items[i] = b
		}

		return marshalTyped(val.Type(), items)
	case Dictionary:
		entries := make([]jsonKeyValue, len(val))
		for i, kv := range val {
			k, err := Encode(kv.Key)
			if err != nil {
				return nil, fmt.Errorf("dictionary key %d: %w", i, err)
			}
			ev, err := Encode(kv.Value)
			if err != nil {
				return nil, fmt.Errorf("dictionary value %d: %w", i, err)
			}
			entries[i] = jsonKeyValue{Key: k, Value: ev}
		}

		return marshalTyped(val.Type(), entries)
	case Composite:
		fields := make([]jsonField, len(val.Fields))
		for i, f := range val.Fields {
			b, err := Encode(f.Value)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			fields[i] = jsonField{Name: f.Name, Value: b}
		}

		return marshalTyped(val.Type(), jsonComposite{ID: val.ID, Fields: fields})
	case Unsupported:
		return marshalTyped(val.TypeName, json.RawMessage(val.Raw))
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// MustEncode is like Encode but panics on error. Use it for statically known values only.
func MustEncode(v Value) []byte {
	b, err := Encode(v)
	if err != nil {
		panic(err)
	}

	return b
}

func marshalTyped(typ string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return json.Marshal(jsonValue{Type: typ, Value: raw})
}

// Decode parses a JSON-Cadence encoded value.
func Decode(b []byte) (Value, error) {
	var jv jsonValue
	if err := json.Unmarshal(b, &jv); err != nil {
		return nil, fmt.Errorf("invalid JSON-Cadence value: %w", err)
	}

	return decodeValue(jv)
}

func decodeValue(jv jsonValue) (Value, error) {
	switch jv.Type {
	case "Void":
		return Void{}, nil
	case "Optional":
		if len(jv.Value) == 0 || string(jv.Value) == "null" {
			return Optional{}, nil
		}
		inner, err := Decode(jv.Value)
		if err != nil {
			return nil, err
		}

		return Optional{Value: inner}, nil
	case "Bool":
		var b bool
		if err := json.Unmarshal(jv.Value, &b); err != nil {
			return nil, fmt.Errorf("invalid Bool: %w", err)
		}

		return Bool(b), nil
	case "String":
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return nil, fmt.Errorf("invalid String: %w", err)
		}

		return String(s), nil
	case "UInt8":
		n, err := decodeUint(jv.Value, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid UInt8: %w", err)
		}

		return UInt8(n), nil
	case "UInt64":
		n, err := decodeUint(jv.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid UInt64: %w", err)
		}

		return UInt64(n), nil
	case "UFix64":
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return nil, fmt.Errorf("invalid UFix64: %w", err)
		}

		return ParseUFix64(s)
	case "Int":
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return nil, fmt.Errorf("invalid Int: %w", err)
		}
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid Int %q", s)
		}

		return Int{Value: n}, nil
	case "Address":
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return nil, fmt.Errorf("invalid Address: %w", err)
		}

		return ParseAddress(s)
	case "Array":
		var items []json.RawMessage
		if err := json.Unmarshal(jv.Value, &items); err != nil {
			return nil, fmt.Errorf("invalid Array: %w", err)
		}
		arr := make(Array, len(items))
		for i, item := range items {
			v, err := Decode(item)
			if err != nil {
				return nil, fmt.Errorf("array element %d: %w", i, err)
			}
			arr[i] = v
		}

		return arr, nil
	case "Dictionary":
		var entries []jsonKeyValue
		if err := json.Unmarshal(jv.Value, &entries); err != nil {
			return nil, fmt.Errorf("invalid Dictionary: %w", err)
		}
		dict := make(Dictionary, len(entries))
		for i, e := range entries {
			k, err := Decode(e.Key)
			if err != nil {
				return nil, fmt.Errorf("dictionary key %d: %w", i, err)
			}
			v, err := Decode(e.Value)
			if err != nil {
				return nil, fmt.Errorf("dictionary value %d: %w", i, err)
			}
			dict[i] = KeyValuePair{Key: k, Value: v}
		}

		return dict, nil
	case string(KindStruct), string(KindResource), string(KindEvent):
		var jc jsonComposite
		if err := json.Unmarshal(jv.Value, &jc); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", jv.Type, err)
		}
		c := Composite{Kind: CompositeKind(jv.Type), ID: jc.ID, Fields: make([]Field, len(jc.Fields))}
		for i, f := range jc.Fields {
			v, err := Decode(f.Value)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			c.Fields[i] = Field{Name: f.Name, Value: v}
		}

		return c, nil
	case "":
		return nil, errors.New("missing type")
	default:
		return Unsupported{TypeName: jv.Type, Raw: jv.Value}, nil
	}
}

func decodeUint(raw json.RawMessage, bits int) (uint64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}

	return strconv.ParseUint(s, 10, bits)
}

// ParseAddress parses a hex address with or without the 0x prefix. Short addresses are left
// padded with zeros.
func ParseAddress(s string) (Address, error) {
	var addr Address
	h := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(h) == 0 || len(h) > 2*len(addr) {
		return addr, fmt.Errorf("invalid address %q", s)
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", s, err)
	}
	copy(addr[len(addr)-len(b):], b)

	return addr, nil
}

// ParseUFix64 parses a decimal string with at most 8 fractional digits.
func ParseUFix64(s string) (UFix64, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 8 {
		return 0, fmt.Errorf("invalid UFix64 %q: too many decimal places", s)
	}
	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid UFix64 %q: %w", s, err)
	}
	var f uint64
	if frac != "" {
		f, err = strconv.ParseUint(frac+strings.Repeat("0", 8-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid UFix64 %q: %w", s, err)
		}
	}
	if w > (^uint64(0)-f)/1e8 {
		return 0, fmt.Errorf("invalid UFix64 %q: out of range", s)
	}

	return UFix64(w*1e8 + f), nil
}
