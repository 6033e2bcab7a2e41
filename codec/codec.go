// Package codec implements the self-describing binary framing used by
// the WAL and by segment files: every key and value is a typed scalar
// drawn from a closed set (int64, float64, interned symbol, or opaque
// string) and is serialized as a tag byte, an optional length header,
// and a payload.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/elbow-jason/lsmt-elixir/errs"
)

// Tag bytes identify the type of a frame.
const (
	TagFloat  byte = 'f' // 0x66
	TagInt    byte = 'i' // 0x69
	TagSymbol byte = 'a' // 0x61
	TagString byte = 's' // 0x73
)

// kind is the internal discriminant for Value; it mirrors the wire tag
// but is kept private so callers always go through the constructors.
type kind byte

// Value is a tagged-variant scalar: exactly one of the typed fields is
// meaningful, selected by Tag(). This replaces dynamic dispatch on a
// runtime type with a single encode/decode switch per tag.
type Value struct {
	tag kind
	i   int64
	f   float64
	sym string
	b   []byte
}

// Int64 constructs a signed 64-bit integer value.
func Int64(v int64) Value { return Value{tag: kind(TagInt), i: v} }

// Float64 constructs an IEEE-754 double value.
func Float64(v float64) Value { return Value{tag: kind(TagFloat), f: v} }

// Symbol constructs an interned symbolic name. Symbol does not itself
// intern the name; see Intern.
func Symbol(name string) Value { return Value{tag: kind(TagSymbol), sym: name} }

// Bytes constructs an opaque UTF-8-ish string/byte value.
func Bytes(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{tag: kind(TagString), b: cp}
}

// Tag reports which of {TagFloat, TagInt, TagSymbol, TagString} v holds.
func (v Value) Tag() byte { return byte(v.tag) }

// Int64Value returns v's integer payload and whether v is an int64.
func (v Value) Int64Value() (int64, bool) {
	return v.i, v.tag == kind(TagInt)
}

// Float64Value returns v's float payload and whether v is a float64.
func (v Value) Float64Value() (float64, bool) {
	return v.f, v.tag == kind(TagFloat)
}

// SymbolName returns v's symbol name and whether v is a symbol.
func (v Value) SymbolName() (string, bool) {
	return v.sym, v.tag == kind(TagSymbol)
}

// BytesValue returns v's byte payload and whether v is a string value.
func (v Value) BytesValue() ([]byte, bool) {
	return v.b, v.tag == kind(TagString)
}

// Equal compares two values by logical content (not encoded bytes).
func (v Value) Equal(other Value) bool {
	if v.tag != other.tag {
		return false
	}
	switch byte(v.tag) {
	case TagFloat:
		return v.f == other.f
	case TagInt:
		return v.i == other.i
	case TagSymbol:
		return v.sym == other.sym
	case TagString:
		return string(v.b) == string(other.b)
	}
	return false
}

func (v Value) String() string {
	switch byte(v.tag) {
	case TagFloat:
		return fmt.Sprintf("Float64(%v)", v.f)
	case TagInt:
		return fmt.Sprintf("Int64(%d)", v.i)
	case TagSymbol:
		return fmt.Sprintf("Symbol(%q)", v.sym)
	case TagString:
		return fmt.Sprintf("Bytes(%q)", v.b)
	default:
		return "Value(invalid)"
	}
}

// Ser encodes v into its wire frame: tag byte, then a length field for
// variable-length tags, then the payload.
func Ser(v Value) []byte {
	switch byte(v.tag) {
	case TagFloat:
		buf := make([]byte, 9)
		buf[0] = TagFloat
		binary.BigEndian.PutUint64(buf[1:], encodeOrderedFloatBits(math.Float64bits(v.f)))
		return buf
	case TagInt:
		buf := make([]byte, 9)
		buf[0] = TagInt
		binary.BigEndian.PutUint64(buf[1:], uint64(v.i))
		return buf
	case TagSymbol:
		name := v.sym
		buf := make([]byte, 3+len(name))
		buf[0] = TagSymbol
		binary.BigEndian.PutUint16(buf[1:3], uint16(len(name)))
		copy(buf[3:], name)
		return buf
	case TagString:
		buf := make([]byte, 5+len(v.b))
		buf[0] = TagString
		binary.BigEndian.PutUint32(buf[1:5], uint32(len(v.b)))
		copy(buf[5:], v.b)
		return buf
	default:
		panic("codec: Ser called on zero-value Value")
	}
}

// encodeOrderedFloatBits maps an IEEE-754 bit pattern onto a uint64
// whose unsigned ordering matches the float's numeric ordering, so
// that the encoded bytes sort the same way the floats do.
//
// Positive numbers get their sign bit set (pushing them above all
// negatives); negative numbers get every bit flipped (reversing their
// naturally-inverted raw ordering).
func encodeOrderedFloatBits(bits uint64) uint64 {
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

// decodeOrderedFloatBits is the inverse of encodeOrderedFloatBits.
func decodeOrderedFloatBits(encoded uint64) uint64 {
	if encoded&(1<<63) != 0 {
		return encoded &^ (1 << 63)
	}
	return ^encoded
}

// SymbolTable is the pre-known identifier table symbols must resolve
// against. The decoder refuses to decode a symbol name that has not
// been interned, rather than interning it on the fly, so that hostile
// input cannot grow the table without bound.
type SymbolTable struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

// NewSymbolTable returns an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{names: make(map[string]struct{})}
}

// Intern registers name as a known symbol.
func (t *SymbolTable) Intern(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names[name] = struct{}{}
}

// Contains reports whether name has been interned.
func (t *SymbolTable) Contains(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.names[name]
	return ok
}

// defaultSymbols backs the package-level Intern/DecodeOne/DecodeMany
// convenience functions.
var defaultSymbols = NewSymbolTable()

// Intern registers name in the default symbol table.
func Intern(name string) { defaultSymbols.Intern(name) }

// Status is the outcome of decoding a single frame.
type Status uint8

const (
	// StatusOK means a full value was decoded.
	StatusOK Status = iota
	// StatusPartial means the tag is recognized but there is not yet
	// enough data to decode the length header or payload.
	StatusPartial
	// StatusDone means the input was empty.
	StatusDone
)

// DecodeOne decodes a single frame from data using the default symbol
// table. See DecodeOneWith for the explicit-table form.
func DecodeOne(data []byte) (Status, Value, []byte, error) {
	return DecodeOneWith(data, defaultSymbols)
}

// DecodeOneWith decodes a single frame from data against table.
func DecodeOneWith(data []byte, table *SymbolTable) (Status, Value, []byte, error) {
	if len(data) == 0 {
		return StatusDone, Value{}, data, nil
	}

	tag := data[0]
	switch tag {
	case TagFloat:
		if len(data) < 9 {
			return StatusPartial, Value{}, data, nil
		}
		payload := data[1:9]
		bits := decodeOrderedFloatBits(binary.BigEndian.Uint64(payload))
		f := math.Float64frombits(bits)
		if math.IsNaN(f) {
			return StatusOK, Value{}, nil, &errs.InvalidFloatEncoding{Bytes: append([]byte(nil), payload...)}
		}
		return StatusOK, Float64(f), data[9:], nil

	case TagInt:
		if len(data) < 9 {
			return StatusPartial, Value{}, data, nil
		}
		v := int64(binary.BigEndian.Uint64(data[1:9]))
		return StatusOK, Int64(v), data[9:], nil

	case TagSymbol:
		if len(data) < 3 {
			return StatusPartial, Value{}, data, nil
		}
		l := int(binary.BigEndian.Uint16(data[1:3]))
		need := 3 + l
		if len(data) < need {
			return StatusPartial, Value{}, data, nil
		}
		name := string(data[3:need])
		if !table.Contains(name) {
			return StatusOK, Value{}, nil, &errs.SymbolNotInterned{Name: name}
		}
		return StatusOK, Symbol(name), data[need:], nil

	case TagString:
		if len(data) < 5 {
			return StatusPartial, Value{}, data, nil
		}
		l := int(binary.BigEndian.Uint32(data[1:5]))
		need := 5 + l
		if len(data) < need {
			return StatusPartial, Value{}, data, nil
		}
		return StatusOK, Bytes(data[5:need]), data[need:], nil

	default:
		return StatusOK, Value{}, nil, &errs.UnknownTag{Tag: tag}
	}
}

// DecodeMany repeatedly applies DecodeOne against the default symbol
// table, returning every fully-decoded value in input order plus any
// undecoded tail (so the caller can concatenate more input and retry).
func DecodeMany(data []byte) ([]Value, []byte, error) {
	return DecodeManyWith(data, defaultSymbols)
}

// DecodeManyWith is DecodeMany against an explicit symbol table.
func DecodeManyWith(data []byte, table *SymbolTable) ([]Value, []byte, error) {
	var values []Value
	remaining := data
	for {
		status, v, rest, err := DecodeOneWith(remaining, table)
		if err != nil {
			return nil, nil, err
		}
		switch status {
		case StatusDone:
			return values, rest, nil
		case StatusPartial:
			return values, remaining, nil
		default:
			values = append(values, v)
			remaining = rest
		}
	}
}
