package record

import "math/big"

// Kind identifies the source type of a decoded Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt32
	KindUint16
	KindUint32
	KindUint64
	KindUint128
	KindFloat32
	KindFloat64
	KindString
	KindBytes
	KindSlice
	KindMap
)

var kindNames = [...]string{
	KindNull:    "null",
	KindBool:    "boolean",
	KindInt32:   "int32",
	KindUint16:  "uint16",
	KindUint32:  "uint32",
	KindUint64:  "uint64",
	KindUint128: "uint128",
	KindFloat32: "float",
	KindFloat64: "double",
	KindString:  "utf8_string",
	KindBytes:   "bytes",
	KindSlice:   "array",
	KindMap:     "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a decoded data-section value that still knows its source type.
//
// Only the fields matching Kind are meaningful. The zero Value is null.
type Value struct {
	Kind Kind

	Bool bool
	// Int holds int32 values.
	Int int64
	// Uint holds uint16/32/64 values and the low 64 bits of a uint128.
	Uint uint64
	// UintHi holds the high 64 bits of a uint128.
	UintHi uint64
	// Float holds float64 values and float32 values widened to float64.
	Float  float64
	String string
	Bytes  []byte
	Slice  []Value
	// Map keeps entries in stream order.
	Map []Entry
}

// Entry is one key/value pair of a map Value.
type Entry struct {
	Key   string
	Value Value
}

// Get returns the value stored under key in a map Value.
func (v Value) Get(key string) (Value, bool) {
	for _, e := range v.Map {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// BigInt returns the unsigned integer held by v as a big.Int.
// It returns nil for non-unsigned kinds.
func (v Value) BigInt() *big.Int {
	switch v.Kind {
	case KindUint16, KindUint32, KindUint64:
		return new(big.Int).SetUint64(v.Uint)
	case KindUint128:
		return uint128(v.UintHi, v.Uint)
	default:
		return nil
	}
}

func uint128(hi, lo uint64) *big.Int {
	n := new(big.Int).SetUint64(hi)
	n.Lsh(n, 64)
	return n.Or(n, new(big.Int).SetUint64(lo))
}
