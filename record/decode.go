package record

import (
	"fmt"
	"unicode/utf8"

	"github.com/oschwald/maxminddb-golang/v2/mmdbdata"
)

// maxPrealloc caps container pre-allocation so a corrupt size field cannot
// trigger a huge allocation before the truncation is noticed.
const maxPrealloc = 1 << 10

// Decode reads the next value from d into a Value.
func Decode(d *mmdbdata.Decoder) (Value, error) {
	kind, err := d.PeekKind()
	if err != nil {
		return Value{}, decodeError(err)
	}

	switch kind {
	case mmdbdata.KindMap:
		return decodeMap(d)
	case mmdbdata.KindSlice:
		return decodeSlice(d)
	case mmdbdata.KindString:
		s, err := readString(d)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindString, String: s}, nil
	case mmdbdata.KindBytes:
		b, err := readBytes(d)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBytes, Bytes: b}, nil
	case mmdbdata.KindBool:
		b, err := d.ReadBool()
		if err != nil {
			return Value{}, decodeError(err)
		}
		return Value{Kind: KindBool, Bool: b}, nil
	case mmdbdata.KindInt32:
		n, err := d.ReadInt32()
		if err != nil {
			return Value{}, decodeError(err)
		}
		return Value{Kind: KindInt32, Int: int64(n)}, nil
	case mmdbdata.KindUint16:
		n, err := d.ReadUint16()
		if err != nil {
			return Value{}, decodeError(err)
		}
		return Value{Kind: KindUint16, Uint: uint64(n)}, nil
	case mmdbdata.KindUint32:
		n, err := d.ReadUint32()
		if err != nil {
			return Value{}, decodeError(err)
		}
		return Value{Kind: KindUint32, Uint: uint64(n)}, nil
	case mmdbdata.KindUint64:
		n, err := d.ReadUint64()
		if err != nil {
			return Value{}, decodeError(err)
		}
		return Value{Kind: KindUint64, Uint: n}, nil
	case mmdbdata.KindUint128:
		hi, lo, err := d.ReadUint128()
		if err != nil {
			return Value{}, decodeError(err)
		}
		return Value{Kind: KindUint128, UintHi: hi, Uint: lo}, nil
	case mmdbdata.KindFloat32:
		f, err := d.ReadFloat32()
		if err != nil {
			return Value{}, decodeError(err)
		}
		return Value{Kind: KindFloat32, Float: float64(f)}, nil
	case mmdbdata.KindFloat64:
		f, err := d.ReadFloat64()
		if err != nil {
			return Value{}, decodeError(err)
		}
		return Value{Kind: KindFloat64, Float: f}, nil
	default:
		return Value{}, decodeError(fmt.Errorf("%w: kind %d", ErrUnsupportedKind, kind))
	}
}

// UnmarshalMaxMindDB implements mmdbdata.Unmarshaler.
func (v *Value) UnmarshalMaxMindDB(d *mmdbdata.Decoder) error {
	decoded, err := Decode(d)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func decodeMap(d *mmdbdata.Decoder) (Value, error) {
	entries, size, err := d.ReadMap()
	if err != nil {
		return Value{}, decodeError(err)
	}

	m := make([]Entry, 0, min(int(size), maxPrealloc))
	for key, err := range entries {
		if err != nil {
			return Value{}, decodeError(err)
		}
		k, err := mapKey(key)
		if err != nil {
			return Value{}, err
		}
		val, err := Decode(d)
		if err != nil {
			return Value{}, withKey(err, k)
		}
		m = append(m, Entry{Key: k, Value: val})
	}
	return Value{Kind: KindMap, Map: m}, nil
}

func decodeSlice(d *mmdbdata.Decoder) (Value, error) {
	elems, size, err := d.ReadSlice()
	if err != nil {
		return Value{}, decodeError(err)
	}

	s := make([]Value, 0, min(int(size), maxPrealloc))
	for err := range elems {
		if err != nil {
			return Value{}, decodeError(err)
		}
		val, err := Decode(d)
		if err != nil {
			return Value{}, withIndex(err, len(s))
		}
		s = append(s, val)
	}
	return Value{Kind: KindSlice, Slice: s}, nil
}

func readString(d *mmdbdata.Decoder) (string, error) {
	s, err := d.ReadString()
	if err != nil {
		return "", decodeError(err)
	}
	if !utf8.ValidString(s) {
		return "", decodeError(ErrInvalidUTF8)
	}
	return s, nil
}

func readBytes(d *mmdbdata.Decoder) ([]byte, error) {
	b, err := d.ReadBytes()
	if err != nil {
		return nil, decodeError(err)
	}
	// The decoder may hand out a view into the database; records must not
	// alias memory that goes away on Close.
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func mapKey(key []byte) (string, error) {
	if !utf8.Valid(key) {
		return "", decodeError(fmt.Errorf("%w in map key", ErrInvalidUTF8))
	}
	return string(key), nil
}
