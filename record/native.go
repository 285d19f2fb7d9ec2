package record

import (
	"fmt"
	"math"

	"github.com/oschwald/maxminddb-golang/v2/mmdbdata"
)

// Native converts v into plain Go values following the package numeric policy.
func Native(v Value) any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt32:
		return NarrowInt(v.Int)
	case KindUint16, KindUint32, KindUint64:
		return nativeUnsigned(v.Uint)
	case KindUint128:
		return nativeUint128(v.UintHi, v.Uint)
	case KindFloat32, KindFloat64:
		return v.Float
	case KindString:
		return v.String
	case KindBytes:
		out := make([]byte, len(v.Bytes))
		copy(out, v.Bytes)
		return out
	case KindSlice:
		s := make([]any, len(v.Slice))
		for i, elem := range v.Slice {
			s[i] = Native(elem)
		}
		return s
	case KindMap:
		m := make(map[string]any, len(v.Map))
		for _, e := range v.Map {
			m[e.Key] = Native(e.Value)
		}
		return m
	default:
		return nil
	}
}

// NarrowInt returns n as int when it fits in 32 bits and as int64 otherwise.
func NarrowInt(n int64) any {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return int(n)
	}
	return n
}

func nativeUnsigned(n uint64) any {
	if n <= math.MaxInt {
		return int(n)
	}
	return n
}

func nativeUint128(hi, lo uint64) any {
	if hi == 0 {
		return nativeUnsigned(lo)
	}
	return uint128(hi, lo)
}

// Any decodes a record straight into plain Go values.
//
// It produces the same result as Native(Decode(d)) without building the
// intermediate Value tree.
type Any struct {
	V any
}

// UnmarshalMaxMindDB implements mmdbdata.Unmarshaler.
func (a *Any) UnmarshalMaxMindDB(d *mmdbdata.Decoder) error {
	v, err := decodeNative(d)
	if err != nil {
		return err
	}
	a.V = v
	return nil
}

func decodeNative(d *mmdbdata.Decoder) (any, error) {
	kind, err := d.PeekKind()
	if err != nil {
		return nil, decodeError(err)
	}

	switch kind {
	case mmdbdata.KindMap:
		entries, size, err := d.ReadMap()
		if err != nil {
			return nil, decodeError(err)
		}
		m := make(map[string]any, min(int(size), maxPrealloc))
		for key, err := range entries {
			if err != nil {
				return nil, decodeError(err)
			}
			k, err := mapKey(key)
			if err != nil {
				return nil, err
			}
			val, err := decodeNative(d)
			if err != nil {
				return nil, withKey(err, k)
			}
			m[k] = val
		}
		return m, nil
	case mmdbdata.KindSlice:
		elems, size, err := d.ReadSlice()
		if err != nil {
			return nil, decodeError(err)
		}
		s := make([]any, 0, min(int(size), maxPrealloc))
		for err := range elems {
			if err != nil {
				return nil, decodeError(err)
			}
			val, err := decodeNative(d)
			if err != nil {
				return nil, withIndex(err, len(s))
			}
			s = append(s, val)
		}
		return s, nil
	case mmdbdata.KindString:
		return readString(d)
	case mmdbdata.KindBytes:
		return readBytes(d)
	case mmdbdata.KindBool:
		b, err := d.ReadBool()
		if err != nil {
			return nil, decodeError(err)
		}
		return b, nil
	case mmdbdata.KindInt32:
		n, err := d.ReadInt32()
		if err != nil {
			return nil, decodeError(err)
		}
		return int(n), nil
	case mmdbdata.KindUint16:
		n, err := d.ReadUint16()
		if err != nil {
			return nil, decodeError(err)
		}
		return int(n), nil
	case mmdbdata.KindUint32:
		n, err := d.ReadUint32()
		if err != nil {
			return nil, decodeError(err)
		}
		return nativeUnsigned(uint64(n)), nil
	case mmdbdata.KindUint64:
		n, err := d.ReadUint64()
		if err != nil {
			return nil, decodeError(err)
		}
		return nativeUnsigned(n), nil
	case mmdbdata.KindUint128:
		hi, lo, err := d.ReadUint128()
		if err != nil {
			return nil, decodeError(err)
		}
		return nativeUint128(hi, lo), nil
	case mmdbdata.KindFloat32:
		f, err := d.ReadFloat32()
		if err != nil {
			return nil, decodeError(err)
		}
		return float64(f), nil
	case mmdbdata.KindFloat64:
		f, err := d.ReadFloat64()
		if err != nil {
			return nil, decodeError(err)
		}
		return f, nil
	default:
		return nil, decodeError(fmt.Errorf("%w: kind %d", ErrUnsupportedKind, kind))
	}
}
