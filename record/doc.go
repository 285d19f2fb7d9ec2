// Package record decodes MaxMind DB data-section values into Go values.
//
// Decoding is split in two steps that can be used and tested on their own:
//
//   - Decode walks the self-describing value stream exposed by
//     mmdbdata.Decoder and produces a Value, a tagged variant that keeps the
//     source type and map key order.
//   - Native bridges a Value into plain Go containers
//     (map[string]any, []any, string, int, ...).
//
// Lookups on the hot path use Any, which fuses both steps and skips the
// intermediate tree. Native(Decode(x)) and Any always agree.
//
// # Numeric Policy
//
//	bool                 -> bool
//	int32                -> int
//	uint16/32/64/128     -> int if it fits, else uint64, else *big.Int
//	float32, float64     -> float64
//	utf8_string          -> string (validated)
//	bytes                -> []byte (copied)
//	array                -> []any
//	map                  -> map[string]any (keys validated as UTF-8)
//
// 128-bit integers never lose precision.
package record
