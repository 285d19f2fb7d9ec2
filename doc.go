// Package geodb reads MaxMind DB (.mmdb) geolocation databases.
//
// A database maps IP networks to records: maps, arrays, strings, numbers and
// booleans. geodb opens a database once and answers lookups from any number
// of goroutines.
//
// # Quick Start
//
//	r, err := geodb.Open("GeoLite2-City.mmdb", geodb.ModeAuto)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	rec, err := r.Get("81.2.69.160")
//	// rec is a map[string]any, or nil if the address has no record.
//
// # Modes
//
// ModeMMap maps the file read-only; ModeMemory reads it into memory. ModeAuto
// maps plain files and loads gzip, zstd or LZ4 compressed files into memory.
// In-memory loads can be bounded with WithMemoryLimit, WithLoadRateLimit or a
// shared Controller.
//
// # Records
//
// Records are decoded into plain Go values:
//
//	map          -> map[string]any
//	array        -> []any
//	utf8_string  -> string
//	bytes        -> []byte
//	int32        -> int
//	uint16..128  -> int, or uint64 / *big.Int when the value does not fit
//	float/double -> float64
//	boolean      -> bool
//
// Decode fills a caller-supplied struct instead, using `maxminddb` tags.
//
// # Iteration
//
// Each, EachWithin and Networks visit every network that has a record:
//
//	for n, err := range r.Networks(netip.MustParsePrefix("81.2.69.0/24")) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(n.Prefix, n.Record)
//	}
//
// # Closing
//
// Close is idempotent. Operations started after Close fail with ErrClosed.
// Lookups and iterations already in progress keep the database bytes alive
// until they finish; iterations stop with ErrClosed at their next step.
package geodb
