package geodb

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/geodb/internal/source"
	"github.com/hupe1980/geodb/record"
)

// Reader is a handle to an open database. It is safe for concurrent use.
//
// Lookups never hold a lock while reading the database. Close may be called
// at any time; operations started afterwards fail with ErrClosed, operations
// already running finish against the bytes they started with.
type Reader struct {
	mu     sync.RWMutex
	src    *source.Source // nil once closed
	closed atomic.Bool

	path string
	mode Mode
	meta Metadata

	logger  *Logger
	metrics MetricsCollector
}

// Open opens the database at path.
func Open(path string, mode Mode, opts ...Option) (*Reader, error) {
	return OpenContext(context.Background(), path, mode, opts...)
}

// OpenContext opens the database at path. ctx bounds loading the file into
// memory; it is not retained.
func OpenContext(ctx context.Context, path string, mode Mode, opts ...Option) (*Reader, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.WithPath(path)

	start := time.Now()
	if !mode.valid() {
		err := fmt.Errorf("%w: unsupported mode: %d", ErrInvalidArgument, int(mode))
		o.metricsCollector.RecordOpen(mode, time.Since(start), err)
		logger.LogOpen(ctx, 0, Metadata{}, err)
		return nil, err
	}

	src, err := source.Open(ctx, path, source.Mode(mode), source.Config{
		Controller:    o.resourceController(),
		AccessPattern: o.accessPattern,
		ChunkSize:     o.chunkSize,
	})
	if err != nil {
		err = translateError(err)
		o.metricsCollector.RecordOpen(mode, time.Since(start), err)
		logger.WithMode(mode).LogOpen(ctx, 0, Metadata{}, err)
		return nil, err
	}

	meta, err := newMetadata(src.Metadata())
	if err != nil {
		src.Release()
		err = &InvalidDatabaseError{Path: path, cause: err}
		o.metricsCollector.RecordOpen(mode, time.Since(start), err)
		logger.WithMode(mode).LogOpen(ctx, 0, Metadata{}, err)
		return nil, err
	}

	r := &Reader{
		src:     src,
		path:    path,
		mode:    Mode(src.Mode()),
		meta:    meta,
		logger:  logger.WithMode(Mode(src.Mode())),
		metrics: o.metricsCollector,
	}

	o.metricsCollector.RecordOpen(r.mode, time.Since(start), nil)
	r.logger.LogOpen(ctx, src.Size(), r.meta, nil)

	return r, nil
}

// acquire returns the source with a reference held for the caller.
// The lock covers only the slot read.
func (r *Reader) acquire() (*source.Source, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	r.mu.RLock()
	src := r.src
	ok := src != nil && src.TryAcquire()
	r.mu.RUnlock()

	if !ok {
		return nil, ErrClosed
	}
	return src, nil
}

// Get returns the record for the address literal ip, or nil if the database
// holds no record for it.
func (r *Reader) Get(ip string) (any, error) {
	rec, _, err := r.GetWithPrefixLen(ip)
	return rec, err
}

// GetWithPrefixLen is like Get and also returns the prefix length of the
// network the address belongs to. The prefix length is reported for absent
// records as well.
func (r *Reader) GetWithPrefixLen(ip string) (any, int, error) {
	addr, err := parseIP(ip)
	if err != nil {
		return nil, 0, err
	}
	rec, prefix, err := r.LookupPrefix(addr)
	if err != nil {
		return nil, 0, err
	}
	return rec, prefix.Bits(), nil
}

// Lookup returns the record for addr, or nil if there is none.
func (r *Reader) Lookup(addr netip.Addr) (any, error) {
	rec, _, err := r.LookupPrefix(addr)
	return rec, err
}

// LookupPrefix returns the record for addr and the network it belongs to.
func (r *Reader) LookupPrefix(addr netip.Addr) (rec any, network netip.Prefix, err error) {
	start := time.Now()
	defer func() {
		r.metrics.RecordLookup(time.Since(start), rec != nil, err)
		if err != nil && !errors.Is(err, ErrClosed) {
			r.logger.LogLookup(context.Background(), addr, err)
		}
	}()

	var out record.Any
	found, network, err := r.decode(addr, &out)
	if err != nil || !found {
		return nil, network, err
	}
	return out.V, network, nil
}

// Decode looks up addr and decodes its record into v, which must be a
// pointer. Struct fields are matched using `maxminddb` tags. It reports
// whether a record was found.
func (r *Reader) Decode(addr netip.Addr, v any) (bool, error) {
	if rv := reflect.ValueOf(v); rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false, fmt.Errorf("%w: decode target must be a non-nil pointer, got %T", ErrInvalidArgument, v)
	}

	start := time.Now()
	found, _, err := r.decode(addr, v)
	r.metrics.RecordLookup(time.Since(start), found, err)
	return found, err
}

func (r *Reader) decode(addr netip.Addr, v any) (found bool, network netip.Prefix, err error) {
	if !addr.IsValid() || addr.Zone() != "" {
		return false, netip.Prefix{}, &AddressError{Input: addrInput(addr)}
	}

	src, err := r.acquire()
	if err != nil {
		return false, netip.Prefix{}, err
	}
	defer src.Release()

	if err := r.checkAddr(addr); err != nil {
		return false, netip.Prefix{}, err
	}

	defer recoverLookup(&err)

	res := src.Reader().Lookup(addr)
	if err := res.Err(); err != nil {
		return false, netip.Prefix{}, dataError(err)
	}
	network = res.Prefix()
	if !res.Found() {
		return false, network, nil
	}
	if err := res.Decode(v); err != nil {
		return false, network, dataError(err)
	}
	return true, network, nil
}

// Metadata returns a copy of the database metadata.
func (r *Reader) Metadata() (Metadata, error) {
	src, err := r.acquire()
	if err != nil {
		return Metadata{}, err
	}
	defer src.Release()

	return r.meta.clone(), nil
}

// Path returns the path the database was opened from.
func (r *Reader) Path() string { return r.path }

// Mode returns the resolved mode. It is never ModeAuto.
func (r *Reader) Mode() Mode { return r.mode }

// Close closes the reader. It is safe to call more than once and never fails.
//
// The database bytes are released once every in-flight lookup and iteration
// has finished.
func (r *Reader) Close() error {
	if r.closed.Swap(true) {
		return nil
	}

	r.mu.Lock()
	src := r.src
	r.src = nil
	r.mu.Unlock()

	if src != nil {
		src.Release()
	}

	r.metrics.RecordClose()
	r.logger.LogClose(context.Background())
	return nil
}

// Closed reports whether Close has been called.
func (r *Reader) Closed() bool {
	return r.closed.Load()
}

func (r *Reader) checkAddr(addr netip.Addr) error {
	if r.meta.IPVersion == 4 && !addr.Is4() {
		return &IPVersionError{Addr: addr}
	}
	return nil
}

func parseIP(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || addr.Zone() != "" {
		return netip.Addr{}, &AddressError{Input: s}
	}
	return addr, nil
}

func addrInput(addr netip.Addr) string {
	if !addr.IsValid() {
		return ""
	}
	return addr.String()
}
