package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"slices"
	"sync/atomic"

	"github.com/hupe1980/geodb/internal/conv"
	"github.com/hupe1980/geodb/internal/fs"
	"github.com/hupe1980/geodb/internal/mmap"
	"github.com/hupe1980/geodb/internal/resource"
	"github.com/oschwald/maxminddb-golang/v2"
)

// DefaultChunkSize is the read granularity for buffered loads.
const DefaultChunkSize = 1 << 20

// Config holds the knobs used while opening a Source.
type Config struct {
	// Controller bounds memory and read throughput of buffered loads.
	// nil means unlimited.
	Controller *resource.Controller

	// AccessPattern is passed to the kernel for mapped sources.
	AccessPattern mmap.AccessPattern

	// ChunkSize is the read granularity for buffered loads.
	// Defaults to DefaultChunkSize.
	ChunkSize int

	// FS opens the database file. Defaults to fs.Default.
	// Only files backed by the operating system can be mapped.
	FS fs.FileSystem
}

// Source holds an opened database and the bytes backing it.
type Source struct {
	refs atomic.Int64

	path        string
	mode        Mode
	compression Compression

	reader  *maxminddb.Reader
	mapping *mmap.Mapping // nil for buffered sources
	buf     []byte        // nil for mapped sources

	ctrl     *resource.Controller
	reserved int64
}

// Open opens the database at path.
//
// ModeAuto resolves to ModeMMap, unless the file is compressed, in which
// case it resolves to ModeMemory. The returned Source holds one reference.
func Open(ctx context.Context, path string, mode Mode, cfg Config) (*Source, error) {
	if mode < ModeAuto || mode > ModeMemory {
		return nil, fmt.Errorf("%w: unsupported mode: %d", ErrInvalidArgument, int(mode))
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.FS == nil {
		cfg.FS = fs.Default
	}

	f, err := cfg.FS.Open(path)
	if err != nil {
		return nil, classifyOpenError(err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrIO, path)
	}

	header := make([]byte, 4)
	n, err := f.ReadAt(header, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	compression := Detect(header[:n])

	switch mode {
	case ModeAuto:
		if compression != CompressionNone {
			mode = ModeMemory
		} else {
			mode = ModeMMap
		}
	case ModeMMap:
		if compression != CompressionNone {
			return nil, fmt.Errorf("%w: %s is %s compressed and cannot be memory-mapped", ErrInvalidArgument, path, compression)
		}
	}

	s := &Source{
		path:        path,
		mode:        mode,
		compression: compression,
		ctrl:        cfg.Controller,
	}

	var data []byte
	if mode == ModeMMap {
		osf, ok := fs.OSFile(f)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot be memory-mapped", ErrIO, path)
		}
		m, err := mmap.Map(osf)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to memory-map database file: %w", ErrIO, err)
		}
		// Advice is a hint only.
		_ = m.Advise(cfg.AccessPattern)
		s.mapping = m
		data = m.Bytes()
	} else {
		var r io.Reader = resource.NewRateLimitedReader(ctx, f, cfg.Controller)
		r, closeDecoder, err := decompress(compression, r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s stream: %w", ErrInvalidDatabase, compression, err)
		}
		sizeHint := fi.Size()
		if compression != CompressionNone {
			sizeHint = -1
		}
		buf, reserved, err := load(ctx, r, sizeHint, cfg.ChunkSize, cfg.Controller)
		closeDecoder()
		if err != nil {
			return nil, err
		}
		s.buf = buf
		s.reserved = reserved
		data = buf
	}

	reader, err := maxminddb.OpenBytes(data)
	if err != nil {
		s.free()
		return nil, &InvalidDatabaseError{Path: path, cause: err}
	}
	s.reader = reader
	s.refs.Store(1)

	return s, nil
}

// load reads r into an owned buffer chunk by chunk. A non-negative sizeHint
// is the exact number of bytes expected and is reserved from ctrl up front;
// otherwise memory is reserved one chunk at a time.
func load(ctx context.Context, r io.Reader, sizeHint int64, chunkSize int, ctrl *resource.Controller) ([]byte, int64, error) {
	var (
		buf      []byte
		reserved int64
	)
	fail := func(err error) ([]byte, int64, error) {
		ctrl.ReleaseMemory(reserved)
		return nil, 0, err
	}
	reserve := func(n int64) error {
		if err := ctrl.AcquireMemory(n); err != nil {
			return fmt.Errorf("%w: loading database into memory: %w", ErrIO, err)
		}
		reserved += n
		return nil
	}

	if sizeHint >= 0 {
		n, err := conv.Int64ToInt(sizeHint)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: database file too large: %w", ErrIO, err)
		}
		if err := reserve(sizeHint); err != nil {
			return fail(err)
		}
		buf = make([]byte, 0, n)
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		want := chunkSize
		if sizeHint >= 0 {
			remaining := sizeHint - int64(len(buf))
			if remaining <= 0 {
				break
			}
			want = int(min(int64(want), remaining))
		} else if err := reserve(int64(want)); err != nil {
			return fail(err)
		}

		buf = slices.Grow(buf, want)
		n, err := io.ReadFull(r, buf[len(buf):len(buf)+want])
		buf = buf[:len(buf)+n]
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fail(err)
			}
			return fail(fmt.Errorf("%w: failed to read database file: %w", ErrIO, err))
		}
	}

	if unused := reserved - int64(len(buf)); unused > 0 {
		ctrl.ReleaseMemory(unused)
		reserved -= unused
	}

	return buf, reserved, nil
}

func classifyOpenError(err error) error {
	if errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}

// TryAcquire takes a reference. It fails once the last reference has been
// released.
func (s *Source) TryAcquire() bool {
	for {
		refs := s.refs.Load()
		if refs <= 0 {
			return false
		}
		if s.refs.CompareAndSwap(refs, refs+1) {
			return true
		}
	}
}

// Release drops a reference. The last release frees the database bytes.
func (s *Source) Release() {
	if s.refs.Add(-1) == 0 {
		s.free()
	}
}

// Refs returns the current reference count.
func (s *Source) Refs() int64 {
	return s.refs.Load()
}

func (s *Source) free() {
	if s.reader != nil {
		_ = s.reader.Close()
	}
	if s.mapping != nil {
		_ = s.mapping.Close()
	}
	s.buf = nil
	s.ctrl.ReleaseMemory(s.reserved)
	s.reserved = 0
}

// Reader returns the trie engine. Callers must hold a reference.
func (s *Source) Reader() *maxminddb.Reader {
	return s.reader
}

// Metadata returns the header snapshot taken at open time.
func (s *Source) Metadata() maxminddb.Metadata {
	return s.reader.Metadata
}

// Path returns the file the source was opened from.
func (s *Source) Path() string { return s.path }

// Mode returns the resolved mode, never ModeAuto.
func (s *Source) Mode() Mode { return s.mode }

// Compression returns the container format the file was stored in.
func (s *Source) Compression() Compression { return s.compression }

// Size returns the number of database bytes held in memory or mapped.
func (s *Source) Size() int {
	if s.mapping != nil {
		return s.mapping.Size()
	}
	return len(s.buf)
}
