package geodb

import (
	"context"
	"fmt"
	"iter"
	"net/netip"
	"time"

	"github.com/hupe1980/geodb/record"
)

// Network is one network of the database together with its record.
type Network struct {
	Prefix netip.Prefix
	Record any
}

// EachFunc is called for every network with data. Returning false stops the
// iteration.
type EachFunc func(network netip.Prefix, record any) bool

// Each calls fn for every network in the database that has a record.
//
// Networks are visited in search tree order. Aliases of the IPv4 space inside
// IPv6 databases are skipped, so every network is visited exactly once.
func (r *Reader) Each(fn EachFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: missing callback", ErrInvalidArgument)
	}
	if r.closed.Load() {
		return ErrClosed
	}
	return r.EachWithin(r.fullSpace(), fn)
}

// EachWithin is like Each but only visits networks inside prefix.
func (r *Reader) EachWithin(prefix netip.Prefix, fn EachFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: missing callback", ErrInvalidArgument)
	}
	for n, err := range r.Networks(prefix) {
		if err != nil {
			return err
		}
		if !fn(n.Prefix, n.Record) {
			return nil
		}
	}
	return nil
}

// Networks returns an iterator over the networks inside prefix that have a
// record. An error is yielded at most once and ends the iteration.
//
// The iterator holds its own reference to the database, so the bytes stay
// valid until it returns even if the Reader is closed. It checks for Close
// before every step and yields ErrClosed once it is observed.
func (r *Reader) Networks(prefix netip.Prefix) iter.Seq2[Network, error] {
	return func(yield func(Network, error) bool) {
		var (
			start = time.Now()
			count int
			err   error
		)
		defer func() {
			r.metrics.RecordIteration(count, time.Since(start), err)
			r.logger.LogIteration(context.Background(), prefix, count, err)
		}()

		count, err = r.walk(prefix, yield)
		if err != nil {
			yield(Network{}, err)
		}
	}
}

// walk runs the iteration and returns the number of networks yielded.
// Errors are returned rather than yielded.
func (r *Reader) walk(prefix netip.Prefix, yield func(Network, error) bool) (count int, err error) {
	if !prefix.IsValid() {
		return 0, fmt.Errorf("%w: invalid network %q", ErrInvalidArgument, prefix.String())
	}
	prefix = prefix.Masked()

	src, err := r.acquire()
	if err != nil {
		return 0, err
	}
	defer src.Release()

	if err := r.checkAddr(prefix.Addr()); err != nil {
		return 0, err
	}

	// Panics raised by the caller's loop body are not ours to translate.
	inYield := false
	defer func() {
		if p := recover(); p != nil {
			if inYield {
				panic(p)
			}
			err = fmt.Errorf("%w: %v", ErrLookup, p)
		}
	}()

	for res := range src.Reader().NetworksWithin(prefix) {
		if r.closed.Load() {
			return count, ErrClosed
		}
		if err := res.Err(); err != nil {
			return count, dataError(err)
		}

		var out record.Any
		if err := res.Decode(&out); err != nil {
			return count, dataError(err)
		}

		count++
		inYield = true
		more := yield(Network{Prefix: r.canonicalPrefix(res.Prefix()), Record: out.V}, nil)
		inYield = false
		if !more {
			return count, nil
		}
	}
	return count, nil
}

func (r *Reader) fullSpace() netip.Prefix {
	if r.meta.IPVersion == 4 {
		return netip.PrefixFrom(netip.IPv4Unspecified(), 0)
	}
	return netip.PrefixFrom(netip.IPv6Unspecified(), 0)
}

// canonicalPrefix reports networks of the IPv4 subtree (::/96) of an IPv6
// database as IPv4 networks, the same way lookups report them.
func (r *Reader) canonicalPrefix(p netip.Prefix) netip.Prefix {
	addr := p.Addr()
	if r.meta.IPVersion != 6 || !addr.Is6() || p.Bits() < 96 {
		return p
	}
	b := addr.As16()
	for _, x := range b[:12] {
		if x != 0 {
			return p
		}
	}
	return netip.PrefixFrom(netip.AddrFrom4([4]byte(b[12:])), p.Bits()-96)
}
