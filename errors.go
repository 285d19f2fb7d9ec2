package geodb

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/hupe1980/geodb/internal/source"
	"github.com/hupe1980/geodb/record"
)

var (
	// ErrDatabaseNotFound is returned when the database file does not exist.
	// Such errors also match fs.ErrNotExist.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrIO is returned when the database file cannot be opened, mapped or read.
	ErrIO = errors.New("i/o error")

	// ErrInvalidDatabase is returned for files that are not MaxMind DBs and for
	// malformed data found during a lookup or iteration.
	ErrInvalidDatabase = errors.New("the MaxMind DB file's data section contains bad data")

	// ErrInvalidArgument is returned for unusable caller input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed is returned by every operation on a closed Reader.
	ErrClosed = errors.New("attempt to read from a closed MaxMind DB")

	// ErrLookup is returned when a lookup fails for a reason other than bad data.
	ErrLookup = errors.New("database lookup failed")
)

// InvalidDatabaseError indicates that the file at Path is not a MaxMind DB.
//
// It matches ErrInvalidDatabase. The original underlying error (if any) can be
// accessed via errors.Unwrap.
type InvalidDatabaseError struct {
	Path  string
	cause error
}

func (e *InvalidDatabaseError) Error() string {
	return fmt.Sprintf("error opening database file (%s): is this a valid MaxMind DB file?", e.Path)
}

func (e *InvalidDatabaseError) Unwrap() error { return e.cause }

func (e *InvalidDatabaseError) Is(target error) bool { return target == ErrInvalidDatabase }

// IPVersionError indicates an IPv6 address used against an IPv4-only database.
//
// It matches ErrInvalidArgument.
type IPVersionError struct {
	Addr netip.Addr
}

func (e *IPVersionError) Error() string {
	return fmt.Sprintf("error looking up %s: you attempted to look up an IPv6 address in an IPv4-only database", e.Addr)
}

func (e *IPVersionError) Is(target error) bool { return target == ErrInvalidArgument }

// AddressError indicates input that is not an IPv4 or IPv6 address.
//
// It matches ErrInvalidArgument.
type AddressError struct {
	Input string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("'%s' does not appear to be an IPv4 or IPv6 address", e.Input)
}

func (e *AddressError) Is(target error) bool { return target == ErrInvalidArgument }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var ide *source.InvalidDatabaseError
	if errors.As(err, &ide) {
		return &InvalidDatabaseError{Path: ide.Path, cause: err}
	}
	switch {
	case errors.Is(err, source.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrDatabaseNotFound, err)
	case errors.Is(err, source.ErrIO):
		return fmt.Errorf("%w: %w", ErrIO, err)
	case errors.Is(err, source.ErrInvalidArgument):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	case errors.Is(err, source.ErrInvalidDatabase):
		return fmt.Errorf("%w: %w", ErrInvalidDatabase, err)
	}

	var de *record.DecodeError
	if errors.As(err, &de) {
		return fmt.Errorf("%w: %w", ErrInvalidDatabase, err)
	}

	return err
}

// dataError classifies an error reported by the trie engine or the record
// decoder during a lookup or iteration.
func dataError(err error) error {
	if errors.Is(err, ErrInvalidDatabase) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidDatabase, err)
}

// recoverLookup turns a panic raised while reading the database into ErrLookup.
// It must be deferred directly.
func recoverLookup(err *error) {
	if p := recover(); p != nil {
		*err = fmt.Errorf("%w: %v", ErrLookup, p)
	}
}
