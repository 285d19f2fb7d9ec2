package source

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the database file does not exist.
	ErrNotFound = errors.New("database file not found")

	// ErrIO is returned when the file cannot be opened, mapped or read.
	ErrIO = errors.New("database file could not be read")

	// ErrInvalidDatabase is returned when the bytes are not a MaxMind DB.
	ErrInvalidDatabase = errors.New("invalid database")

	// ErrInvalidArgument is returned for unusable open parameters.
	ErrInvalidArgument = errors.New("invalid argument")
)

// InvalidDatabaseError reports a file that the format library rejected.
//
// It matches ErrInvalidDatabase with errors.Is. The underlying error can be
// accessed via errors.Unwrap.
type InvalidDatabaseError struct {
	Path  string
	cause error
}

func (e *InvalidDatabaseError) Error() string {
	return fmt.Sprintf("error opening database file (%s): is this a valid MaxMind DB file?", e.Path)
}

func (e *InvalidDatabaseError) Unwrap() error { return e.cause }

// Is reports whether target is ErrInvalidDatabase.
func (e *InvalidDatabaseError) Is(target error) bool { return target == ErrInvalidDatabase }
