package record

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrInvalidUTF8 is returned when a string or map key is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")

	// ErrUnsupportedKind is returned for type tags that cannot appear in a record.
	ErrUnsupportedKind = errors.New("unsupported data type")
)

// DecodeError reports a malformed value in the data section.
//
// The underlying error can be accessed via errors.Unwrap.
type DecodeError struct {
	// Path locates the failing value inside the record, e.g. "city.names.en"
	// or "subdivisions[1]". Empty for the top-level value.
	Path  string
	cause error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("record: bad data: %v", e.cause)
	}
	return fmt.Sprintf("record: bad data at %s: %v", e.Path, e.cause)
}

func (e *DecodeError) Unwrap() error { return e.cause }

func decodeError(err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{cause: err}
}

func withKey(err error, key string) error {
	return prefixPath(err, key)
}

func withIndex(err error, i int) error {
	return prefixPath(err, "["+strconv.Itoa(i)+"]")
}

func prefixPath(err error, seg string) error {
	var de *DecodeError
	if !errors.As(err, &de) {
		return &DecodeError{Path: seg, cause: err}
	}
	switch {
	case de.Path == "":
		de.Path = seg
	case de.Path[0] == '[':
		de.Path = seg + de.Path
	default:
		de.Path = seg + "." + de.Path
	}
	return de
}
