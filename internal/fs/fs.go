package fs

import (
	"io"
	"os"
)

// File represents an open, read-only file.
type File interface {
	io.Reader
	io.ReaderAt
	io.Closer
	Stat() (os.FileInfo, error)
}

// FileSystem abstracts file system operations for testability.
type FileSystem interface {
	Open(name string) (File, error)
	Stat(name string) (os.FileInfo, error)
}

// LocalFS implements FileSystem using the local os package.
type LocalFS struct{}

func (LocalFS) Open(name string) (File, error) {
	// Return a nil interface, not a typed nil *os.File, on failure.
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (LocalFS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

// Default is the default local file system.
var Default FileSystem = LocalFS{}

// OSFile returns the *os.File behind f, if there is one.
func OSFile(f File) (*os.File, bool) {
	osf, ok := f.(*os.File)
	return osf, ok
}
