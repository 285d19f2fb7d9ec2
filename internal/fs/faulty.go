package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the default error returned by injected faults.
var ErrInjected = errors.New("injected fault error")

// Fault defines specific failure behavior.
type Fault struct {
	FailOnOpen     bool
	FailAfterBytes int64 // Fail reads after this many bytes read from this file. -1 to disable.
	Err            error
}

// FaultyFS is a FileSystem wrapper that can inject errors.
type FaultyFS struct {
	FS      FileSystem
	mu      sync.Mutex
	rules   map[string]Fault // Filename pattern -> Fault
	Default Fault            // Fallback
	read    int64
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default if nil).
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{
		FS:    fs,
		rules: make(map[string]Fault),
		Default: Fault{
			FailAfterBytes: -1, // No limit
		},
	}
}

// AddRule adds a fault injection rule for files whose name contains pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

// BytesRead returns the total bytes read through this file system.
func (f *FaultyFS) BytesRead() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read
}

func (f *FaultyFS) Open(name string) (File, error) {
	f.mu.Lock()
	fault := f.Default
	for pattern, rule := range f.rules {
		if strings.Contains(name, pattern) {
			fault = rule
		}
	}
	f.mu.Unlock()

	if fault.Err == nil {
		fault.Err = ErrInjected
	}
	if fault.FailOnOpen {
		return nil, &os.PathError{Op: "open", Path: name, Err: fault.Err}
	}

	file, err := f.FS.Open(name)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, fs: f, fault: fault}, nil
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	return f.FS.Stat(name)
}

type faultyFile struct {
	File
	fs    *FaultyFS
	fault Fault
	read  int64
}

func (ff *faultyFile) Read(p []byte) (int, error) {
	if err := ff.check(len(p)); err != nil {
		return 0, err
	}
	n, err := ff.File.Read(p)
	ff.count(n)
	return n, err
}

func (ff *faultyFile) ReadAt(p []byte, off int64) (int, error) {
	if err := ff.check(len(p)); err != nil {
		return 0, err
	}
	n, err := ff.File.ReadAt(p, off)
	ff.count(n)
	return n, err
}

func (ff *faultyFile) check(n int) error {
	if ff.fault.FailAfterBytes >= 0 && ff.read+int64(n) > ff.fault.FailAfterBytes {
		return ff.fault.Err
	}
	return nil
}

func (ff *faultyFile) count(n int) {
	if n <= 0 {
		return
	}
	ff.read += int64(n)
	ff.fs.mu.Lock()
	ff.fs.read += int64(n)
	ff.fs.mu.Unlock()
}
