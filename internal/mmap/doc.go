// Package mmap provides read-only memory-mapped access to database files.
//
// # Usage
//
//	f, err := os.Open("GeoLite2-City.mmdb")
//	if err != nil { ... }
//	defer f.Close()
//
//	m, err := mmap.Map(f)
//	if err != nil { ... }
//	defer m.Close()
//
//	// Zero-copy access to file contents
//	data := m.Bytes()
//
//	// Lookups jump around the search tree
//	m.Advise(mmap.AccessRandom)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (advice is a no-op)
//
// # Thread Safety
//
// A Mapping is safe for concurrent read access. Close is idempotent and
// protected by an atomic flag, but callers must guarantee that no goroutine
// still reads from Bytes() when Close runs. The source package enforces this
// with reference counting.
package mmap
