// Package fs provides a read-only filesystem abstraction for fault injection.
//
//   - [File]: an open database file
//   - [FileSystem]: opens files by name
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility that fails opens or reads on demand
//
// Files opened by [LocalFS] are *os.File values and can be memory-mapped.
// Files from any other FileSystem can only be read.
package fs
