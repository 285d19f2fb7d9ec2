// Package source opens MaxMind DB files and owns the bytes behind them.
//
// A Source is either mapped (the file is mapped read-only into memory) or
// buffered (the file is read, and decompressed if needed, into an owned
// buffer). Either way the bytes are handed to the maxminddb trie engine once
// at open time.
//
// Sources are reference counted. Open returns a Source holding one
// reference; every concurrent user takes its own with TryAcquire and drops it
// with Release. The bytes are released when the last reference goes away.
package source
