// Package store provides SQLite-backed persistent storage for fieldsync
// record collections.
//
// The store is a keyed table of named collections. Each collection holds an
// ordered JSON array of records and is only ever replaced whole:
//   - ReadRaw returns the current array (nil if never written)
//   - WriteRaw replaces it and increments the collection's version
//
// There is no row-level update and no locking across contexts. Two contexts
// writing the same collection lose the earlier write (last write wins).
//
// # Versions
//
// Every write records a Stamp: the collection's new version and the context
// ID of the writer. Watchers in other contexts compare versions to decide
// when to re-read. Versions are logical counters, never timestamps.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// A small key/value table holds bookkeeping that is not a record collection,
// such as accounting sync records.
package store
