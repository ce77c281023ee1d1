// Package engine implements the fieldsync workflow cascade engine.
//
// The engine keeps the independently stored collections (customers,
// appointments, quotes, jobs, invoices, crew notifications, archives)
// consistent with each other. It does so without any transaction across
// collections: every change is a whole-collection write, and the cascade
// rules are the only thing linking records.
//
// ARCHITECTURE:
//
// Commands:
// A closed set of Command variants (CreateQuote, SetQuoteStatus, DeleteJob,
// ...) describes every state-changing operation. DecodeCommand builds one
// from its wire name and JSON arguments.
//
// Pure cascade:
// Apply(state, command, env) computes the new state, the ordered list of
// changed collections (effects), the crew notifications generated and the
// linker diagnostics. Apply performs no I/O and never modifies its input.
//
// Dispatch:
// Dispatcher re-reads the store, calls Apply, writes each effect in order,
// then publishes one "<collection>-updated" event per written collection.
// Writes are not rolled back: if a later write fails the earlier ones stand
// and the caller gets a PARTIAL_CASCADE error. Resync converges afterwards.
//
// Single-writer loop:
// Engine.Run processes submitted commands and external change notices one
// at a time in a single goroutine, so no two cascades interleave within a
// context.
//
// CRITICAL PATTERNS:
//   - Idempotence: every rule checks for the record it would create first
//   - Tombstones: a quote id in deleted-job-references never gets a job again
//   - Provenance: events carry command/cascade/external origin; only
//     external events feed reactors, cascade writes never re-enter the engine
//   - Logical ordering: published events are stamped by Clock, not wall time
package engine
