// Package bus carries change notifications between the parts of fieldsync.
//
// Two delivery paths exist:
//
//  1. Same-context: Bus is a synchronous publish/subscribe keyed by event
//     name ("<collection>-updated"). Handlers run in subscription order and
//     finish before Publish returns. Publishing an event from inside one of
//     its own handlers is suppressed.
//
//  2. Cross-context: a Signal carries a Change (collection, version, writer)
//     to other processes sharing the store. Signals may be lost, so a
//     Watcher also polls store versions on a fixed interval and only reports
//     collections whose version advanced.
//
// Every Event carries its provenance: command (the collection a command
// targeted), cascade (a dependent write) or external (another context).
package bus
