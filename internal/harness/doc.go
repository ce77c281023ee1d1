// Package harness runs scenario files against the cascade engine and
// compares the resulting event trace with golden snapshots.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: quote_lifecycle
//	description: "Approving a quote schedules its job and bills it"
//	now: "2026-02-01T10:00:00Z"
//	setup:
//	  customers:
//	    - { id: CUST-1, name: Jane Doe, address: 12 Elm St }
//	steps:
//	  - command: create-quote
//	    args: { customerName: Jane Doe, services: [Gutters], amount: 150 }
//	  - command: set-quote-status
//	    args: { id: Q-9, status: approved }
//	    expect_error: NOT_FOUND
//	assertions:
//	  - type: count
//	    collection: jobs
//	    count: 1
//	  - type: record
//	    collection: jobs
//	    where: { quoteId: Q-1 }
//	    expect: { status: pending }
//
// Setup collections are written straight to the store before the first
// step; they publish no events and run no cascade.
//
// # Assertion Types
//
//   - count: a collection holds exactly count records
//   - record: some record matching where has the expect fields (subset match)
//   - contains: a string collection (tombstones, dismissed reminders) holds value
//   - event_count: the trace has count events with the given name and origin
//   - notification: the crew member's feed holds notifications of a type
//
// # Deterministic Execution
//
// Every run uses a fresh in-memory store, a fixed wall clock taken from the
// scenario's now, and sequential identifiers (Q-1, J-1, INV-1, notif-1, ...),
// so traces are identical across runs.
//
// # Trace Format
//
//	scenario: quote_lifecycle
//	step 1 create-quote
//	  event quotes-updated origin=command
//	  event jobs-updated origin=cascade
//	  notify Kevin new_assignment
//	  diag join_miss quote-status
//	  error NOT_FOUND
package harness
