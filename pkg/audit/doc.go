// Package audit provides audit logging for membership sync operations.
//
// This package records security-relevant changes as RFC5424 syslog lines
// and, when an audit database is configured, as rows in its messages table.
//
// # Event Types
//
//   - Rule events: an association rule was saved or deleted
//   - Effect events: a role or capability was granted to or withdrawn from
//     a user
//   - Batch events: a batch run started, completed, stopped or failed
//
// # Usage
//
// A Trail writes events to a Logger and an optional Store. It is also a
// rule observer, an effect observer and a batch recorder, so it can be
// registered directly with the rules.Manager, effect.Applier and
// batch.Coordinator:
//
//	trail := audit.NewTrail(audit.NewLogger(), store, logger)
//	applier := effect.New(dir, opts, logger, trail)
//	defer trail.Close()
//
// Syslog lines are written as events arrive. Rows are inserted by a
// background goroutine so observers never wait on the audit database;
// Close flushes the queued rows before closing the Store.
package audit
