// Package workflow advances statements through the configured pipeline
// stages.
//
// The Manager polls the statement store for records sitting in a registered
// handler's origin state and hands them to that handler. Handlers own their
// transitions: each one advances its statement through the state controller,
// so every move is validated and journaled the same way regardless of which
// component requested it. A handler failure is recorded on the statement and
// retried after a backoff interval.
//
// A separate watchdog loop sweeps the catalog's timed states and parks
// statements that overstayed their advisory deadline in human review. Both
// loops stop together when the manager is stopped.
package workflow
