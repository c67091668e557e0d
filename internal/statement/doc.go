// Package statement persists statement records and their transition journal
// in SQLite.
//
// The Store owns the database connection, schema initialization, point
// lookups, list/stats queries, and the atomic conditional update that backs
// every state transition: the record row is updated only when its
// state_version still matches the version the caller read, and the journal
// row for the transition commits in the same transaction. Rejected attempts
// touch neither table.
//
// The journal is append-only. Rows are never updated or deleted; replaying
// them oldest-first reconstructs a statement's full lifecycle. State strings
// loaded from the database are validated against the closed pipeline.State
// set and scanning fails fast on unknown values.
//
// Treat this package as the single source of truth for persistence semantics;
// schema changes bump the version in schema.go.
package statement
