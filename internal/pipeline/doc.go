// Package pipeline defines the statement lifecycle: the closed set of
// pipeline states, the legal transition graph, the artifacts required to
// enter each state, and advisory per-state timeouts.
//
// The Catalog is an immutable value. Construct it once (usually via Default)
// and share it by reference across controllers and goroutines; it holds no
// mutable state and needs no synchronization. Keep this package as the single
// source of truth for lifecycle semantics; new phases add states and edges
// here first.
package pipeline
