// Package daemon hosts the long-running statement pipeline service: the
// workflow manager, the HTTP API, and single-instance enforcement via a
// lock file. The daemon owns process lifecycle only; all state semantics
// live in the statecontrol package.
package daemon
