// Package statecontrol owns every pipeline state transition.
//
// The Controller is the sole legitimate mutator of a statement's position in
// the pipeline. Workers never write state directly: they ask the controller,
// which validates the request against the pipeline catalog and commits the
// record update together with its journal row as one atomic unit against the
// store.
//
// Expected rejections (illegal edge, missing artifact, stale version, unknown
// statement) are returned as typed TransitionResults, not Go errors;
// concurrent workers probe the same record routinely and those outcomes are
// normal operation. A non-nil error return means a storage fault: the
// transition's true outcome is unknown and the caller must re-read current
// state before retrying.
//
// The controller holds no caches or locks. Every call starts from a fresh
// load, so any number of controllers may share one store and catalog.
package statecontrol
