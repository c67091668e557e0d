package statecontrol

import (
	"time"

	"bsie/internal/pipeline"
)

// ErrorKind classifies why the controller rejected a transition request.
// The set is closed; API and CLI layers map kinds to user-facing status.
type ErrorKind string

const (
	// ErrorInvalidTransition means the requested edge is not in the catalog.
	ErrorInvalidTransition ErrorKind = "invalid_transition"
	// ErrorMissingArtifact means the destination state requires artifacts
	// the request and the existing record together do not cover.
	ErrorMissingArtifact ErrorKind = "missing_artifact"
	// ErrorValidationFailed means the request itself is malformed.
	ErrorValidationFailed ErrorKind = "validation_failed"
	// ErrorConcurrentModification means another writer advanced the
	// statement between the caller's read and this request.
	ErrorConcurrentModification ErrorKind = "concurrent_modification"
	// ErrorStateNotFound means no statement exists under the given ID.
	ErrorStateNotFound ErrorKind = "state_not_found"
	// ErrorTimeout marks a statement whose state exceeded its advisory
	// deadline; produced by the watchdog, never by Transition itself.
	ErrorTimeout ErrorKind = "timeout"
)

// TransitionRequest asks the controller to move one statement along a
// catalog edge. Artifacts are recorded as part of the same commit and merge
// into the statement's accumulated artifact set.
//
// ExpectedVersion is the caller's optimistic concurrency token. When set,
// the transition is rejected unless it matches the statement's current
// StateVersion. When nil, the controller also honors an integer
// "expected_version" entry in Metadata so wire clients can pass the token
// without a dedicated field.
type TransitionRequest struct {
	StatementID     string
	ToState         pipeline.State
	Trigger         string
	Artifacts       map[string]string
	WorkerID        string
	Metadata        map[string]any
	ExpectedVersion *int64
	DurationMS      *int64
}

// TransitionResult reports the outcome of a transition attempt. Success
// results carry the committed states and the artifact names recorded with
// the commit. Failure results carry an ErrorKind and a human-readable
// Error; PreviousState and CurrentState reflect the record at rejection
// time, or are empty when the statement does not exist.
type TransitionResult struct {
	Success           bool
	StatementID       string
	PreviousState     pipeline.State
	CurrentState      pipeline.State
	Timestamp         time.Time
	ErrorKind         ErrorKind
	Error             string
	ArtifactsRecorded []string
	Forced            bool
	Metadata          map[string]any
}

// Failed reports whether the attempt was rejected.
func (r *TransitionResult) Failed() bool {
	return !r.Success
}
