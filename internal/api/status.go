package api

import (
	"net/http"

	"bsie/internal/statecontrol"
)

// HTTPStatusFor maps a transition rejection kind to its HTTP status code.
// Both invalid edges and lost version races are conflicts with the
// statement's current state; a missing artifact means the request was
// well-formed but unprocessable.
func HTTPStatusFor(kind statecontrol.ErrorKind) int {
	switch kind {
	case statecontrol.ErrorStateNotFound:
		return http.StatusNotFound
	case statecontrol.ErrorInvalidTransition, statecontrol.ErrorConcurrentModification:
		return http.StatusConflict
	case statecontrol.ErrorMissingArtifact:
		return http.StatusUnprocessableEntity
	case statecontrol.ErrorValidationFailed:
		return http.StatusBadRequest
	case statecontrol.ErrorTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
