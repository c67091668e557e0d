package stage

import (
	"context"

	"bsie/internal/pipeline"
	"bsie/internal/statement"
)

// Handler describes the contract the workflow manager needs from each
// pipeline stage. A handler claims statements sitting in its origin state
// and is responsible for advancing them through the state controller; the
// manager never writes state on a handler's behalf.
type Handler interface {
	Name() string
	OriginState() pipeline.State
	Execute(context.Context, *statement.Record) error
	HealthCheck(context.Context) Health
}
