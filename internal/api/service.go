package api

import (
	"context"
	"errors"

	"bsie/internal/pipeline"
	"bsie/internal/statecontrol"
	"bsie/internal/statement"
)

// StatementReader abstracts statement persistence interactions needed for
// API queries.
type StatementReader interface {
	List(ctx context.Context, states ...pipeline.State) ([]*statement.Record, error)
	Stats(ctx context.Context) (map[pipeline.State]int, error)
}

// StatementService exposes statement operations returning API DTOs.
type StatementService struct {
	store      StatementReader
	controller *statecontrol.Controller
}

// NewStatementService constructs a StatementService around the store and
// controller.
func NewStatementService(store StatementReader, controller *statecontrol.Controller) *StatementService {
	return &StatementService{store: store, controller: controller}
}

// List returns statements filtered by state.
func (s *StatementService) List(ctx context.Context, states ...pipeline.State) ([]Statement, error) {
	records, err := s.store.List(ctx, states...)
	if err != nil {
		return nil, err
	}
	return FromRecords(records), nil
}

// Stats returns per-state counts keyed by state string.
func (s *StatementService) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return StateCounts(stats), nil
}

// Describe fetches a single statement. The DTO is nil when the statement
// does not exist.
func (s *StatementService) Describe(ctx context.Context, id string) (*Statement, error) {
	record, err := s.controller.Statement(ctx, id)
	if err != nil {
		if errors.Is(err, statement.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	dto := FromRecord(record)
	return &dto, nil
}

// State reports a statement's position and its outgoing options. The view
// is nil when the statement does not exist.
func (s *StatementService) State(ctx context.Context, id string) (*StateView, error) {
	record, err := s.controller.Statement(ctx, id)
	if err != nil {
		if errors.Is(err, statement.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	allowed := s.controller.Catalog().AllowedTransitions(record.CurrentState)
	return &StateView{
		ID:                 record.ID,
		State:              string(record.CurrentState),
		StateLabel:         StateLabel(record.CurrentState),
		StateVersion:       record.StateVersion,
		Terminal:           s.controller.Catalog().IsTerminal(record.CurrentState),
		AllowedTransitions: StatesToStrings(allowed),
	}, nil
}

// History returns a statement's journal. The response is nil when the
// statement does not exist.
func (s *StatementService) History(ctx context.Context, id string) (*HistoryResponse, error) {
	entries, err := s.controller.History(ctx, id)
	if err != nil {
		if errors.Is(err, statement.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &HistoryResponse{StatementID: id, Entries: FromJournal(entries)}, nil
}

// Transition submits a transition request on behalf of a wire client.
func (s *StatementService) Transition(ctx context.Context, id string, body TransitionRequestBody) (*TransitionOutcome, error) {
	result, err := s.controller.Transition(ctx, statecontrol.TransitionRequest{
		StatementID:     id,
		ToState:         pipeline.State(body.ToState),
		Trigger:         body.Trigger,
		Artifacts:       body.Artifacts,
		WorkerID:        body.WorkerID,
		Metadata:        body.Metadata,
		ExpectedVersion: body.ExpectedVersion,
	})
	if err != nil {
		return nil, err
	}
	outcome := FromTransitionResult(result)
	return &outcome, nil
}
