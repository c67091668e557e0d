package statecontrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"bsie/internal/logging"
	"bsie/internal/pipeline"
	"bsie/internal/statement"
)

// ForcedTrigger is the journal trigger recorded for operator-forced
// transitions that did not supply their own.
const ForcedTrigger = "forced_transition"

// TimeoutTrigger is the journal trigger recorded when the watchdog parks a
// statement whose state exceeded its advisory deadline.
const TimeoutTrigger = "state_timeout"

// watchdogActor names the automated actor on timeout journal entries.
const watchdogActor = "watchdog"

// Controller validates transition requests against the pipeline catalog and
// commits them through the statement store.
type Controller struct {
	store   *statement.Store
	catalog *pipeline.Catalog
	logger  *slog.Logger
}

// New returns a controller over the given store. A nil catalog selects the
// default pipeline catalog; a nil logger discards log output.
func New(store *statement.Store, catalog *pipeline.Catalog, logger *slog.Logger) *Controller {
	if catalog == nil {
		catalog = pipeline.Default()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		store:   store,
		catalog: catalog,
		logger:  logging.NewComponentLogger(logger, "statecontrol"),
	}
}

// Catalog exposes the pipeline catalog the controller validates against.
func (c *Controller) Catalog() *pipeline.Catalog {
	return c.catalog
}

// CreateStatement originates a statement record in the initial state and
// writes its creation journal entry.
func (c *Controller) CreateStatement(ctx context.Context, rec statement.NewRecord) (*statement.Record, error) {
	if strings.TrimSpace(rec.ID) == "" {
		return nil, errors.New("statement id is required")
	}
	created, err := c.store.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	c.logger.Info("statement created",
		logging.String(logging.FieldStatementID, created.ID),
		logging.String(logging.FieldState, string(created.CurrentState)),
		logging.String("filename", created.OriginalFilename))
	return created, nil
}

// Transition attempts to move a statement along a catalog edge.
//
// The checks run in a fixed order so a request failing several of them
// reports a deterministic kind: existence, version, edge legality, then
// required artifacts. Rejections return a failed TransitionResult with a
// nil error. A non-nil error means the store faulted and the outcome is
// unknown.
func (c *Controller) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	if kind, msg := validateRequest(req); kind != "" {
		return c.reject(req.StatementID, "", "", kind, msg), nil
	}

	record, err := c.store.GetByID(ctx, req.StatementID)
	if err != nil {
		return nil, fmt.Errorf("load statement %s: %w", req.StatementID, err)
	}
	if record == nil {
		return c.reject(req.StatementID, "", "", ErrorStateNotFound,
			fmt.Sprintf("statement %s not found", req.StatementID)), nil
	}

	expected, hasExpected := expectedVersion(req)
	if hasExpected && expected != record.StateVersion {
		return c.reject(req.StatementID, record.CurrentState, record.CurrentState,
			ErrorConcurrentModification,
			fmt.Sprintf("expected version %d, statement is at version %d", expected, record.StateVersion)), nil
	}

	if !c.catalog.IsAllowed(record.CurrentState, req.ToState) {
		return c.reject(req.StatementID, record.CurrentState, record.CurrentState,
			ErrorInvalidTransition,
			fmt.Sprintf("transition %s -> %s is not allowed", record.CurrentState, req.ToState)), nil
	}

	if missing := c.missingArtifacts(record, req); len(missing) > 0 {
		return c.reject(req.StatementID, record.CurrentState, record.CurrentState,
			ErrorMissingArtifact,
			fmt.Sprintf("state %s requires artifacts: %s", req.ToState, strings.Join(missing, ", "))), nil
	}

	merged, added := mergeArtifacts(record.Artifacts, req.Artifacts)
	apply := statement.TransitionApply{
		StatementID:     record.ID,
		ExpectedVersion: record.StateVersion,
		FromState:       record.CurrentState,
		ToState:         req.ToState,
		Artifacts:       merged,
		ArtifactNames:   added,
		Trigger:         req.Trigger,
		WorkerID:        req.WorkerID,
		Metadata:        req.Metadata,
		DurationMS:      req.DurationMS,
	}
	updated, err := c.store.ApplyTransition(ctx, apply)
	if err != nil {
		return c.applyFailure(req.StatementID, record.CurrentState, req.ToState, err)
	}

	c.logger.Info("state transition",
		logging.String(logging.FieldStatementID, updated.ID),
		logging.String("from", string(record.CurrentState)),
		logging.String(logging.FieldState, string(updated.CurrentState)),
		logging.String(logging.FieldTrigger, req.Trigger))

	return &TransitionResult{
		Success:           true,
		StatementID:       updated.ID,
		PreviousState:     record.CurrentState,
		CurrentState:      updated.CurrentState,
		Timestamp:         time.Now().UTC(),
		ArtifactsRecorded: added,
		Metadata:          req.Metadata,
	}, nil
}

// ForceTransition moves a statement to an arbitrary catalog state, skipping
// edge and artifact validation. The commit is still version-guarded and the
// journal entry is marked forced with the acting operator and reason, so the
// override leaves a full audit trail.
func (c *Controller) ForceTransition(ctx context.Context, statementID string, to pipeline.State, reason, actor string) (*TransitionResult, error) {
	if _, ok := pipeline.ParseState(string(to)); !ok {
		return c.reject(statementID, "", "", ErrorValidationFailed,
			fmt.Sprintf("unknown target state %q", to)), nil
	}
	record, err := c.store.GetByID(ctx, statementID)
	if err != nil {
		return nil, fmt.Errorf("load statement %s: %w", statementID, err)
	}
	if record == nil {
		return c.reject(statementID, "", "", ErrorStateNotFound,
			fmt.Sprintf("statement %s not found", statementID)), nil
	}

	apply := statement.TransitionApply{
		StatementID:     record.ID,
		ExpectedVersion: record.StateVersion,
		FromState:       record.CurrentState,
		ToState:         to,
		Artifacts:       record.Artifacts,
		Trigger:         ForcedTrigger,
		Forced:          true,
		Actor:           actor,
		Reason:          reason,
	}
	updated, err := c.store.ApplyTransition(ctx, apply)
	if err != nil {
		return c.applyFailure(statementID, record.CurrentState, to, err)
	}

	c.logger.Warn("forced state transition",
		logging.String(logging.FieldStatementID, updated.ID),
		logging.String("from", string(record.CurrentState)),
		logging.String(logging.FieldState, string(updated.CurrentState)),
		logging.String("actor", actor),
		logging.String("reason", reason))

	return &TransitionResult{
		Success:       true,
		StatementID:   updated.ID,
		PreviousState: record.CurrentState,
		CurrentState:  updated.CurrentState,
		Timestamp:     time.Now().UTC(),
		Forced:        true,
	}, nil
}

// MarkTimedOut parks a statement in HUMAN_REVIEW_REQUIRED after its state
// exceeded the catalog's advisory deadline. The commit is version-guarded
// against the statement's current version, so a worker finishing the state
// concurrently wins and the sweep reports a concurrent-modification result
// instead of overriding it.
func (c *Controller) MarkTimedOut(ctx context.Context, statementID string, exceeded time.Duration) (*TransitionResult, error) {
	record, err := c.store.GetByID(ctx, statementID)
	if err != nil {
		return nil, fmt.Errorf("load statement %s: %w", statementID, err)
	}
	if record == nil {
		return c.reject(statementID, "", "", ErrorStateNotFound,
			fmt.Sprintf("statement %s not found", statementID)), nil
	}
	if record.CurrentState == pipeline.StateHumanReviewRequired {
		return c.reject(statementID, record.CurrentState, record.CurrentState,
			ErrorInvalidTransition, "statement is already awaiting review"), nil
	}

	reason := fmt.Sprintf("state %s exceeded its deadline by %s", record.CurrentState, exceeded.Round(time.Millisecond))
	apply := statement.TransitionApply{
		StatementID:     record.ID,
		ExpectedVersion: record.StateVersion,
		FromState:       record.CurrentState,
		ToState:         pipeline.StateHumanReviewRequired,
		Artifacts:       record.Artifacts,
		Trigger:         TimeoutTrigger,
		Forced:          true,
		Actor:           watchdogActor,
		Reason:          reason,
	}
	updated, err := c.store.ApplyTransition(ctx, apply)
	if err != nil {
		return c.applyFailure(statementID, record.CurrentState, pipeline.StateHumanReviewRequired, err)
	}
	if err := c.store.RecordError(ctx, record.ID, string(ErrorTimeout), reason); err != nil {
		return nil, fmt.Errorf("record timeout error for %s: %w", record.ID, err)
	}

	c.logger.Warn("statement timed out",
		logging.String(logging.FieldStatementID, updated.ID),
		logging.String("from", string(record.CurrentState)),
		logging.String(logging.FieldState, string(updated.CurrentState)),
		logging.Duration("exceeded_by", exceeded))

	return &TransitionResult{
		Success:       true,
		StatementID:   updated.ID,
		PreviousState: record.CurrentState,
		CurrentState:  updated.CurrentState,
		Timestamp:     time.Now().UTC(),
		Forced:        true,
	}, nil
}

// CurrentState returns a statement's state and concurrency version.
func (c *Controller) CurrentState(ctx context.Context, statementID string) (pipeline.State, int64, error) {
	record, err := c.store.GetByID(ctx, statementID)
	if err != nil {
		return "", 0, err
	}
	if record == nil {
		return "", 0, statement.ErrNotFound
	}
	return record.CurrentState, record.StateVersion, nil
}

// Statement returns the full record, or statement.ErrNotFound.
func (c *Controller) Statement(ctx context.Context, statementID string) (*statement.Record, error) {
	record, err := c.store.GetByID(ctx, statementID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, statement.ErrNotFound
	}
	return record, nil
}

// History returns the statement's journal entries in commit order, creation
// entry first.
func (c *Controller) History(ctx context.Context, statementID string) ([]statement.JournalEntry, error) {
	record, err := c.store.GetByID(ctx, statementID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, statement.ErrNotFound
	}
	return c.store.History(ctx, statementID)
}

// AllowedTransitions lists the states reachable from a statement's current
// state.
func (c *Controller) AllowedTransitions(ctx context.Context, statementID string) ([]pipeline.State, error) {
	record, err := c.store.GetByID(ctx, statementID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, statement.ErrNotFound
	}
	return c.catalog.AllowedTransitions(record.CurrentState), nil
}

// RequiredArtifacts lists the artifact names a destination state demands.
func (c *Controller) RequiredArtifacts(to pipeline.State) []string {
	return c.catalog.RequiredArtifacts(to)
}

func (c *Controller) reject(statementID string, previous, current pipeline.State, kind ErrorKind, msg string) *TransitionResult {
	c.logger.Debug("transition rejected",
		logging.String(logging.FieldStatementID, statementID),
		logging.String("kind", string(kind)),
		logging.String("detail", msg))
	return &TransitionResult{
		StatementID:   statementID,
		PreviousState: previous,
		CurrentState:  current,
		Timestamp:     time.Now().UTC(),
		ErrorKind:     kind,
		Error:         msg,
	}
}

// applyFailure maps store-level commit errors. A version conflict or a
// record vanishing mid-flight are expected races and become typed results;
// anything else is a storage fault and propagates.
func (c *Controller) applyFailure(statementID string, previous, to pipeline.State, err error) (*TransitionResult, error) {
	switch {
	case errors.Is(err, statement.ErrVersionConflict):
		return c.reject(statementID, previous, previous, ErrorConcurrentModification,
			fmt.Sprintf("statement %s was modified concurrently", statementID)), nil
	case errors.Is(err, statement.ErrNotFound):
		return c.reject(statementID, previous, previous, ErrorStateNotFound,
			fmt.Sprintf("statement %s not found", statementID)), nil
	default:
		return nil, fmt.Errorf("commit transition %s -> %s for %s: %w", previous, to, statementID, err)
	}
}

func validateRequest(req TransitionRequest) (ErrorKind, string) {
	if strings.TrimSpace(req.StatementID) == "" {
		return ErrorValidationFailed, "statement id is required"
	}
	if _, ok := pipeline.ParseState(string(req.ToState)); !ok {
		return ErrorValidationFailed, fmt.Sprintf("unknown target state %q", req.ToState)
	}
	if strings.TrimSpace(req.Trigger) == "" {
		return ErrorValidationFailed, "trigger is required"
	}
	return "", ""
}

// expectedVersion resolves the caller's concurrency token: the typed field
// wins, then an "expected_version" metadata entry in any integer-shaped
// encoding a wire client may produce.
func expectedVersion(req TransitionRequest) (int64, bool) {
	if req.ExpectedVersion != nil {
		return *req.ExpectedVersion, true
	}
	raw, ok := req.Metadata["expected_version"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func (c *Controller) missingArtifacts(record *statement.Record, req TransitionRequest) []string {
	var missing []string
	for _, name := range c.catalog.RequiredArtifacts(req.ToState) {
		if _, ok := req.Artifacts[name]; ok {
			continue
		}
		if _, ok := record.Artifacts[name]; ok {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}

func mergeArtifacts(existing, incoming map[string]string) (map[string]string, []string) {
	merged := make(map[string]string, len(existing)+len(incoming))
	for name, location := range existing {
		merged[name] = location
	}
	added := make([]string, 0, len(incoming))
	for name, location := range incoming {
		merged[name] = location
		added = append(added, name)
	}
	sort.Strings(added)
	return merged, added
}
