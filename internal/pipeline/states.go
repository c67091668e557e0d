package pipeline

import "strings"

// State identifies a statement's position in the processing pipeline.
type State string

const (
	StateUploaded             State = "UPLOADED"
	StateIngested             State = "INGESTED"
	StateClassified           State = "CLASSIFIED"
	StateRouted               State = "ROUTED"
	StateTemplateSelected     State = "TEMPLATE_SELECTED"
	StateTemplateMissing      State = "TEMPLATE_MISSING"
	StateExtractionReady      State = "EXTRACTION_READY"
	StateExtracting           State = "EXTRACTING"
	StateExtractionFailed     State = "EXTRACTION_FAILED"
	StateReconciling          State = "RECONCILING"
	StateReconciliationFailed State = "RECONCILIATION_FAILED"
	StateHumanReviewRequired  State = "HUMAN_REVIEW_REQUIRED"
	StateCompleted            State = "COMPLETED"
)

// InitialState is the state every statement record is created in.
const InitialState = StateUploaded

var allStates = []State{
	StateUploaded,
	StateIngested,
	StateClassified,
	StateRouted,
	StateTemplateSelected,
	StateTemplateMissing,
	StateExtractionReady,
	StateExtracting,
	StateExtractionFailed,
	StateReconciling,
	StateReconciliationFailed,
	StateHumanReviewRequired,
	StateCompleted,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State. Values loaded from storage
// or the wire must pass through here so unknown symbols fail at the boundary.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToUpper(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}
