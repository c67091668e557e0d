package pipeline

import (
	"sort"
	"time"
)

// Catalog bundles the legal transition graph, per-state artifact requirements,
// and advisory timeouts. A Catalog is immutable after construction.
type Catalog struct {
	transitions map[State]map[State]struct{}
	artifacts   map[State][]string
	timeouts    map[State]time.Duration
}

// Default returns the catalog for the current pipeline phase.
func Default() *Catalog {
	return New(
		map[State][]State{
			StateUploaded:             {StateIngested, StateHumanReviewRequired},
			StateIngested:             {StateClassified},
			StateClassified:           {StateRouted},
			StateRouted:               {StateTemplateSelected, StateTemplateMissing},
			StateTemplateSelected:     {StateExtractionReady},
			StateTemplateMissing:      {StateHumanReviewRequired},
			StateExtractionReady:      {StateExtracting},
			StateExtracting:           {StateReconciling, StateExtractionFailed},
			StateExtractionFailed:     {StateHumanReviewRequired},
			StateReconciling:          {StateCompleted, StateReconciliationFailed},
			StateReconciliationFailed: {StateHumanReviewRequired},
			StateHumanReviewRequired:  {StateCompleted, StateExtractionReady},
			StateCompleted:            {},
		},
		map[State][]string{
			StateIngested:    {"ingest_receipt"},
			StateClassified:  {"classification"},
			StateRouted:      {"route_decision"},
			StateReconciling: {"extraction_result", "transactions"},
			StateCompleted:   {"reconciliation", "final_transactions"},
		},
		map[State]time.Duration{
			StateUploaded:            30 * time.Second,
			StateRouted:              5 * time.Second,
			StateExtractionReady:     10 * time.Second,
			StateExtracting:          120 * time.Second,
			StateReconciling:         10 * time.Second,
			StateHumanReviewRequired: 7 * 24 * time.Hour,
		},
	)
}

// New builds a catalog from explicit tables. Inputs are copied; callers keep
// ownership of the maps they pass in.
func New(transitions map[State][]State, artifacts map[State][]string, timeouts map[State]time.Duration) *Catalog {
	c := &Catalog{
		transitions: make(map[State]map[State]struct{}, len(transitions)),
		artifacts:   make(map[State][]string, len(artifacts)),
		timeouts:    make(map[State]time.Duration, len(timeouts)),
	}
	for from, targets := range transitions {
		set := make(map[State]struct{}, len(targets))
		for _, to := range targets {
			set[to] = struct{}{}
		}
		c.transitions[from] = set
	}
	for state, names := range artifacts {
		cp := make([]string, len(names))
		copy(cp, names)
		c.artifacts[state] = cp
	}
	for state, timeout := range timeouts {
		c.timeouts[state] = timeout
	}
	return c
}

// AllowedTransitions returns the legal destination states from a state,
// sorted for stable output. A state with no entry has no legal exits.
func (c *Catalog) AllowedTransitions(from State) []State {
	set, ok := c.transitions[from]
	if !ok || len(set) == 0 {
		return nil
	}
	targets := make([]State, 0, len(set))
	for to := range set {
		targets = append(targets, to)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

// IsAllowed reports whether from -> to is a legal edge.
func (c *Catalog) IsAllowed(from, to State) bool {
	set, ok := c.transitions[from]
	if !ok {
		return false
	}
	_, ok = set[to]
	return ok
}

// IsTerminal reports whether a state has no legal outgoing edges.
func (c *Catalog) IsTerminal(state State) bool {
	return len(c.transitions[state]) == 0
}

// RequiredArtifacts returns the artifact names that must accompany a
// transition into the given state.
func (c *Catalog) RequiredArtifacts(to State) []string {
	names, ok := c.artifacts[to]
	if !ok {
		return nil
	}
	cp := make([]string, len(names))
	copy(cp, names)
	return cp
}

// Timeout returns the advisory timeout for a state. The second return is
// false when the state is unbounded. Enforcement belongs to the watchdog,
// never to the controller.
func (c *Catalog) Timeout(state State) (time.Duration, bool) {
	timeout, ok := c.timeouts[state]
	return timeout, ok
}

// TimedStates returns the states that carry an advisory timeout, sorted.
func (c *Catalog) TimedStates() []State {
	states := make([]State, 0, len(c.timeouts))
	for state := range c.timeouts {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	return states
}
