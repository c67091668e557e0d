package main

import (
	"strings"
	"testing"

	"bsie/internal/pipeline"
)

func TestParseArtifacts(t *testing.T) {
	artifacts, err := parseArtifacts([]string{"ingest_receipt=/a/r.json", "classification = /a/c.json"})
	if err != nil {
		t.Fatalf("parseArtifacts: %v", err)
	}
	if artifacts["ingest_receipt"] != "/a/r.json" || artifacts["classification"] != "/a/c.json" {
		t.Fatalf("artifacts = %v", artifacts)
	}

	for _, bad := range []string{"noequals", "=value", "name="} {
		if _, err := parseArtifacts([]string{bad}); err == nil {
			t.Errorf("parseArtifacts(%q) accepted", bad)
		}
	}
}

func TestParseStates(t *testing.T) {
	states, err := parseStates([]string{"uploaded", "HUMAN_REVIEW_REQUIRED"})
	if err != nil {
		t.Fatalf("parseStates: %v", err)
	}
	if states[0] != pipeline.StateUploaded || states[1] != pipeline.StateHumanReviewRequired {
		t.Fatalf("states = %v", states)
	}
	if _, err := parseStates([]string{"LIMBO"}); err == nil {
		t.Fatal("unknown state accepted")
	}
}

func TestRenderStatePlain(t *testing.T) {
	if got := renderState(pipeline.StateCompleted, false); got != "Completed" {
		t.Fatalf("plain label = %q", got)
	}
	if got := renderState(pipeline.StateCompleted, true); !strings.Contains(got, ansiGreen) {
		t.Fatalf("colorized label = %q", got)
	}
	if got := renderState(pipeline.StateExtractionFailed, true); !strings.Contains(got, ansiRed) {
		t.Fatalf("failed label = %q", got)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"A", "B"},
		[][]string{{"only-a"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	if !strings.Contains(out, "only-a") {
		t.Fatalf("table output missing cell: %s", out)
	}
}

func TestYesNo(t *testing.T) {
	if yesNo(true) != "yes" || yesNo(false) != "no" {
		t.Fatal("yesNo mapping broken")
	}
}
