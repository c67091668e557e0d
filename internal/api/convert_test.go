package api

import (
	"net/http"
	"testing"
	"time"

	"bsie/internal/pipeline"
	"bsie/internal/statecontrol"
	"bsie/internal/statement"
)

func TestStateLabel(t *testing.T) {
	cases := map[pipeline.State]string{
		pipeline.StateUploaded:            "Uploaded",
		pipeline.StateHumanReviewRequired: "Human Review Required",
		pipeline.StateExtractionReady:     "Extraction Ready",
	}
	for state, want := range cases {
		if got := StateLabel(state); got != want {
			t.Errorf("StateLabel(%s) = %q, want %q", state, got, want)
		}
	}
}

func TestFromRecord(t *testing.T) {
	created := time.Date(2026, 5, 14, 9, 30, 0, 0, time.UTC)
	record := &statement.Record{
		ID:               "stmt_a",
		ContentHash:      "abc",
		OriginalFilename: "may.pdf",
		SizeBytes:        4096,
		PageCount:        3,
		CurrentState:     pipeline.StateRouted,
		StateVersion:     4,
		Template:         &statement.TemplateBinding{ID: "tmpl_chase", Version: "2"},
		Artifacts:        map[string]string{"route_decision": "/a/route.json"},
		CreatedAt:        created,
		UpdatedAt:        created,
	}

	dto := FromRecord(record)
	if dto.State != "ROUTED" || dto.StateLabel != "Routed" {
		t.Fatalf("state = %s / %s", dto.State, dto.StateLabel)
	}
	if dto.TemplateID != "tmpl_chase" || dto.TemplateVersion != "2" {
		t.Fatalf("template = %s/%s", dto.TemplateID, dto.TemplateVersion)
	}
	if dto.CreatedAt != "2026-05-14T09:30:00.000Z" {
		t.Fatalf("createdAt = %s", dto.CreatedAt)
	}
	if dto.StateVersion != 4 {
		t.Fatalf("stateVersion = %d", dto.StateVersion)
	}
}

func TestFromJournalEntryCreationRow(t *testing.T) {
	entry := statement.JournalEntry{
		ID:          "j1",
		StatementID: "stmt_a",
		ToState:     pipeline.StateUploaded,
		Trigger:     "statement_created",
	}
	dto := FromJournalEntry(entry)
	if dto.FromState != "" {
		t.Fatalf("fromState = %q, want empty for creation entry", dto.FromState)
	}
	if dto.ToState != "UPLOADED" {
		t.Fatalf("toState = %s", dto.ToState)
	}
}

func TestHTTPStatusFor(t *testing.T) {
	cases := map[statecontrol.ErrorKind]int{
		statecontrol.ErrorStateNotFound:          http.StatusNotFound,
		statecontrol.ErrorInvalidTransition:      http.StatusConflict,
		statecontrol.ErrorConcurrentModification: http.StatusConflict,
		statecontrol.ErrorMissingArtifact:        http.StatusUnprocessableEntity,
		statecontrol.ErrorValidationFailed:       http.StatusBadRequest,
		statecontrol.ErrorTimeout:                http.StatusGatewayTimeout,
		statecontrol.ErrorKind("mystery"):        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := HTTPStatusFor(kind); got != want {
			t.Errorf("HTTPStatusFor(%s) = %d, want %d", kind, got, want)
		}
	}
}
