package api

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bsie/internal/pipeline"
	"bsie/internal/statecontrol"
	"bsie/internal/statement"
)

// StateLabel humanizes a pipeline state identifier for display,
// HUMAN_REVIEW_REQUIRED becoming "Human Review Required".
func StateLabel(state pipeline.State) string {
	lowered := strings.ToLower(strings.ReplaceAll(string(state), "_", " "))
	return cases.Title(language.Und).String(lowered)
}

// FromRecord converts a statement record to its API representation.
func FromRecord(record *statement.Record) Statement {
	if record == nil {
		return Statement{}
	}
	dto := Statement{
		ID:               record.ID,
		OriginalFilename: record.OriginalFilename,
		ContentHash:      record.ContentHash,
		SizeBytes:        record.SizeBytes,
		PageCount:        record.PageCount,
		StoragePath:      record.StoragePath,
		State:            string(record.CurrentState),
		StateLabel:       StateLabel(record.CurrentState),
		StateVersion:     record.StateVersion,
		ErrorCode:        record.ErrorCode,
		ErrorMessage:     record.ErrorMessage,
		RetryCount:       record.RetryCount,
		Artifacts:        record.Artifacts,
	}
	if record.Template != nil {
		dto.TemplateID = record.Template.ID
		dto.TemplateVersion = record.Template.Version
	}
	if !record.CreatedAt.IsZero() {
		dto.CreatedAt = record.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !record.UpdatedAt.IsZero() {
		dto.UpdatedAt = record.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromRecords converts a slice of statement records into API DTOs.
func FromRecords(records []*statement.Record) []Statement {
	if len(records) == 0 {
		return nil
	}
	out := make([]Statement, 0, len(records))
	for _, record := range records {
		out = append(out, FromRecord(record))
	}
	return out
}

// FromJournalEntry converts one journal row to its API representation.
func FromJournalEntry(entry statement.JournalEntry) JournalEntry {
	dto := JournalEntry{
		ID:            entry.ID,
		ToState:       string(entry.ToState),
		Trigger:       entry.Trigger,
		WorkerID:      entry.WorkerID,
		ArtifactNames: entry.ArtifactNames,
		Metadata:      entry.Metadata,
		Forced:        entry.Forced,
		Actor:         entry.Actor,
		Reason:        entry.Reason,
		DurationMS:    entry.DurationMS,
	}
	if entry.FromState != nil {
		dto.FromState = string(*entry.FromState)
	}
	if !entry.CreatedAt.IsZero() {
		dto.CreatedAt = entry.CreatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJournal converts a journal slice into API DTOs.
func FromJournal(entries []statement.JournalEntry) []JournalEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]JournalEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromJournalEntry(entry))
	}
	return out
}

// FromTransitionResult converts a controller result to its API form.
func FromTransitionResult(result *statecontrol.TransitionResult) TransitionOutcome {
	if result == nil {
		return TransitionOutcome{}
	}
	return TransitionOutcome{
		Success:           result.Success,
		StatementID:       result.StatementID,
		PreviousState:     string(result.PreviousState),
		CurrentState:      string(result.CurrentState),
		Timestamp:         result.Timestamp.UTC().Format(dateTimeFormat),
		ErrorKind:         string(result.ErrorKind),
		Error:             result.Error,
		ArtifactsRecorded: result.ArtifactsRecorded,
		Forced:            result.Forced,
	}
}

// StateCounts produces a string-keyed representation of per-state counts.
func StateCounts(stats map[pipeline.State]int) map[string]int {
	out := make(map[string]int, len(stats))
	for state, count := range stats {
		out[string(state)] = count
	}
	return out
}

// StatesToStrings converts pipeline states for transport.
func StatesToStrings(states []pipeline.State) []string {
	if len(states) == 0 {
		return nil
	}
	out := make([]string, 0, len(states))
	for _, state := range states {
		out = append(out, string(state))
	}
	return out
}
