package statement

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bsie/internal/pipeline"
)

const recordColumns = "id, content_hash, original_filename, size_bytes, page_count, storage_path, current_state, state_version, template_id, template_version, error_code, error_message, retry_count, artifacts_json, created_at, updated_at"

const journalColumns = "id, statement_id, from_state, to_state, transition_trigger, worker_id, artifact_names_json, metadata_json, forced, actor, reason, duration_ms, created_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id              string
		contentHash     string
		originalName    string
		sizeBytes       int64
		pageCount       int
		storagePath     sql.NullString
		stateStr        string
		stateVersion    int64
		templateID      sql.NullString
		templateVersion sql.NullString
		errorCode       sql.NullString
		errorMessage    sql.NullString
		retryCount      int
		artifactsRaw    sql.NullString
		createdRaw      string
		updatedRaw      string
	)

	if err := scanner.Scan(
		&id,
		&contentHash,
		&originalName,
		&sizeBytes,
		&pageCount,
		&storagePath,
		&stateStr,
		&stateVersion,
		&templateID,
		&templateVersion,
		&errorCode,
		&errorMessage,
		&retryCount,
		&artifactsRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	state, ok := pipeline.ParseState(stateStr)
	if !ok {
		return nil, fmt.Errorf("statement %s: unknown state %q in database", id, stateStr)
	}

	record := &Record{
		ID:               id,
		ContentHash:      contentHash,
		OriginalFilename: originalName,
		SizeBytes:        sizeBytes,
		PageCount:        pageCount,
		StoragePath:      storagePath.String,
		CurrentState:     state,
		StateVersion:     stateVersion,
		ErrorCode:        errorCode.String,
		ErrorMessage:     errorMessage.String,
		RetryCount:       retryCount,
	}
	if templateID.Valid {
		record.Template = &TemplateBinding{ID: templateID.String, Version: templateVersion.String}
	}
	if artifactsRaw.Valid && artifactsRaw.String != "" {
		artifacts := make(map[string]string)
		if err := json.Unmarshal([]byte(artifactsRaw.String), &artifacts); err != nil {
			return nil, fmt.Errorf("statement %s: decode artifacts: %w", id, err)
		}
		record.Artifacts = artifacts
	}

	var err error
	if record.CreatedAt, err = parseTimeString(createdRaw); err != nil {
		return nil, fmt.Errorf("statement %s: parse created_at: %w", id, err)
	}
	if record.UpdatedAt, err = parseTimeString(updatedRaw); err != nil {
		return nil, fmt.Errorf("statement %s: parse updated_at: %w", id, err)
	}
	return record, nil
}

func scanJournalEntry(scanner interface{ Scan(dest ...any) error }) (*JournalEntry, error) {
	var (
		id               string
		statementID      string
		fromStateRaw     sql.NullString
		toStateRaw       string
		trigger          string
		workerID         sql.NullString
		artifactNamesRaw sql.NullString
		metadataRaw      sql.NullString
		forced           int
		actor            sql.NullString
		reason           sql.NullString
		durationMS       sql.NullInt64
		createdRaw       string
	)

	if err := scanner.Scan(
		&id,
		&statementID,
		&fromStateRaw,
		&toStateRaw,
		&trigger,
		&workerID,
		&artifactNamesRaw,
		&metadataRaw,
		&forced,
		&actor,
		&reason,
		&durationMS,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	toState, ok := pipeline.ParseState(toStateRaw)
	if !ok {
		return nil, fmt.Errorf("journal %s: unknown to_state %q", id, toStateRaw)
	}

	entry := &JournalEntry{
		ID:          id,
		StatementID: statementID,
		ToState:     toState,
		Trigger:     trigger,
		WorkerID:    workerID.String,
		Forced:      forced != 0,
		Actor:       actor.String,
		Reason:      reason.String,
	}
	if fromStateRaw.Valid {
		fromState, ok := pipeline.ParseState(fromStateRaw.String)
		if !ok {
			return nil, fmt.Errorf("journal %s: unknown from_state %q", id, fromStateRaw.String)
		}
		entry.FromState = &fromState
	}
	if artifactNamesRaw.Valid && artifactNamesRaw.String != "" {
		if err := json.Unmarshal([]byte(artifactNamesRaw.String), &entry.ArtifactNames); err != nil {
			return nil, fmt.Errorf("journal %s: decode artifact names: %w", id, err)
		}
	}
	if metadataRaw.Valid && metadataRaw.String != "" {
		if err := json.Unmarshal([]byte(metadataRaw.String), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("journal %s: decode metadata: %w", id, err)
		}
	}
	if durationMS.Valid {
		v := durationMS.Int64
		entry.DurationMS = &v
	}

	var err error
	if entry.CreatedAt, err = parseTimeString(createdRaw); err != nil {
		return nil, fmt.Errorf("journal %s: parse created_at: %w", id, err)
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
