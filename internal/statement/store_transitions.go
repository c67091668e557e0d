package statement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ApplyTransition commits a transition as a single all-or-nothing unit: the
// record row is updated only when its state_version still equals
// ExpectedVersion, and the journal row is inserted in the same transaction.
// Returns ErrVersionConflict when another writer interleaved, ErrNotFound
// when the record vanished. On conflict nothing is written.
func (s *Store) ApplyTransition(ctx context.Context, apply TransitionApply) (*Record, error) {
	ctx = ensureContext(ctx)

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	artifactsJSON, err := marshalStringMap(apply.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("marshal artifacts: %w", err)
	}
	artifactNamesJSON, err := marshalStringSlice(apply.ArtifactNames)
	if err != nil {
		return nil, fmt.Errorf("marshal artifact names: %w", err)
	}
	metadataJSON, err := marshalAnyMap(apply.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	err = retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transition tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(
			ctx,
			`UPDATE statements
             SET current_state = ?, state_version = state_version + 1, artifacts_json = ?, updated_at = ?
             WHERE id = ? AND state_version = ?`,
			apply.ToState,
			artifactsJSON,
			timestamp,
			apply.StatementID,
			apply.ExpectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update statement state: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			var exists int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM statements WHERE id = ?`, apply.StatementID).Scan(&exists); err != nil {
				return fmt.Errorf("check statement presence: %w", err)
			}
			if exists == 0 {
				return fmt.Errorf("%w: %s", ErrNotFound, apply.StatementID)
			}
			return fmt.Errorf("%w: %s at version %d", ErrVersionConflict, apply.StatementID, apply.ExpectedVersion)
		}

		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO state_journal (
                id, statement_id, from_state, to_state, transition_trigger, worker_id,
                artifact_names_json, metadata_json, forced, actor, reason, duration_ms, created_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(),
			apply.StatementID,
			apply.FromState,
			apply.ToState,
			apply.Trigger,
			nullableString(apply.WorkerID),
			artifactNamesJSON,
			metadataJSON,
			boolToInt(apply.Forced),
			nullableString(apply.Actor),
			nullableString(apply.Reason),
			nullableInt64(apply.DurationMS),
			timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert journal entry: %w", err)
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, apply.StatementID)
}

// History returns a statement's journal rows oldest-first.
func (s *Store) History(ctx context.Context, statementID string) ([]JournalEntry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+journalColumns+` FROM state_journal WHERE statement_id = ? ORDER BY created_at, rowid`,
		statementID,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		entry, err := scanJournalEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func marshalStringMap(m map[string]string) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func marshalStringSlice(s []string) (any, error) {
	if len(s) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func marshalAnyMap(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
