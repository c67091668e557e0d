package statement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bsie/internal/pipeline"
)

// creationTrigger tags the journal row written when a record is originated.
const creationTrigger = "statement_created"

// Create persists a new record in the initial state at version 1, together
// with its creation journal entry, as one transaction.
func (s *Store) Create(ctx context.Context, rec NewRecord) (*Record, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(rec.ID) == "" {
		return nil, errors.New("statement id is required")
	}
	if strings.TrimSpace(rec.ContentHash) == "" {
		return nil, errors.New("content hash is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin create tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM statements WHERE id = ?`, rec.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check statement id: %w", err)
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
		}

		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO statements (
                id, content_hash, original_filename, size_bytes, page_count, storage_path,
                current_state, state_version, retry_count, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, 1, 0, ?, ?)`,
			rec.ID,
			rec.ContentHash,
			rec.OriginalFilename,
			rec.SizeBytes,
			rec.PageCount,
			nullableString(rec.StoragePath),
			pipeline.InitialState,
			timestamp,
			timestamp,
		)
		if err != nil {
			if isUniqueViolation(err, "statements.content_hash") {
				return fmt.Errorf("%w: %s", ErrDuplicateContentHash, rec.ContentHash)
			}
			return fmt.Errorf("insert statement: %w", err)
		}

		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO state_journal (
                id, statement_id, from_state, to_state, transition_trigger, created_at
            ) VALUES (?, ?, NULL, ?, ?, ?)`,
			uuid.NewString(),
			rec.ID,
			pipeline.InitialState,
			creationTrigger,
			timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert creation journal entry: %w", err)
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, rec.ID)
}

// GetByID fetches a record by statement id. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM statements WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get statement: %w", err)
	}
	return record, nil
}

// GetByContentHash returns the record matching a content hash, nil when absent.
func (s *Store) GetByContentHash(ctx context.Context, hash string) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM statements WHERE content_hash = ?`, hash)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get statement by hash: %w", err)
	}
	return record, nil
}

// List returns records filtered by state set (or all records when no state is
// provided), ordered by creation time.
func (s *Store) List(ctx context.Context, states ...pipeline.State) ([]*Record, error) {
	ctx = ensureContext(ctx)

	baseQuery := `SELECT ` + recordColumns + ` FROM statements`
	orderClause := ` ORDER BY created_at, id`

	var (
		rows *sql.Rows
		err  error
	)
	if len(states) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(states))
		args := make([]any, len(states))
		for i, state := range states {
			args[i] = state
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE current_state IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// NextForStates returns the oldest record currently in any of the provided states.
func (s *Store) NextForStates(ctx context.Context, states ...pipeline.State) (*Record, error) {
	if len(states) == 0 {
		return nil, nil
	}
	ctx = ensureContext(ctx)

	placeholders := makePlaceholders(len(states))
	args := make([]any, len(states))
	for i, state := range states {
		args[i] = state
	}
	query := `SELECT ` + recordColumns + ` FROM statements WHERE current_state IN (` + placeholders + `) ORDER BY created_at, id LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListExpired returns records sitting in state whose last update predates cutoff.
func (s *Store) ListExpired(ctx context.Context, state pipeline.State, cutoff time.Time) ([]*Record, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM statements WHERE current_state = ? AND updated_at < ? ORDER BY updated_at`,
		state,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("list expired statements: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Stats returns a count of records grouped by state.
func (s *Store) Stats(ctx context.Context) (map[pipeline.State]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT current_state, COUNT(1) FROM statements GROUP BY current_state`)
	if err != nil {
		return nil, fmt.Errorf("statement stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[pipeline.State]int)
	for rows.Next() {
		var stateStr string
		var count int
		if err := rows.Scan(&stateStr, &count); err != nil {
			return nil, err
		}
		state, ok := pipeline.ParseState(stateStr)
		if !ok {
			return nil, fmt.Errorf("unknown state %q in statements table", stateStr)
		}
		stats[state] = count
	}
	return stats, rows.Err()
}

// SetTemplateBinding records the template a statement was matched to.
func (s *Store) SetTemplateBinding(ctx context.Context, id, templateID, templateVersion string) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE statements SET template_id = ?, template_version = ?, updated_at = ? WHERE id = ?`,
		nullableString(templateID),
		nullableString(templateVersion),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("set template binding: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// RecordError stores a failure code and message on the record and bumps its
// retry counter. Pipeline state is untouched; only the controller moves that.
func (s *Store) RecordError(ctx context.Context, id, code, message string) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE statements SET error_code = ?, error_message = ?, retry_count = retry_count + 1, updated_at = ? WHERE id = ?`,
		nullableString(code),
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("record error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func isUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, constraint)
}
