// Package ingest brings uploaded statement documents under pipeline
// management: content hashing, duplicate detection, placement in the
// document store, and the first state transition.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"bsie/internal/fileutil"
	"bsie/internal/logging"
	"bsie/internal/pipeline"
	"bsie/internal/statecontrol"
	"bsie/internal/statement"
	"bsie/internal/storage"
)

// Trigger is the journal trigger recorded for the ingest transition.
const Trigger = "ingestion_complete"

// ReceiptArtifact is the artifact name the INGESTED state requires.
const ReceiptArtifact = "ingest_receipt"

// ErrDuplicate reports that a document with the same content hash is
// already under management.
var ErrDuplicate = errors.New("statement already ingested")

// Receipt is the JSON artifact written alongside a successful ingest.
type Receipt struct {
	StatementID      string    `json:"statement_id"`
	ContentHash      string    `json:"content_hash"`
	OriginalFilename string    `json:"original_filename"`
	SizeBytes        int64     `json:"size_bytes"`
	PageCount        int       `json:"page_count"`
	StoragePath      string    `json:"storage_path"`
	IngestedAt       time.Time `json:"ingested_at"`
}

// Service performs document ingestion end to end.
type Service struct {
	store      *statement.Store
	controller *statecontrol.Controller
	paths      *storage.Paths
	logger     *slog.Logger
}

// NewService wires an ingest service. A nil logger discards log output.
func NewService(store *statement.Store, controller *statecontrol.Controller, paths *storage.Paths, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		controller: controller,
		paths:      paths,
		logger:     logging.NewComponentLogger(logger, "ingest"),
	}
}

// Ingest takes a document at sourcePath, verifies it is new, copies it into
// the document store, creates the statement record, and advances it to
// INGESTED with its receipt artifact. Duplicate content returns ErrDuplicate
// wrapped with the existing statement's ID.
func (s *Service) Ingest(ctx context.Context, sourcePath, originalFilename string) (*statement.Record, error) {
	if strings.TrimSpace(originalFilename) == "" {
		originalFilename = filepath.Base(sourcePath)
	}

	hash, err := fileutil.HashFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("hash document: %w", err)
	}
	existing, err := s.store.GetByContentHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w as %s", ErrDuplicate, existing.ID)
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}

	id := NewStatementID()
	storagePath := s.paths.PDFPath(id, originalFilename)
	if err := fileutil.CopyFileVerified(sourcePath, storagePath); err != nil {
		return nil, fmt.Errorf("copy document into store: %w", err)
	}

	pageCount, err := countPDFPages(storagePath)
	if err != nil {
		// Page count is informational; an unreadable structure does not
		// block ingestion.
		s.logger.Warn("page count failed",
			logging.String(logging.FieldStatementID, id),
			logging.Error(err))
		pageCount = 0
	}

	record, err := s.controller.CreateStatement(ctx, statement.NewRecord{
		ID:               id,
		ContentHash:      hash,
		OriginalFilename: originalFilename,
		SizeBytes:        info.Size(),
		PageCount:        pageCount,
		StoragePath:      storagePath,
	})
	if err != nil {
		_ = os.Remove(storagePath)
		if errors.Is(err, statement.ErrDuplicateContentHash) {
			return nil, fmt.Errorf("%w under another id", ErrDuplicate)
		}
		return nil, fmt.Errorf("create statement: %w", err)
	}

	receiptPath, err := s.writeReceipt(record)
	if err != nil {
		return nil, err
	}

	result, err := s.controller.Transition(ctx, statecontrol.TransitionRequest{
		StatementID: record.ID,
		ToState:     pipeline.StateIngested,
		Trigger:     Trigger,
		Artifacts:   map[string]string{ReceiptArtifact: receiptPath},
		WorkerID:    "ingest",
	})
	if err != nil {
		return nil, fmt.Errorf("advance to %s: %w", pipeline.StateIngested, err)
	}
	if result.Failed() {
		return nil, fmt.Errorf("advance to %s: %s", pipeline.StateIngested, result.Error)
	}

	s.logger.Info("document ingested",
		logging.String(logging.FieldStatementID, record.ID),
		logging.String("filename", originalFilename),
		logging.Int64("size_bytes", info.Size()),
		logging.Int("pages", pageCount))

	return s.controller.Statement(ctx, record.ID)
}

func (s *Service) writeReceipt(record *statement.Record) (string, error) {
	receipt := Receipt{
		StatementID:      record.ID,
		ContentHash:      record.ContentHash,
		OriginalFilename: record.OriginalFilename,
		SizeBytes:        record.SizeBytes,
		PageCount:        record.PageCount,
		StoragePath:      record.StoragePath,
		IngestedAt:       time.Now().UTC(),
	}
	data, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode receipt: %w", err)
	}
	path, err := s.paths.WriteArtifact(record.ID, "ingest_receipt.json", data)
	if err != nil {
		return "", fmt.Errorf("write receipt: %w", err)
	}
	return path, nil
}

// NewStatementID returns a fresh statement identifier.
func NewStatementID() string {
	return "stmt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// countPDFPages counts page objects by scanning for /Type /Page markers.
// Good enough for bank statements; a zero count is recorded as unknown.
func countPDFPages(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, marker := range [][]byte{[]byte("/Type /Page"), []byte("/Type/Page")} {
		rest := data
		for {
			idx := bytes.Index(rest, marker)
			if idx < 0 {
				break
			}
			after := rest[idx+len(marker):]
			// Skip the page-tree node, /Type /Pages.
			if len(after) == 0 || after[0] != 's' {
				count++
			}
			rest = after
		}
	}
	return count, nil
}
