package testsupport

import (
	"context"
	"fmt"
	"testing"

	"bsie/internal/config"
	"bsie/internal/statement"
)

// MustOpenStore opens a statement.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *statement.Store {
	t.Helper()

	store, err := statement.Open(cfg)
	if err != nil {
		t.Fatalf("statement.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewStatement creates a fresh record for tests. The suffix keeps ids and
// content hashes unique within one store.
func NewStatement(t testing.TB, store *statement.Store, suffix string) *statement.Record {
	t.Helper()

	record, err := store.Create(context.Background(), statement.NewRecord{
		ID:               fmt.Sprintf("stmt_%s", suffix),
		ContentHash:      fmt.Sprintf("hash-%s", suffix),
		OriginalFilename: fmt.Sprintf("statement-%s.pdf", suffix),
		SizeBytes:        2048,
		PageCount:        3,
		StoragePath:      fmt.Sprintf("/tmp/%s.pdf", suffix),
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return record
}
