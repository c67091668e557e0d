package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bsie/internal/testsupport"
)

func TestEnsureCreatesLayout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	paths := NewPaths(cfg)

	if err := paths.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	for _, dir := range []string{paths.PDFDir(), paths.ArtifactRoot(), paths.TempDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
}

func TestPDFPathPreservesExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	paths := NewPaths(cfg)

	got := paths.PDFPath("stmt_abc", "Statement May.PDF")
	if filepath.Ext(got) != ".pdf" {
		t.Fatalf("extension = %s", filepath.Ext(got))
	}
	if filepath.Base(got) != "stmt_abc.pdf" {
		t.Fatalf("base = %s", filepath.Base(got))
	}

	if got := paths.PDFPath("stmt_abc", "noext"); filepath.Base(got) != "stmt_abc.pdf" {
		t.Fatalf("default extension: base = %s", filepath.Base(got))
	}
}

func TestWriteArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	paths := NewPaths(cfg)
	if err := paths.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	path, err := paths.WriteArtifact("stmt_abc", "ingest_receipt.json", []byte(`{"ok":true}`))
	if err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	if filepath.Dir(path) != paths.ArtifactDir("stmt_abc") {
		t.Fatalf("artifact written outside statement directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("artifact content = %s", data)
	}
}

func TestCleanTempRemovesOnlyStaleEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	paths := NewPaths(cfg)
	if err := paths.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	stale := filepath.Join(paths.TempDir(), "old-upload.pdf")
	fresh := filepath.Join(paths.TempDir(), "new-upload.pdf")
	for _, path := range []string{stale, fresh} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, past, past); err != nil {
		t.Fatal(err)
	}

	result := paths.CleanTemp(time.Hour, nil)
	if len(result.Errors) != 0 {
		t.Fatalf("cleanup errors: %v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != stale {
		t.Fatalf("removed = %v", result.Removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh entry removed: %v", err)
	}
}
