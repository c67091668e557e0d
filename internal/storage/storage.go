// Package storage lays out the on-disk document store: original PDFs,
// per-statement artifact directories, and a scratch area for uploads in
// flight.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bsie/internal/config"
)

const (
	pdfDirName      = "pdfs"
	artifactDirName = "artifacts"
	tempDirName     = "temp"
)

// Paths resolves locations under the configured storage root.
type Paths struct {
	root string
}

// NewPaths returns the path layout rooted at the config's storage directory.
func NewPaths(cfg *config.Config) *Paths {
	return &Paths{root: cfg.Paths.StorageDir}
}

// Root returns the storage root directory.
func (p *Paths) Root() string {
	return p.root
}

// Ensure creates the storage directory tree.
func (p *Paths) Ensure() error {
	for _, dir := range []string{p.root, p.PDFDir(), p.ArtifactRoot(), p.TempDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage directory %s: %w", dir, err)
		}
	}
	return nil
}

// PDFDir returns the directory holding ingested statement documents.
func (p *Paths) PDFDir() string {
	return filepath.Join(p.root, pdfDirName)
}

// PDFPath returns the canonical location for a statement's document. The
// extension of the original filename is preserved, defaulting to .pdf.
func (p *Paths) PDFPath(statementID, originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if ext == "" {
		ext = ".pdf"
	}
	return filepath.Join(p.PDFDir(), statementID+ext)
}

// ArtifactRoot returns the directory holding all per-statement artifact
// directories.
func (p *Paths) ArtifactRoot() string {
	return filepath.Join(p.root, artifactDirName)
}

// ArtifactDir returns one statement's artifact directory.
func (p *Paths) ArtifactDir(statementID string) string {
	return filepath.Join(p.ArtifactRoot(), statementID)
}

// ArtifactPath returns the location for a named artifact of a statement.
func (p *Paths) ArtifactPath(statementID, name string) string {
	return filepath.Join(p.ArtifactDir(statementID), name)
}

// TempDir returns the scratch directory for uploads in flight.
func (p *Paths) TempDir() string {
	return filepath.Join(p.root, tempDirName)
}

// WriteArtifact persists an artifact payload under the statement's artifact
// directory and returns its path.
func (p *Paths) WriteArtifact(statementID, name string, data []byte) (string, error) {
	dir := p.ArtifactDir(statementID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", path, err)
	}
	return path, nil
}
