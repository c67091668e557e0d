package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bsie/internal/logging"
)

// CleanTempResult contains the outcome of a scratch-area cleanup pass.
type CleanTempResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanTemp removes scratch files older than maxAge. Uploads abandoned
// mid-flight accumulate here; the daemon sweeps the directory periodically.
func (p *Paths) CleanTemp(maxAge time.Duration, logger *slog.Logger) CleanTempResult {
	result := CleanTempResult{}

	entries, err := os.ReadDir(p.TempDir())
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: p.TempDir(), Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		path := filepath.Join(p.TempDir(), entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale temp entry",
					logging.String("path", path),
					logging.Error(err))
			}
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed stale temp entry",
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime())))
		}
	}

	return result
}
