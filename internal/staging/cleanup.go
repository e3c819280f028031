package staging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quizsync/internal/logging"
)

// DefaultMaxAge is how long a staged workbook may sit before the next run
// treats it as abandoned. Staged copies are deleted when a run ends, so
// anything this old belongs to a run that crashed or was killed.
const DefaultMaxAge = 24 * time.Hour

// CleanResult contains the outcome of a stale staging cleanup.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a staged file path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes staged workbooks older than maxAge. It returns the list
// of removed files and any errors encountered; a missing staging directory is
// not an error.
func CleanStale(stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filePath := filepath.Join(stagingDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: filePath, Error: err})
			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(filePath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: filePath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale staged workbook",
					logging.String("path", filePath),
					logging.Error(err),
				)
			}
		} else {
			result.Removed = append(result.Removed, filePath)
			if logger != nil {
				logger.Info("removed stale staged workbook",
					logging.String("path", filePath),
					logging.Duration("age", time.Since(info.ModTime())),
				)
			}
		}
	}

	return result
}
