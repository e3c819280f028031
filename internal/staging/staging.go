// Package staging copies workbook uploads into the staging directory and
// sweeps out leftovers from runs that never finished.
package staging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"quizsync/internal/fileutil"
	"quizsync/internal/textutil"
)

// Stage copies each input file into stagingDir under a unique name. The sync
// run owns the staged copies and deletes them when it ends; the caller's
// originals stay put. On failure any files already staged are removed.
func Stage(stagingDir string, paths []string) ([]string, error) {
	staged := make([]string, 0, len(paths))
	for _, path := range paths {
		name := textutil.SanitizeFileName(filepath.Base(path))
		if name == "" {
			name = "workbook.xlsx"
		}
		dest := filepath.Join(stagingDir, uuid.NewString()[:8]+"-"+name)
		if err := fileutil.CopyFileVerified(path, dest); err != nil {
			for _, already := range staged {
				_ = os.Remove(already)
			}
			return nil, fmt.Errorf("stage workbook %s: %w", path, err)
		}
		staged = append(staged, dest)
	}
	return staged, nil
}
