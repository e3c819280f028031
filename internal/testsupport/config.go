package testsupport

import (
	"path/filepath"
	"testing"

	"quizsync/internal/config"
)

// NewConfig creates a validated config rooted in a per-test temp directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(root, "staging")
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Ledger.SpreadsheetID = "test-spreadsheet"
	cfg.Ledger.AccessToken = "test-ledger-token"
	cfg.CRM.AccessToken = "test-crm-token"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("create test directories: %v", err)
	}
	return &cfg
}
