package preflight

import (
	"context"

	"quizsync/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Ledger is the subset of the sheets client the checks need.
type Ledger interface {
	FetchAll(ctx context.Context) ([][]string, error)
}

// AttemptCounter is the subset of the CRM client the checks need.
type AttemptCounter interface {
	CountAttempts(ctx context.Context) (int, error)
}

// Deps carries the service clients the remote checks probe. Nil clients skip
// their check with a failed result naming the missing credential.
type Deps struct {
	Ledger Ledger
	CRM    AttemptCounter
}

// RunAll executes every applicable preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config, deps Deps) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDiskSpace("Staging free space", cfg.Paths.StagingDir))
	results = append(results, CheckLedger(ctx, deps.Ledger))
	results = append(results, CheckCRM(ctx, deps.CRM))
	return results
}
