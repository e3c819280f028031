package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"quizsync/internal/attempts"
	"quizsync/internal/config"
	"quizsync/internal/journal"
	"quizsync/internal/logging"
	"quizsync/internal/records"
	"quizsync/internal/resolve"
	"quizsync/internal/services"
	"quizsync/internal/services/rewards"
)

// Extractor turns staged workbook files into attendance records.
type Extractor interface {
	ExtractAll(ctx context.Context, paths []string) ([]records.AttendanceRecord, error)
}

// Ledger is the append-only spreadsheet sink.
type Ledger interface {
	FetchAll(ctx context.Context) ([][]string, error)
	Append(ctx context.Context, rows [][]string) (int, error)
}

// Resolver attaches CRM identities to attendance records.
type Resolver interface {
	Resolve(ctx context.Context, recs []records.AttendanceRecord) ([]resolve.Entity, int, error)
}

// AttemptSyncer pushes resolved entities into the CRM attempt module.
type AttemptSyncer interface {
	Sync(ctx context.Context, entities []resolve.Entity) (attempts.Result, error)
}

// PlayerSink is the optional rewards service.
type PlayerSink interface {
	EnsurePlayer(ctx context.Context, email, displayName string) (rewards.Player, error)
}

// Deps bundles the orchestrator's collaborators. Players may be nil when the
// rewards sink is disabled.
type Deps struct {
	Config    *config.Config
	Store     *journal.Store
	Extractor Extractor
	Ledger    Ledger
	Resolver  Resolver
	Syncer    AttemptSyncer
	Players   PlayerSink
	Logger    *slog.Logger
}

// RunResult summarizes one sync run.
type RunResult struct {
	RunID          string
	Extracted      int
	Fresh          int
	AppendedRows   [][]string
	ResolveDropped int
	Attempts       attempts.Result
	PlayersEnsured int
}

// Orchestrator drives one sync run end to end: extract, dedup, ledger append,
// entity resolution, attempt sync, and the optional rewards pass.
type Orchestrator struct {
	deps   Deps
	logger *slog.Logger
}

// New validates the dependency set and builds an orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Config == nil {
		return nil, errors.New("pipeline: config required")
	}
	if deps.Store == nil {
		return nil, errors.New("pipeline: journal store required")
	}
	if deps.Extractor == nil || deps.Ledger == nil || deps.Resolver == nil || deps.Syncer == nil {
		return nil, errors.New("pipeline: extractor, ledger, resolver, and syncer required")
	}
	return &Orchestrator{
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "pipeline"),
	}, nil
}

// Run executes the full sync flow over the staged workbook files. The staged
// files are deleted on every exit path; the run journal records the outcome,
// including the partial state where the ledger was written but the CRM sync
// did not finish.
func (o *Orchestrator) Run(ctx context.Context, workbookPaths []string) (*RunResult, error) {
	defer o.cleanupStaged(workbookPaths)

	if len(workbookPaths) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "start run", "no workbooks staged", nil)
	}

	lock := flock.New(filepath.Join(o.deps.Config.Paths.DataDir, "quizsync.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "acquire run lock", lock.Path(), err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "acquire run lock",
			"another sync run is in progress", nil)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("sync run started", logging.Int("workbooks", len(workbookPaths)))

	if _, err := o.deps.Store.StartRun(ctx, runID, len(workbookPaths)); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "journal run", "", err)
	}

	result := &RunResult{RunID: runID}
	ledgerTouched := false

	finish := func(status journal.Status, runErr error) {
		message := ""
		if runErr != nil {
			message = runErr.Error()
		}
		counts := journal.Counts{
			RecordsExtracted: result.Extracted,
			RowsAppended:     len(result.AppendedRows),
			AttemptsCreated:  result.Attempts.Created,
			AttemptsSkipped:  result.Attempts.Skipped,
			RecordsDropped:   result.ResolveDropped,
		}
		if err := o.deps.Store.FinishRun(ctx, runID, status, counts, message); err != nil {
			logger.Error("journal update failed", logging.Error(err))
		}
	}
	fail := func(runErr error) (*RunResult, error) {
		finish(services.FailureStatus(runErr, ledgerTouched), runErr)
		logger.Error("sync run failed", logging.Error(runErr))
		return result, runErr
	}

	recs, err := o.deps.Extractor.ExtractAll(services.WithStage(ctx, "extract"), workbookPaths)
	if err != nil {
		return fail(err)
	}
	result.Extracted = len(recs)
	if len(recs) == 0 {
		return fail(services.Wrap(services.ErrExtraction, "pipeline", "extract",
			"workbooks produced no attendance records", nil))
	}

	ledgerCtx := services.WithStage(ctx, "ledger")
	existing, err := o.deps.Ledger.FetchAll(ledgerCtx)
	if err != nil {
		return fail(err)
	}
	fresh := records.FilterNew(recs, existing)
	result.Fresh = len(fresh)
	if len(fresh) == 0 {
		logger.Info("all records already in ledger")
	} else {
		rows := make([][]string, len(fresh))
		for i, rec := range fresh {
			rows[i] = rec.LedgerRow()
		}
		if _, err := o.deps.Ledger.Append(ledgerCtx, rows); err != nil {
			return fail(err)
		}
		ledgerTouched = true
		result.AppendedRows = rows
	}

	// The CRM stage sees the whole batch, not just the ledger-fresh subset.
	// The two sinks dedup independently: the attempt existence check skips
	// anything already synced, and a run that appended to the ledger but died
	// before the CRM finished is repaired by re-uploading the same workbook.
	candidates := records.FilterNew(recs, nil)

	entities, dropped, err := o.deps.Resolver.Resolve(services.WithStage(ctx, "resolve"), candidates)
	if err != nil {
		return fail(err)
	}
	result.ResolveDropped = dropped

	syncResult, err := o.deps.Syncer.Sync(services.WithStage(ctx, "attempts"), entities)
	result.Attempts = syncResult
	if err != nil {
		return fail(err)
	}

	if o.deps.Players != nil {
		result.PlayersEnsured = o.ensurePlayers(services.WithStage(ctx, "rewards"), entities, logger)
	}

	finish(journal.StatusCompleted, nil)
	logger.Info("sync run completed",
		logging.Int("extracted", result.Extracted),
		logging.Int("appended", len(result.AppendedRows)),
		logging.Int("attempts_created", result.Attempts.Created),
		logging.Int("attempts_skipped", result.Attempts.Skipped),
		logging.Int("dropped", result.ResolveDropped))
	return result, nil
}

// ensurePlayers is best effort: a rewards failure never fails the run.
func (o *Orchestrator) ensurePlayers(ctx context.Context, entities []resolve.Entity, logger *slog.Logger) int {
	ensured := 0
	for _, entity := range entities {
		rec := entity.Record
		if _, err := o.deps.Players.EnsurePlayer(ctx, rec.Email, rec.FullName()); err != nil {
			logger.Warn("rewards player not ensured",
				logging.String(logging.FieldEmail, rec.Email),
				logging.Error(err))
			continue
		}
		ensured++
	}
	return ensured
}

func (o *Orchestrator) cleanupStaged(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			o.logger.Warn("staged workbook not removed",
				logging.String(logging.FieldWorkbook, path),
				logging.Error(err))
		}
	}
}

// Describe renders a one-line human summary of the run outcome.
func (r *RunResult) Describe() string {
	if r == nil {
		return "no run"
	}
	return fmt.Sprintf("extracted %d, appended %d, attempts created %d (skipped %d), dropped %d",
		r.Extracted, len(r.AppendedRows), r.Attempts.Created, r.Attempts.Skipped, r.ResolveDropped)
}
