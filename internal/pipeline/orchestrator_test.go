package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"quizsync/internal/attempts"
	"quizsync/internal/config"
	"quizsync/internal/extract"
	"quizsync/internal/journal"
	"quizsync/internal/logging"
	"quizsync/internal/resolve"
	"quizsync/internal/services"
	"quizsync/internal/services/crm"
	"quizsync/internal/testsupport"
)

type memoryLedger struct {
	rows     [][]string
	fetchErr error
}

func (l *memoryLedger) FetchAll(context.Context) ([][]string, error) {
	if l.fetchErr != nil {
		return nil, l.fetchErr
	}
	return l.rows, nil
}

func (l *memoryLedger) Append(_ context.Context, rows [][]string) (int, error) {
	start := len(l.rows) + 1
	l.rows = append(l.rows, rows...)
	return start, nil
}

type memoryDirectory struct{}

func (memoryDirectory) SearchContact(_ context.Context, email string) (crm.Contact, error) {
	return crm.Contact{ID: "contact-" + email}, nil
}

func (memoryDirectory) FindSession(_ context.Context, sessionID string) (crm.Session, error) {
	return crm.Session{ID: "session-" + sessionID, DateTime: "2024-03-01T14:30:00+00:00"}, nil
}

type memoryAttempts struct {
	count    int
	existing map[string]bool
	batches  [][]crm.Attempt
}

func (m *memoryAttempts) CountAttempts(context.Context) (int, error) { return m.count, nil }

func (m *memoryAttempts) AttemptExists(_ context.Context, contactID, sessionEntityID string) (bool, error) {
	return m.existing[contactID+"/"+sessionEntityID], nil
}

func (m *memoryAttempts) UpsertAttempts(_ context.Context, batch []crm.Attempt) error {
	copied := make([]crm.Attempt, len(batch))
	copy(copied, batch)
	m.batches = append(m.batches, copied)
	for _, attempt := range batch {
		m.existing[attempt.ContactID+"/"+attempt.SessionID] = true
	}
	m.count += len(batch)
	return nil
}

type failingSyncer struct{}

func (failingSyncer) Sync(context.Context, []resolve.Entity) (attempts.Result, error) {
	return attempts.Result{}, services.Wrap(services.ErrTransport, "attempts", "flush batch", "", errors.New("boom"))
}

type harness struct {
	cfg    *config.Config
	store  *journal.Store
	ledger *memoryLedger
	api    *memoryAttempts
	deps   Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	extractor, err := extract.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	ledger := &memoryLedger{}
	api := &memoryAttempts{count: 57, existing: map[string]bool{}}

	return &harness{
		cfg:    cfg,
		store:  store,
		ledger: ledger,
		api:    api,
		deps: Deps{
			Config:    cfg,
			Store:     store,
			Extractor: extractor,
			Ledger:    ledger,
			Resolver:  resolve.New(cfg, memoryDirectory{}, logging.NewNop()),
			Syncer:    attempts.New(cfg, api, logging.NewNop()),
			Logger:    logging.NewNop(),
		},
	}
}

func janeWorkbook(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	return testsupport.WriteWorkbook(t, cfg.Paths.StagingDir, name, testsupport.Workbook{
		SessionID: "42",
		Polls:     10,
		Roster: []testsupport.RosterEntry{
			{First: "Jane", Last: "Doe", Email: "jane@x.com", Timestamp: "2024-03-01 14:30:00"},
		},
		Polling: []testsupport.PollingEntry{
			{First: "Jane", Last: "Doe", Email: "jane@x.com", Correct: 7,
				Answers: []string{"A", "", "B", "C", "", "D", "A", "B", "C", "D"}},
		},
	})
}

func TestRunEndToEnd(t *testing.T) {
	h := newHarness(t)
	path := janeWorkbook(t, h.cfg, "session.xlsx")

	orch, err := New(h.deps)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	result, err := orch.Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(h.ledger.rows) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(h.ledger.rows))
	}
	want := []string{"Jane", "Doe", "7", "jane@x.com", "Fri Mar 01 2024", "42", "8", "10"}
	for i, cell := range want {
		if h.ledger.rows[0][i] != cell {
			t.Fatalf("ledger column %d = %q, want %q", i, h.ledger.rows[0][i], cell)
		}
	}

	if result.Attempts.Created != 1 || result.Attempts.Batches != 1 {
		t.Fatalf("attempts result: %+v", result.Attempts)
	}
	if h.api.batches[0][0].Name != "58" {
		t.Fatalf("attempt sequence name = %q, want 58", h.api.batches[0][0].Name)
	}

	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("staged workbook should be deleted, stat err = %v", err)
	}

	run, err := h.store.GetRun(context.Background(), result.RunID)
	if err != nil || run == nil {
		t.Fatalf("journal run missing: %v", err)
	}
	if run.Status != journal.StatusCompleted || run.RowsAppended != 1 || run.AttemptsCreated != 1 {
		t.Fatalf("journal run mismatch: %+v", run)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	h := newHarness(t)
	orch, err := New(h.deps)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	first := janeWorkbook(t, h.cfg, "first.xlsx")
	if _, err := orch.Run(context.Background(), []string{first}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := janeWorkbook(t, h.cfg, "second.xlsx")
	result, err := orch.Run(context.Background(), []string{second})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(h.ledger.rows) != 1 {
		t.Fatalf("re-upload duplicated ledger rows: %d", len(h.ledger.rows))
	}
	if result.Fresh != 0 || result.Attempts.Created != 0 {
		t.Fatalf("re-upload created work: %+v", result)
	}
	if len(h.api.batches) != 1 {
		t.Fatalf("re-upload flushed %d batches, want 1", len(h.api.batches))
	}
}

func TestRunPartialWhenSyncFailsAfterAppend(t *testing.T) {
	h := newHarness(t)
	h.deps.Syncer = failingSyncer{}
	orch, err := New(h.deps)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	path := janeWorkbook(t, h.cfg, "session.xlsx")
	result, err := orch.Run(context.Background(), []string{path})
	if err == nil {
		t.Fatal("expected run failure")
	}
	if len(result.AppendedRows) != 1 {
		t.Fatalf("ledger append should have happened: %+v", result)
	}

	run, jerr := h.store.GetRun(context.Background(), result.RunID)
	if jerr != nil || run == nil {
		t.Fatalf("journal run missing: %v", jerr)
	}
	if run.Status != journal.StatusPartial {
		t.Fatalf("run status = %s, want partial", run.Status)
	}

	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("staged workbook should be deleted on failure too")
	}
}

func TestRunRepairsPartialPropagationOnRetry(t *testing.T) {
	h := newHarness(t)

	brokenDeps := h.deps
	brokenDeps.Syncer = failingSyncer{}
	broken, err := New(brokenDeps)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	first := janeWorkbook(t, h.cfg, "first.xlsx")
	if _, err := broken.Run(context.Background(), []string{first}); err == nil {
		t.Fatal("expected first run to fail in the attempt sync")
	}
	if len(h.ledger.rows) != 1 {
		t.Fatalf("ledger rows after partial run = %d, want 1", len(h.ledger.rows))
	}
	if len(h.api.batches) != 0 {
		t.Fatalf("partial run flushed %d batches, want 0", len(h.api.batches))
	}

	orch, err := New(h.deps)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	second := janeWorkbook(t, h.cfg, "second.xlsx")
	result, err := orch.Run(context.Background(), []string{second})
	if err != nil {
		t.Fatalf("retry run: %v", err)
	}

	if result.Fresh != 0 || len(h.ledger.rows) != 1 {
		t.Fatalf("retry should not touch the ledger: fresh=%d rows=%d", result.Fresh, len(h.ledger.rows))
	}
	if result.Attempts.Created != 1 {
		t.Fatalf("retry created %d attempts, want 1", result.Attempts.Created)
	}
	if len(h.api.batches) != 1 || h.api.batches[0][0].Name != "58" {
		t.Fatalf("retry batches: %+v", h.api.batches)
	}

	run, jerr := h.store.GetRun(context.Background(), result.RunID)
	if jerr != nil || run == nil {
		t.Fatalf("journal run missing: %v", jerr)
	}
	if run.Status != journal.StatusCompleted {
		t.Fatalf("retry run status = %s, want completed", run.Status)
	}
}

func TestRunFailsBeforeSinksOnBadWorkbook(t *testing.T) {
	h := newHarness(t)
	orch, err := New(h.deps)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	bad := filepath.Join(h.cfg.Paths.StagingDir, "broken.xlsx")
	if err := os.WriteFile(bad, []byte("not a workbook"), 0o644); err != nil {
		t.Fatalf("write bad file: %v", err)
	}

	result, err := orch.Run(context.Background(), []string{bad})
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if len(h.ledger.rows) != 0 {
		t.Fatal("ledger must stay untouched on extraction failure")
	}

	run, jerr := h.store.GetRun(context.Background(), result.RunID)
	if jerr != nil || run == nil {
		t.Fatalf("journal run missing: %v", jerr)
	}
	if run.Status != journal.StatusFailed {
		t.Fatalf("run status = %s, want failed", run.Status)
	}
}

func TestRunRejectsEmptyStaging(t *testing.T) {
	h := newHarness(t)
	orch, err := New(h.deps)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	if _, err := orch.Run(context.Background(), nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
