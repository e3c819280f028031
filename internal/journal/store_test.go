package journal

import (
	"context"
	"testing"

	"quizsync/internal/testsupport"
)

func TestStartAndFinishRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	run, err := store.StartRun(ctx, "run-1", 2)
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if run.Status != StatusRunning {
		t.Fatalf("expected running status, got %s", run.Status)
	}
	if run.Workbooks != 2 {
		t.Fatalf("expected 2 workbooks, got %d", run.Workbooks)
	}

	counts := Counts{RecordsExtracted: 10, RowsAppended: 4, AttemptsCreated: 3, AttemptsSkipped: 1, RecordsDropped: 2}
	if err := store.FinishRun(ctx, "run-1", StatusCompleted, counts, ""); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.FinishedAt == nil {
		t.Fatal("expected finished timestamp")
	}
	if got.RowsAppended != 4 || got.AttemptsCreated != 3 {
		t.Fatalf("counts not persisted: %+v", got)
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := store.StartRun(ctx, id, 1); err != nil {
			t.Fatalf("start run %s: %v", id, err)
		}
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "c" {
		t.Fatalf("expected newest run first, got %s", runs[0].ID)
	}
}

func TestLastPartial(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.StartRun(ctx, "ok", 1); err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := store.FinishRun(ctx, "ok", StatusCompleted, Counts{}, ""); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	partial, err := store.LastPartial(ctx)
	if err != nil {
		t.Fatalf("last partial: %v", err)
	}
	if partial != nil {
		t.Fatalf("expected no partial run, got %s", partial.ID)
	}

	if _, err := store.StartRun(ctx, "half", 1); err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := store.FinishRun(ctx, "half", StatusPartial, Counts{RowsAppended: 2}, "crm upsert failed"); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	partial, err = store.LastPartial(ctx)
	if err != nil {
		t.Fatalf("last partial: %v", err)
	}
	if partial == nil || partial.ID != "half" {
		t.Fatalf("expected partial run 'half', got %+v", partial)
	}
	if partial.ErrorMessage != "crm upsert failed" {
		t.Fatalf("error message not persisted: %q", partial.ErrorMessage)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[StatusCompleted] != 1 || stats[StatusPartial] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
