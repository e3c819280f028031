package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"quizsync/internal/config"
)

// Store manages run-journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "journal.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the journal database location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// StartRun records a new in-flight run.
func (s *Store) StartRun(ctx context.Context, id string, workbooks int) (*Run, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sync_runs (id, status, started_at, workbooks) VALUES (?, ?, ?, ?)`,
		id,
		StatusRunning,
		now.Format(time.RFC3339Nano),
		workbooks,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.GetRun(ctx, id)
}

// FinishRun stamps a run with its terminal status and counts.
func (s *Store) FinishRun(ctx context.Context, id string, status Status, counts Counts, errMessage string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE sync_runs
         SET status = ?, finished_at = ?, records_extracted = ?, rows_appended = ?,
             attempts_created = ?, attempts_skipped = ?, records_dropped = ?, error_message = ?
         WHERE id = ?`,
		status,
		now.Format(time.RFC3339Nano),
		counts.RecordsExtracted,
		counts.RowsAppended,
		counts.AttemptsCreated,
		counts.AttemptsSkipped,
		counts.RecordsDropped,
		nullableString(errMessage),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetRun fetches a run by identifier.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM sync_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+runColumns+` FROM sync_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LastPartial returns the most recent partial run, or nil when every run
// propagated fully.
func (s *Store) LastPartial(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+runColumns+` FROM sync_runs WHERE status = ? ORDER BY started_at DESC LIMIT 1`,
		StatusPartial,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last partial run: %w", err)
	}
	return run, nil
}

// Stats returns a count of runs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM sync_runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

const runColumns = "id, status, started_at, finished_at, workbooks, records_extracted, rows_appended, attempts_created, attempts_skipped, records_dropped, error_message"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id          string
		statusStr   string
		startedRaw  string
		finishedRaw sql.NullString
		workbooks   int
		extracted   int
		appended    int
		created     int
		skipped     int
		dropped     int
		errMessage  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&statusStr,
		&startedRaw,
		&finishedRaw,
		&workbooks,
		&extracted,
		&appended,
		&created,
		&skipped,
		&dropped,
		&errMessage,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:               id,
		Status:           Status(statusStr),
		Workbooks:        workbooks,
		RecordsExtracted: extracted,
		RowsAppended:     appended,
		AttemptsCreated:  created,
		AttemptsSkipped:  skipped,
		RecordsDropped:   dropped,
		ErrorMessage:     errMessage.String,
	}
	if started, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := time.Parse(time.RFC3339Nano, finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
