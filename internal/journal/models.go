package journal

import "time"

// Status describes the terminal (or in-flight) state of a sync run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	// StatusPartial marks runs where the ledger was updated but the CRM sync
	// did not finish. The next run repairs it: both sinks are re-checked
	// independently before any write.
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Run records the outcome of one sync invocation. The external ledger and CRM
// remain the only durable record state; the journal stores run outcomes for
// operators.
type Run struct {
	ID               string
	Status           Status
	StartedAt        time.Time
	FinishedAt       *time.Time
	Workbooks        int
	RecordsExtracted int
	RowsAppended     int
	AttemptsCreated  int
	AttemptsSkipped  int
	RecordsDropped   int
	ErrorMessage     string
}

// Counts carries the per-stage tallies persisted when a run finishes.
type Counts struct {
	RecordsExtracted int
	RowsAppended     int
	AttemptsCreated  int
	AttemptsSkipped  int
	RecordsDropped   int
}
