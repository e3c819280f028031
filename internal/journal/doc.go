// Package journal persists sync-run outcomes in SQLite.
//
// The Store records one row per pipeline invocation: when it started, how it
// ended (completed, partial, failed), and the per-stage counts. Partial runs
// mark the detectable state where the ledger was updated but the CRM sync did
// not finish; the next run repairs it because both sinks are re-checked
// independently.
//
// The database is operator-facing history only. The external ledger and CRM
// remain the sole systems of record for attendance data. Schema changes bump
// the version in schema.go; users delete the database to adopt a new schema.
package journal
