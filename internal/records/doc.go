// Package records defines the attendance record model shared by the
// extraction, ledger, and CRM sync stages, plus the dedup filter that makes
// repeat uploads idempotent.
package records
