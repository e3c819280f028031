// Package pipeline orchestrates a sync run: staged workbooks are extracted,
// deduplicated against the ledger, appended, resolved against the CRM, and
// synced as attempt records. Runs are serialized by a file lock, journaled,
// and always clean up their staged inputs.
package pipeline
