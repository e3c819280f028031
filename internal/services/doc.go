// Package services defines shared utilities consumed by the sync pipeline and
// the external-service clients.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and workbook paths for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent journal statuses (failed vs partial).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across stages.
package services
