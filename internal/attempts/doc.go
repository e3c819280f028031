// Package attempts pushes resolved quiz attendances into the CRM's attempt
// module: sequence-named records, existence checks before staging, and
// size-capped batch upserts.
package attempts
