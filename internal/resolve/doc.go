// Package resolve maps attendance records to their CRM contact and session
// entities with a bounded number of concurrent lookups. Records that cannot
// be fully resolved are dropped from the run rather than retried.
package resolve
