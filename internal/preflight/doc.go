// Package preflight verifies the environment before a sync run: directory
// access, staging disk headroom, ledger reachability, and CRM authentication.
package preflight
