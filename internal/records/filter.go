package records

import "quizsync/internal/textutil"

// Ledger row column offsets for the identity fields.
const (
	colEmail     = 3
	colSessionID = 5
)

// FilterNew returns the records not already present in the ledger, preserving
// input order. Presence is judged on the normalized (email, session id) pair;
// duplicates within the input batch itself are also collapsed, keeping the
// first occurrence.
func FilterNew(candidates []AttendanceRecord, ledgerRows [][]string) []AttendanceRecord {
	seen := make(map[string]struct{}, len(ledgerRows)+len(candidates))
	for _, row := range ledgerRows {
		if len(row) <= colSessionID {
			continue
		}
		seen[textutil.IdentityKey(row[colEmail], row[colSessionID])] = struct{}{}
	}

	fresh := make([]AttendanceRecord, 0, len(candidates))
	for _, record := range candidates {
		key := record.IdentityKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, record)
	}
	return fresh
}
