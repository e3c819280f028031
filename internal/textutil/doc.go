// Package textutil provides text canonicalization helpers for identity
// comparison and filename sanitization.
//
// Attendance identity is keyed on (email, session); emails are NFKC
// normalized and case folded so spreadsheet casing variations collapse to a
// single key, and numeric session identifiers are stripped of leading zeros.
package textutil
