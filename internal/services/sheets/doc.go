// Package sheets is the client for the append-only spreadsheet ledger. Reads
// and writes both address the fixed A:H column span; appends land right after
// the last occupied row.
package sheets
