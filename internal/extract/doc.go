// Package extract parses exported quiz-session workbooks into attendance
// records.
//
// A workbook carries a roster sheet (participants, join timestamps, the
// session identifier) and a polling sheet (per-participant scores and answer
// cells). Cell positions differ between export variants; each variant is
// described by a declarative Layout so the extraction loop itself stays
// variant-agnostic. Dummy accounts and roster-less polling rows are dropped;
// structural problems fail the whole batch.
package extract
