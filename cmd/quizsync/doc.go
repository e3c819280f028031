// Command quizsync ingests exported quiz-session workbooks and idempotently
// syncs new attendance records to the spreadsheet ledger and the CRM.
package main
