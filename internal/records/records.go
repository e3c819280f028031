package records

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"quizsync/internal/textutil"
)

// DateLayout is the human-readable date format written to the ledger,
// e.g. "Fri Mar 01 2024".
const DateLayout = "Mon Jan 02 2006"

// AttendanceRecord is one participant's result for one quiz session.
type AttendanceRecord struct {
	FirstName      string
	LastName       string
	Email          string
	SessionID      string
	SessionDate    string
	CorrectCount   int
	AttemptedPolls int
	PolledCount    int
}

// IdentityKey returns the dedup key for this record. Two records with the
// same key describe the same (participant, session) pair.
func (r AttendanceRecord) IdentityKey() string {
	return textutil.IdentityKey(r.Email, r.SessionID)
}

// FullName returns the participant's display name.
func (r AttendanceRecord) FullName() string {
	return textutil.FullName(r.FirstName, r.LastName)
}

// LedgerRow converts the record into the ledger's 8-column row shape:
// first name, last name, correct answers, email, session date, session id,
// attempted polls, polled count.
func (r AttendanceRecord) LedgerRow() []string {
	return []string{
		r.FirstName,
		r.LastName,
		strconv.Itoa(r.CorrectCount),
		r.Email,
		r.SessionDate,
		r.SessionID,
		strconv.Itoa(r.AttemptedPolls),
		strconv.Itoa(r.PolledCount),
	}
}

// FromLedgerRow reconstructs a record from a ledger row. Short rows and
// malformed numeric columns return an error so callers can skip corrupt
// entries without aborting a run.
func FromLedgerRow(row []string) (AttendanceRecord, error) {
	if len(row) < 8 {
		return AttendanceRecord{}, fmt.Errorf("ledger row has %d columns, want 8", len(row))
	}
	correct, err := parseCount(row[2])
	if err != nil {
		return AttendanceRecord{}, fmt.Errorf("correct count: %w", err)
	}
	attempted, err := parseCount(row[6])
	if err != nil {
		return AttendanceRecord{}, fmt.Errorf("attempted count: %w", err)
	}
	polled, err := parseCount(row[7])
	if err != nil {
		return AttendanceRecord{}, fmt.Errorf("polled count: %w", err)
	}
	return AttendanceRecord{
		FirstName:      row[0],
		LastName:       row[1],
		CorrectCount:   correct,
		Email:          row[3],
		SessionDate:    row[4],
		SessionID:      row[5],
		AttemptedPolls: attempted,
		PolledCount:    polled,
	}, nil
}

// FormatSessionDate renders a session timestamp in the ledger date format.
func FormatSessionDate(t time.Time) string {
	return t.Format(DateLayout)
}

func parseCount(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return n, nil
}
