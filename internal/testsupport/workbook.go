package testsupport

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/xuri/excelize/v2"
)

// RosterEntry is one participant row on a fixture workbook's roster sheet.
type RosterEntry struct {
	First     string
	Last      string
	Email     string
	Timestamp string
}

// PollingEntry is one participant row on a fixture workbook's polling sheet.
// Answers holds one value per poll; an empty string means the participant was
// polled but gave no answer.
type PollingEntry struct {
	First   string
	Last    string
	Email   string
	Correct int
	Answers []string
}

// Workbook describes an xlsx fixture in the default export shape: roster on
// the first sheet (session id in cell B6, participants from row 10) and
// polling results on the third sheet (poll numbers on row 2 from column C,
// participants from row 9).
type Workbook struct {
	SessionID string
	Polls     int
	Roster    []RosterEntry
	Polling   []PollingEntry
}

// WriteWorkbook materializes the fixture into dir and returns the file path.
func WriteWorkbook(t *testing.T, dir, name string, wb Workbook) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	roster := "Attendance Report"
	if err := f.SetSheetName("Sheet1", roster); err != nil {
		t.Fatalf("rename roster sheet: %v", err)
	}
	if _, err := f.NewSheet("Questions"); err != nil {
		t.Fatalf("add filler sheet: %v", err)
	}
	polling := "Polling Results"
	if _, err := f.NewSheet(polling); err != nil {
		t.Fatalf("add polling sheet: %v", err)
	}

	setCell(t, f, roster, "A1", "Attendance Report")
	setCell(t, f, roster, "A6", "Session ID")
	setCell(t, f, roster, "B6", wb.SessionID)
	setCell(t, f, roster, "A9", "First Name")
	setCell(t, f, roster, "B9", "Last Name")
	setCell(t, f, roster, "C9", "Email")
	setCell(t, f, roster, "D9", "First Joined")
	for i, entry := range wb.Roster {
		row := strconv.Itoa(10 + i)
		setCell(t, f, roster, "A"+row, entry.First)
		setCell(t, f, roster, "B"+row, entry.Last)
		setCell(t, f, roster, "C"+row, entry.Email)
		setCell(t, f, roster, "D"+row, entry.Timestamp)
	}

	setCell(t, f, polling, "A1", "Polling Results")
	for poll := 1; poll <= wb.Polls; poll++ {
		cell, err := excelize.CoordinatesToCellName(2+poll, 2)
		if err != nil {
			t.Fatalf("poll header cell: %v", err)
		}
		setCell(t, f, polling, cell, strconv.Itoa(poll))
	}
	for i, entry := range wb.Polling {
		row := 9 + i
		setCell(t, f, polling, mustCell(t, 1, row), entry.First)
		setCell(t, f, polling, mustCell(t, 2, row), entry.Last)
		setCell(t, f, polling, mustCell(t, 3, row), entry.Email)
		setCell(t, f, polling, mustCell(t, 4, row), strconv.Itoa(entry.Correct))
		for j, answer := range entry.Answers {
			if answer == "" {
				continue
			}
			setCell(t, f, polling, mustCell(t, 5+j, row), answer)
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook fixture: %v", err)
	}
	return path
}

func setCell(t *testing.T, f *excelize.File, sheet, cell string, value any) {
	t.Helper()
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		t.Fatalf("set %s!%s: %v", sheet, cell, err)
	}
}

func mustCell(t *testing.T, col, row int) string {
	t.Helper()
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		t.Fatalf("cell name: %v", err)
	}
	return cell
}
