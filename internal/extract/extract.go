package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"quizsync/internal/config"
	"quizsync/internal/logging"
	"quizsync/internal/records"
	"quizsync/internal/services"
	"quizsync/internal/textutil"
)

// Extractor turns exported quiz workbooks into attendance records.
type Extractor struct {
	layout   Layout
	sentinel string
	logger   *slog.Logger
}

// New builds an extractor for the configured workbook variant.
func New(cfg *config.Config, logger *slog.Logger) (*Extractor, error) {
	layout, err := LayoutFor(cfg.Sync.WorkbookVariant)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "extract", "resolve layout", err.Error(), nil)
	}
	return &Extractor{
		layout:   layout,
		sentinel: cfg.Sync.SentinelMarker,
		logger:   logging.NewComponentLogger(logger, "extract"),
	}, nil
}

// ExtractAll processes the given workbook files in order and concatenates
// their records. Any malformed workbook fails the whole batch.
func (e *Extractor) ExtractAll(ctx context.Context, paths []string) ([]records.AttendanceRecord, error) {
	var out []records.AttendanceRecord
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrTimeout, "extract", "extract workbooks", "context cancelled", err)
		}
		recs, err := e.ExtractFile(ctx, path)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// ExtractFile parses one workbook: the roster sheet supplies identity and the
// attempt date, the polling sheet supplies scores and participation counts.
func (e *Extractor) ExtractFile(ctx context.Context, path string) ([]records.AttendanceRecord, error) {
	logger := logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldWorkbook, path))

	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, "extract", "open workbook", fmt.Sprintf("open %s", path), err)
	}
	defer file.Close()

	rosterRows, err := e.sheetRows(file, e.layout.Roster)
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, "extract", "read roster sheet", path, err)
	}

	sessionID := strings.TrimSpace(cellAt(rosterRows, e.layout.SessionRow, e.layout.SessionCol))
	if sessionID == "" {
		return nil, services.Wrap(services.ErrExtraction, "extract", "read session id",
			fmt.Sprintf("no session id at row %d col %d", e.layout.SessionRow, e.layout.SessionCol), nil)
	}

	roster := e.buildRoster(rosterRows, logger)
	if len(roster) == 0 {
		logger.Warn("roster sheet has no usable participants",
			logging.String(logging.FieldSessionID, sessionID))
	}

	pollingRows, err := e.sheetRows(file, e.layout.Polling)
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, "extract", "read polling sheet", path, err)
	}

	polled, err := e.polledCount(pollingRows)
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, "extract", "read polled count", path, err)
	}

	var out []records.AttendanceRecord
	for i := e.layout.PollingDataRow; i < len(pollingRows); i++ {
		row := pollingRows[i]
		first := strings.TrimSpace(cellAt(pollingRows, i, e.layout.PollFirstCol))
		last := strings.TrimSpace(cellAt(pollingRows, i, e.layout.PollLastCol))

		var email string
		if e.layout.PollEmailCol >= 0 {
			email = strings.TrimSpace(cellAt(pollingRows, i, e.layout.PollEmailCol))
		}
		if first == "" && last == "" && email == "" {
			continue
		}

		participant, ok := roster[e.joinValue(first, last, email)]
		if !ok {
			logger.Warn("polling row has no roster match",
				logging.String(logging.FieldSessionID, sessionID),
				logging.String(logging.FieldEmail, email),
				logging.String("name", first+" "+last))
			continue
		}
		if email == "" {
			email = participant.email
		}

		out = append(out, records.AttendanceRecord{
			FirstName:      first,
			LastName:       last,
			Email:          email,
			SessionID:      sessionID,
			SessionDate:    participant.date,
			CorrectCount:   parseScore(cellAt(pollingRows, i, e.layout.PollCorrectCol)),
			AttemptedPolls: e.attemptedCount(row, polled),
			PolledCount:    polled,
		})
	}

	logger.Info("workbook extracted",
		logging.String(logging.FieldSessionID, sessionID),
		logging.Int("records", len(out)),
		logging.Int("polled", polled))
	return out, nil
}

type rosterEntry struct {
	email string
	date  string
}

// buildRoster indexes roster participants by the layout's join key, dropping
// rows without an email and rows carrying the dummy-account marker.
func (e *Extractor) buildRoster(rows [][]string, logger *slog.Logger) map[string]rosterEntry {
	roster := make(map[string]rosterEntry)
	for i := e.layout.RosterDataRow; i < len(rows); i++ {
		email := strings.TrimSpace(cellAt(rows, i, e.layout.RosterEmailCol))
		if email == "" {
			continue
		}
		if e.sentinel != "" && strings.Contains(email, e.sentinel) {
			logger.Debug("dummy account skipped", logging.String(logging.FieldEmail, email))
			continue
		}
		first := strings.TrimSpace(cellAt(rows, i, e.layout.RosterFirstCol))
		last := strings.TrimSpace(cellAt(rows, i, e.layout.RosterLastCol))
		entry := rosterEntry{
			email: email,
			date:  normalizeAttemptDate(cellAt(rows, i, e.layout.RosterJoinedCol)),
		}
		key := e.joinValue(first, last, email)
		if _, exists := roster[key]; !exists {
			roster[key] = entry
		}
	}
	return roster
}

func (e *Extractor) joinValue(first, last, email string) string {
	if e.layout.join == joinByName {
		return textutil.Fold(first + " " + last)
	}
	return textutil.NormalizeEmail(email)
}

func (e *Extractor) polledCount(rows [][]string) (int, error) {
	switch e.layout.polled {
	case polledHeaderSpan:
		if e.layout.PolledRow >= len(rows) {
			return 0, fmt.Errorf("polling sheet has no header row %d", e.layout.PolledRow)
		}
		row := rows[e.layout.PolledRow]
		count := 0
		for col := e.layout.PolledSpanStart; col <= e.layout.PolledSpanEnd && col < len(row); col++ {
			header := strings.TrimSpace(row[col])
			if header == "" || strings.Contains(header, e.layout.NotPolledMarker) {
				continue
			}
			count++
		}
		if count == 0 {
			return 0, fmt.Errorf("no poll headers in row %d", e.layout.PolledRow)
		}
		return count, nil
	default:
		if e.layout.PolledRow >= len(rows) {
			return 0, fmt.Errorf("polling sheet has no count row %d", e.layout.PolledRow)
		}
		row := rows[e.layout.PolledRow]
		lastValue := ""
		for col := e.layout.PolledScanCol; col < len(row); col++ {
			if value := strings.TrimSpace(row[col]); value != "" {
				lastValue = value
			}
		}
		if lastValue == "" {
			return 0, fmt.Errorf("no populated poll count cell in row %d", e.layout.PolledRow)
		}
		polled, err := strconv.Atoi(lastValue)
		if err != nil {
			return 0, fmt.Errorf("poll count %q is not a number", lastValue)
		}
		return polled, nil
	}
}

// attemptedCount derives how many polls a participant answered. Results are
// clamped at zero; the count can never exceed the poll total.
func (e *Extractor) attemptedCount(row []string, polled int) int {
	var attempted int
	switch e.layout.attempted {
	case attemptTextCells:
		count := 0
		for _, cell := range row {
			value := strings.TrimSpace(cell)
			if value == "" || isNumeric(value) {
				continue
			}
			count++
		}
		attempted = count - e.layout.nameCells
	default:
		// Sheet rows are trimmed of trailing blank cells, so unanswered polls
		// at the end of the row are missing rather than empty. Walk the full
		// answer span and treat absent cells as empty.
		empty := 0
		for col := e.layout.AnswerStartCol; col < e.layout.AnswerStartCol+polled; col++ {
			var cell string
			if col < len(row) {
				cell = row[col]
			}
			if strings.TrimSpace(cell) == "" {
				empty++
			}
		}
		attempted = polled - empty
	}
	if attempted < 0 {
		return 0
	}
	if attempted > polled {
		return polled
	}
	return attempted
}

// attemptDateLayouts are tried in order against the date prefix of roster
// timestamps.
var attemptDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"1/2/06",
	"Jan 2, 2006",
	"Mon Jan 02 2006",
}

// normalizeAttemptDate truncates a raw roster timestamp to its date portion
// and renders it in the ledger date format. Unparsable values pass through
// trimmed so the row is still usable.
func normalizeAttemptDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > 11 {
		raw = strings.TrimSpace(raw[:11])
	}
	for _, layout := range attemptDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return records.FormatSessionDate(t)
		}
	}
	return raw
}

func (e *Extractor) sheetRows(file *excelize.File, ref sheetRef) ([][]string, error) {
	name := ref.name
	if name == "" {
		sheets := file.GetSheetList()
		if ref.index >= len(sheets) {
			return nil, fmt.Errorf("workbook has %d sheets, need index %d", len(sheets), ref.index)
		}
		name = sheets[ref.index]
	}
	rows, err := file.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	return rows, nil
}

func cellAt(rows [][]string, row, col int) string {
	if row < 0 || row >= len(rows) {
		return ""
	}
	if col < 0 || col >= len(rows[row]) {
		return ""
	}
	return rows[row][col]
}

func parseScore(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return 0
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
