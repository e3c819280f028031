package extract

import "fmt"

type joinKey int

const (
	joinByEmail joinKey = iota
	joinByName
)

type polledRule int

const (
	// polledLastCell reads the poll total from the last populated cell of the
	// polled-count row.
	polledLastCell polledRule = iota
	// polledHeaderSpan counts poll header cells within a fixed column span,
	// excluding headers carrying the not-polled marker.
	polledHeaderSpan
)

type attemptRule int

const (
	// attemptPolledMinusEmpty subtracts unanswered answer cells from the poll
	// total.
	attemptPolledMinusEmpty attemptRule = iota
	// attemptTextCells counts populated non-numeric cells across the row,
	// discounting the name columns.
	attemptTextCells
)

// sheetRef addresses a sheet by name when set, otherwise by position.
type sheetRef struct {
	name  string
	index int
}

// Layout describes where a workbook variant keeps its data. All coordinates
// are zero-based over the raw cell grid.
type Layout struct {
	Variant string

	Roster          sheetRef
	RosterDataRow   int
	RosterFirstCol  int
	RosterLastCol   int
	RosterEmailCol  int
	RosterJoinedCol int
	SessionRow      int
	SessionCol      int

	Polling        sheetRef
	PollingDataRow int
	PollFirstCol   int
	PollLastCol    int
	PollEmailCol   int // -1 when the variant has no email column on the polling sheet
	PollCorrectCol int
	AnswerStartCol int

	PolledRow       int
	PolledScanCol   int
	PolledSpanStart int
	PolledSpanEnd   int
	NotPolledMarker string

	polled    polledRule
	attempted attemptRule
	join      joinKey
	nameCells int // text columns discounted by the attemptTextCells rule
}

// LayoutFor resolves a workbook variant name to its layout.
func LayoutFor(variant string) (Layout, error) {
	switch variant {
	case "", "standard":
		return Layout{
			Variant:         "standard",
			Roster:          sheetRef{index: 0},
			RosterDataRow:   9,
			RosterFirstCol:  0,
			RosterLastCol:   1,
			RosterEmailCol:  2,
			RosterJoinedCol: 3,
			SessionRow:      5,
			SessionCol:      1,
			Polling:         sheetRef{index: 2},
			PollingDataRow:  8,
			PollFirstCol:    0,
			PollLastCol:     1,
			PollEmailCol:    2,
			PollCorrectCol:  3,
			AnswerStartCol:  4,
			PolledRow:       1,
			PolledScanCol:   2,
			polled:          polledLastCell,
			attempted:       attemptPolledMinusEmpty,
			join:            joinByEmail,
		}, nil
	case "named-join":
		return Layout{
			Variant:         "named-join",
			Roster:          sheetRef{name: "Attendance"},
			RosterDataRow:   11,
			RosterFirstCol:  0,
			RosterLastCol:   1,
			RosterEmailCol:  2,
			RosterJoinedCol: 3,
			SessionRow:      5,
			SessionCol:      1,
			Polling:         sheetRef{name: "Polling Results"},
			PollingDataRow:  9,
			PollFirstCol:    0,
			PollLastCol:     1,
			PollEmailCol:    -1,
			PollCorrectCol:  2,
			AnswerStartCol:  3,
			PolledRow:       3,
			PolledSpanStart: 3,
			PolledSpanEnd:   52,
			NotPolledMarker: "Not Polled",
			polled:          polledHeaderSpan,
			attempted:       attemptTextCells,
			join:            joinByName,
			nameCells:       2,
		}, nil
	default:
		return Layout{}, fmt.Errorf("unknown workbook variant %q", variant)
	}
}
