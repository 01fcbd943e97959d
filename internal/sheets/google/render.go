package google

import (
	"strconv"
	"strings"

	gsheet "google.golang.org/api/sheets/v4"

	"contas/internal/report"
)

const formatFields = "userEnteredFormat(textFormat,backgroundColor,borders,horizontalAlignment)"

// formatRequests emits one RepeatCell per written cell and one MergeCells
// per merge. Grid ranges are zero-based and end-exclusive.
func formatRequests(sheetID int64, s *report.Sheet) []*gsheet.Request {
	var reqs []*gsheet.Request
	for _, w := range s.Writes() {
		reqs = append(reqs, &gsheet.Request{
			RepeatCell: &gsheet.RepeatCellRequest{
				Range: &gsheet.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(w.Row - 1),
					EndRowIndex:      int64(w.Row),
					StartColumnIndex: int64(w.Column - 1),
					EndColumnIndex:   int64(w.Column),
				},
				Cell:   &gsheet.CellData{UserEnteredFormat: cellFormat(w.Style)},
				Fields: formatFields,
			},
		})
	}
	for _, m := range s.Merges() {
		reqs = append(reqs, &gsheet.Request{
			MergeCells: &gsheet.MergeCellsRequest{
				Range: &gsheet.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(m.StartRow - 1),
					EndRowIndex:      int64(m.EndRow),
					StartColumnIndex: int64(m.StartColumn - 1),
					EndColumnIndex:   int64(m.EndColumn),
				},
				MergeType: "MERGE_ALL",
			},
		})
	}
	return reqs
}

// resetRequests drops every merge and format of the tab.
func resetRequests(sheetID int64) []*gsheet.Request {
	whole := &gsheet.GridRange{SheetId: sheetID}
	return []*gsheet.Request{
		{UnmergeCells: &gsheet.UnmergeCellsRequest{Range: whole}},
		{RepeatCell: &gsheet.RepeatCellRequest{
			Range:  whole,
			Cell:   &gsheet.CellData{},
			Fields: "userEnteredFormat",
		}},
	}
}

func cellFormat(st report.Style) *gsheet.CellFormat {
	f := &gsheet.CellFormat{
		TextFormat: &gsheet.TextFormat{
			Bold:            st.Bold,
			FontSize:        int64(st.FontSize),
			ForceSendFields: []string{"Bold"},
		},
		BackgroundColor: parseColor(st.Fill),
	}
	if st.HAlign != "" {
		f.HorizontalAlignment = strings.ToUpper(st.HAlign)
	}
	if style := borderStyle(st.Border); style != "" {
		b := &gsheet.Border{Style: style}
		f.Borders = &gsheet.Borders{Top: b, Bottom: b, Left: b, Right: b}
	}
	return f
}

var borderStyles = map[string]string{
	report.BorderThin:   "SOLID",
	report.BorderMedium: "SOLID_MEDIUM",
	report.BorderThick:  "SOLID_THICK",
	report.BorderDashed: "DASHED",
	report.BorderDotted: "DOTTED",
	report.BorderDouble: "DOUBLE",
}

func borderStyle(name string) string {
	return borderStyles[name]
}

// parseColor converts "#RRGGBB" to a Sheets color. Malformed input yields
// white.
func parseColor(hex string) *gsheet.Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	v, err := strconv.ParseUint(hex, 16, 32)
	if len(hex) != 6 || err != nil {
		return &gsheet.Color{Red: 1, Green: 1, Blue: 1}
	}
	return &gsheet.Color{
		Red:             float64((v>>16)&0xFF) / 255,
		Green:           float64((v>>8)&0xFF) / 255,
		Blue:            float64(v&0xFF) / 255,
		ForceSendFields: []string{"Red", "Green", "Blue"},
	}
}
