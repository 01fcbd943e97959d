package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"contas/internal/core"
	"contas/internal/report"
)

// ParseMonthlyTotals finds the month header row and the "Total" footer row
// of an expense report and reads one amount per month. Month columns are
// matched by full or short name.
func ParseMonthlyTotals(values [][]any) ([core.MonthsPerYear]core.Money, error) {
	var out [core.MonthsPerYear]core.Money
	headerRow := -1
	var cols [core.MonthsPerYear]int
	for i, row := range values {
		headers := toStrings(row)
		found := true
		for m := core.January; m <= core.December; m++ {
			idx := indexOf(headers, m.Label())
			if idx == -1 {
				idx = indexOf(headers, m.Short())
			}
			if idx == -1 {
				found = false
				break
			}
			cols[m-1] = idx
		}
		if found {
			headerRow = i
			break
		}
	}
	if headerRow == -1 {
		return out, fmt.Errorf("unexpected report header: no month columns in %d rows", len(values))
	}

	// A supplier may itself be named "Total"; the footer is the last such row.
	for i := len(values) - 1; i > headerRow; i-- {
		row := toStrings(values[i])
		if !strings.EqualFold(safeGet(row, 0), report.ColTotal) {
			continue
		}
		for m, col := range cols {
			out[m] = core.ParseAmount(safeGet(row, col))
		}
		return out, nil
	}
	return out, fmt.Errorf("unexpected report layout: no %q row", report.ColTotal)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if f, ok := v.(float64); ok {
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// ValueMatrix lays the sheet's writes out as the dense row-major matrix the
// values API expects. Unwritten cells are empty strings.
func ValueMatrix(s *report.Sheet) [][]any {
	rows, cols := s.Extent()
	if rows == 0 || cols == 0 {
		return nil
	}
	out := make([][]any, rows)
	for i := range out {
		out[i] = make([]any, cols)
		for j := range out[i] {
			out[i][j] = ""
		}
	}
	for _, w := range s.Writes() {
		out[w.Row-1][w.Column-1] = w.Value
	}
	return out
}
