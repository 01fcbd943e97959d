package google

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/report"
	"contas/internal/sheets"
)

func sampleSheet(t *testing.T) *report.Sheet {
	t.Helper()
	s := report.NewSheet("Nubank")
	s.Table(report.TableSpec{
		Title:   "Nubank",
		Headers: []string{"Supplier", "Total"},
		Body:    []map[string]any{{"Supplier": "Energy", "Total": 300.0}},
	})
	return s
}

func TestValueMatrix(t *testing.T) {
	values := sheets.ValueMatrix(sampleSheet(t))
	require.Len(t, values, 3)
	assert.Equal(t, []any{"Nubank", ""}, values[0])
	assert.Equal(t, []any{"Supplier", "Total"}, values[1])
	assert.Equal(t, []any{"Energy", 300.0}, values[2])

	assert.Nil(t, sheets.ValueMatrix(report.NewSheet("empty")))
}

func TestFormatRequests(t *testing.T) {
	reqs := formatRequests(7, sampleSheet(t))
	// 5 cells + 1 merge
	require.Len(t, reqs, 6)

	title := reqs[0].RepeatCell
	require.NotNil(t, title)
	assert.Equal(t, int64(7), title.Range.SheetId)
	assert.Equal(t, int64(0), title.Range.StartRowIndex)
	assert.Equal(t, int64(1), title.Range.EndRowIndex)
	assert.True(t, title.Cell.UserEnteredFormat.TextFormat.Bold)
	assert.Equal(t, int64(24), title.Cell.UserEnteredFormat.TextFormat.FontSize)
	require.NotNil(t, title.Cell.UserEnteredFormat.Borders)
	assert.Equal(t, "SOLID_MEDIUM", title.Cell.UserEnteredFormat.Borders.Top.Style)
	assert.Equal(t, "CENTER", title.Cell.UserEnteredFormat.HorizontalAlignment)

	body := reqs[4].RepeatCell
	require.NotNil(t, body)
	assert.Nil(t, body.Cell.UserEnteredFormat.Borders)
	assert.Equal(t, int64(14), body.Cell.UserEnteredFormat.TextFormat.FontSize)

	merge := reqs[5].MergeCells
	require.NotNil(t, merge)
	assert.Equal(t, "MERGE_ALL", merge.MergeType)
	assert.Equal(t, int64(0), merge.Range.StartColumnIndex)
	assert.Equal(t, int64(2), merge.Range.EndColumnIndex)
}

func TestParseColor(t *testing.T) {
	c := parseColor("#FF8000")
	assert.Equal(t, 1.0, c.Red)
	assert.InDelta(t, 0.502, c.Green, 0.001)
	assert.Equal(t, 0.0, c.Blue)

	white := parseColor("nope")
	assert.Equal(t, 1.0, white.Red)
	assert.Equal(t, 1.0, white.Blue)
}

func TestA1(t *testing.T) {
	assert.Equal(t, "'Nubank Card'!A1", a1("Nubank Card", "A1"))
	assert.Equal(t, "'Joe''s'", a1("Joe's", ""))
}
