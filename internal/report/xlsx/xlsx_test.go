package xlsx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"contas/internal/report"
)

func TestRenderSheets(t *testing.T) {
	s := report.NewSheet("Nubank/2025")
	s.Table(report.TableSpec{
		Title:   "Expenses",
		Headers: []string{"Supplier", "Total", "Paid"},
		Body: []map[string]any{
			{"Supplier": "Energy", "Total": 300.0, "Paid": false},
		},
	})
	other := report.NewSheet("Income")
	require.NoError(t, other.Cell(1, 1).Add("Salary", report.StyleSpec{}, nil))

	data, err := RenderSheets(s, other)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Nubank 2025", "Income"}, f.GetSheetList())

	v, err := f.GetCellValue("Nubank 2025", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Expenses", v)

	v, err = f.GetCellValue("Nubank 2025", "C3")
	require.NoError(t, err)
	assert.Equal(t, "NO", v)

	v, err = f.GetCellValue("Nubank 2025", "B3")
	require.NoError(t, err)
	assert.Equal(t, "300", v)

	merges, err := f.GetMergeCells("Nubank 2025")
	require.NoError(t, err)
	require.Len(t, merges, 1)
	assert.Equal(t, "A1", merges[0].GetStartAxis())
	assert.Equal(t, "C1", merges[0].GetEndAxis())

	styleID, err := f.GetCellStyle("Nubank 2025", "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
	assert.Equal(t, 24.0, style.Font.Size)
}

func TestRenderWorkbookReusesStyles(t *testing.T) {
	wb := report.NewWorkbook()
	a := wb.AddSheet("A")
	b := wb.AddSheet("A")
	require.NoError(t, a.Cell(1, 1).Add("x", report.StyleSpec{}, nil))
	require.NoError(t, b.Cell(1, 1).Add("y", report.StyleSpec{}, nil))

	data, err := Render(wb)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"A", "A (2)"}, f.GetSheetList())
	s1, err := f.GetCellStyle("A", "A1")
	require.NoError(t, err)
	s2, err := f.GetCellStyle("A (2)", "A1")
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}
