package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/core"
	"contas/internal/report"
)

func TestParseMonthlyTotalsFromReport(t *testing.T) {
	e := core.NewExpense("Energy", core.Fixed)
	require.NoError(t, e.Months.Set(core.January, core.Cents(10050), true))
	require.NoError(t, e.Months.Set(core.December, core.Cents(100000000), false))
	bill := core.Bill{Year: 2025, Type: core.Pix, Bank: core.BankRef{Name: "Inter"}, Expenses: []core.Expense{e}}

	s := report.NewSheet("Inter")
	s.Table(report.ExpenseReport(bill, 1))

	totals, err := ParseMonthlyTotals(ValueMatrix(s))
	require.NoError(t, err)
	assert.Equal(t, core.Cents(10050), totals[0])
	assert.Equal(t, core.Cents(0), totals[5])
	assert.Equal(t, core.Cents(100000000), totals[11])
}

func TestParseMonthlyTotalsShortHeaders(t *testing.T) {
	values := [][]any{
		{"Supplier", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		{"Energy", 1.5},
		{"total", "1.5", "2,25"},
	}
	totals, err := ParseMonthlyTotals(values)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(150), totals[0])
	assert.Equal(t, core.Cents(225), totals[1])
	assert.True(t, totals[2].IsZero())
}

func TestParseMonthlyTotalsUsesFooterRow(t *testing.T) {
	values := [][]any{
		{"Supplier", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		{"Total", "5,00"},
		{"Energy", "10,00"},
		{"Total", "15,00"},
	}
	totals, err := ParseMonthlyTotals(values)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(1500), totals[0])
}

func TestParseMonthlyTotalsErrors(t *testing.T) {
	_, err := ParseMonthlyTotals([][]any{{"Supplier", "Total"}})
	assert.ErrorContains(t, err, "unexpected report header")

	header := []any{"Supplier"}
	for m := core.January; m <= core.December; m++ {
		header = append(header, m.Label())
	}
	_, err = ParseMonthlyTotals([][]any{header, {"Energy", 1.0}})
	assert.ErrorContains(t, err, "no \"Total\" row")
}
