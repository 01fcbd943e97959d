package report

import (
	"fmt"
	"strconv"
	"strings"

	"contas/internal/core"
	"contas/internal/statement"
)

// Column headers of the ledger layouts.
const (
	ColSupplier  = "Supplier"
	ColSource    = "Source"
	ColType      = "Type"
	ColTotal     = "Total"
	ColTotalPaid = "Total Paid"
	ColPending   = "Pending"
	ColPaid      = "Paid"
	ColFile      = "File"
	ColMonth     = "Month"
	ColTitle     = "Title"
	ColAmount    = "Amount"
	ColDate      = "Date"
	ColGroup     = "Group"
	ColBills     = "Bills"
	ColAllPaid   = "All Paid"
)

// childPrefix marks credit-card children under their parent row.
const childPrefix = "  - "

func monthHeaders() []string {
	out := make([]string, 0, core.MonthsPerYear)
	for m := core.January; m <= core.December; m++ {
		out = append(out, m.Label())
	}
	return out
}

func ledgerHeaders(first string) []string {
	h := []string{first, ColType}
	h = append(h, monthHeaders()...)
	return append(h, ColTotal, ColTotalPaid, ColPaid)
}

func monthsRecord(rec map[string]any, ms core.Months) {
	for _, mv := range ms {
		rec[mv.Month.Label()] = mv.Value.Float()
	}
}

func totalsRecord(rec map[string]any, t core.ExpenseTotals) {
	rec[ColTotal] = t.Total.Float()
	rec[ColTotalPaid] = t.TotalPaid.Float()
	rec[ColPaid] = t.Paid
}

// ExpenseReport lays out one bill: a row per expense with its twelve
// months, children indented under their parent, and a footer of monthly
// totals.
func ExpenseReport(bill core.Bill, startRow int) TableSpec {
	var body []map[string]any
	for _, e := range bill.Expenses {
		table := core.ConvertMonthsToObject(e)
		rec := map[string]any{
			ColSupplier:  e.Supplier.Name,
			ColType:      string(e.Type),
			ColTotal:     table.Total.Float(),
			ColTotalPaid: table.TotalPaid.Float(),
			ColPaid:      core.Calculate(e).Paid,
		}
		for label, cell := range table.Months {
			rec[label] = cell.Value.Float()
		}
		body = append(body, rec)

		for _, c := range e.Children {
			crec := map[string]any{
				ColSupplier: childPrefix + c.Supplier.Name,
				ColType:     string(c.Type),
			}
			monthsRecord(crec, c.Months)
			totalsRecord(crec, core.CalculateChild(c))
			body = append(body, crec)
		}
	}

	footer := map[string]any{ColSupplier: ColTotal}
	for i, v := range core.MonthlyTotals(bill.Expenses) {
		footer[core.Month(i+1).Label()] = v.Float()
	}
	sum := core.SummarizeBills([]core.Bill{bill})
	footer[ColTotal] = sum.Total.Float()
	footer[ColTotalPaid] = sum.TotalPaid.Float()
	footer[ColPaid] = sum.AllPaid
	body = append(body, footer)

	return TableSpec{
		Title:    bill.Title(),
		Headers:  ledgerHeaders(ColSupplier),
		Body:     body,
		StartRow: startRow,
	}
}

// IncomeReport lays out the income lines of a year.
func IncomeReport(year int, incomes []core.Income, startRow int) TableSpec {
	headers := []string{ColSource}
	headers = append(headers, monthHeaders()...)
	headers = append(headers, ColTotal, ColTotalPaid, ColPaid)

	body := make([]map[string]any, 0, len(incomes)+1)
	for _, in := range incomes {
		rec := map[string]any{ColSource: in.Source.Name}
		monthsRecord(rec, in.Months)
		totalsRecord(rec, core.CalculateIncome(in))
		body = append(body, rec)
	}
	sum := core.CalculateIncomes(incomes)
	body = append(body, map[string]any{
		ColSource:    ColTotal,
		ColTotal:     sum.Total.Float(),
		ColTotalPaid: sum.TotalPaid.Float(),
		ColPaid:      sum.AllPaid,
	})

	return TableSpec{
		Title:    fmt.Sprintf("Income %d", year),
		Headers:  headers,
		Body:     body,
		StartRow: startRow,
	}
}

// ImportAuditReport lists every item of an import batch for review.
func ImportAuditReport(res statement.Result, startRow int) TableSpec {
	body := make([]map[string]any, 0, len(res.Items))
	for _, it := range res.Items {
		body = append(body, map[string]any{
			ColFile:   it.FileName,
			ColMonth:  it.Month.Label(),
			ColTitle:  it.Title,
			ColAmount: it.Amount.Float(),
			ColDate:   it.Date,
			ColPaid:   it.Paid,
		})
	}
	return TableSpec{
		Title:    "Import " + res.BatchID.String(),
		Headers:  []string{ColFile, ColMonth, ColTitle, ColAmount, ColDate, ColPaid},
		Body:     body,
		StartRow: startRow,
	}
}

// SummaryReport lays out a dashboard roll-up, one row per group.
func SummaryReport(title string, groups []core.GroupSummary, startRow int) TableSpec {
	body := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		name := g.Title
		if name == "" {
			name = "-"
		}
		body = append(body, map[string]any{
			ColGroup:     name,
			ColBills:     len(g.Bills),
			ColTotal:     g.Summary.Total.Float(),
			ColTotalPaid: g.Summary.TotalPaid.Float(),
			ColPending:   g.Summary.TotalPending.Float(),
			ColAllPaid:   g.Summary.AllPaid,
		})
	}
	return TableSpec{
		Title:    title,
		Headers:  []string{ColGroup, ColBills, ColTotal, ColTotalPaid, ColPending, ColAllPaid},
		Body:     body,
		StartRow: startRow,
	}
}

// Workbook is an ordered set of sheets with unique names.
type Workbook struct {
	Sheets []*Sheet
	names  map[string]int
}

func NewWorkbook() *Workbook {
	return &Workbook{names: make(map[string]int)}
}

// AddSheet appends a sheet, making its name valid and unique.
func (w *Workbook) AddSheet(name string) *Sheet {
	base := SheetName(name)
	final := base
	if n := w.names[base]; n > 0 {
		suffix := " (" + strconv.Itoa(n+1) + ")"
		final = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	w.names[base]++
	s := NewSheet(final)
	w.Sheets = append(w.Sheets, s)
	return s
}

const maxSheetName = 31

// SheetName strips the characters spreadsheet tabs reject and truncates to
// the 31-character limit.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return ' '
		default:
			return r
		}
	}, name)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		name = "Sheet"
	}
	return truncate(name, maxSheetName)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

// BillsWorkbook builds the yearly export: a summary sheet grouped by bank,
// one sheet per bill and an income sheet.
func BillsWorkbook(year int, bills []core.Bill, incomes []core.Income) *Workbook {
	wb := NewWorkbook()

	summary := wb.AddSheet(fmt.Sprintf("Summary %d", year))
	next := summary.Table(SummaryReport("By bank", core.RollUp(bills, core.GroupByBank), 1))
	next = summary.Table(SummaryReport("By type", core.RollUp(bills, core.GroupByType), next+1))
	balance := core.Balance(incomes, bills)
	_ = summary.Cell(next+1, 1).Add("Balance", StyleSpec{Bold: Ptr(true)}, nil)
	_ = summary.Cell(next+1, 2).Add(balance.Float(), StyleSpec{}, nil)

	for _, b := range bills {
		s := wb.AddSheet(b.Title())
		s.Table(ExpenseReport(b, 1))
	}

	if len(incomes) > 0 {
		s := wb.AddSheet(fmt.Sprintf("Income %d", year))
		s.Table(IncomeReport(year, incomes, 1))
	}
	return wb
}
