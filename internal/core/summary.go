package core

// ExpenseTotals holds the derived figures of one Expense. They are recomputed
// from months on every call and never stored on the entity.
type ExpenseTotals struct {
	Total        Money
	TotalPaid    Money
	TotalPending Money
	Paid         bool
}

// Summary folds many expenses into dashboard figures.
type Summary struct {
	Total        Money
	TotalPaid    Money
	TotalPending Money
	AllPaid      bool
}

// MonthCell is one entry of a MonthTable.
type MonthCell struct {
	Value Money
	Paid  bool
}

// MonthTable is the keyed projection of Months used for tabular display.
type MonthTable struct {
	Months    map[string]MonthCell
	Total     Money
	TotalPaid Money
}

func sumMonths(ms Months) ExpenseTotals {
	t := ExpenseTotals{Paid: true}
	for _, mv := range ms {
		v := mv.Value.Cents
		if v < 0 {
			v = 0
		}
		t.Total.Cents += v
		if mv.Paid {
			t.TotalPaid.Cents += v
		} else if v != 0 {
			t.Paid = false
		}
	}
	t.TotalPending = t.Total.Sub(t.TotalPaid)
	return t
}

// Calculate derives total, paid total and the all-paid flag of an expense.
// A parent with children takes its figures from the children and ignores
// its own months.
func Calculate(e Expense) ExpenseTotals {
	if len(e.Children) == 0 {
		return sumMonths(e.Months)
	}
	s := CalculateChildren(e.Children)
	return ExpenseTotals{
		Total:        s.Total,
		TotalPaid:    s.TotalPaid,
		TotalPending: s.TotalPending,
		Paid:         s.AllPaid,
	}
}

// CalculateChild derives the figures of a single child expense.
func CalculateChild(c ChildExpense) ExpenseTotals {
	return sumMonths(c.Months)
}

// CalculateIncome derives the figures of an income line.
func CalculateIncome(in Income) ExpenseTotals {
	return sumMonths(in.Months)
}

// CalculateAll folds expenses into a Summary. An empty list is {0, 0, 0, true}.
func CalculateAll(expenses []Expense) Summary {
	s := Summary{AllPaid: true}
	for _, e := range expenses {
		s.add(Calculate(e))
	}
	return s
}

// CalculateChildren folds the children of a credit-card parent.
func CalculateChildren(children []ChildExpense) Summary {
	s := Summary{AllPaid: true}
	for _, c := range children {
		s.add(CalculateChild(c))
	}
	return s
}

// CalculateIncomes folds income lines.
func CalculateIncomes(incomes []Income) Summary {
	s := Summary{AllPaid: true}
	for _, in := range incomes {
		s.add(CalculateIncome(in))
	}
	return s
}

// SummarizeBills folds every expense of every bill.
func SummarizeBills(bills []Bill) Summary {
	return CalculateAll(FlattenExpenses(bills))
}

// FlattenExpenses returns the expenses of bills in order, without copying months.
func FlattenExpenses(bills []Bill) []Expense {
	n := 0
	for _, b := range bills {
		n += len(b.Expenses)
	}
	out := make([]Expense, 0, n)
	for _, b := range bills {
		out = append(out, b.Expenses...)
	}
	return out
}

func (s *Summary) add(t ExpenseTotals) {
	s.Total = s.Total.Add(t.Total)
	s.TotalPaid = s.TotalPaid.Add(t.TotalPaid)
	s.TotalPending = s.Total.Sub(s.TotalPaid)
	s.AllPaid = s.AllPaid && t.Paid
}

// ConvertMonthsToObject reshapes an expense's months into a map keyed by
// month label. For a parent the cells are the per-month sums of its children.
func ConvertMonthsToObject(e Expense) MonthTable {
	ms := e.Months
	if len(e.Children) > 0 {
		ms = foldChildMonths(e.Children)
	}
	t := Calculate(e)
	table := MonthTable{
		Months:    make(map[string]MonthCell, MonthsPerYear),
		Total:     t.Total,
		TotalPaid: t.TotalPaid,
	}
	for _, mv := range ms {
		table.Months[mv.Month.Label()] = MonthCell{Value: mv.Value, Paid: mv.Paid}
	}
	return table
}

// foldChildMonths sums children month by month. A month is paid only when
// every child with a non-zero value in that month is paid.
func foldChildMonths(children []ChildExpense) Months {
	ms := NewMonths()
	for i := range ms {
		ms[i].Paid = true
	}
	for _, c := range children {
		for i, mv := range c.Months {
			if mv.Value.Cents <= 0 {
				continue
			}
			ms[i].Value = ms[i].Value.Add(mv.Value)
			ms[i].Paid = ms[i].Paid && mv.Paid
		}
	}
	for i := range ms {
		if ms[i].Value.IsZero() {
			ms[i].Paid = false
		}
	}
	return ms
}

// MonthlyTotals sums each calendar month across expenses, children included.
func MonthlyTotals(expenses []Expense) [MonthsPerYear]Money {
	var out [MonthsPerYear]Money
	for _, e := range expenses {
		ms := e.Months
		if len(e.Children) > 0 {
			ms = foldChildMonths(e.Children)
		}
		for i, mv := range ms {
			if mv.Value.Cents > 0 {
				out[i] = out[i].Add(mv.Value)
			}
		}
	}
	return out
}

// Balance is total income minus total expenses of the given bills.
func Balance(incomes []Income, bills []Bill) Money {
	return CalculateIncomes(incomes).Total.Sub(SummarizeBills(bills).Total)
}
