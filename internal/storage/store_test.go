package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/core"
)

func stores(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"sqlite": func() Store {
			repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
			require.NoError(t, err)
			t.Cleanup(func() { repo.Close() })
			return repo
		},
	}
}

func testBill() core.Bill {
	return core.Bill{
		Year:  2024,
		Type:  core.CreditCard,
		Bank:  core.BankRef{Name: "Nubank", Code: "260"},
		Group: core.GroupRef{Name: "Home"},
	}
}

func monthsWith(values map[core.Month]int64, paid bool) core.Months {
	ms := core.NewMonths()
	for m, v := range values {
		_ = ms.Set(m, core.Cents(v), paid)
	}
	return ms
}

func TestStore_BillRoundTrip(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()

			in := testBill()
			e := core.NewExpense("Netflix", core.Fixed)
			e.Months = monthsWith(map[core.Month]int64{core.January: 3990, core.March: 3990}, true)
			in.Expenses = []core.Expense{e}

			created, err := s.Bills().Create(ctx, in)
			require.NoError(t, err)
			require.NotZero(t, created.ID)
			require.Len(t, created.Expenses, 1)

			got, err := s.Bills().Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, 2024, got.Year)
			assert.Equal(t, core.CreditCard, got.Type)
			assert.Equal(t, "Nubank", got.Bank.Name)
			assert.Equal(t, "260", got.Bank.Code)
			assert.Equal(t, "Home", got.Group.Name)

			exp := got.Expenses[0]
			assert.Equal(t, "Netflix", exp.Supplier.Name)
			assert.Equal(t, core.Fixed, exp.Type)
			for i, mv := range exp.Months {
				assert.Equal(t, core.Month(i+1), mv.Month)
			}
			assert.Equal(t, int64(3990), exp.Months[0].Value.Cents)
			assert.True(t, exp.Months[0].Paid)
			assert.Zero(t, exp.Months[1].Value.Cents)
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()

			_, err := s.Bills().Get(ctx, 42)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.Expenses().Get(ctx, 42)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.Incomes().Get(ctx, 42)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Bills().Remove(ctx, 42), ErrNotFound)
		})
	}
}

func TestStore_ExpenseWithoutBill(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := open().Expenses().Create(context.Background(), core.NewExpense("Rent", core.Fixed))
			assert.ErrorIs(t, err, ErrMissingBill)
		})
	}
}

func TestStore_ExpensePagination(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()
			bill, err := s.Bills().Create(ctx, testBill())
			require.NoError(t, err)

			for _, name := range []string{"A", "B", "C", "D", "E"} {
				e := core.NewExpense(name, core.Variable)
				e.BillID = bill.ID
				_, err := s.Expenses().Create(ctx, e)
				require.NoError(t, err)
			}

			page, err := s.Expenses().GetAll(ctx, Query{BillID: bill.ID, Page: 2, PageSize: 2})
			require.NoError(t, err)
			assert.Equal(t, 5, page.Total)
			assert.Equal(t, 3, page.TotalPages)
			assert.Equal(t, 2, page.Page)
			require.Len(t, page.Results, 2)
			assert.Equal(t, "C", page.Results[0].Supplier.Name)
			assert.Equal(t, "D", page.Results[1].Supplier.Name)

			all, err := s.Expenses().GetAll(ctx, Query{BillID: bill.ID})
			require.NoError(t, err)
			assert.Len(t, all.Results, 5)
			assert.Equal(t, 1, all.TotalPages)

			empty, err := s.Expenses().GetAll(ctx, Query{BillID: bill.ID + 100, PageSize: 2})
			require.NoError(t, err)
			assert.Empty(t, empty.Results)
			assert.Zero(t, empty.TotalPages)
		})
	}
}

func TestStore_ExpenseUpdateReplacesChildren(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()
			bill, err := s.Bills().Create(ctx, testBill())
			require.NoError(t, err)

			e := core.NewExpense("Card", core.Variable)
			e.BillID = bill.ID
			e.Children = []core.ChildExpense{core.NewChildExpense("Uber", core.Variable)}
			created, err := s.Expenses().Create(ctx, e)
			require.NoError(t, err)
			require.Len(t, created.Children, 1)
			assert.Equal(t, created.ID, created.Children[0].ParentID)

			upd := created
			upd.Children = []core.ChildExpense{
				core.NewChildExpense("iFood", core.Variable),
				core.NewChildExpense("Amazon", core.Variable),
			}
			upd.Months = monthsWith(map[core.Month]int64{core.May: 100}, false)
			got, err := s.Expenses().Update(ctx, created.ID, upd)
			require.NoError(t, err)
			require.Len(t, got.Children, 2)
			assert.Equal(t, "iFood", got.Children[0].Supplier.Name)
			assert.Equal(t, int64(100), got.Months[core.May-1].Value.Cents)

			require.NoError(t, s.Expenses().Remove(ctx, created.ID))
			_, err = s.Expenses().Get(ctx, created.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_IncomeRoundTrip(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()

			in := core.Income{
				Source: core.IncomeSourceRef{Name: "Salary"},
				Year:   2024,
				Months: monthsWith(map[core.Month]int64{core.February: 500000}, true),
			}
			created, err := s.Incomes().Create(ctx, in)
			require.NoError(t, err)

			page, err := s.Incomes().GetAll(ctx, Query{Year: 2024})
			require.NoError(t, err)
			require.Len(t, page.Results, 1)
			assert.Equal(t, created.ID, page.Results[0].ID)
			assert.Equal(t, int64(500000), page.Results[0].Months[1].Value.Cents)

			none, err := s.Incomes().GetAll(ctx, Query{Year: 2023})
			require.NoError(t, err)
			assert.Empty(t, none.Results)
		})
	}
}

func TestStore_ImportMonths(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()
			bill, err := s.Bills().Create(ctx, testBill())
			require.NoError(t, err)

			items := []ImportedExpense{
				{Parent: "Nubank card", Supplier: "Uber", Months: []core.MonthValue{
					{Month: core.January, Value: core.Cents(2500), Paid: true},
				}},
				{Parent: "Nubank card", Supplier: "iFood", Months: []core.MonthValue{
					{Month: core.January, Value: core.Cents(4000), Paid: true},
				}},
				{Supplier: "Rent", Type: core.Fixed, Months: []core.MonthValue{
					{Month: core.January, Value: core.Cents(150000), Paid: true},
				}},
			}
			batch := ImportBatch{ID: "batch-1", BillID: bill.ID, FileCount: 1, ItemCount: 3}
			require.NoError(t, s.ImportMonths(ctx, batch, items))

			got, err := s.Bills().Get(ctx, bill.ID)
			require.NoError(t, err)
			require.Len(t, got.Expenses, 2)
			card := got.Expenses[0]
			assert.Equal(t, "Nubank card", card.Supplier.Name)
			require.Len(t, card.Children, 2)
			assert.Equal(t, int64(2500), card.Children[0].Months[0].Value.Cents)
			assert.Equal(t, core.Fixed, got.Expenses[1].Type)

			// A second batch overwrites the month it carries and keeps the rest.
			again := []ImportedExpense{
				{Parent: "Nubank card", Supplier: "Uber", Months: []core.MonthValue{
					{Month: core.January, Value: core.Cents(3000), Paid: false},
					{Month: core.February, Value: core.Cents(1000), Paid: true},
				}},
			}
			require.NoError(t, s.ImportMonths(ctx, ImportBatch{ID: "batch-2", BillID: bill.ID, FileCount: 1, ItemCount: 1}, again))

			got, err = s.Bills().Get(ctx, bill.ID)
			require.NoError(t, err)
			uber := got.Expenses[0].Children[0]
			assert.Equal(t, int64(3000), uber.Months[0].Value.Cents)
			assert.False(t, uber.Months[0].Paid)
			assert.Equal(t, int64(1000), uber.Months[1].Value.Cents)
			assert.Equal(t, int64(4000), got.Expenses[0].Children[1].Months[0].Value.Cents)

			batches, err := s.ListImports(ctx, bill.ID)
			require.NoError(t, err)
			require.Len(t, batches, 2)
			assert.Equal(t, "batch-1", batches[0].ID)
			assert.Equal(t, 3, batches[0].ItemCount)
		})
	}
}

func TestStore_ImportMonthsIsAllOrNothing(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()
			bill, err := s.Bills().Create(ctx, testBill())
			require.NoError(t, err)

			items := []ImportedExpense{
				{Supplier: "Rent", Months: []core.MonthValue{{Month: core.January, Value: core.Cents(100)}}},
				{Supplier: "Broken", Months: []core.MonthValue{{Month: core.Month(13), Value: core.Cents(100)}}},
			}
			err = s.ImportMonths(ctx, ImportBatch{ID: "bad", BillID: bill.ID}, items)
			require.Error(t, err)

			got, err := s.Bills().Get(ctx, bill.ID)
			require.NoError(t, err)
			assert.Empty(t, got.Expenses)
			batches, err := s.ListImports(ctx, bill.ID)
			require.NoError(t, err)
			assert.Empty(t, batches)
		})
	}
}

func TestStore_ImportMonthsRejectsEmptySupplier(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()
			bill, err := s.Bills().Create(ctx, testBill())
			require.NoError(t, err)

			items := []ImportedExpense{
				{Supplier: "Rent", Months: []core.MonthValue{{Month: core.January, Value: core.Cents(100)}}},
				{Parent: "Cartao", Supplier: "  ", Months: []core.MonthValue{{Month: core.January, Value: core.Cents(50)}}},
			}
			err = s.ImportMonths(ctx, ImportBatch{ID: "blank", BillID: bill.ID}, items)
			require.ErrorIs(t, err, core.ErrEmptySupplier)

			got, err := s.Bills().Get(ctx, bill.ID)
			require.NoError(t, err)
			assert.Empty(t, got.Expenses)
		})
	}
}

func TestStore_ImportMonthsCancelled(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			bill, err := s.Bills().Create(context.Background(), testBill())
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			items := []ImportedExpense{{Supplier: "Rent", Months: []core.MonthValue{{Month: core.January, Value: core.Cents(100)}}}}
			require.Error(t, s.ImportMonths(ctx, ImportBatch{ID: "c", BillID: bill.ID}, items))

			got, err := s.Bills().Get(context.Background(), bill.ID)
			require.NoError(t, err)
			assert.Empty(t, got.Expenses)
		})
	}
}

func TestStore_DuplicateBatch(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()
			bill, err := s.Bills().Create(ctx, testBill())
			require.NoError(t, err)

			batch := ImportBatch{ID: "same", BillID: bill.ID}
			require.NoError(t, s.ImportMonths(ctx, batch, nil))
			assert.ErrorIs(t, s.ImportMonths(ctx, batch, nil), ErrDuplicateBatch)
		})
	}
}

func TestStore_RemoveBillHidesIt(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()
			b, err := s.Bills().Create(ctx, testBill())
			require.NoError(t, err)
			require.NoError(t, s.Bills().Remove(ctx, b.ID))

			page, err := s.Bills().GetAll(ctx, Query{Year: 2024})
			require.NoError(t, err)
			assert.Empty(t, page.Results)
		})
	}
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	version, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)
}

func TestQueryNormalized(t *testing.T) {
	q := Query{Page: -3, PageSize: -1}.normalized()
	assert.Equal(t, 1, q.Page)
	assert.Zero(t, q.PageSize)
	assert.Zero(t, q.offset())
}
