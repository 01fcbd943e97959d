package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contas/internal/core"
	"contas/internal/log"
)

type sqliteBills struct{ r *SQLiteRepository }

const billColumns = `id, year, type, bank_name, bank_code, group_name, name_code`

func scanBill(sc interface{ Scan(...any) error }) (core.Bill, error) {
	var (
		b   core.Bill
		typ string
	)
	if err := sc.Scan(&b.ID, &b.Year, &typ, &b.Bank.Name, &b.Bank.Code, &b.Group.Name, &b.NameCode); err != nil {
		return core.Bill{}, err
	}
	b.Type = core.BillType(typ)
	return b, nil
}

// billExpenses loads the top-level expenses of every bill in bills.
func billExpenses(ctx context.Context, q querier, bills []core.Bill) error {
	if len(bills) == 0 {
		return nil
	}
	ids := make([]int64, len(bills))
	for i, b := range bills {
		ids[i] = b.ID
	}
	rows, err := q.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses
		WHERE deleted_at IS NULL AND parent_id IS NULL AND bill_id IN (`+placeholders(len(ids))+`) ORDER BY id`,
		int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("load bill expenses: %w", err)
	}
	parents, err := scanExpenseRows(rows)
	if err != nil {
		return err
	}
	expenses, err := hydrateExpenses(ctx, q, parents)
	if err != nil {
		return err
	}
	byBill := make(map[int64][]core.Expense)
	for _, e := range expenses {
		byBill[e.BillID] = append(byBill[e.BillID], e)
	}
	for i := range bills {
		bills[i].Expenses = byBill[bills[i].ID]
	}
	return nil
}

func (s sqliteBills) Get(ctx context.Context, id int64) (core.Bill, error) {
	row := s.r.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id = ? AND deleted_at IS NULL`, id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, notFound("bill", id)
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill %d: %w", id, err)
	}
	bills := []core.Bill{b}
	if err := billExpenses(ctx, s.r.db, bills); err != nil {
		return core.Bill{}, err
	}
	return bills[0], nil
}

func (s sqliteBills) GetAll(ctx context.Context, q Query) (Page[core.Bill], error) {
	q = q.normalized()
	where := `deleted_at IS NULL`
	var args []any
	if q.Year != 0 {
		where += ` AND year = ?`
		args = append(args, q.Year)
	}
	if q.BillID != 0 {
		where += ` AND id = ?`
		args = append(args, q.BillID)
	}

	var total int
	if err := s.r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bills WHERE `+where, args...).Scan(&total); err != nil {
		return Page[core.Bill]{}, fmt.Errorf("count bills: %w", err)
	}

	query := `SELECT ` + billColumns + ` FROM bills WHERE ` + where + ` ORDER BY id`
	if q.PageSize > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.PageSize, q.offset())
	}
	rows, err := s.r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page[core.Bill]{}, fmt.Errorf("list bills: %w", err)
	}
	var bills []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			rows.Close()
			return Page[core.Bill]{}, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Page[core.Bill]{}, err
	}
	if err := billExpenses(ctx, s.r.db, bills); err != nil {
		return Page[core.Bill]{}, err
	}
	return newPage(bills, q, total), nil
}

// Create stores the bill together with any expenses it already carries.
func (s sqliteBills) Create(ctx context.Context, b core.Bill) (core.Bill, error) {
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	var id int64
	err := s.r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO bills (year, type, bank_name, bank_code, group_name, name_code) VALUES (?, ?, ?, ?, ?, ?)`,
			b.Year, string(b.Type), b.Bank.Name, b.Bank.Code, b.Group.Name, b.NameCode)
		if err != nil {
			return fmt.Errorf("insert bill: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("insert bill id: %w", err)
		}
		for _, e := range b.Expenses {
			if _, err := insertExpense(ctx, tx, id, b.Year, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Bill{}, err
	}
	s.r.logger.InfoContext(ctx, "Bill created", log.FieldBillID, id, log.FieldYear, b.Year)
	return s.Get(ctx, id)
}

// Update rewrites the bill header. Expenses are managed through the
// expense collection and are left as stored.
func (s sqliteBills) Update(ctx context.Context, id int64, b core.Bill) (core.Bill, error) {
	b.Expenses = nil
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	res, err := s.r.db.ExecContext(ctx, `UPDATE bills SET year = ?, type = ?, bank_name = ?, bank_code = ?, group_name = ?, name_code = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL`,
		b.Year, string(b.Type), b.Bank.Name, b.Bank.Code, b.Group.Name, b.NameCode, id)
	if err != nil {
		return core.Bill{}, fmt.Errorf("update bill %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Bill{}, notFound("bill", id)
	}
	return s.Get(ctx, id)
}

func (s sqliteBills) Remove(ctx context.Context, id int64) error {
	return s.r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE bills SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
		if err != nil {
			return fmt.Errorf("delete bill %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("bill", id)
		}
		return softDeleteExpenses(ctx, tx, `bill_id = ?`, id)
	})
}

type sqliteIncomes struct{ r *SQLiteRepository }

func (s sqliteIncomes) load(ctx context.Context, where string, args ...any) ([]core.Income, error) {
	rows, err := s.r.db.QueryContext(ctx, `SELECT id, source, year, description FROM incomes WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	var out []core.Income
	for rows.Next() {
		var in core.Income
		if err := rows.Scan(&in.ID, &in.Source.Name, &in.Year, &in.Description); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, in)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ids := make([]int64, len(out))
	for i, in := range out {
		ids[i] = in.ID
	}
	months, err := loadMonths(ctx, s.r.db, "income_months", "income_id", "0", ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Months = months[out[i].ID]
	}
	return out, nil
}

func (s sqliteIncomes) Get(ctx context.Context, id int64) (core.Income, error) {
	out, err := s.load(ctx, `id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return core.Income{}, err
	}
	if len(out) == 0 {
		return core.Income{}, notFound("income", id)
	}
	return out[0], nil
}

func (s sqliteIncomes) GetAll(ctx context.Context, q Query) (Page[core.Income], error) {
	q = q.normalized()
	where := `deleted_at IS NULL`
	var args []any
	if q.Year != 0 {
		where += ` AND year = ?`
		args = append(args, q.Year)
	}
	var total int
	if err := s.r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incomes WHERE `+where, args...).Scan(&total); err != nil {
		return Page[core.Income]{}, fmt.Errorf("count incomes: %w", err)
	}
	where += ` ORDER BY id`
	if q.PageSize > 0 {
		where += ` LIMIT ? OFFSET ?`
		args = append(args, q.PageSize, q.offset())
	}
	out, err := s.load(ctx, where, args...)
	if err != nil {
		return Page[core.Income]{}, err
	}
	return newPage(out, q, total), nil
}

func (s sqliteIncomes) Create(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	var id int64
	err := s.r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO incomes (source, year, description) VALUES (?, ?, ?)`,
			in.Source.Name, in.Year, in.Description)
		if err != nil {
			return fmt.Errorf("insert income: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("insert income id: %w", err)
		}
		return upsertIncomeMonths(ctx, tx, id, in.Months.Slice())
	})
	if err != nil {
		return core.Income{}, err
	}
	return s.Get(ctx, id)
}

func (s sqliteIncomes) Update(ctx context.Context, id int64, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	err := s.r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE incomes SET source = ?, year = ?, description = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND deleted_at IS NULL`, in.Source.Name, in.Year, in.Description, id)
		if err != nil {
			return fmt.Errorf("update income %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("income", id)
		}
		return upsertIncomeMonths(ctx, tx, id, in.Months.Slice())
	})
	if err != nil {
		return core.Income{}, err
	}
	return s.Get(ctx, id)
}

func (s sqliteIncomes) Remove(ctx context.Context, id int64) error {
	return s.r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE incomes SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
		if err != nil {
			return fmt.Errorf("delete income %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("income", id)
		}
		_, err = tx.ExecContext(ctx, `UPDATE income_months SET deleted_at = CURRENT_TIMESTAMP WHERE income_id = ? AND deleted_at IS NULL`, id)
		return err
	})
}
