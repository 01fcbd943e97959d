package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"contas/internal/core"
	"contas/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ Store = (*SQLiteRepository)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DSN enables foreign keys and a busy timeout on every connection.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps SQLite from returning SQLITE_BUSY inside
	// import transactions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: log.Default(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Bills() Collection[core.Bill]       { return sqliteBills{r} }
func (r *SQLiteRepository) Expenses() Collection[core.Expense] { return sqliteExpenses{r} }
func (r *SQLiteRepository) Incomes() Collection[core.Income]   { return sqliteIncomes{r} }

// withTx runs fn in a transaction. The context is checked once more before
// commit so a cancelled caller never sees a partial write.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

// ---- months ----

// upsertExpenseMonths writes the given months of one expense, keeping a
// single row per calendar month.
func upsertExpenseMonths(ctx context.Context, q querier, expenseID int64, year int, months []core.MonthValue) error {
	for _, mv := range months {
		if !mv.Month.Valid() {
			return fmt.Errorf("expense %d: %w", expenseID, core.ErrInvalidMonth)
		}
		value := mv.Value.Cents
		if value < 0 {
			value = 0
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO expense_months (expense_id, year, month, paid, value_cents)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (expense_id, month) DO UPDATE SET
				year = excluded.year,
				paid = excluded.paid,
				value_cents = excluded.value_cents,
				updated_at = CURRENT_TIMESTAMP,
				deleted_at = NULL`,
			expenseID, year, int(mv.Month), boolInt(mv.Paid), value)
		if err != nil {
			return fmt.Errorf("upsert month %s of expense %d: %w", mv.Month, expenseID, err)
		}
	}
	return nil
}

func upsertIncomeMonths(ctx context.Context, q querier, incomeID int64, months []core.MonthValue) error {
	for _, mv := range months {
		value := mv.Value.Cents
		if value < 0 {
			value = 0
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO income_months (income_id, month, paid, value_cents)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (income_id, month) DO UPDATE SET
				paid = excluded.paid,
				value_cents = excluded.value_cents,
				updated_at = CURRENT_TIMESTAMP,
				deleted_at = NULL`,
			incomeID, int(mv.Month), boolInt(mv.Paid), value)
		if err != nil {
			return fmt.Errorf("upsert month %s of income %d: %w", mv.Month, incomeID, err)
		}
	}
	return nil
}

// loadMonths reads the month rows of each owner and folds them into twelve
// slots. yearCol is the year column, or a literal for tables without one.
func loadMonths(ctx context.Context, q querier, table, ownerCol, yearCol string, ids []int64) (map[int64]core.Months, error) {
	slots := make(map[int64][]core.MonthValue, len(ids))
	for _, id := range ids {
		slots[id] = core.NewMonths().Slice()
	}
	if len(ids) > 0 {
		query := fmt.Sprintf(`SELECT %s, %s, month, paid, value_cents FROM %s
		WHERE deleted_at IS NULL AND %s IN (%s)`, ownerCol, yearCol, table, ownerCol, placeholders(len(ids)))
		rows, err := q.QueryContext(ctx, query, int64Args(ids)...)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", table, err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				owner       int64
				year, month int
				paid        int
				cents       int64
			)
			if err := rows.Scan(&owner, &year, &month, &paid, &cents); err != nil {
				return nil, fmt.Errorf("scan %s: %w", table, err)
			}
			em, err := core.NewExpenseMonth(owner,
				core.WithYear(year),
				core.WithMonth(month),
				core.WithValue(core.Cents(cents), paid != 0))
			if err != nil {
				return nil, fmt.Errorf("%s row of %d: %w", table, owner, err)
			}
			slots[owner][em.Month-1] = core.MonthValue{Month: em.Month, Value: em.Value, Paid: em.Paid}
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	out := make(map[int64]core.Months, len(slots))
	for owner, s := range slots {
		ms, err := core.MonthsFromSlice(s)
		if err != nil {
			return nil, fmt.Errorf("%s of %d: %w", table, owner, err)
		}
		out[owner] = ms
	}
	return out, nil
}

// ---- expenses ----

type expenseRow struct {
	id          int64
	billID      int64
	parentID    sql.NullInt64
	supplier    string
	typ         string
	description string
}

const expenseColumns = `id, bill_id, parent_id, supplier, type, description`

func scanExpenseRows(rows *sql.Rows) ([]expenseRow, error) {
	defer rows.Close()
	var out []expenseRow
	for rows.Next() {
		var r expenseRow
		if err := rows.Scan(&r.id, &r.billID, &r.parentID, &r.supplier, &r.typ, &r.description); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// hydrateExpenses turns parent rows into Expenses with months and children.
func hydrateExpenses(ctx context.Context, q querier, parents []expenseRow) ([]core.Expense, error) {
	if len(parents) == 0 {
		return nil, nil
	}
	parentIDs := make([]int64, len(parents))
	for i, p := range parents {
		parentIDs[i] = p.id
	}

	rows, err := q.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses
		WHERE deleted_at IS NULL AND parent_id IN (`+placeholders(len(parentIDs))+`) ORDER BY id`,
		int64Args(parentIDs)...)
	if err != nil {
		return nil, fmt.Errorf("load children: %w", err)
	}
	children, err := scanExpenseRows(rows)
	if err != nil {
		return nil, err
	}

	ids := append([]int64(nil), parentIDs...)
	for _, c := range children {
		ids = append(ids, c.id)
	}
	months, err := loadMonths(ctx, q, "expense_months", "expense_id", "year", ids)
	if err != nil {
		return nil, err
	}

	byParent := make(map[int64][]core.ChildExpense)
	for _, c := range children {
		byParent[c.parentID.Int64] = append(byParent[c.parentID.Int64], core.ChildExpense{
			ID:          c.id,
			ParentID:    c.parentID.Int64,
			Supplier:    core.SupplierRef{Name: c.supplier},
			Type:        core.ExpenseType(c.typ),
			Description: c.description,
			Months:      months[c.id],
		})
	}

	out := make([]core.Expense, len(parents))
	for i, p := range parents {
		out[i] = core.Expense{
			ID:          p.id,
			BillID:      p.billID,
			Supplier:    core.SupplierRef{Name: p.supplier},
			Type:        core.ExpenseType(p.typ),
			Description: p.description,
			Months:      months[p.id],
			Children:    byParent[p.id],
		}
	}
	return out, nil
}

func billYear(ctx context.Context, q querier, billID int64) (int, error) {
	var year int
	err := q.QueryRowContext(ctx, `SELECT year FROM bills WHERE id = ? AND deleted_at IS NULL`, billID).Scan(&year)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, notFound("bill", billID)
	}
	if err != nil {
		return 0, fmt.Errorf("get bill %d: %w", billID, err)
	}
	return year, nil
}

func expenseType(t core.ExpenseType) string {
	if t == "" {
		return string(core.Variable)
	}
	return string(t)
}

// insertExpense stores e, its twelve months and its children.
func insertExpense(ctx context.Context, q querier, billID int64, year int, e core.Expense) (int64, error) {
	res, err := q.ExecContext(ctx, `INSERT INTO expenses (bill_id, supplier, type, description) VALUES (?, ?, ?, ?)`,
		billID, e.Supplier.Name, expenseType(e.Type), e.Description)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert expense id: %w", err)
	}
	if err := upsertExpenseMonths(ctx, q, id, year, e.Months.Slice()); err != nil {
		return 0, err
	}
	for _, c := range e.Children {
		if _, err := insertChild(ctx, q, billID, id, year, c); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func insertChild(ctx context.Context, q querier, billID, parentID int64, year int, c core.ChildExpense) (int64, error) {
	res, err := q.ExecContext(ctx, `INSERT INTO expenses (bill_id, parent_id, supplier, type, description) VALUES (?, ?, ?, ?, ?)`,
		billID, parentID, c.Supplier.Name, expenseType(c.Type), c.Description)
	if err != nil {
		return 0, fmt.Errorf("insert child expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert child expense id: %w", err)
	}
	if err := upsertExpenseMonths(ctx, q, id, year, c.Months.Slice()); err != nil {
		return 0, err
	}
	return id, nil
}

// softDeleteExpenses marks expenses, their children and all their months
// deleted.
func softDeleteExpenses(ctx context.Context, q querier, where string, args ...any) error {
	ids, err := selectIDs(ctx, q, `SELECT id FROM expenses WHERE deleted_at IS NULL AND (`+where+`)`, args...)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	children, err := selectIDs(ctx, q, `SELECT id FROM expenses WHERE deleted_at IS NULL AND parent_id IN (`+placeholders(len(ids))+`)`, int64Args(ids)...)
	if err != nil {
		return err
	}
	ids = append(ids, children...)
	in := placeholders(len(ids))
	if _, err := q.ExecContext(ctx, `UPDATE expense_months SET deleted_at = CURRENT_TIMESTAMP
		WHERE deleted_at IS NULL AND expense_id IN (`+in+`)`, int64Args(ids)...); err != nil {
		return fmt.Errorf("delete expense months: %w", err)
	}
	if _, err := q.ExecContext(ctx, `UPDATE expenses SET deleted_at = CURRENT_TIMESTAMP
		WHERE deleted_at IS NULL AND id IN (`+in+`)`, int64Args(ids)...); err != nil {
		return fmt.Errorf("delete expenses: %w", err)
	}
	return nil
}

func selectIDs(ctx context.Context, q querier, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select ids: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type sqliteExpenses struct{ r *SQLiteRepository }

func (s sqliteExpenses) Get(ctx context.Context, id int64) (core.Expense, error) {
	rows, err := s.r.db.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses
		WHERE id = ? AND parent_id IS NULL AND deleted_at IS NULL`, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	parents, err := scanExpenseRows(rows)
	if err != nil {
		return core.Expense{}, err
	}
	if len(parents) == 0 {
		return core.Expense{}, notFound("expense", id)
	}
	out, err := hydrateExpenses(ctx, s.r.db, parents)
	if err != nil {
		return core.Expense{}, err
	}
	return out[0], nil
}

// GetAll lists top-level expenses of q.BillID (all bills when zero), oldest first.
func (s sqliteExpenses) GetAll(ctx context.Context, q Query) (Page[core.Expense], error) {
	q = q.normalized()
	where := `e.deleted_at IS NULL AND e.parent_id IS NULL`
	var args []any
	if q.BillID != 0 {
		where += ` AND e.bill_id = ?`
		args = append(args, q.BillID)
	}
	if q.Year != 0 {
		where += ` AND b.year = ?`
		args = append(args, q.Year)
	}
	from := ` FROM expenses e JOIN bills b ON b.id = e.bill_id AND b.deleted_at IS NULL WHERE ` + where

	var total int
	if err := s.r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return Page[core.Expense]{}, fmt.Errorf("count expenses: %w", err)
	}

	query := `SELECT e.id, e.bill_id, e.parent_id, e.supplier, e.type, e.description` + from + ` ORDER BY e.id`
	if q.PageSize > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.PageSize, q.offset())
	}
	rows, err := s.r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page[core.Expense]{}, fmt.Errorf("list expenses: %w", err)
	}
	parents, err := scanExpenseRows(rows)
	if err != nil {
		return Page[core.Expense]{}, err
	}
	results, err := hydrateExpenses(ctx, s.r.db, parents)
	if err != nil {
		return Page[core.Expense]{}, err
	}
	return newPage(results, q, total), nil
}

func (s sqliteExpenses) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.BillID == 0 {
		return core.Expense{}, ErrMissingBill
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	var id int64
	err := s.r.withTx(ctx, func(tx *sql.Tx) error {
		year, err := billYear(ctx, tx, e.BillID)
		if err != nil {
			return err
		}
		id, err = insertExpense(ctx, tx, e.BillID, year, e)
		return err
	})
	if err != nil {
		return core.Expense{}, err
	}
	s.r.logger.DebugContext(ctx, "Expense created", log.FieldExpenseID, id, log.FieldBillID, e.BillID)
	return s.Get(ctx, id)
}

// Update rewrites the expense fields and months. Children are replaced.
func (s sqliteExpenses) Update(ctx context.Context, id int64, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	err := s.r.withTx(ctx, func(tx *sql.Tx) error {
		var billID int64
		err := tx.QueryRowContext(ctx, `SELECT bill_id FROM expenses WHERE id = ? AND parent_id IS NULL AND deleted_at IS NULL`, id).Scan(&billID)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("expense", id)
		}
		if err != nil {
			return fmt.Errorf("get expense %d: %w", id, err)
		}
		year, err := billYear(ctx, tx, billID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE expenses SET supplier = ?, type = ?, description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			e.Supplier.Name, expenseType(e.Type), e.Description, id); err != nil {
			return fmt.Errorf("update expense %d: %w", id, err)
		}
		if err := upsertExpenseMonths(ctx, tx, id, year, e.Months.Slice()); err != nil {
			return err
		}
		if err := softDeleteExpenses(ctx, tx, `parent_id = ?`, id); err != nil {
			return err
		}
		for _, c := range e.Children {
			if _, err := insertChild(ctx, tx, billID, id, year, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}
	return s.Get(ctx, id)
}

func (s sqliteExpenses) Remove(ctx context.Context, id int64) error {
	return s.r.withTx(ctx, func(tx *sql.Tx) error {
		ids, err := selectIDs(ctx, tx, `SELECT id FROM expenses WHERE id = ? AND deleted_at IS NULL`, id)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return notFound("expense", id)
		}
		return softDeleteExpenses(ctx, tx, `id = ?`, id)
	})
}

// ---- import ----

func (r *SQLiteRepository) ImportMonths(ctx context.Context, batch ImportBatch, items []ImportedExpense) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		year, err := billYear(ctx, tx, batch.BillID)
		if err != nil {
			return err
		}
		parents := make(map[string]int64)
		for _, it := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := it.validate(); err != nil {
				return err
			}
			var parentID sql.NullInt64
			if it.Parent != "" {
				id, ok := parents[it.Parent]
				if !ok {
					id, err = findOrCreateExpense(ctx, tx, batch.BillID, sql.NullInt64{}, year, it.Parent, core.Variable)
					if err != nil {
						return err
					}
					parents[it.Parent] = id
				}
				parentID = sql.NullInt64{Int64: id, Valid: true}
			}
			id, err := findOrCreateExpense(ctx, tx, batch.BillID, parentID, year, it.Supplier, it.Type)
			if err != nil {
				return err
			}
			if err := upsertExpenseMonths(ctx, tx, id, year, it.Months); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO import_batches (id, bill_id, file_count, item_count, ignored, replaced) VALUES (?, ?, ?, ?, ?, ?)`,
			batch.ID, batch.BillID, batch.FileCount, batch.ItemCount, batch.Ignored, batch.Replaced)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				return fmt.Errorf("batch %s: %w", batch.ID, ErrDuplicateBatch)
			}
			return fmt.Errorf("record import batch: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Import rolled back",
			log.FieldBatchID, batch.ID,
			log.FieldBillID, batch.BillID,
			log.FieldError, err)
		return err
	}
	r.logger.InfoContext(ctx, "Import committed",
		log.FieldBatchID, batch.ID,
		log.FieldBillID, batch.BillID,
		log.FieldRowCount, len(items))
	return nil
}

func findOrCreateExpense(ctx context.Context, q querier, billID int64, parentID sql.NullInt64, year int, supplier string, typ core.ExpenseType) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM expenses
		WHERE bill_id = ? AND supplier = ? AND deleted_at IS NULL
		AND ((? IS NULL AND parent_id IS NULL) OR parent_id = ?)
		ORDER BY id LIMIT 1`,
		billID, supplier, parentID, parentID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find expense %q: %w", supplier, err)
	}
	res, err := q.ExecContext(ctx, `INSERT INTO expenses (bill_id, parent_id, supplier, type) VALUES (?, ?, ?, ?)`,
		billID, parentID, supplier, expenseType(typ))
	if err != nil {
		return 0, fmt.Errorf("insert expense %q: %w", supplier, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert expense id: %w", err)
	}
	if err := upsertExpenseMonths(ctx, q, id, year, core.NewMonths().Slice()); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *SQLiteRepository) ListImports(ctx context.Context, billID int64) ([]ImportBatch, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, bill_id, file_count, item_count, ignored, replaced, created_at
		FROM import_batches WHERE bill_id = ? ORDER BY created_at, rowid`, billID)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()
	var out []ImportBatch
	for rows.Next() {
		var b ImportBatch
		if err := rows.Scan(&b.ID, &b.BillID, &b.FileCount, &b.ItemCount, &b.Ignored, &b.Replaced, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
