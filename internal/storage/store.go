// Package storage is the persistence collaborator of the ledger: generic
// CRUD collections over bills, expenses and incomes plus the transactional
// statement import.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"contas/internal/core"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrMissingBill    = errors.New("expense has no bill")
	ErrDuplicateBatch = errors.New("duplicate import batch")
)

const DefaultPageSize = 10

// Query filters and paginates GetAll. Zero fields do not filter; a zero
// PageSize returns every match on a single page.
type Query struct {
	Year     int
	BillID   int64
	Page     int
	PageSize int
}

func (q Query) normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 0 {
		q.PageSize = 0
	}
	return q
}

func (q Query) offset() int {
	return (q.Page - 1) * q.PageSize
}

// Page is one page of results.
type Page[T any] struct {
	Results    []T
	Page       int
	TotalPages int
	Total      int
}

func newPage[T any](results []T, q Query, total int) Page[T] {
	p := Page[T]{Results: results, Page: q.Page, Total: total}
	switch {
	case total == 0:
		p.TotalPages = 0
	case q.PageSize == 0:
		p.TotalPages = 1
	default:
		p.TotalPages = (total + q.PageSize - 1) / q.PageSize
	}
	return p
}

// Collection is the generic CRUD port. Entities round-trip with their
// declared fields intact; month arrays always come back with twelve slots.
type Collection[T any] interface {
	Get(ctx context.Context, id int64) (T, error)
	GetAll(ctx context.Context, q Query) (Page[T], error)
	Create(ctx context.Context, v T) (T, error)
	Update(ctx context.Context, id int64, v T) (T, error)
	Remove(ctx context.Context, id int64) error
}

// ImportedExpense is one supplier line produced by a statement import.
// Only the months it carries are written; the others are left untouched.
// Parent, when set, names the credit-card umbrella expense the line is
// filed under.
type ImportedExpense struct {
	Parent   string
	Supplier string
	Type     core.ExpenseType
	Months   []core.MonthValue
}

func (it ImportedExpense) validate() error {
	if strings.TrimSpace(it.Supplier) == "" {
		return fmt.Errorf("import %q: %w", it.Parent, core.ErrEmptySupplier)
	}
	return nil
}

// ImportBatch is the audit record of one import.
type ImportBatch struct {
	ID        string
	BillID    int64
	FileCount int
	ItemCount int
	Ignored   int
	Replaced  int
	CreatedAt time.Time
}

// Store is the full persistence surface used by the ledger service.
type Store interface {
	Bills() Collection[core.Bill]
	Expenses() Collection[core.Expense]
	Incomes() Collection[core.Income]

	// ImportMonths writes every imported line and the batch record in one
	// transaction. Any failure, including a cancelled context, leaves
	// nothing written.
	ImportMonths(ctx context.Context, batch ImportBatch, items []ImportedExpense) error
	ListImports(ctx context.Context, billID int64) ([]ImportBatch, error)

	Close() error
}
