package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"contas/internal/core"
)

// MemoryStore keeps everything in process. Imports are staged on copies and
// swapped in only when every item succeeds.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	bills   map[int64]core.Bill
	incomes map[int64]core.Income
	imports []ImportBatch
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bills:   make(map[int64]core.Bill),
		incomes: make(map[int64]core.Income),
		now:     time.Now,
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Bills() Collection[core.Bill]       { return memBills{m} }
func (m *MemoryStore) Expenses() Collection[core.Expense] { return memExpenses{m} }
func (m *MemoryStore) Incomes() Collection[core.Income]   { return memIncomes{m} }

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func sortedKeys[V any](in map[int64]V) []int64 {
	keys := make([]int64, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func paginate[T any](all []T, q Query) Page[T] {
	total := len(all)
	if q.PageSize > 0 {
		start := q.offset()
		if start > total {
			start = total
		}
		end := start + q.PageSize
		if end > total {
			end = total
		}
		all = all[start:end]
	}
	return newPage(all, q, total)
}

func cloneExpense(e core.Expense) core.Expense {
	if e.Children != nil {
		e.Children = append([]core.ChildExpense(nil), e.Children...)
	}
	return e
}

func cloneBill(b core.Bill) core.Bill {
	if b.Expenses != nil {
		exp := make([]core.Expense, len(b.Expenses))
		for i, e := range b.Expenses {
			exp[i] = cloneExpense(e)
		}
		b.Expenses = exp
	}
	return b
}

// assignIDs gives fresh ids to an expense and its children.
func (m *MemoryStore) assignIDs(billID int64, e core.Expense) core.Expense {
	e = cloneExpense(e)
	e.ID = m.id()
	e.BillID = billID
	if e.Type == "" {
		e.Type = core.Variable
	}
	for i := range e.Children {
		e.Children[i].ID = m.id()
		e.Children[i].ParentID = e.ID
		if e.Children[i].Type == "" {
			e.Children[i].Type = core.Variable
		}
	}
	return e
}

// findExpense locates a top-level expense by id.
func (m *MemoryStore) findExpense(id int64) (billID int64, idx int, ok bool) {
	for _, bid := range sortedKeys(m.bills) {
		for i, e := range m.bills[bid].Expenses {
			if e.ID == id {
				return bid, i, true
			}
		}
	}
	return 0, 0, false
}

type memBills struct{ m *MemoryStore }

func (s memBills) Get(_ context.Context, id int64) (core.Bill, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	b, ok := s.m.bills[id]
	if !ok {
		return core.Bill{}, notFound("bill", id)
	}
	return cloneBill(b), nil
}

func (s memBills) GetAll(_ context.Context, q Query) (Page[core.Bill], error) {
	q = q.normalized()
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var all []core.Bill
	for _, id := range sortedKeys(s.m.bills) {
		b := s.m.bills[id]
		if q.Year != 0 && b.Year != q.Year {
			continue
		}
		if q.BillID != 0 && b.ID != q.BillID {
			continue
		}
		all = append(all, cloneBill(b))
	}
	return paginate(all, q), nil
}

func (s memBills) Create(_ context.Context, b core.Bill) (core.Bill, error) {
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	b = cloneBill(b)
	b.ID = s.m.id()
	for i, e := range b.Expenses {
		b.Expenses[i] = s.m.assignIDs(b.ID, e)
	}
	s.m.bills[b.ID] = b
	return cloneBill(b), nil
}

func (s memBills) Update(_ context.Context, id int64, b core.Bill) (core.Bill, error) {
	b.Expenses = nil
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cur, ok := s.m.bills[id]
	if !ok {
		return core.Bill{}, notFound("bill", id)
	}
	b.ID = id
	b.Expenses = cur.Expenses
	s.m.bills[id] = b
	return cloneBill(b), nil
}

func (s memBills) Remove(_ context.Context, id int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.bills[id]; !ok {
		return notFound("bill", id)
	}
	delete(s.m.bills, id)
	return nil
}

type memExpenses struct{ m *MemoryStore }

func (s memExpenses) Get(_ context.Context, id int64) (core.Expense, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	bid, i, ok := s.m.findExpense(id)
	if !ok {
		return core.Expense{}, notFound("expense", id)
	}
	return cloneExpense(s.m.bills[bid].Expenses[i]), nil
}

func (s memExpenses) GetAll(_ context.Context, q Query) (Page[core.Expense], error) {
	q = q.normalized()
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var all []core.Expense
	for _, bid := range sortedKeys(s.m.bills) {
		b := s.m.bills[bid]
		if q.BillID != 0 && bid != q.BillID {
			continue
		}
		if q.Year != 0 && b.Year != q.Year {
			continue
		}
		for _, e := range b.Expenses {
			all = append(all, cloneExpense(e))
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, q), nil
}

func (s memExpenses) Create(_ context.Context, e core.Expense) (core.Expense, error) {
	if e.BillID == 0 {
		return core.Expense{}, ErrMissingBill
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	b, ok := s.m.bills[e.BillID]
	if !ok {
		return core.Expense{}, notFound("bill", e.BillID)
	}
	e = s.m.assignIDs(b.ID, e)
	b.Expenses = append(b.Expenses, e)
	s.m.bills[b.ID] = b
	return cloneExpense(e), nil
}

func (s memExpenses) Update(_ context.Context, id int64, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	bid, i, ok := s.m.findExpense(id)
	if !ok {
		return core.Expense{}, notFound("expense", id)
	}
	b := cloneBill(s.m.bills[bid])
	e = s.m.assignIDs(bid, e)
	e.ID = id
	for c := range e.Children {
		e.Children[c].ParentID = id
	}
	b.Expenses[i] = e
	s.m.bills[bid] = b
	return cloneExpense(e), nil
}

func (s memExpenses) Remove(_ context.Context, id int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	bid, i, ok := s.m.findExpense(id)
	if !ok {
		return notFound("expense", id)
	}
	b := cloneBill(s.m.bills[bid])
	b.Expenses = append(b.Expenses[:i], b.Expenses[i+1:]...)
	s.m.bills[bid] = b
	return nil
}

type memIncomes struct{ m *MemoryStore }

func (s memIncomes) Get(_ context.Context, id int64) (core.Income, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	in, ok := s.m.incomes[id]
	if !ok {
		return core.Income{}, notFound("income", id)
	}
	return in, nil
}

func (s memIncomes) GetAll(_ context.Context, q Query) (Page[core.Income], error) {
	q = q.normalized()
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var all []core.Income
	for _, id := range sortedKeys(s.m.incomes) {
		in := s.m.incomes[id]
		if q.Year != 0 && in.Year != q.Year {
			continue
		}
		all = append(all, in)
	}
	return paginate(all, q), nil
}

func (s memIncomes) Create(_ context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	in.ID = s.m.id()
	s.m.incomes[in.ID] = in
	return in, nil
}

func (s memIncomes) Update(_ context.Context, id int64, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.incomes[id]; !ok {
		return core.Income{}, notFound("income", id)
	}
	in.ID = id
	s.m.incomes[id] = in
	return in, nil
}

func (s memIncomes) Remove(_ context.Context, id int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.incomes[id]; !ok {
		return notFound("income", id)
	}
	delete(s.m.incomes, id)
	return nil
}

func (m *MemoryStore) ImportMonths(ctx context.Context, batch ImportBatch, items []ImportedExpense) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bill, ok := m.bills[batch.BillID]
	if !ok {
		return notFound("bill", batch.BillID)
	}
	for _, b := range m.imports {
		if b.ID == batch.ID {
			return fmt.Errorf("batch %s: %w", batch.ID, ErrDuplicateBatch)
		}
	}

	staged := cloneBill(bill)
	saved := m.nextID
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			m.nextID = saved
			return err
		}
		if err := m.stage(&staged, it); err != nil {
			m.nextID = saved
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		m.nextID = saved
		return err
	}

	m.bills[staged.ID] = staged
	batch.CreatedAt = m.now()
	m.imports = append(m.imports, batch)
	return nil
}

// stage applies one imported line to b.
func (m *MemoryStore) stage(b *core.Bill, it ImportedExpense) error {
	if err := it.validate(); err != nil {
		return err
	}
	typ := it.Type
	if typ == "" {
		typ = core.Variable
	}
	if it.Parent == "" {
		i := indexExpense(b.Expenses, it.Supplier)
		if i < 0 {
			e := core.NewExpense(it.Supplier, typ)
			e.ID, e.BillID = m.id(), b.ID
			b.Expenses = append(b.Expenses, e)
			i = len(b.Expenses) - 1
		}
		return setMonths(&b.Expenses[i].Months, it.Months)
	}

	p := indexExpense(b.Expenses, it.Parent)
	if p < 0 {
		e := core.NewExpense(it.Parent, core.Variable)
		e.ID, e.BillID = m.id(), b.ID
		b.Expenses = append(b.Expenses, e)
		p = len(b.Expenses) - 1
	}
	parent := &b.Expenses[p]
	for i := range parent.Children {
		if parent.Children[i].Supplier.Name == it.Supplier {
			return setMonths(&parent.Children[i].Months, it.Months)
		}
	}
	c := core.NewChildExpense(it.Supplier, typ)
	c.ID, c.ParentID = m.id(), parent.ID
	if err := setMonths(&c.Months, it.Months); err != nil {
		return err
	}
	parent.Children = append(parent.Children, c)
	return nil
}

func indexExpense(expenses []core.Expense, supplier string) int {
	for i, e := range expenses {
		if e.Supplier.Name == supplier {
			return i
		}
	}
	return -1
}

func setMonths(ms *core.Months, values []core.MonthValue) error {
	for _, mv := range values {
		v := mv.Value
		if v.Cents < 0 {
			v = core.Money{}
		}
		if err := ms.Set(mv.Month, v, mv.Paid); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) ListImports(_ context.Context, billID int64) ([]ImportBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ImportBatch
	for _, b := range m.imports {
		if b.BillID == billID {
			out = append(out, b)
		}
	}
	return out, nil
}
