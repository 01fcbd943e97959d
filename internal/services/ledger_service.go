// Package services orchestrates the ledger: statement imports, cached
// expense pages, dashboards and workbook exports.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"contas/internal/amqp"
	"contas/internal/cache"
	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/report"
	"contas/internal/report/xlsx"
	"contas/internal/statement"
	"contas/internal/storage"
)

// SyncPublisher announces that a bill's report must be re-published.
type SyncPublisher interface {
	PublishReportSync(ctx context.Context, msg *amqp.ReportSyncMessage) error
}

// ImportResult is what ImportStatement reports back to the caller.
type ImportResult struct {
	statement.Result
	BillID   int64
	Expenses int
	Version  uint64
}

type LedgerService struct {
	store     storage.Store
	pipeline  *statement.Pipeline
	pages     *cache.PageCache
	publisher SyncPublisher
	pageSize  int
	logger    *log.Logger

	mu    sync.Mutex
	locks map[int64]*semaphore.Weighted
}

type Option func(*LedgerService)

func WithPublisher(p SyncPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithPageCache(c *cache.PageCache) Option {
	return func(s *LedgerService) { s.pages = c }
}

func WithPageSize(n int) Option {
	return func(s *LedgerService) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

func NewLedgerService(store storage.Store, pipeline *statement.Pipeline, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:    store,
		pipeline: pipeline,
		pageSize: storage.DefaultPageSize,
		logger:   log.Default(log.ComponentLedger),
		locks:    make(map[int64]*semaphore.Weighted),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pages == nil {
		s.pages = cache.NewPageCache(256, 5*time.Minute)
	}
	if s.pipeline == nil {
		s.pipeline = statement.NewPipeline(statement.NewFormatReader())
	}
	return s
}

// Pages exposes the page cache so callers can register it for cleanup.
func (s *LedgerService) Pages() *cache.PageCache { return s.pages }

func (s *LedgerService) billLock(billID int64) *semaphore.Weighted {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[billID]
	if !ok {
		l = semaphore.NewWeighted(1)
		s.locks[billID] = l
	}
	return l
}

// CardParent names the umbrella expense credit-card lines are filed under.
func CardParent(bill core.Bill) string {
	return bill.Bank.Name + " card"
}

// GroupItems folds statement items into one imported expense per title.
// Amounts of the same title and month are summed; a month is paid when its
// file was marked paid. Titles keep their first-seen order.
func GroupItems(items []statement.UploadListItem, parent string) []storage.ImportedExpense {
	type acc struct {
		months map[core.Month]core.MonthValue
		order  []core.Month
	}
	var titles []string
	byTitle := make(map[string]*acc)
	for _, it := range items {
		if !it.Month.Valid() {
			continue
		}
		a, ok := byTitle[it.Title]
		if !ok {
			a = &acc{months: make(map[core.Month]core.MonthValue)}
			byTitle[it.Title] = a
			titles = append(titles, it.Title)
		}
		mv, seen := a.months[it.Month]
		if seen {
			mv.Paid = mv.Paid && it.Paid
		} else {
			mv = core.MonthValue{Month: it.Month, Paid: it.Paid}
			a.order = append(a.order, it.Month)
		}
		mv.Value = mv.Value.Add(it.Amount)
		a.months[it.Month] = mv
	}

	out := make([]storage.ImportedExpense, 0, len(titles))
	for _, title := range titles {
		a := byTitle[title]
		ie := storage.ImportedExpense{Parent: parent, Supplier: title, Type: core.Variable}
		for _, m := range a.order {
			ie.Months = append(ie.Months, a.months[m])
		}
		out = append(out, ie)
	}
	return out
}

// ImportStatement runs one import batch against a bill. Imports of the same
// bill are serialized; a caller waiting for the lock gives up when ctx ends.
// Nothing is written unless every file validates, parses and persists.
func (s *LedgerService) ImportStatement(ctx context.Context, billID int64, files []statement.UploadFile, rules statement.Rules) (ImportResult, error) {
	start := time.Now()
	lock := s.billLock(billID)
	if err := lock.Acquire(ctx, 1); err != nil {
		return ImportResult{}, fmt.Errorf("wait for bill %d: %w", billID, err)
	}
	defer lock.Release(1)

	bill, err := s.store.Bills().Get(ctx, billID)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import into bill %d: %w", billID, err)
	}

	res, err := s.pipeline.Run(ctx, files, rules)
	if err != nil {
		return ImportResult{}, err
	}

	parent := ""
	if bill.Type == core.CreditCard {
		parent = CardParent(bill)
	}
	items := GroupItems(res.Items, parent)
	batch := storage.ImportBatch{
		ID:        res.BatchID.String(),
		BillID:    billID,
		FileCount: len(files),
		ItemCount: len(res.Items),
		Ignored:   res.Ignored,
		Replaced:  res.Replaced,
	}
	if err := s.store.ImportMonths(ctx, batch, items); err != nil {
		s.logger.ErrorContext(ctx, "Statement import rolled back", log.NewFields().
			WithOperation(log.OpImport).
			WithBill(billID, bill.Year).
			WithBatch(batch.ID, len(files)).
			WithError(err).
			ToSlice()...)
		return ImportResult{}, fmt.Errorf("persist import: %w", err)
	}

	version := s.pages.InvalidateBill(billID)
	s.publishSync(ctx, billID, version, batch.ID)

	s.logger.InfoContext(ctx, "Statement imported",
		log.FieldBillID, billID,
		log.FieldBatchID, batch.ID,
		log.FieldFileCount, len(files),
		log.FieldRowCount, len(res.Items),
		log.FieldDuration, time.Since(start).Milliseconds())

	return ImportResult{Result: res, BillID: billID, Expenses: len(items), Version: version}, nil
}

// publishSync never fails the caller; the data is already committed.
func (s *LedgerService) publishSync(ctx context.Context, billID int64, version uint64, batchID string) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No sync publisher, skipping report sync", log.FieldBillID, billID)
		return
	}
	if err := s.publisher.PublishReportSync(ctx, amqp.NewReportSyncMessage(billID, version, batchID)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish report sync",
			log.FieldBillID, billID,
			log.FieldError, err)
	}
}

// ExpensePage returns one page of a bill's top-level expenses, reading
// through the page cache.
func (s *LedgerService) ExpensePage(ctx context.Context, billID int64, page int) (cache.PageEntry, error) {
	if page < 1 {
		page = 1
	}
	if entry, ok := s.pages.Get(billID, page); ok {
		return entry, nil
	}

	version := s.pages.Version(billID)
	p, err := s.store.Expenses().GetAll(ctx, storage.Query{BillID: billID, Page: page, PageSize: s.pageSize})
	if err != nil {
		return cache.PageEntry{}, fmt.Errorf("expense page %d of bill %d: %w", page, billID, err)
	}
	entry := cache.PageEntry{Results: p.Results, TotalPages: p.TotalPages, VersionTag: version}
	s.pages.Set(billID, page, entry)
	return entry, nil
}

// SaveExpense creates or updates an expense and drops the bill's cached pages.
func (s *LedgerService) SaveExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	var (
		saved core.Expense
		err   error
	)
	if e.ID == 0 {
		saved, err = s.store.Expenses().Create(ctx, e)
	} else {
		saved, err = s.store.Expenses().Update(ctx, e.ID, e)
	}
	if err != nil {
		return core.Expense{}, err
	}
	version := s.pages.InvalidateBill(saved.BillID)
	s.publishSync(ctx, saved.BillID, version, "")
	return saved, nil
}

func (s *LedgerService) RemoveExpense(ctx context.Context, id int64) error {
	e, err := s.store.Expenses().Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Expenses().Remove(ctx, id); err != nil {
		return err
	}
	version := s.pages.InvalidateBill(e.BillID)
	s.publishSync(ctx, e.BillID, version, "")
	return nil
}

// CreateBill stores a new bill for a year.
func (s *LedgerService) CreateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	return s.store.Bills().Create(ctx, b)
}

// Bills lists the bills of a year, every year when year is zero.
func (s *LedgerService) Bills(ctx context.Context, year int) ([]core.Bill, error) {
	return s.billsOfYear(ctx, year)
}

func (s *LedgerService) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	return s.store.Incomes().Create(ctx, in)
}

// Imports lists the audit records of a bill's imports.
func (s *LedgerService) Imports(ctx context.Context, billID int64) ([]storage.ImportBatch, error) {
	return s.store.ListImports(ctx, billID)
}

func (s *LedgerService) billsOfYear(ctx context.Context, year int) ([]core.Bill, error) {
	p, err := s.store.Bills().GetAll(ctx, storage.Query{Year: year})
	if err != nil {
		return nil, fmt.Errorf("bills of %d: %w", year, err)
	}
	return p.Results, nil
}

// Dashboard rolls the year's bills up by the named grouping key.
func (s *LedgerService) Dashboard(ctx context.Context, year int, key string) ([]core.GroupSummary, error) {
	gk, err := core.LookupGroupKey(key)
	if err != nil {
		return nil, err
	}
	bills, err := s.billsOfYear(ctx, year)
	if err != nil {
		return nil, err
	}
	return core.RollUp(bills, gk), nil
}

// YearSummary is the ledger-wide total of a year and its balance.
type YearSummary struct {
	Expenses core.Summary
	Incomes  core.Summary
	Balance  core.Money
}

func (s *LedgerService) Summary(ctx context.Context, year int) (YearSummary, error) {
	bills, err := s.billsOfYear(ctx, year)
	if err != nil {
		return YearSummary{}, err
	}
	incomes, err := s.store.Incomes().GetAll(ctx, storage.Query{Year: year})
	if err != nil {
		return YearSummary{}, fmt.Errorf("incomes of %d: %w", year, err)
	}
	return YearSummary{
		Expenses: core.SummarizeBills(bills),
		Incomes:  core.CalculateIncomes(incomes.Results),
		Balance:  core.Balance(incomes.Results, bills),
	}, nil
}

// ExportWorkbook renders the year's ledger as an xlsx workbook.
func (s *LedgerService) ExportWorkbook(ctx context.Context, year int) ([]byte, error) {
	bills, err := s.billsOfYear(ctx, year)
	if err != nil {
		return nil, err
	}
	incomes, err := s.store.Incomes().GetAll(ctx, storage.Query{Year: year})
	if err != nil {
		return nil, fmt.Errorf("incomes of %d: %w", year, err)
	}
	data, err := xlsx.Render(report.BillsWorkbook(year, bills, incomes.Results))
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	s.logger.InfoContext(ctx, "Workbook exported",
		log.FieldYear, year,
		"bills", len(bills),
		"bytes", len(data))
	return data, nil
}

// ExportImportAudit renders the items of an import batch for review.
func ExportImportAudit(res statement.Result) ([]byte, error) {
	sheet := report.NewSheet("Import")
	sheet.Table(report.ImportAuditReport(res, 1))
	return xlsx.RenderSheets(sheet)
}

// BillSheet builds the report sheet of one bill.
func (s *LedgerService) BillSheet(ctx context.Context, billID int64) (*report.Sheet, core.Bill, error) {
	bill, err := s.store.Bills().Get(ctx, billID)
	if err != nil {
		return nil, core.Bill{}, err
	}
	sheet := report.NewSheet(bill.Title())
	sheet.Table(report.ExpenseReport(bill, 1))
	return sheet, bill, nil
}

// Close releases the store and the publisher when it holds a connection.
func (s *LedgerService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
