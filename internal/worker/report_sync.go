// Package worker re-publishes bill reports to the configured report sink.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/report"
	"contas/internal/sheets"
	"contas/internal/storage"
)

// ErrTotalsMismatch is returned by Verify when the published footer does
// not match the ledger.
var ErrTotalsMismatch = errors.New("published totals differ from ledger")

// Ledger is the read side the worker needs from the ledger service.
type Ledger interface {
	BillSheet(ctx context.Context, billID int64) (*report.Sheet, core.Bill, error)
	Bills(ctx context.Context, year int) ([]core.Bill, error)
}

type ReportSyncWorker struct {
	ledger    Ledger
	publisher sheets.ReportPublisher
	totals    sheets.TotalsReader
	parallel  int
	logger    *log.Logger

	mu       sync.Mutex
	versions map[int64]uint64
}

// NewReportSyncWorker builds a worker. totals may be nil to skip verification.
func NewReportSyncWorker(ledger Ledger, publisher sheets.ReportPublisher, totals sheets.TotalsReader) *ReportSyncWorker {
	return &ReportSyncWorker{
		ledger:    ledger,
		publisher: publisher,
		totals:    totals,
		parallel:  4,
		logger:    log.Default(log.ComponentWorker),
		versions:  make(map[int64]uint64),
	}
}

// stale records version for bill and reports whether a newer one was
// already handled.
func (w *ReportSyncWorker) stale(billID int64, version uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if version != 0 && version < w.versions[billID] {
		return true
	}
	if version > w.versions[billID] {
		w.versions[billID] = version
	}
	return false
}

// HandleSyncMessage publishes the bill named by msg. Messages older than the
// last version handled for the bill, and messages for bills that no longer
// exist, are dropped.
func (w *ReportSyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ReportSyncMessage) error {
	if w.stale(msg.BillID, msg.Version) {
		w.logger.InfoContext(ctx, "Skipping stale report sync",
			log.FieldBillID, msg.BillID,
			log.FieldVersion, msg.Version)
		return nil
	}
	err := w.SyncBill(ctx, msg.BillID)
	if errors.Is(err, storage.ErrNotFound) {
		w.logger.WarnContext(ctx, "Dropping report sync for missing bill",
			log.FieldBillID, msg.BillID,
			log.FieldVersion, msg.Version,
			log.FieldError, err)
		return nil
	}
	return err
}

// SyncBill renders one bill, publishes it and checks the published totals.
func (w *ReportSyncWorker) SyncBill(ctx context.Context, billID int64) error {
	start := time.Now()
	sheet, bill, err := w.ledger.BillSheet(ctx, billID)
	if err != nil {
		return fmt.Errorf("build report of bill %d: %w", billID, err)
	}
	ref, err := w.publisher.Publish(ctx, sheet)
	if err != nil {
		return fmt.Errorf("publish report of bill %d: %w", billID, err)
	}
	if err := w.Verify(ctx, sheet.Name, bill); err != nil {
		// The publish went through; a mismatch is reported, not retried.
		w.logger.WarnContext(ctx, "Published report failed verification",
			log.FieldBillID, billID,
			log.FieldSheet, sheet.Name,
			log.FieldError, err)
	}
	w.logger.InfoContext(ctx, "Report synced",
		log.FieldBillID, billID,
		log.FieldSheet, sheet.Name,
		"ref", ref,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// Verify reads back the footer of sheetName and compares it with the
// monthly totals of bill.
func (w *ReportSyncWorker) Verify(ctx context.Context, sheetName string, bill core.Bill) error {
	if w.totals == nil {
		return nil
	}
	got, err := w.totals.ReadMonthlyTotals(ctx, sheetName)
	if err != nil {
		return fmt.Errorf("read back %s: %w", sheetName, err)
	}
	want := core.MonthlyTotals(bill.Expenses)
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%w: %s is %s, want %s", ErrTotalsMismatch, core.Month(i+1), got[i], want[i])
		}
	}
	return nil
}

// SyncYear re-publishes every bill of year. It is the recovery path for
// lost messages. Failures of single bills are collected and returned
// together after every bill was tried.
func (w *ReportSyncWorker) SyncYear(ctx context.Context, year int) error {
	bills, err := w.ledger.Bills(ctx, year)
	if err != nil {
		return fmt.Errorf("list bills of %d: %w", year, err)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallel)
	for _, b := range bills {
		g.Go(func() error {
			if err := w.SyncBill(gctx, b.ID); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Year synced",
		log.FieldYear, year,
		"bills", len(bills),
		"errors", len(errs))
	return errors.Join(errs...)
}

// RunPeriodic calls SyncYear for the current year at once and then on
// every tick until ctx ends.
func (w *ReportSyncWorker) RunPeriodic(ctx context.Context, interval time.Duration, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.SyncYear(ctx, now().Year()); err != nil && ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "Periodic sync failed", log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
