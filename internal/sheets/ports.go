// Package sheets holds the ports for outbound report sinks.
package sheets

import (
	"context"

	"contas/internal/core"
	"contas/internal/report"
)

// Ports for outbound adapters.
type (
	// ReportPublisher replaces a tab of the target spreadsheet with the
	// rendered sheet and returns a reference to the written range.
	ReportPublisher interface {
		Publish(ctx context.Context, sheet *report.Sheet) (ref string, err error)
	}

	// TotalsReader reads back the monthly totals footer of a published
	// expense report.
	TotalsReader interface {
		ReadMonthlyTotals(ctx context.Context, sheetName string) ([core.MonthsPerYear]core.Money, error)
	}
)
