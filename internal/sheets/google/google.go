package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/report"
	ports "contas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// Ensure interface conformance
var (
	_ ports.ReportPublisher = (*Client)(nil)
	_ ports.TotalsReader    = (*Client)(nil)
)

// Options selects the spreadsheet and the service account used to reach it.
type Options struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts.SpreadsheetID), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        log.Default(log.ComponentSheets),
		sheetIDs:      make(map[string]int64),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when no credentials are given.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	logger := log.Default(log.ComponentSheets)
	credsJSON := strings.TrimSpace(opts.ServiceAccountJSON)
	credsFile := strings.TrimSpace(opts.ServiceAccountFile)
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentials []byte
	switch {
	case credsJSON != "":
		credentials = []byte(credsJSON)
	case credsFile != "":
		data, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	logger.DebugContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentials),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Publish replaces the tab named after sheet with its values, formats and
// merges. The tab is created when missing.
func (c *Client) Publish(ctx context.Context, sheet *report.Sheet) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	title := report.SheetName(sheet.Name)

	sheetID, err := c.ensureSheet(ctx, title)
	if err != nil {
		return "", err
	}
	if err := c.reset(ctx, title, sheetID); err != nil {
		return "", err
	}

	values := ports.ValueMatrix(sheet)
	if len(values) == 0 {
		return a1(title, "A1"), nil
	}
	rng := a1(title, "A1")
	vr := &gsheet.ValueRange{Range: rng, Values: values}
	_, err = c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             []*gsheet.ValueRange{vr},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write values to %s: %w", title, err)
	}

	requests := formatRequests(sheetID, sheet)
	if len(requests) > 0 {
		_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: requests,
		}).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("format %s: %w", title, err)
		}
	}

	rows, cols := sheet.Extent()
	end := report.Merge{StartRow: 1, StartColumn: 1, EndRow: rows, EndColumn: cols}
	ref := a1(title, end.Range())
	c.logger.InfoContext(ctx, "Published report sheet",
		log.FieldSheet, title,
		log.FieldRowCount, rows,
		"requests", len(requests))
	return ref, nil
}

// ensureSheet returns the id of the tab titled title, adding it if needed.
func (c *Client) ensureSheet(ctx context.Context, title string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[title]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	c.mu.Lock()
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}
	id, ok = c.sheetIDs[title]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("add sheet %s: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet %s: empty reply", title)
	}
	id = resp.Replies[0].AddSheet.Properties.SheetId

	c.mu.Lock()
	c.sheetIDs[title] = id
	c.mu.Unlock()
	return id, nil
}

// reset clears values, formats and merges left by a previous publish.
func (c *Client) reset(ctx context.Context, title string, sheetID int64) error {
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, a1(title, ""), &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", title, err)
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: resetRequests(sheetID),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reset formats of %s: %w", title, err)
	}
	return nil
}

// ReadMonthlyTotals reads the footer row of an expense report tab.
func (c *Client) ReadMonthlyTotals(ctx context.Context, sheetName string) ([core.MonthsPerYear]core.Money, error) {
	var out [core.MonthsPerYear]core.Money
	if c.svc == nil {
		return out, errors.New("sheets service not initialized")
	}
	rng := a1(report.SheetName(sheetName), "")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return out, fmt.Errorf("read %s: %w", rng, err)
	}
	return ports.ParseMonthlyTotals(resp.Values)
}

// a1 quotes a tab title for A1 notation. An empty cell range selects the
// whole tab.
func a1(title, cells string) string {
	quoted := "'" + strings.ReplaceAll(title, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}
