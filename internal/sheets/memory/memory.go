package memory

import (
	"context"
	"fmt"
	"sync"

	"contas/internal/core"
	"contas/internal/report"
	ports "contas/internal/sheets"
)

var (
	_ ports.ReportPublisher = (*Store)(nil)
	_ ports.TotalsReader    = (*Store)(nil)
)

// Store keeps published sheets as value matrices, keyed by tab title.
type Store struct {
	mu     sync.Mutex
	tabs   map[string][][]any
	order  []string
	writes int
}

func New() *Store {
	return &Store{tabs: make(map[string][][]any)}
}

// Publish replaces the tab and returns a synthetic reference.
func (s *Store) Publish(_ context.Context, sheet *report.Sheet) (string, error) {
	title := report.SheetName(sheet.Name)
	values := ports.ValueMatrix(sheet)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tabs[title]; !ok {
		s.order = append(s.order, title)
	}
	s.tabs[title] = values
	s.writes++
	return fmt.Sprintf("mem:%s:%d", title, s.writes), nil
}

func (s *Store) ReadMonthlyTotals(_ context.Context, sheetName string) ([core.MonthsPerYear]core.Money, error) {
	s.mu.Lock()
	values, ok := s.tabs[report.SheetName(sheetName)]
	s.mu.Unlock()
	if !ok {
		return [core.MonthsPerYear]core.Money{}, fmt.Errorf("sheet %q not published", sheetName)
	}
	return ports.ParseMonthlyTotals(values)
}

// Tabs returns the published tab titles in first-publish order.
func (s *Store) Tabs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Values returns a copy of the values of a published tab.
func (s *Store) Values(title string) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.tabs[title]
	if !ok {
		return nil, false
	}
	out := make([][]any, len(v))
	for i := range v {
		out[i] = append([]any(nil), v[i]...)
	}
	return out, true
}
