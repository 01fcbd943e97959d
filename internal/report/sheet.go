package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrInvalidRange = errors.New("invalid cell range")

var errDetached = fmt.Errorf("%w: cell has no sheet", ErrInvalidRange)

// CellWrite places one value on the grid. Row and Column are 1-based.
type CellWrite struct {
	Row    int
	Column int
	Value  any
	Style  Style
}

// Ref returns the A1-style reference of the write.
func (w CellWrite) Ref() string {
	ref, _ := excelize.CoordinatesToCellName(w.Column, w.Row)
	return ref
}

// Merge is a normalized rectangular range, top-left to bottom-right.
type Merge struct {
	StartRow    int
	StartColumn int
	EndRow      int
	EndColumn   int
}

// Range renders the merge as "A1:B2".
func (m Merge) Range() string {
	from, _ := excelize.CoordinatesToCellName(m.StartColumn, m.StartRow)
	to, _ := excelize.CoordinatesToCellName(m.EndColumn, m.EndRow)
	return from + ":" + to
}

func normalizeMerge(r1, c1, r2, c2 int) Merge {
	if r2 < r1 {
		r1, r2 = r2, r1
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	return Merge{StartRow: r1, StartColumn: c1, EndRow: r2, EndColumn: c2}
}

// MergeSpec asks for a merge by coordinates, by range syntax, or both.
// When both forms are given both merges are recorded.
type MergeSpec struct {
	StartRow    int
	StartColumn int
	EndRow      int
	EndColumn   int
	Range       string
}

func (s MergeSpec) hasCoordinates() bool {
	return s.StartRow > 0 && s.StartColumn > 0 && s.EndRow > 0 && s.EndColumn > 0
}

// ParseRange parses "A1:B2" (or a single "A1") into a Merge.
func ParseRange(rng string) (Merge, error) {
	parts := strings.Split(strings.TrimSpace(rng), ":")
	if len(parts) == 0 || len(parts) > 2 || parts[0] == "" {
		return Merge{}, fmt.Errorf("%w: %q", ErrInvalidRange, rng)
	}
	c1, r1, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return Merge{}, fmt.Errorf("%w: %q", ErrInvalidRange, rng)
	}
	c2, r2 := c1, r1
	if len(parts) == 2 {
		c2, r2, err = excelize.CellNameToCoordinates(parts[1])
		if err != nil {
			return Merge{}, fmt.Errorf("%w: %q", ErrInvalidRange, rng)
		}
	}
	return normalizeMerge(r1, c1, r2, c2), nil
}

// Sheet collects the cell writes and merges of one worksheet. Writing the
// same coordinate twice keeps the last value at the first write's position.
type Sheet struct {
	Name   string
	writes []CellWrite
	merges []Merge
	index  map[[2]int]int
	merged map[Merge]bool
}

func NewSheet(name string) *Sheet {
	return &Sheet{
		Name:   name,
		index:  make(map[[2]int]int),
		merged: make(map[Merge]bool),
	}
}

// Writes returns the cell writes in insertion order.
func (s *Sheet) Writes() []CellWrite {
	out := make([]CellWrite, len(s.writes))
	copy(out, s.writes)
	return out
}

// Merges returns the distinct merges in insertion order.
func (s *Sheet) Merges() []Merge {
	out := make([]Merge, len(s.merges))
	copy(out, s.merges)
	return out
}

// Value returns the value written at row, column.
func (s *Sheet) Value(row, column int) (any, bool) {
	i, ok := s.index[[2]int{row, column}]
	if !ok {
		return nil, false
	}
	return s.writes[i].Value, true
}

// Lookup returns the full write at row, column.
func (s *Sheet) Lookup(row, column int) (CellWrite, bool) {
	i, ok := s.index[[2]int{row, column}]
	if !ok {
		return CellWrite{}, false
	}
	return s.writes[i], true
}

// Extent returns the last used row and column.
func (s *Sheet) Extent() (rows, columns int) {
	for _, w := range s.writes {
		rows = max(rows, w.Row)
		columns = max(columns, w.Column)
	}
	for _, m := range s.merges {
		rows = max(rows, m.EndRow)
		columns = max(columns, m.EndColumn)
	}
	return rows, columns
}

func (s *Sheet) put(w CellWrite) {
	key := [2]int{w.Row, w.Column}
	if i, ok := s.index[key]; ok {
		s.writes[i] = w
		return
	}
	s.index[key] = len(s.writes)
	s.writes = append(s.writes, w)
}

// addMerge records m once; a single-cell range is not a merge.
func (s *Sheet) addMerge(m Merge) {
	if m.StartRow == m.EndRow && m.StartColumn == m.EndColumn {
		return
	}
	if s.merged[m] {
		return
	}
	s.merged[m] = true
	s.merges = append(s.merges, m)
}

// Cell binds a grid coordinate to the sheet.
func (s *Sheet) Cell(row, column int) Cell {
	return Cell{Row: row, Column: column, sheet: s}
}

// Cell is one 1-based grid coordinate of a Sheet.
type Cell struct {
	Row    int
	Column int
	sheet  *Sheet
}

// Add writes value with the style resolved from spec, then applies merge
// when given.
func (c Cell) Add(value any, spec StyleSpec, merge *MergeSpec) error {
	if c.sheet == nil {
		return errDetached
	}
	if c.Row < 1 || c.Column < 1 {
		return fmt.Errorf("%w: row %d column %d", ErrInvalidRange, c.Row, c.Column)
	}
	c.sheet.put(CellWrite{
		Row:    c.Row,
		Column: c.Column,
		Value:  cellValue(value),
		Style:  ResolveStyle(spec),
	})
	if merge == nil {
		return nil
	}
	return c.Merge(*merge)
}

// Merge records the coordinate form and the range form of spec. Identical
// ranges are recorded once.
func (c Cell) Merge(spec MergeSpec) error {
	if c.sheet == nil {
		return errDetached
	}
	if spec.hasCoordinates() {
		c.sheet.addMerge(normalizeMerge(spec.StartRow, spec.StartColumn, spec.EndRow, spec.EndColumn))
	}
	if spec.Range != "" {
		m, err := ParseRange(spec.Range)
		if err != nil {
			return err
		}
		c.sheet.addMerge(m)
	}
	return nil
}

// cellValue maps values to what a spreadsheet cell holds: booleans become
// YES/NO and nil becomes the empty string.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return "YES"
		}
		return "NO"
	default:
		return v
	}
}
