package report

// TableSpec declares a titled table. Headers double as the keys looked up
// in each Body record. Only the first TableWidth headers are rendered;
// TableWidth <= 0 means all of them.
type TableSpec struct {
	Title       string
	Headers     []string
	Body        []map[string]any
	StartRow    int
	StartColumn int
	TableWidth  int

	TitleStyle  StyleSpec
	HeaderStyle StyleSpec
	BodyStyle   StyleSpec
}

func (t TableSpec) width() int {
	if t.TableWidth <= 0 {
		return len(t.Headers)
	}
	return t.TableWidth
}

func (t TableSpec) origin() (row, column int) {
	row, column = t.StartRow, t.StartColumn
	if row < 1 {
		row = 1
	}
	if column < 1 {
		column = 1
	}
	return row, column
}

// Table renders spec: the title at StartRow merged across TableWidth
// columns, headers on the next row, then one row per body record. Missing
// values are written as "". It returns the first free row below the table.
func (s *Sheet) Table(spec TableSpec) int {
	row, col := spec.origin()
	width := spec.width()

	titleStyle := spec.TitleStyle
	titleStyle.Title = true
	s.put(CellWrite{Row: row, Column: col, Value: spec.Title, Style: ResolveStyle(titleStyle)})
	if width > 1 {
		s.addMerge(Merge{StartRow: row, StartColumn: col, EndRow: row, EndColumn: col + width - 1})
	}

	keys := spec.Headers
	if len(keys) > width {
		keys = keys[:width]
	}

	headerSpec := spec.HeaderStyle
	if headerSpec.Bold == nil {
		headerSpec.Bold = Ptr(true)
	}
	headerStyle := ResolveStyle(headerSpec)
	for j, key := range keys {
		s.put(CellWrite{Row: row + 1, Column: col + j, Value: key, Style: headerStyle})
	}

	bodyStyle := ResolveStyle(spec.BodyStyle)
	for i, record := range spec.Body {
		for j, key := range keys {
			s.put(CellWrite{
				Row:    row + 2 + i,
				Column: col + j,
				Value:  cellValue(record[key]),
				Style:  bodyStyle,
			})
		}
	}
	return row + 2 + len(spec.Body)
}
