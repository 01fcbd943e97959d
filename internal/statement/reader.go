package statement

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"contas/internal/core"
)

// Reader is the file collaborator: it turns raw bytes of a statement into
// rows, whatever the tabular format was.
type Reader interface {
	Read(ctx context.Context, fileName, mimeType string, data []byte) ([]Row, error)
}

// Format identifies a statement file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatOFX  Format = "ofx"
)

const (
	MIMECSV  = "text/csv"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEXLS  = "application/vnd.ms-excel"
	MIMEOFX  = "application/x-ofx"
)

var mimeFormats = map[string]Format{
	MIMECSV:                    FormatCSV,
	"application/csv":          FormatCSV,
	"text/plain":               FormatCSV,
	MIMEXLSX:                   FormatXLSX,
	MIMEXLS:                    FormatXLS,
	MIMEOFX:                    FormatOFX,
	"application/vnd.intu.qfx": FormatOFX,
}

var extFormats = map[string]Format{
	".csv":  FormatCSV,
	".txt":  FormatCSV,
	".xlsx": FormatXLSX,
	".xls":  FormatXLS,
	".ofx":  FormatOFX,
	".qfx":  FormatOFX,
}

// DetectFormat prefers the declared MIME type and falls back to the extension.
func DetectFormat(fileName, mimeType string) (Format, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if f, ok := mimeFormats[mt]; ok {
		return f, nil
	}
	if f, ok := extFormats[strings.ToLower(filepath.Ext(fileName))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, fileName, mimeType)
}

// FormatReader dispatches to the parser of each supported format.
type FormatReader struct {
	Columns ColumnAliases
}

// NewFormatReader returns a reader using the default column aliases.
func NewFormatReader() *FormatReader {
	return &FormatReader{Columns: DefaultColumnAliases()}
}

var _ Reader = (*FormatReader)(nil)

func (r *FormatReader) Read(ctx context.Context, fileName, mimeType string, data []byte) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format, err := DetectFormat(fileName, mimeType)
	if err != nil {
		return nil, err
	}

	var (
		records [][]string
		comma   rune
	)
	switch format {
	case FormatCSV:
		records, comma, err = readCSV(data)
	case FormatXLSX:
		records, err = readXLSX(data)
	case FormatXLS:
		records, err = readXLS(data)
	case FormatOFX:
		return readOFX(data)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", format, err)
	}
	return r.Columns.rows(records, comma == ',')
}

// ColumnAliases are the accent-folded, lower-case header names recognized
// for each column.
type ColumnAliases struct {
	Title  []string
	Amount []string
	Date   []string
}

func DefaultColumnAliases() ColumnAliases {
	return ColumnAliases{
		Title:  []string{"title", "description", "descricao", "historico", "estabelecimento", "lancamento", "merchant", "memo", "name"},
		Amount: []string{"amount", "valor", "value", "total"},
		Date:   []string{"date", "data"},
	}
}

type columnIndex struct {
	title, amount, date int
}

// headerScanRows bounds how far down a sheet the header row is searched;
// bank exports often start with a few lines of account information.
const headerScanRows = 10

func (a ColumnAliases) locate(records [][]string) (int, columnIndex, bool) {
	limit := len(records)
	if limit > headerScanRows {
		limit = headerScanRows
	}
	for i := 0; i < limit; i++ {
		idx := columnIndex{title: -1, amount: -1, date: -1}
		for j, cell := range records[i] {
			h := strings.TrimSpace(foldAccents(cell))
			if h == "" {
				continue
			}
			switch {
			case idx.date < 0 && hasAnyPrefix(h, a.Date):
				idx.date = j
			case idx.amount < 0 && containsAny(h, a.Amount):
				idx.amount = j
			case idx.title < 0 && containsAny(h, a.Title):
				idx.title = j
			}
		}
		if idx.title >= 0 && idx.amount >= 0 {
			return i, idx, true
		}
	}
	return 0, columnIndex{}, false
}

// positional guesses columns for header-less exports: [title, amount] or
// [date, title, amount, ...].
func positional(records [][]string) (columnIndex, bool) {
	width := 0
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	switch {
	case width == 2:
		return columnIndex{title: 0, amount: 1, date: -1}, true
	case width >= 3:
		return columnIndex{date: 0, title: 1, amount: 2}, true
	default:
		return columnIndex{}, false
	}
}

// rows maps records to Rows. commaSplit marks CSV records split on ','.
func (a ColumnAliases) rows(records [][]string, commaSplit bool) ([]Row, error) {
	start := 0
	idx, ok := columnIndex{}, false
	if h, found, located := a.locate(records); located {
		start, idx, ok = h+1, found, true
	} else {
		idx, ok = positional(records)
		if ok && commaSplit && idx.date < 0 && decimalCommaSplit(records) {
			ok = false
		}
	}
	if !ok {
		return nil, ErrMissingTitleColumn
	}

	var out []Row
	for _, rec := range records[start:] {
		title := strings.TrimSpace(cellAt(rec, idx.title))
		if title == "" {
			continue
		}
		out = append(out, Row{
			Title:  title,
			Amount: core.ParseAmount(cellAt(rec, idx.amount)),
			Date:   strings.TrimSpace(cellAt(rec, idx.date)),
		})
	}
	return out, nil
}

var centsFragment = regexp.MustCompile(`^\d{2}$`)

// decimalCommaSplit reports whether two-field records look like one field
// cut at a decimal comma, as in "PADARIA 12" and "50".
func decimalCommaSplit(records [][]string) bool {
	split, pairs := 0, 0
	for _, rec := range records {
		if len(rec) != 2 {
			continue
		}
		pairs++
		head := strings.TrimSpace(rec[0])
		if head != "" && unicode.IsDigit(rune(head[len(head)-1])) && centsFragment.MatchString(strings.TrimSpace(rec[1])) {
			split++
		}
	}
	return pairs > 0 && split*2 >= pairs
}

func cellAt(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
