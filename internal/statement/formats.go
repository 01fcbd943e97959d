package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/aclindsa/ofxgo"
	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"contas/internal/core"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV decodes UTF-8 or, failing that, ISO-8859-1 (the default of most
// Brazilian bank exports) and sniffs the delimiter. The delimiter is
// returned with the records.
func readCSV(data []byte) ([][]string, rune, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		src = transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder())
	}

	comma := sniffDelimiter(data)
	r := csv.NewReader(src)
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, comma, err
	}
	return records, comma, nil
}

// Candidates in order of preference on ties.
var delimiters = []rune{';', '\t', ','}

// sniffDelimiter looks at the first non-empty lines and picks the delimiter
// whose most common field count above one is shared by the most lines.
// Preamble lines without any delimiter do not vote.
func sniffDelimiter(data []byte) rune {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, line)
		if len(lines) == headerScanRows {
			break
		}
	}

	best, bestScore, bestWidth := ',', 0, 0
	for _, d := range delimiters {
		counts := make(map[int]int)
		for _, line := range lines {
			if n := countFields(line, d); n > 1 {
				counts[n]++
			}
		}
		score, width := 0, 0
		for n, c := range counts {
			if c > score || (c == score && n > width) {
				score, width = c, n
			}
		}
		if score > bestScore || (score == bestScore && score > 0 && width > bestWidth) {
			best, bestScore, bestWidth = d, score, width
		}
	}
	return best
}

// countFields counts d outside double quotes, plus one.
func countFields(line []byte, d rune) int {
	n, quoted := 1, false
	for _, c := range string(line) {
		switch {
		case c == '"':
			quoted = !quoted
		case c == d && !quoted:
			n++
		}
	}
	return n
}

// readXLSX reads the first sheet of an Office Open XML workbook.
func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoTransactions
	}
	return f.GetRows(sheets[0])
}

// readXLS reads the first sheet of a legacy BIFF workbook. The xls reader
// only opens paths, so the bytes go through a temporary file.
func readXLS(data []byte) ([][]string, error) {
	tmp, err := os.CreateTemp("", "statement-*.xls")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	wb, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, err
	}
	if wb.GetNumberSheets() == 0 {
		return nil, ErrNoTransactions
	}
	sheet, err := wb.GetSheet(0)
	if err != nil {
		return nil, err
	}
	if sheet == nil {
		return nil, ErrNoTransactions
	}

	var records [][]string
	for i := 0; i <= int(sheet.GetNumberRows()); i++ {
		row, err := sheet.GetRow(i)
		if err != nil || row == nil {
			continue
		}
		var rec []string
		for _, col := range row.GetCols() {
			if col == nil {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, col.GetString())
		}
		records = append(records, rec)
	}
	return records, nil
}

// readOFX reads bank and credit-card statements from an OFX/QFX document.
func readOFX(data []byte) ([]Row, error) {
	content := strings.TrimLeft(string(bytes.TrimPrefix(data, utf8BOM)), " \t\r\n")
	resp, err := ofxgo.ParseResponse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse ofx: %w", err)
	}

	var rows []Row
	appendList := func(list *ofxgo.TransactionList) {
		if list == nil {
			return
		}
		for _, tx := range list.Transactions {
			if row := ofxRow(tx); row.Title != "" {
				rows = append(rows, row)
			}
		}
	}
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			appendList(stmt.BankTranList)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			appendList(stmt.BankTranList)
		}
	}
	if len(rows) == 0 {
		return nil, ErrNoTransactions
	}
	return rows, nil
}

func ofxRow(tx ofxgo.Transaction) Row {
	title := strings.TrimSpace(string(tx.Name))
	if tx.Payee != nil && tx.Payee.Name != "" {
		title = strings.TrimSpace(string(tx.Payee.Name))
	}
	if title == "" {
		title = strings.TrimSpace(string(tx.Memo))
	}
	row := Row{
		Title:  title,
		Amount: core.ParseAmount(tx.TrnAmt.FloatString(2)),
	}
	if !tx.DtPosted.IsZero() {
		row.Date = tx.DtPosted.Format("2006-01-02")
	}
	return row
}

