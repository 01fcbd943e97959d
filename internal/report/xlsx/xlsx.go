// Package xlsx serializes report sheets into an Office Open XML workbook.
package xlsx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"contas/internal/report"
)

// MIMEType of the rendered workbook.
const MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var borderStyles = map[string]int{
	report.BorderThin:   1,
	report.BorderMedium: 2,
	report.BorderDashed: 3,
	report.BorderDotted: 4,
	report.BorderThick:  5,
	report.BorderDouble: 6,
	"hair":              7,
}

// Render writes every sheet of wb, in order, into a single workbook.
func Render(wb *report.Workbook) ([]byte, error) {
	return RenderSheets(wb.Sheets...)
}

// RenderSheets writes sheets, in order, into a single workbook.
func RenderSheets(sheets ...*report.Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	r := &renderer{file: f, styles: make(map[report.Style]int)}
	defaultSheet := f.GetSheetName(0)
	for i, s := range sheets {
		name := report.SheetName(s.Name)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("rename sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
		if err := r.sheet(name, s); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

type renderer struct {
	file   *excelize.File
	styles map[report.Style]int
}

func (r *renderer) sheet(name string, s *report.Sheet) error {
	for _, w := range s.Writes() {
		ref := w.Ref()
		if err := r.file.SetCellValue(name, ref, w.Value); err != nil {
			return fmt.Errorf("%s!%s: %w", name, ref, err)
		}
		id, err := r.style(w.Style)
		if err != nil {
			return err
		}
		if err := r.file.SetCellStyle(name, ref, ref, id); err != nil {
			return fmt.Errorf("%s!%s style: %w", name, ref, err)
		}
	}
	for _, m := range s.Merges() {
		from, to, _ := strings.Cut(m.Range(), ":")
		if err := r.file.MergeCell(name, from, to); err != nil {
			return fmt.Errorf("%s merge %s: %w", name, m.Range(), err)
		}
	}
	return nil
}

func (r *renderer) style(st report.Style) (int, error) {
	if id, ok := r.styles[st]; ok {
		return id, nil
	}
	id, err := r.file.NewStyle(nativeStyle(st))
	if err != nil {
		return 0, fmt.Errorf("new style: %w", err)
	}
	r.styles[st] = id
	return id, nil
}

func nativeStyle(st report.Style) *excelize.Style {
	out := &excelize.Style{
		Font: &excelize.Font{Size: st.FontSize, Bold: st.Bold},
	}
	if fill := strings.TrimPrefix(st.Fill, "#"); fill != "" {
		out.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{fill}}
	}
	if n, ok := borderStyles[st.Border]; ok {
		for _, side := range []string{"left", "top", "right", "bottom"} {
			out.Border = append(out.Border, excelize.Border{Type: side, Color: "000000", Style: n})
		}
	}
	if st.HAlign != "" {
		out.Alignment = &excelize.Alignment{Horizontal: st.HAlign, Vertical: "center"}
	}
	return out
}
