package statement

import (
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"contas/internal/core"
)

// FilenameConvention extracts a month from the way one bank's export tool
// names its files.
type FilenameConvention struct {
	Name  string
	Match func(base string) (core.Month, bool)
}

var (
	// Nubank names invoices "Nubank_2025-03-10.csv" after the due date.
	nubankDate = regexp.MustCompile(`(?i)nubank[_\- ]*(\d{4})-(\d{2})-(\d{2})`)
	// Itaú and Inter use "fatura-2025-03" / "extrato_2025_03".
	yearMonth = regexp.MustCompile(`(?:^|\D)(\d{4})[-_.](\d{1,2})(?:\D|$)`)
	// Many tools write "03-2025" / "03_2025".
	monthYear = regexp.MustCompile(`(?:^|\D)(\d{1,2})[-_.](\d{4})(?:\D|$)`)
	wordSplit = regexp.MustCompile(`[^a-z]+`)
)

// Portuguese month names, accent-stripped. Ambiguous English words ("set",
// "out") are left out of the abbreviations.
var portugueseMonths = map[string]core.Month{
	"janeiro": core.January, "fevereiro": core.February, "marco": core.March,
	"abril": core.April, "maio": core.May, "junho": core.June,
	"julho": core.July, "agosto": core.August, "setembro": core.September,
	"outubro": core.October, "novembro": core.November, "dezembro": core.December,
	"fev": core.February, "abr": core.April, "mai": core.May,
	"ago": core.August, "dez": core.December,
}

var (
	conventionsMu sync.RWMutex
	conventions   = []FilenameConvention{
		{Name: "nubank", Match: matchNubank},
		{Name: "year-month", Match: matchNumeric(yearMonth, 2)},
		{Name: "month-year", Match: matchNumeric(monthYear, 1)},
		{Name: "month-name", Match: matchMonthName},
	}
)

// RegisterConvention adds a convention that is tried before the built-in ones.
func RegisterConvention(c FilenameConvention) {
	conventionsMu.Lock()
	defer conventionsMu.Unlock()
	conventions = append([]FilenameConvention{c}, conventions...)
}

// InferMonth derives the statement month from a file name using the first
// matching convention. It returns UnresolvedMonth when nothing matches.
func InferMonth(fileName string) core.Month {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	conventionsMu.RLock()
	registered := conventions
	conventionsMu.RUnlock()
	for _, c := range registered {
		if m, ok := c.Match(base); ok {
			return m
		}
	}
	return UnresolvedMonth
}

func matchNubank(base string) (core.Month, bool) {
	sm := nubankDate.FindStringSubmatch(base)
	if sm == nil {
		return 0, false
	}
	return monthFromDigits(sm[2])
}

func matchNumeric(re *regexp.Regexp, group int) func(string) (core.Month, bool) {
	return func(base string) (core.Month, bool) {
		sm := re.FindStringSubmatch(base)
		if sm == nil {
			return 0, false
		}
		return monthFromDigits(sm[group])
	}
}

func matchMonthName(base string) (core.Month, bool) {
	for _, tok := range wordSplit.Split(foldAccents(base), -1) {
		if len(tok) < 3 {
			continue
		}
		if m, ok := portugueseMonths[tok]; ok {
			return m, true
		}
		if m, err := core.ParseMonth(tok); err == nil {
			return m, true
		}
	}
	return 0, false
}

func monthFromDigits(s string) (core.Month, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	m, err := core.MonthFromIndex(n)
	return m, err == nil
}

// foldAccents lowercases s and strips combining marks ("Março" -> "marco").
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// ResolveMonth returns the explicit month of f, or the inferred one.
func ResolveMonth(f UploadFile) core.Month {
	if f.Month != nil {
		if f.Month.Valid() {
			return *f.Month
		}
		return UnresolvedMonth
	}
	return InferMonth(f.FileName)
}

// ValidateBatch is the gate in front of parsing and persistence. Every file
// must resolve to a month and no month may be claimed twice. All problems
// are reported together; the batch is rejected as a whole.
func ValidateBatch(files []UploadFile) ([]core.Month, error) {
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}
	months := make([]core.Month, len(files))
	claimedBy := make(map[core.Month]int)
	var errs []error
	for i, f := range files {
		m := ResolveMonth(f)
		months[i] = m
		if m == UnresolvedMonth {
			errs = append(errs, &FileError{Index: f.Index, FileName: f.FileName, Err: ErrUnresolvedMonth})
			continue
		}
		if first, ok := claimedBy[m]; ok {
			errs = append(errs, &FileError{
				Index:    f.Index,
				FileName: f.FileName,
				Err:      &DuplicateMonthError{Month: m, First: files[first].FileName, Second: f.FileName},
			})
			continue
		}
		claimedBy[m] = i
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return months, nil
}

// AvailableMonths lists the months file idx may still select: every month
// not already claimed by another file of the batch.
func AvailableMonths(files []UploadFile, idx int) []core.Month {
	claimed := make(map[core.Month]bool)
	for i, f := range files {
		if i == idx {
			continue
		}
		if m := ResolveMonth(f); m != UnresolvedMonth {
			claimed[m] = true
		}
	}
	out := make([]core.Month, 0, core.MonthsPerYear)
	for m := core.January; m <= core.December; m++ {
		if !claimed[m] {
			out = append(out, m)
		}
	}
	return out
}
