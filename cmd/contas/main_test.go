package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/core"
	"contas/internal/statement"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestBuildUploads(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "title;amount\nMarket;10,00\n")
	b := writeFile(t, dir, "b.csv", "title;amount\nPharmacy;5,00\n")

	t.Run("inferred months", func(t *testing.T) {
		files, err := buildUploads([]string{a, b}, nil, true)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "a.csv", files[0].FileName)
		assert.Equal(t, 1, files[1].Index)
		assert.Nil(t, files[0].Month)
		assert.True(t, files[1].Paid)
		assert.NotEmpty(t, files[0].Data)
	})

	t.Run("explicit months", func(t *testing.T) {
		files, err := buildUploads([]string{a, b}, []string{"jan", "3"}, false)
		require.NoError(t, err)
		require.NotNil(t, files[0].Month)
		assert.Equal(t, core.January, *files[0].Month)
		assert.Equal(t, core.Month(3), *files[1].Month)
	})

	t.Run("month count mismatch", func(t *testing.T) {
		_, err := buildUploads([]string{a, b}, []string{"jan"}, false)
		assert.Error(t, err)
	})

	t.Run("bad month", func(t *testing.T) {
		_, err := buildUploads([]string{a}, []string{"13"}, false)
		assert.ErrorIs(t, err, core.ErrInvalidMonth)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := buildUploads([]string{filepath.Join(dir, "nope.csv")}, nil, false)
		assert.Error(t, err)
	})
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", `replaceWords:
  - before: UBER
    after: Uber
ignoreWords:
  - PAGAMENTO
`)

	rules, err := loadRules(path, true)
	require.NoError(t, err)
	assert.Equal(t, statement.Rules{
		ReplaceWords: []statement.ReplaceWordRule{{Before: "UBER", After: "Uber"}},
		IgnoreWords:  []string{"PAGAMENTO"},
	}, rules)

	rules, err = loadRules(filepath.Join(dir, "missing.yaml"), false)
	require.NoError(t, err)
	assert.True(t, rules.Empty())

	_, err = loadRules(filepath.Join(dir, "missing.yaml"), true)
	assert.Error(t, err)

	rules, err = loadRules("", true)
	require.NoError(t, err)
	assert.True(t, rules.Empty())
}

func TestParseMonthValues(t *testing.T) {
	ms, err := parseMonthValues([]string{"jan=1500,00", "3=99.90"}, true)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(150000), ms[0].Value)
	assert.True(t, ms[0].Paid)
	assert.Equal(t, core.Cents(9990), ms[2].Value)
	assert.True(t, ms[1].Value.IsZero())

	_, err = parseMonthValues([]string{"jan"}, false)
	assert.Error(t, err)
	_, err = parseMonthValues([]string{"jan=abc"}, false)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, err = parseMonthValues([]string{"foo=1"}, false)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, []string{"ID", "Bill"}, [][]string{{"1", "Nubank"}, {"22", "Itau"}}))
	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Nubank")
	assert.Contains(t, out, "22")
	assert.Contains(t, out, "────")
}

func TestMonthList(t *testing.T) {
	assert.Equal(t, "Jan, Mar", monthList([]core.Month{core.January, core.Month(3)}))
	assert.Equal(t, "", monthList(nil))
}

func TestMonthHints(t *testing.T) {
	jan := core.January
	files := []statement.UploadFile{
		{Index: 0, FileName: "a.csv", Month: &jan},
		{Index: 1, FileName: "b.csv", Month: &jan},
		{Index: 2, FileName: "extrato.csv"},
	}
	_, err := statement.ValidateBatch(files)
	require.Error(t, err)

	hints := monthHints(files, fmt.Errorf("import statement: %w", err))
	require.Len(t, hints, 2)
	assert.True(t, strings.HasPrefix(hints[0], "b.csv: available months Feb, Mar"), hints[0])
	assert.True(t, strings.HasPrefix(hints[1], "extrato.csv: available months Feb"), hints[1])
	assert.NotContains(t, hints[1], "Jan")

	assert.Empty(t, monthHints(files, statement.ErrNoTransactions))
}
