package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableWidthLimitsColumns(t *testing.T) {
	s := NewSheet("Test")
	next := s.Table(TableSpec{
		Title:   "Expenses",
		Headers: []string{"a", "b", "c", "d", "e"},
		Body: []map[string]any{
			{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5},
			{"a": "x", "c": true, "e": false},
		},
		StartRow:    2,
		StartColumn: 2,
		TableWidth:  3,
	})
	assert.Equal(t, 6, next)

	title, ok := s.Lookup(2, 2)
	require.True(t, ok)
	assert.Equal(t, "Expenses", title.Value)
	assert.True(t, title.Style.Bold)
	assert.Equal(t, 24.0, title.Style.FontSize)
	assert.Equal(t, []Merge{{StartRow: 2, StartColumn: 2, EndRow: 2, EndColumn: 4}}, s.Merges())

	for j, h := range []string{"a", "b", "c"} {
		v, ok := s.Value(3, 2+j)
		require.True(t, ok)
		assert.Equal(t, h, v)
	}
	_, ok = s.Value(3, 5)
	assert.False(t, ok, "header beyond table width")

	row1 := []any{1, 2, 3}
	row2 := []any{"x", "", "YES"}
	for j := range 3 {
		v, _ := s.Value(4, 2+j)
		assert.Equal(t, row1[j], v)
		v, _ = s.Value(5, 2+j)
		assert.Equal(t, row2[j], v)
	}
	_, ok = s.Value(4, 5)
	assert.False(t, ok, "body beyond table width")

	// title + 3 headers + 2x3 body
	assert.Len(t, s.Writes(), 10)
}

func TestTableDefaults(t *testing.T) {
	s := NewSheet("Test")
	next := s.Table(TableSpec{Title: "T", Headers: []string{"only"}})
	assert.Equal(t, 3, next)
	assert.Empty(t, s.Merges())

	header, ok := s.Lookup(2, 1)
	require.True(t, ok)
	assert.True(t, header.Style.Bold)
	assert.Equal(t, 14.0, header.Style.FontSize)
	assert.Equal(t, BorderNone, header.Style.Border)
}

func TestTableStacking(t *testing.T) {
	s := NewSheet("Test")
	next := s.Table(TableSpec{Title: "One", Headers: []string{"a", "b"}, Body: []map[string]any{{"a": 1}}})
	next = s.Table(TableSpec{Title: "Two", Headers: []string{"a", "b"}, StartRow: next + 1})
	assert.Equal(t, 7, next)

	v, ok := s.Value(5, 1)
	require.True(t, ok)
	assert.Equal(t, "Two", v)
	assert.Len(t, s.Merges(), 2)
}
