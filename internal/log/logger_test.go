package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "text", Component: ComponentStatement, Output: &buf})

	l.Info("parsed file", FieldFileName, "nubank.csv")
	assert.Contains(t, buf.String(), "component=statement")
	assert.Contains(t, buf.String(), "file_name=nubank.csv")

	buf.Reset()
	l.WithComponent(ComponentStorage).Debug("tx committed")
	assert.Contains(t, buf.String(), "component=storage")
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentApp, Output: &buf})
	l.Debug("hidden")
	assert.Empty(t, buf.String())
	l.Warn("shown")
	assert.Contains(t, buf.String(), `"component":"app"`)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	l := Default(ComponentWorker)
	ctx := NewContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithOperation(OpImport).WithBill(4, 2025).WithError(errors.New("boom"))
	assert.Equal(t, OpImport, f[FieldOperation])
	assert.Equal(t, int64(4), f[FieldBillID])
	assert.Equal(t, "boom", f[FieldError])
	assert.Len(t, f.ToSlice(), 8)
}
