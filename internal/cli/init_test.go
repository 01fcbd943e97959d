package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/config"
	"contas/internal/core"
)

func memoryConfig() *config.Config {
	return &config.Config{
		DataBackend:   "memory",
		ReportSink:    "memory",
		PageSize:      5,
		CacheMaxPages: 16,
		CacheTTL:      time.Minute,
		LogLevel:      "debug",
		LogFormat:     "json",
	}
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := SetupLogger(memoryConfig(), &buf)
	require.NoError(t, err)
	logger.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	cfg := memoryConfig()
	cfg.LogLevel = "loud"
	_, err = SetupLogger(cfg, &buf)
	assert.Error(t, err)
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("REPORT_SINK", "none")
	cfg, err := LoadAndValidateConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.DataBackend)

	t.Setenv("DATA_BACKEND", "mongo")
	_, err = LoadAndValidateConfig()
	assert.ErrorContains(t, err, "invalid data backend")
}

func TestOpen(t *testing.T) {
	var buf bytes.Buffer
	cfg := memoryConfig()
	logger, err := SetupLogger(cfg, &buf)
	require.NoError(t, err)

	ctx := context.Background()
	app, err := Open(ctx, cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, app.Backend.Publisher)
	assert.NotNil(t, app.Backend.Sink)

	bill, err := app.Ledger.CreateBill(ctx, core.Bill{Year: 2025, Type: core.Pix, Bank: core.BankRef{Name: "Inter"}})
	require.NoError(t, err)
	bills, err := app.Ledger.Bills(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, bill.ID, bills[0].ID)

	assert.NoError(t, app.Close())
}
