package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{15, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("broken pipe"), true},
		{"closed network", errors.New("use of closed network connection"), true},
		{"amqp closed", fmt.Errorf("wrap: %w", amqp091.ErrClosed), true},
		{"other error", errors.New("invalid input"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isConnectionError(tt.err))
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "contas", queueName: "report_sync"}

	assert.False(t, client.isCircuitOpen(), "closed initially")

	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	assert.True(t, client.isCircuitOpen())
	assert.Equal(t, StateOpen, atomic.LoadInt32(&client.state))

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	assert.False(t, client.isCircuitOpen(), "half-open after timeout")
	assert.Equal(t, StateHalfOpen, atomic.LoadInt32(&client.state))

	client.recordFailure()
	assert.Equal(t, StateOpen, atomic.LoadInt32(&client.state), "a half-open failure reopens")

	client.recordSuccess()
	assert.False(t, client.isCircuitOpen())
	assert.Zero(t, atomic.LoadInt64(&client.failureCount))
}

func TestClient_PublishRefusedWhenOpen(t *testing.T) {
	client := &Client{exchangeName: "contas", queueName: "report_sync"}
	atomic.StoreInt32(&client.state, StateOpen)
	client.lastFailure = time.Now()

	err := client.PublishReportSync(context.Background(), NewReportSyncMessage(1, 1, ""))
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestClient_PublishCancelled(t *testing.T) {
	client := &Client{exchangeName: "contas", queueName: "report_sync"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.PublishReportSync(ctx, NewReportSyncMessage(1, 1, ""))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReportSyncMessage_JSON(t *testing.T) {
	msg := &ReportSyncMessage{
		BillID:    12,
		Version:   3,
		BatchID:   "9a4c",
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := msg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"bill_id":12`)

	parsed, err := ReportSyncMessageFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, msg.BillID, parsed.BillID)
	assert.Equal(t, msg.Version, parsed.Version)
	assert.Equal(t, msg.BatchID, parsed.BatchID)
	assert.True(t, parsed.Timestamp.Equal(msg.Timestamp))
}

func TestReportSyncMessage_Invalid(t *testing.T) {
	_, err := ReportSyncMessageFromJSON([]byte(`{"bill_id": "x"}`))
	assert.Error(t, err)
	_, err = ReportSyncMessageFromJSON([]byte(`{"version": 1}`))
	assert.Error(t, err)
}

func TestNewReportSyncMessage(t *testing.T) {
	msg := NewReportSyncMessage(5, 2, "b")
	assert.Equal(t, int64(5), msg.BillID)
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Second)
}
