// Package backend wires the store, the sync publisher and the report sink
// selected by configuration.
package backend

import (
	"context"

	"contas/internal/amqp"
	"contas/internal/sheets"
	"contas/internal/storage"
)

// CleanupFunc releases the resources of a backend.
type CleanupFunc func() error

// BackendResult holds everything the commands need. Publisher, Sink and
// Totals are nil when the matching feature is disabled.
type BackendResult struct {
	Store     storage.Store
	Publisher *amqp.Client
	Sink      sheets.ReportPublisher
	Totals    sheets.TotalsReader
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type         BackendType
	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Sink                     SinkType
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType selects the store.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// SinkType selects where bill reports are published.
type SinkType string

const (
	NoSink     SinkType = "none"
	MemorySink SinkType = "memory"
	GoogleSink SinkType = "google"
)

func (st SinkType) IsValid() bool {
	switch st {
	case NoSink, MemorySink, GoogleSink, "":
		return true
	default:
		return false
	}
}
