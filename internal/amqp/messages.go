package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ReportSyncMessage asks the worker to re-publish the report of one bill.
// It carries only identifiers; the worker reads the bill from the store.
type ReportSyncMessage struct {
	BillID    int64     `json:"bill_id"`
	Version   uint64    `json:"version"`
	BatchID   string    `json:"batch_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReportSyncMessage stamps a message with the current time.
func NewReportSyncMessage(billID int64, version uint64, batchID string) *ReportSyncMessage {
	return &ReportSyncMessage{
		BillID:    billID,
		Version:   version,
		BatchID:   batchID,
		Timestamp: time.Now(),
	}
}

func (m *ReportSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportSyncMessageFromJSON decodes a delivery body. A message without a
// bill id is rejected.
func ReportSyncMessageFromJSON(data []byte) (*ReportSyncMessage, error) {
	var msg ReportSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.BillID <= 0 {
		return nil, errors.New("report sync message without bill_id")
	}
	return &msg, nil
}
