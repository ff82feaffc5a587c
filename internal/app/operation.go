package app

import (
	"time"

	"github.com/google/uuid"

	"xetgo/internal/history"
)

// OperationRecord tracks one CLI invocation. Records are created in memory
// and only mutating commands persist them to the history store.
type OperationRecord struct {
	ID        string
	Operation string
	Status    string // "success" or "error"
	persisted bool
}

// NewOperationRecord creates a new in-memory operation record.
func NewOperationRecord(operation string) *OperationRecord {
	return &OperationRecord{
		ID:        uuid.NewString(),
		Operation: operation,
		Status:    "success",
	}
}

// Persisted reports whether this record has been saved to the history store.
func (op *OperationRecord) Persisted() bool {
	return op.persisted
}

// toHistory converts the record to a history row for persisting.
func (op *OperationRecord) toHistory(message, source, destination string) *history.Operation {
	return &history.Operation{
		ID:          op.ID,
		Operation:   op.Operation,
		Message:     message,
		Source:      source,
		Destination: destination,
		Status:      "running",
		StartedAt:   time.Now().UTC(),
	}
}
