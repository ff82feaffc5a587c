package history

import (
	"database/sql"
	"time"
)

// Operation is one recorded mutating operation. Transactional mutations
// carry the transaction's audit message.
type Operation struct {
	ID          string
	Operation   string // e.g. "Copy", "Move", "Remove", "Duplicate"
	Message     string
	Source      string
	Destination string
	Status      string // "success" or "error"
	StartedAt   time.Time
	FinishedAt  sql.NullTime
}

// Store records mutating operations for audit.
type Store interface {
	// Start persists a new operation record. The caller supplies the ID
	// and StartedAt.
	Start(op *Operation) error

	// Finish marks an operation finished with the given status.
	Finish(id, status string) error

	// List returns the most recent operations, newest first.
	List(limit int) ([]*Operation, error)

	Close() error
}
