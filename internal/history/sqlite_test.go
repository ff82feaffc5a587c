package history

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_StartFinish(t *testing.T) {
	s := newTestStore(t)

	op := &Operation{
		ID:          "op-1",
		Operation:   "Copy",
		Message:     "import data",
		Source:      "file:///tmp/a",
		Destination: "xet://u/r/main/a",
		Status:      "running",
		StartedAt:   time.Now().UTC(),
	}
	if err := s.Start(op); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Finish("op-1", "success"); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	ops, err := s.List(10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("List() returned %d operations, want 1", len(ops))
	}

	got := ops[0]
	if got.ID != "op-1" || got.Operation != "Copy" || got.Status != "success" {
		t.Errorf("operation = %+v, want op-1/Copy/success", got)
	}
	if got.Message != "import data" {
		t.Errorf("Message = %q, want %q", got.Message, "import data")
	}
	if !got.FinishedAt.Valid {
		t.Error("FinishedAt not set after Finish")
	}
}

func TestSQLiteStore_FinishUnknownID(t *testing.T) {
	s := newTestStore(t)

	err := s.Finish("missing", "success")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Finish() error = %v, want not-found error", err)
	}
}

func TestSQLiteStore_ListOrderAndLimit(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"op-a", "op-b", "op-c"} {
		op := &Operation{
			ID:        id,
			Operation: "Remove",
			Status:    "success",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.Start(op); err != nil {
			t.Fatalf("Start(%s) error = %v", id, err)
		}
	}

	ops, err := s.List(2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("List(2) returned %d operations, want 2", len(ops))
	}
	if ops[0].ID != "op-c" || ops[1].ID != "op-b" {
		t.Errorf("List() order = [%s %s], want newest first [op-c op-b]", ops[0].ID, ops[1].ID)
	}
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	s := newTestStore(t)

	op := &Operation{ID: "op-1", Operation: "Copy", Status: "running", StartedAt: time.Now().UTC()}
	if err := s.Start(op); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(op); err == nil {
		t.Error("Start() with duplicate ID succeeded, want error")
	}
}

func TestSQLiteStore_PersistsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	op := &Operation{ID: "op-1", Operation: "Move", Status: "success", StartedAt: time.Now().UTC()}
	if err := s.Start(op); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopen and read back.
	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() reopen error = %v", err)
	}
	defer s2.Close()

	ops, err := s2.List(10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ops) != 1 || ops[0].ID != "op-1" {
		t.Errorf("List() after reopen = %+v, want the recorded operation", ops)
	}
}
