package testutil

import (
	"strings"
	"sync"

	"xetgo/internal/xetfs"
)

// LogEntry is one captured log call.
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

// RecordingLogger captures log calls so tests can assert that an error was
// reported (or that nothing was). Safe for concurrent use.
type RecordingLogger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args) }

// Contains reports whether any entry at the given level mentions substr in
// its message or arguments.
func (l *RecordingLogger) Contains(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.Entries {
		if e.Level != level {
			continue
		}
		if strings.Contains(e.Msg, substr) {
			return true
		}
		for _, a := range e.Args {
			if s, ok := a.(string); ok && strings.Contains(s, substr) {
				return true
			}
		}
	}
	return false
}

// ErrorCount returns the number of ERROR entries.
func (l *RecordingLogger) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, e := range l.Entries {
		if e.Level == "ERROR" {
			n++
		}
	}
	return n
}

var _ xetfs.Logger = (*RecordingLogger)(nil)
