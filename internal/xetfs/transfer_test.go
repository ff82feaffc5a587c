package xetfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
)

// stubBackend is a minimal in-memory Backend for exercising the transfer
// path without importing the real backends.
type stubBackend struct {
	protocol string
	mu       sync.Mutex
	files    map[string][]byte
	failOpen error
}

func newStub(protocol string) *stubBackend {
	return &stubBackend{protocol: protocol, files: make(map[string][]byte)}
}

func (b *stubBackend) Protocol() string { return b.protocol }

func (b *stubBackend) Info(_ context.Context, path string) (EntryInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[path]
	if !ok {
		return EntryInfo{}, fmt.Errorf("path not found: %s", path)
	}
	return EntryInfo{Path: path, Type: TypeFile, Size: int64(len(data))}, nil
}

func (b *stubBackend) IsDir(context.Context, string) (bool, error) { return false, nil }

func (b *stubBackend) Open(_ context.Context, path string) (io.ReadCloser, error) {
	if b.failOpen != nil {
		return nil, b.failOpen
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[path]
	if !ok {
		return nil, fmt.Errorf("path not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *stubBackend) Create(_ context.Context, path string) (io.WriteCloser, error) {
	return &stubWriter{b: b, path: path}, nil
}

type stubWriter struct {
	b    *stubBackend
	path string
	buf  bytes.Buffer
}

func (w *stubWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *stubWriter) Close() error {
	w.b.mu.Lock()
	defer w.b.mu.Unlock()
	w.b.files[w.path] = append([]byte(nil), w.buf.Bytes()...)
	return nil
}

func (b *stubBackend) Enumerate(context.Context, string) (map[string]EntryInfo, error) {
	return nil, errors.New("not implemented")
}

func (b *stubBackend) Glob(context.Context, string) (map[string]EntryInfo, error) {
	return nil, errors.New("not implemented")
}

func (b *stubBackend) MakeDirs(context.Context, string) error { return nil }
func (b *stubBackend) Move(context.Context, string, string) error {
	return errors.New("not implemented")
}
func (b *stubBackend) Remove(context.Context, string) error { return errors.New("not implemented") }

// captureLogger records messages so tests can assert on reported errors.
type captureLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *captureLogger) Debug(string, ...any) {}
func (l *captureLogger) Warn(string, ...any)  {}

func (l *captureLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *captureLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func TestNewService_Defaults(t *testing.T) {
	s := NewService(NewResolver(), nil, 0, 0)

	if s.poolSize != DefaultPoolSize {
		t.Errorf("poolSize = %d, want %d", s.poolSize, DefaultPoolSize)
	}
	if !s.permits.TryAcquire(DefaultMaxConcurrent) {
		t.Error("expected the full default permit weight to be available")
	}
	s.permits.Release(DefaultMaxConcurrent)
}

func TestTransferFile_CopiesData(t *testing.T) {
	src := newStub("src")
	dst := newStub("dst")
	src.files["f.txt"] = []byte("hello world")

	s := NewService(NewResolver(), nil, 2, 2)
	s.transferFile(context.Background(), src, "f.txt", dst, "out/f.txt", -1)

	if got := string(dst.files["out/f.txt"]); got != "hello world" {
		t.Errorf("destination content = %q, want %q", got, "hello world")
	}
	if !s.permits.TryAcquire(2) {
		t.Error("permits were not released after the transfer")
	}
	s.permits.Release(2)
}

func TestTransferFile_SkipsAttributesMarker(t *testing.T) {
	src := newStub("src")
	dst := newStub("dst")
	src.files[".gitattributes"] = []byte("filters")

	logger := &captureLogger{}
	s := NewService(NewResolver(), logger, 1, 1)
	s.transferFile(context.Background(), src, ".gitattributes", dst, "repo/.gitattributes", -1)

	if len(dst.files) != 0 {
		t.Errorf("destination has %d files, want 0", len(dst.files))
	}
	found := false
	for _, msg := range logger.infos {
		if msg == "skipping attributes marker" {
			found = true
		}
	}
	if !found {
		t.Error("expected the skip to be logged")
	}
}

func TestTransferFile_AbsorbsFailures(t *testing.T) {
	src := newStub("src")
	dst := newStub("dst")
	src.failOpen = errors.New("connection reset")

	logger := &captureLogger{}
	s := NewService(NewResolver(), logger, 1, 1)
	s.transferFile(context.Background(), src, "f.txt", dst, "out.txt", -1)

	if len(logger.errors) != 1 {
		t.Fatalf("reported errors = %d, want 1", len(logger.errors))
	}
	if len(dst.files) != 0 {
		t.Errorf("destination has %d files, want 0", len(dst.files))
	}
	if !s.permits.TryAcquire(1) {
		t.Error("permit was not released after the failed transfer")
	}
	s.permits.Release(1)
}
