package backend

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"xetgo/internal/xetfs"
)

func TestLocal_CreateOpen(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "f.txt")

	// Create makes missing parents.
	w, err := l.Create(ctx, path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := io.WriteString(w, "hello"); err != nil {
		t.Fatalf("writing: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}

	r, err := l.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want %q", data, "hello")
	}
}

func TestLocal_IsDir(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "directory", path: dir, want: true},
		{name: "file", path: file, want: false},
		{name: "missing", path: filepath.Join(dir, "nope"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.IsDir(ctx, tt.path)
			if err != nil {
				t.Fatalf("IsDir() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsDir() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocal_Enumerate(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()
	dir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "x.txt"), []byte("1"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "y.txt"), []byte("22"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	entries, err := l.Enumerate(ctx, dir)
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	if info, ok := entries[filepath.Join(dir, "x.txt")]; !ok || info.Size != 1 {
		t.Errorf("x.txt entry = %+v, want size 1", info)
	}
	if _, ok := entries[filepath.Join(dir, "sub", "y.txt")]; !ok {
		t.Error("sub/y.txt missing from enumeration")
	}
	if info, ok := entries[filepath.Join(dir, "sub")]; !ok || info.Type != xetfs.TypeDirectory {
		t.Errorf("sub entry = %+v, want directory", info)
	}
	if _, ok := entries[dir]; ok {
		t.Error("enumeration included the root itself")
	}
}

func TestLocal_Glob(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()
	dir := t.TempDir()

	for _, name := range []string{"one.txt", "two.txt", "three.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	entries, err := l.Glob(ctx, filepath.Join(dir, "*.txt"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Glob() returned %d entries, want 2", len(entries))
	}
}

func TestLocal_MoveRemove(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")

	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := l.Move(ctx, src, dst); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("destination missing: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still present: %v", err)
	}

	if err := l.Remove(ctx, dst); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("file still present after Remove: %v", err)
	}
}
