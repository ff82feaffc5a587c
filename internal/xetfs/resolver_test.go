package xetfs_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"xetgo/internal/backend"
	"xetgo/internal/xetfs"
)

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("scheme and path", func(t *testing.T) {
		r := xetfs.NewResolver()
		m := backend.NewMemory("mem")
		r.Register("mem", func(context.Context, string) (xetfs.Backend, error) { return m, nil })

		b, path, err := r.Resolve(ctx, "mem://a/b.txt")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if b != xetfs.Backend(m) {
			t.Error("Resolve() returned a different handle than registered")
		}
		if path != "a/b.txt" {
			t.Errorf("path = %q, want %q", path, "a/b.txt")
		}
	})

	t.Run("bare path means local", func(t *testing.T) {
		r := xetfs.NewResolver()
		m := backend.NewMemory("file")
		r.Register("file", func(context.Context, string) (xetfs.Backend, error) { return m, nil })

		_, path, err := r.Resolve(ctx, "some/relative/file.txt")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !filepath.IsAbs(path) {
			t.Errorf("path = %q, want absolute", path)
		}
	})

	t.Run("multiple separators are malformed", func(t *testing.T) {
		r := xetfs.NewResolver()
		_, _, err := r.Resolve(ctx, "a://b://c")
		if !errors.Is(err, xetfs.ErrMalformedURI) {
			t.Fatalf("Resolve() error = %v, want ErrMalformedURI", err)
		}
	})

	t.Run("unknown scheme", func(t *testing.T) {
		r := xetfs.NewResolver()
		if _, _, err := r.Resolve(ctx, "nope://path"); err == nil {
			t.Fatal("Resolve() succeeded, want unknown scheme error")
		}
	})
}

func TestResolver_CachesHandles(t *testing.T) {
	ctx := context.Background()
	r := xetfs.NewResolver()

	opened := 0
	r.Register("mem", func(context.Context, string) (xetfs.Backend, error) {
		opened++
		return backend.NewMemory("mem"), nil
	})

	b1, _, err := r.Resolve(ctx, "mem://a")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	b2, _, err := r.Resolve(ctx, "mem://b")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if opened != 1 {
		t.Errorf("opener ran %d times, want 1", opened)
	}
	if b1 != b2 {
		t.Error("repeated resolutions returned distinct handles")
	}
}
