package testutil

import (
	"context"
	"io"
	"sync"

	"xetgo/internal/xetfs"
)

// CountingBackend wraps a Backend and counts every call that touches
// storage. Protocol is metadata and is not counted. Use it to assert that
// an operation performed no backend I/O.
type CountingBackend struct {
	Inner xetfs.Backend

	mu    sync.Mutex
	calls int
}

// NewCountingBackend wraps inner.
func NewCountingBackend(inner xetfs.Backend) *CountingBackend {
	return &CountingBackend{Inner: inner}
}

// Calls returns the number of storage calls made so far.
func (c *CountingBackend) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *CountingBackend) count() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *CountingBackend) Protocol() string { return c.Inner.Protocol() }

func (c *CountingBackend) Info(ctx context.Context, path string) (xetfs.EntryInfo, error) {
	c.count()
	return c.Inner.Info(ctx, path)
}

func (c *CountingBackend) IsDir(ctx context.Context, path string) (bool, error) {
	c.count()
	return c.Inner.IsDir(ctx, path)
}

func (c *CountingBackend) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	c.count()
	return c.Inner.Open(ctx, path)
}

func (c *CountingBackend) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	c.count()
	return c.Inner.Create(ctx, path)
}

func (c *CountingBackend) Enumerate(ctx context.Context, path string) (map[string]xetfs.EntryInfo, error) {
	c.count()
	return c.Inner.Enumerate(ctx, path)
}

func (c *CountingBackend) Glob(ctx context.Context, pattern string) (map[string]xetfs.EntryInfo, error) {
	c.count()
	return c.Inner.Glob(ctx, pattern)
}

func (c *CountingBackend) MakeDirs(ctx context.Context, path string) error {
	c.count()
	return c.Inner.MakeDirs(ctx, path)
}

func (c *CountingBackend) Move(ctx context.Context, src, dst string) error {
	c.count()
	return c.Inner.Move(ctx, src, dst)
}

func (c *CountingBackend) Remove(ctx context.Context, path string) error {
	c.count()
	return c.Inner.Remove(ctx, path)
}

var _ xetfs.Backend = (*CountingBackend)(nil)
