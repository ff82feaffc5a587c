package xetfs

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
)

// uriSeparator splits a URI into a backend tag and a backend-relative path.
const uriSeparator = "://"

// Opener constructs a backend handle for a URI tag. The tag is passed
// through so that backends serving a family of aliases (e.g. s3, s3a)
// can report the originally requested protocol.
type Opener func(ctx context.Context, tag string) (Backend, error)

// Resolver maps URIs to backend handles. Handles are constructed lazily and
// cached for the lifetime of the Resolver, so repeated resolutions within
// one top-level operation share transaction state. A Resolver is created
// per operation invocation, not persisted.
type Resolver struct {
	mu      sync.Mutex
	openers map[string]Opener
	handles map[string]Backend
}

// NewResolver creates an empty Resolver. Register backends before resolving.
func NewResolver() *Resolver {
	return &Resolver{
		openers: make(map[string]Opener),
		handles: make(map[string]Backend),
	}
}

// Register binds a URI tag to a backend constructor.
func (r *Resolver) Register(tag string, open Opener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openers[tag] = open
}

// Resolve parses a URI into a backend handle and a backend-relative path.
// A URI without a scheme separator denotes the local backend and is
// canonicalized to an absolute path.
func (r *Resolver) Resolve(ctx context.Context, uri string) (Backend, string, error) {
	if !strings.Contains(uri, uriSeparator) {
		abs, err := filepath.Abs(uri)
		if err != nil {
			return nil, "", fmt.Errorf("resolving local path %s: %w", uri, err)
		}
		b, err := r.handle(ctx, "file")
		if err != nil {
			return nil, "", err
		}
		return b, abs, nil
	}

	parts := strings.Split(uri, uriSeparator)
	if len(parts) != 2 {
		return nil, "", fmt.Errorf("invalid URI %q: %w", uri, ErrMalformedURI)
	}
	b, err := r.handle(ctx, parts[0])
	if err != nil {
		return nil, "", err
	}
	return b, parts[1], nil
}

// handle returns the cached backend for tag, constructing it on first use.
func (r *Resolver) handle(ctx context.Context, tag string) (Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.handles[tag]; ok {
		return b, nil
	}
	open, ok := r.openers[tag]
	if !ok {
		return nil, fmt.Errorf("no backend registered for scheme %q", tag)
	}
	b, err := open(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("constructing %s backend: %w", tag, err)
	}
	r.handles[tag] = b
	return b, nil
}

// Close closes every cached handle that holds a connection.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for tag, b := range r.handles {
		if c, ok := b.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("closing %s backend: %w", tag, err)
			}
		}
	}
	r.handles = make(map[string]Backend)
	return firstErr
}
