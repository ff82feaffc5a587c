package xetfs

import (
	"context"
	"io"
)

// EntryType classifies an entry reported by a backend.
type EntryType string

const (
	TypeFile      EntryType = "file"
	TypeDirectory EntryType = "directory"
)

// EntryInfo is backend-reported metadata for a single entry.
type EntryInfo struct {
	Path string
	Type EntryType
	Size int64
}

// BranchInfo describes a branch within a content-addressed repository.
type BranchInfo struct {
	Repo   string
	Branch string
	Commit string
}

// Backend is the minimal capability set every storage backend exposes.
// Paths are backend-relative, slash-separated strings as produced by the
// resolver. All blocking operations take a context.
type Backend interface {
	// Protocol returns the URI tag this handle was resolved for.
	Protocol() string

	// Info returns metadata for a single entry.
	Info(ctx context.Context, path string) (EntryInfo, error)

	// IsDir reports whether path is an existing directory.
	// A missing path is not a directory, not an error.
	IsDir(ctx context.Context, path string) (bool, error)

	// Open opens path for sequential reading.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Create opens path for writing, creating missing parent directories.
	// The write is not durable until Close returns.
	Create(ctx context.Context, path string) (io.WriteCloser, error)

	// Enumerate lists every descendant entry of path with type metadata.
	Enumerate(ctx context.Context, path string) (map[string]EntryInfo, error)

	// Glob lists entries matching pattern with type metadata.
	Glob(ctx context.Context, pattern string) (map[string]EntryInfo, error)

	// MakeDirs creates path and any missing parents. An existing directory
	// is not an error.
	MakeDirs(ctx context.Context, path string) error

	// Move renames src to dst within this backend.
	Move(ctx context.Context, src, dst string) error

	// Remove deletes a single path.
	Remove(ctx context.Context, path string) error
}

// TransactionalBackend is the extended capability set of content-addressed
// backends: transactions, branches, reference-based native copies, and
// deduplication hints.
type TransactionalBackend interface {
	Backend

	// BeginTransaction opens a transaction labeled with a human-readable
	// message. At most one transaction may be active per handle.
	BeginTransaction(ctx context.Context, message string) error

	// EndTransaction closes the active transaction.
	EndTransaction(ctx context.Context) error

	// BranchInfo resolves the branch referenced by path, failing if the
	// branch does not exist.
	BranchInfo(ctx context.Context, path string) (BranchInfo, error)

	// IsDirOrBranch reports whether path is a directory or a branch root.
	IsDirOrBranch(ctx context.Context, path string) (bool, error)

	// CopyFile performs a reference-based intra-backend copy of one entry.
	CopyFile(ctx context.Context, src, dst string) error

	// CopyDirectory performs a reference-based intra-backend copy of a
	// whole tree in a single call.
	CopyDirectory(ctx context.Context, src, dst string) error

	// PrepareDedupeHints asks the backend to preload chunk manifests
	// relevant to an upcoming large write at path.
	PrepareDedupeHints(ctx context.Context, path string) error

	// DuplicateRepository creates dst as a copy of the src repository.
	DuplicateRepository(ctx context.Context, src, dst string) error

	// SetRepositoryAttribute adjusts a repository attribute such as "private".
	SetRepositoryAttribute(ctx context.Context, path, attr string, value bool) error

	// CurrentUser returns the identity the handle is authenticated as.
	CurrentUser(ctx context.Context) (string, error)

	// Domain returns the root URI namespace of the backend.
	Domain() string
}

// Mounter is implemented by backends that can ask the external mount
// service to expose a repository reference as a local filesystem.
type Mounter interface {
	Mount(ctx context.Context, path, localPath string, prefetch bool) error
}

// Transactional queries a handle for the extended capability set.
func Transactional(b Backend) (TransactionalBackend, bool) {
	t, ok := b.(TransactionalBackend)
	return t, ok
}

// backendIsDir is the backend-aware directory check: content-addressed
// backends additionally treat a branch root as directory-like.
func backendIsDir(ctx context.Context, b Backend, path string) (bool, error) {
	if t, ok := Transactional(b); ok {
		return t.IsDirOrBranch(ctx, path)
	}
	return b.IsDir(ctx, path)
}
