package backend

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"xetgo/internal/xetfs"
)

// Local is the local-disk backend. Paths are absolute filesystem paths as
// produced by the resolver.
type Local struct {
	protocol string
}

// NewLocal creates a local-disk backend handle.
func NewLocal() *Local {
	return &Local{protocol: "file"}
}

func (l *Local) Protocol() string { return l.protocol }

func (l *Local) Info(_ context.Context, path string) (xetfs.EntryInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return xetfs.EntryInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return entryFromFileInfo(path, fi), nil
}

func (l *Local) IsDir(_ context.Context, path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return fi.IsDir(), nil
}

func (l *Local) Open(_ context.Context, path string) (io.ReadCloser, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path)
	}
	return os.Open(path)
}

func (l *Local) Create(_ context.Context, path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating parent directory: %w", err)
	}
	return os.Create(path)
}

func (l *Local) Enumerate(_ context.Context, path string) (map[string]xetfs.EntryInfo, error) {
	entries := make(map[string]xetfs.EntryInfo)
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == path {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		entries[p] = entryFromFileInfo(p, fi)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", path, err)
	}
	return entries, nil
}

func (l *Local) Glob(_ context.Context, pattern string) (map[string]xetfs.EntryInfo, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", pattern, err)
	}
	entries := make(map[string]xetfs.EntryInfo, len(matches))
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", m, err)
		}
		entries[m] = entryFromFileInfo(m, fi)
	}
	return entries, nil
}

func (l *Local) MakeDirs(_ context.Context, path string) error {
	return os.MkdirAll(path, 0755)
}

func (l *Local) Move(_ context.Context, src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", src, dst, err)
	}
	return nil
}

func (l *Local) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

func entryFromFileInfo(path string, fi fs.FileInfo) xetfs.EntryInfo {
	e := xetfs.EntryInfo{Path: path, Type: xetfs.TypeFile, Size: fi.Size()}
	if fi.IsDir() {
		e.Type = xetfs.TypeDirectory
		e.Size = 0
	}
	return e
}

var _ xetfs.Backend = (*Local)(nil)
