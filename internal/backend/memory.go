package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"xetgo/internal/xetfs"
)

// Memory is an in-memory backend serving the mem:// scheme. It is also the
// workhorse for tests. Safe for concurrent use. Paths are normalized by
// stripping surrounding slashes, so "/a/b" and "a/b" name the same entry.
type Memory struct {
	protocol string
	mu       sync.RWMutex
	files    map[string][]byte
	dirs     map[string]bool
}

// NewMemory creates an empty in-memory backend reporting the given protocol.
func NewMemory(protocol string) *Memory {
	return &Memory{
		protocol: protocol,
		files:    make(map[string][]byte),
		dirs:     make(map[string]bool),
	}
}

func normalize(path string) string {
	return strings.Trim(path, "/")
}

func (m *Memory) Protocol() string { return m.protocol }

func (m *Memory) Info(_ context.Context, path string) (xetfs.EntryInfo, error) {
	p := normalize(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	if data, ok := m.files[p]; ok {
		return xetfs.EntryInfo{Path: p, Type: xetfs.TypeFile, Size: int64(len(data))}, nil
	}
	if m.isDirLocked(p) {
		return xetfs.EntryInfo{Path: p, Type: xetfs.TypeDirectory}, nil
	}
	return xetfs.EntryInfo{}, fmt.Errorf("path not found: %s", path)
}

func (m *Memory) IsDir(_ context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isDirLocked(normalize(path)), nil
}

// isDirLocked reports whether p is an explicit or implicit directory.
// Callers hold mu.
func (m *Memory) isDirLocked(p string) bool {
	if p == "" {
		return true
	}
	if m.dirs[p] {
		return true
	}
	for f := range m.files {
		if strings.HasPrefix(f, p+"/") {
			return true
		}
	}
	for d := range m.dirs {
		if strings.HasPrefix(d, p+"/") {
			return true
		}
	}
	return false
}

func (m *Memory) Open(_ context.Context, path string) (io.ReadCloser, error) {
	p := normalize(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[p]
	if !ok {
		return nil, fmt.Errorf("path not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) Create(_ context.Context, path string) (io.WriteCloser, error) {
	p := normalize(path)
	if p == "" {
		return nil, fmt.Errorf("cannot write to empty path")
	}
	return &memoryWriter{m: m, path: p}, nil
}

// memoryWriter buffers writes and commits the file on Close, registering
// parent directories implicitly.
type memoryWriter struct {
	m    *Memory
	path string
	buf  bytes.Buffer
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *memoryWriter) Close() error {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()

	w.m.files[w.path] = append([]byte(nil), w.buf.Bytes()...)
	w.m.addParentsLocked(w.path)
	return nil
}

// addParentsLocked registers every ancestor of p as a directory.
// Callers hold mu.
func (m *Memory) addParentsLocked(p string) {
	for dir := p; ; {
		i := strings.LastIndex(dir, "/")
		if i < 0 {
			return
		}
		dir = dir[:i]
		m.dirs[dir] = true
	}
}

func (m *Memory) Enumerate(_ context.Context, path string) (map[string]xetfs.EntryInfo, error) {
	p := normalize(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.isDirLocked(p) {
		return nil, fmt.Errorf("not a directory: %s", path)
	}

	prefix := ""
	if p != "" {
		prefix = p + "/"
	}
	entries := make(map[string]xetfs.EntryInfo)
	for f, data := range m.files {
		if strings.HasPrefix(f, prefix) {
			entries[f] = xetfs.EntryInfo{Path: f, Type: xetfs.TypeFile, Size: int64(len(data))}
		}
	}
	for d := range m.dirs {
		if strings.HasPrefix(d, prefix) {
			entries[d] = xetfs.EntryInfo{Path: d, Type: xetfs.TypeDirectory}
		}
	}
	return entries, nil
}

func (m *Memory) Glob(_ context.Context, pattern string) (map[string]xetfs.EntryInfo, error) {
	pat := normalize(pattern)
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make(map[string]xetfs.EntryInfo)
	for f, data := range m.files {
		ok, err := doublestar.Match(pat, f)
		if err != nil {
			return nil, fmt.Errorf("matching %s: %w", pattern, err)
		}
		if ok {
			entries[f] = xetfs.EntryInfo{Path: f, Type: xetfs.TypeFile, Size: int64(len(data))}
		}
	}
	for d := range m.dirs {
		ok, err := doublestar.Match(pat, d)
		if err != nil {
			return nil, fmt.Errorf("matching %s: %w", pattern, err)
		}
		if ok {
			entries[d] = xetfs.EntryInfo{Path: d, Type: xetfs.TypeDirectory}
		}
	}
	return entries, nil
}

func (m *Memory) MakeDirs(_ context.Context, path string) error {
	p := normalize(path)
	if p == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dirs[p] = true
	m.addParentsLocked(p)
	return nil
}

func (m *Memory) Move(_ context.Context, src, dst string) error {
	s, d := normalize(src), normalize(dst)
	m.mu.Lock()
	defer m.mu.Unlock()

	if data, ok := m.files[s]; ok {
		delete(m.files, s)
		m.files[d] = data
		m.addParentsLocked(d)
		return nil
	}
	if m.isDirLocked(s) {
		for f, data := range m.files {
			if strings.HasPrefix(f, s+"/") {
				delete(m.files, f)
				m.files[d+f[len(s):]] = data
			}
		}
		for dir := range m.dirs {
			if dir == s || strings.HasPrefix(dir, s+"/") {
				delete(m.dirs, dir)
				m.dirs[d+dir[len(s):]] = true
			}
		}
		m.addParentsLocked(d)
		return nil
	}
	return fmt.Errorf("path not found: %s", src)
}

func (m *Memory) Remove(_ context.Context, path string) error {
	p := normalize(path)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[p]; ok {
		delete(m.files, p)
		return nil
	}
	if m.dirs[p] {
		for f := range m.files {
			if strings.HasPrefix(f, p+"/") {
				return fmt.Errorf("directory not empty: %s", path)
			}
		}
		delete(m.dirs, p)
		return nil
	}
	return fmt.Errorf("path not found: %s", path)
}

var _ xetfs.Backend = (*Memory)(nil)
