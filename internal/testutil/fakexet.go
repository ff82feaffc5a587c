package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"xetgo/internal/backend"
	"xetgo/internal/xetfs"
)

// FakeXet is an in-memory content-addressed backend for tests. It layers
// transaction and repository bookkeeping over a Memory backend and records
// every extended call so tests can assert on exactly what happened.
type FakeXet struct {
	*backend.Memory

	// User is what CurrentUser returns.
	User string
	// Site is what Domain returns.
	Site string

	// Failure injection. When set, the corresponding call returns the error.
	FailBegin error
	FailEnd   error
	FailAttr  error

	mu           sync.Mutex
	branches     map[string]bool
	active       bool
	Begun        []string
	Ended        int
	DedupeHinted []string
	Duplicated   [][2]string
	Attributes   map[string]bool
	Mounted      []string
}

// NewFakeXet creates a FakeXet with no repositories.
func NewFakeXet() *FakeXet {
	return &FakeXet{
		Memory:     backend.NewMemory("xet"),
		User:       "tester",
		Site:       "https://xethub.test",
		branches:   make(map[string]bool),
		Attributes: make(map[string]bool),
	}
}

// AddBranch registers user/repo/branch as an existing branch.
func (f *FakeXet) AddBranch(user, repo, branch string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.branches[user+"/"+repo+"/"+branch] = true
}

func (f *FakeXet) BeginTransaction(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailBegin != nil {
		return f.FailBegin
	}
	if f.active {
		return fmt.Errorf("transaction already active")
	}
	f.active = true
	f.Begun = append(f.Begun, message)
	return nil
}

func (f *FakeXet) EndTransaction(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.active {
		return fmt.Errorf("no active transaction")
	}
	f.active = false
	f.Ended++
	if f.FailEnd != nil {
		return f.FailEnd
	}
	return nil
}

// InTransaction reports whether a transaction is currently open.
func (f *FakeXet) InTransaction() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *FakeXet) BranchInfo(_ context.Context, path string) (xetfs.BranchInfo, error) {
	xp, err := xetfs.ParseXetPath(path)
	if err != nil {
		return xetfs.BranchInfo{}, err
	}
	if xp.Branch == "" {
		return xetfs.BranchInfo{}, fmt.Errorf("no branch in path %s", path)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := xp.User + "/" + xp.Repo + "/" + xp.Branch
	if !f.branches[key] {
		return xetfs.BranchInfo{}, fmt.Errorf("branch not found: %s", key)
	}
	return xetfs.BranchInfo{Repo: xp.User + "/" + xp.Repo, Branch: xp.Branch, Commit: "commit-0"}, nil
}

func (f *FakeXet) IsDirOrBranch(ctx context.Context, path string) (bool, error) {
	if xp, err := xetfs.ParseXetPath(path); err == nil && xp.IsBranchRoot() {
		if _, err := f.BranchInfo(ctx, path); err == nil {
			return true, nil
		}
	}
	return f.Memory.IsDir(ctx, path)
}

func (f *FakeXet) CopyFile(ctx context.Context, src, dst string) error {
	r, err := f.Memory.Open(ctx, src)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := f.Memory.Create(ctx, dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (f *FakeXet) CopyDirectory(ctx context.Context, src, dst string) error {
	entries, err := f.Memory.Enumerate(ctx, src)
	if err != nil {
		return err
	}
	for path, info := range entries {
		rel, err := xetfs.TrimPrefix(path, src)
		if err != nil {
			return err
		}
		target := dst + rel
		if info.Type == xetfs.TypeDirectory {
			if err := f.Memory.MakeDirs(ctx, target); err != nil {
				return err
			}
			continue
		}
		if err := f.CopyFile(ctx, path, target); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeXet) PrepareDedupeHints(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DedupeHinted = append(f.DedupeHinted, path)
	return nil
}

func (f *FakeXet) DuplicateRepository(_ context.Context, src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Duplicated = append(f.Duplicated, [2]string{src, dst})
	f.branches[dst+"/main"] = true
	return nil
}

func (f *FakeXet) SetRepositoryAttribute(_ context.Context, path, attr string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailAttr != nil {
		return f.FailAttr
	}
	f.Attributes[path+"#"+attr] = value
	return nil
}

func (f *FakeXet) CurrentUser(context.Context) (string, error) {
	return f.User, nil
}

func (f *FakeXet) Domain() string {
	return f.Site
}

func (f *FakeXet) Mount(_ context.Context, path, localPath string, prefetch bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Mounted = append(f.Mounted, path+" -> "+localPath)
	return nil
}

var (
	_ xetfs.TransactionalBackend = (*FakeXet)(nil)
	_ xetfs.Mounter              = (*FakeXet)(nil)
)
