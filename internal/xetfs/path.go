package xetfs

import (
	"fmt"
	"strings"
)

// TrimPrefix returns the suffix of path after removing prefix. It fails with
// ErrPathMismatch if path is shorter than prefix or does not begin with it.
// Used to compute a transfer's path relative to the root of a tree copy:
//
//	TrimPrefix("a/b/c.txt", "a/b") => "/c.txt"
func TrimPrefix(path, prefix string) (string, error) {
	if len(path) < len(prefix) || path[:len(prefix)] != prefix {
		return "", fmt.Errorf("path %s not in directory %s: %w", path, prefix, ErrPathMismatch)
	}
	return path[len(prefix):], nil
}

// NormalizeTrailingSlash strips trailing slashes from any path other than
// the root path "/".
func NormalizeTrailingSlash(path string) string {
	if path == "/" {
		return path
	}
	return strings.TrimRight(path, "/")
}

// lastSegment returns the final slash-separated segment of path.
func lastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// parentPath returns everything before the final slash, or "" if path has
// a single segment.
func parentPath(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

// joinUnderRoot composes a destination path from a destination root and a
// relative path.
func joinUnderRoot(root, rel string) string {
	switch root {
	case "/":
		return "/" + rel
	case "":
		return rel
	}
	return root + "/" + rel
}

// XetPath is a parsed content-addressed backend path of the form
// user/repo[/branch[/path...]].
type XetPath struct {
	User   string
	Repo   string
	Branch string
	Path   string
}

// ParseXetPath splits a backend-relative xet path into its components.
func ParseXetPath(p string) (XetPath, error) {
	trimmed := strings.TrimPrefix(p, "/")
	parts := strings.SplitN(trimmed, "/", 4)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return XetPath{}, fmt.Errorf("invalid xet path %q: expected user/repo[/branch[/path]]", p)
	}
	xp := XetPath{User: parts[0], Repo: parts[1]}
	if len(parts) > 2 {
		xp.Branch = parts[2]
	}
	if len(parts) > 3 {
		xp.Path = parts[3]
	}
	return xp, nil
}

// IsBranchRoot reports whether the path names a branch with no in-branch path.
func (x XetPath) IsBranchRoot() bool {
	return x.Branch != "" && x.Path == ""
}

// RepoPath returns the user/repo prefix of the path.
func (x XetPath) RepoPath() string {
	return x.User + "/" + x.Repo
}
