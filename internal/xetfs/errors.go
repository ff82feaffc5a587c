package xetfs

import "errors"

// Sentinel errors for the failure conditions callers are expected to
// distinguish. Wrap with fmt.Errorf("...: %w", err) and check with errors.Is.
var (
	// ErrPathMismatch reports a path that does not begin with the expected prefix.
	ErrPathMismatch = errors.New("path mismatch")

	// ErrInvalidGlob reports a wildcard appearing anywhere other than the
	// final path segment.
	ErrInvalidGlob = errors.New("invalid glob")

	// ErrMalformedURI reports a URI with more than one scheme separator.
	ErrMalformedURI = errors.New("malformed URI")

	// ErrCrossBackendMove reports a move whose endpoints live on different backends.
	ErrCrossBackendMove = errors.New("cannot move between different backends")

	// ErrBranchDelete reports an attempt to delete a branch root through rm.
	ErrBranchDelete = errors.New("cannot delete a branch with rm")
)
