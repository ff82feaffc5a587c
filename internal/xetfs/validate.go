package xetfs

import (
	"context"
	"fmt"
)

// validateCopy performs early validation of content-addressed endpoints so
// an operation that is doomed to fail does so before any transfer starts.
// It does not catch every failure condition.
func (s *Service) validateCopy(ctx context.Context, src Backend, srcPath string, dst Backend, dstPath string) error {
	srcX, srcOK := Transactional(src)
	if srcOK {
		// There must be a branch to copy from.
		if _, err := srcX.BranchInfo(ctx, srcPath); err != nil {
			return fmt.Errorf("resolving source branch for %s: %w", srcPath, err)
		}
	}

	dstX, dstOK := Transactional(dst)
	if !dstOK {
		return nil
	}

	if srcOK {
		sp, serr := ParseXetPath(srcPath)
		dp, derr := ParseXetPath(dstPath)
		if serr == nil && derr == nil && sp.Path == "" && dp.Path == "" {
			// A branch-to-branch copy may legitimately create the
			// destination branch, so its prior existence is not required.
			return nil
		}
	}

	if _, err := dstX.BranchInfo(ctx, dstPath); err != nil {
		return fmt.Errorf("resolving destination branch for %s: %w", dstPath, err)
	}
	return nil
}
