package xetfs

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// workItem is one resolved (source, destination) pair produced by tree or
// glob expansion, ready for transfer. Directory items re-enter the walker.
type workItem struct {
	srcPath string
	dstPath string
	size    int64
	isDir   bool
}

// Copy copies source to destination. Sources may be single files, directory
// trees (recursive), or wildcard expressions with the wildcard in the final
// path segment. Individual file failures are reported and absorbed;
// resolution and validation failures abort before any transfer starts.
func (s *Service) Copy(ctx context.Context, source, destination string, recursive bool) error {
	src, srcPath, err := s.resolver.Resolve(ctx, source)
	if err != nil {
		return err
	}
	dst, dstPath, err := s.resolver.Resolve(ctx, destination)
	if err != nil {
		return err
	}
	return s.copyResolved(ctx, src, srcPath, dst, dstPath, recursive)
}

// copyResolved runs a copy against already-resolved handles. Recursive
// descent re-enters here so that nested expansions inherit the handles
// instead of re-resolving URIs.
func (s *Service) copyResolved(ctx context.Context, src Backend, srcPath string, dst Backend, dstPath string, recursive bool) error {
	srcPath = NormalizeTrailingSlash(srcPath)
	dstPath = NormalizeTrailingSlash(dstPath)

	if strings.Contains(srcPath, "*") {
		return s.copyGlob(ctx, src, srcPath, dst, dstPath, recursive)
	}

	if err := s.validateCopy(ctx, src, srcPath, dst, dstPath); err != nil {
		return err
	}

	isDir, err := backendIsDir(ctx, src, srcPath)
	if err != nil {
		return fmt.Errorf("checking source type: %w", err)
	}
	if isDir {
		if !recursive {
			s.logger.Info("omitting directory", "path", srcPath)
			return nil
		}
		return s.copyTree(ctx, src, srcPath, dst, dstPath, recursive)
	}

	s.transferFile(ctx, src, srcPath, dst, dstPath, -1)
	return nil
}

// copyGlob expands a wildcard source and dispatches one transfer per match.
// Directory matches recurse with the handles inherited; they are skipped
// entirely when the caller did not request recursion.
func (s *Service) copyGlob(ctx context.Context, src Backend, srcPath string, dst Backend, dstPath string, recursive bool) error {
	rootDir := parentPath(srcPath)
	if strings.Contains(rootDir, "*") {
		return fmt.Errorf("%w %q: wildcards can only appear in the last path segment", ErrInvalidGlob, srcPath)
	}

	if err := s.validateCopy(ctx, src, srcPath, dst, dstPath); err != nil {
		return err
	}

	matches, err := src.Glob(ctx, srcPath)
	if err != nil {
		return fmt.Errorf("expanding glob %s: %w", srcPath, err)
	}

	items, err := s.planItems(ctx, matches, rootDir, dst, dstPath, recursive, true)
	if err != nil {
		return err
	}
	return s.dispatch(ctx, src, dst, items)
}

// copyTree copies a directory tree rooted at srcPath under dstPath.
func (s *Service) copyTree(ctx context.Context, src Backend, srcPath string, dst Backend, dstPath string, recursive bool) error {
	// A whole tree inside one content-addressed backend copies by
	// reference in a single call.
	if dstX, ok := Transactional(dst); ok {
		if _, ok := Transactional(src); ok && src.Protocol() == dst.Protocol() {
			s.logger.Info("copying", "source", srcPath, "destination", dstPath)
			return dstX.CopyDirectory(ctx, srcPath, dstPath)
		}
	}

	entries, err := src.Enumerate(ctx, srcPath)
	if err != nil {
		return fmt.Errorf("listing %s: %w", srcPath, err)
	}

	items, err := s.planItems(ctx, entries, srcPath, dst, dstPath, recursive, false)
	if err != nil {
		return err
	}
	return s.dispatch(ctx, src, dst, items)
}

// planItems maps enumerated entries to work items, mirroring each entry's
// path relative to relRoot under dstPath. Destination directories are
// created here, before any transfer is dispatched. When descend is true,
// directory entries become recursive work items; otherwise their existence
// only drives destination directory creation.
func (s *Service) planItems(ctx context.Context, entries map[string]EntryInfo, relRoot string, dst Backend, dstPath string, recursive, descend bool) ([]workItem, error) {
	items := make([]workItem, 0, len(entries))
	for _, path := range slices.Sorted(maps.Keys(entries)) {
		info := entries[path]
		if info.Type == TypeDirectory && !recursive {
			continue
		}

		rel, err := TrimPrefix(path, relRoot)
		if err != nil {
			return nil, err
		}
		rel = strings.TrimPrefix(rel, "/")
		destFor := joinUnderRoot(dstPath, rel)

		if info.Type == TypeDirectory {
			if descend {
				if parent := parentPath(destFor); parent != "" {
					if err := dst.MakeDirs(ctx, parent); err != nil {
						return nil, fmt.Errorf("creating destination directory: %w", err)
					}
				}
				items = append(items, workItem{srcPath: path, dstPath: destFor, isDir: true})
				continue
			}
			// Mirror the directory itself so empty directories survive.
			if err := dst.MakeDirs(ctx, destFor); err != nil {
				return nil, fmt.Errorf("creating destination directory: %w", err)
			}
			continue
		}

		if parent := parentPath(destFor); parent != "" {
			if err := dst.MakeDirs(ctx, parent); err != nil {
				return nil, fmt.Errorf("creating destination directory: %w", err)
			}
		}
		items = append(items, workItem{srcPath: path, dstPath: destFor, size: info.Size})
	}
	return items, nil
}

// dispatch fans work items out over a bounded pool and waits for all of
// them. File items absorb their own failures; only errors from nested
// directory expansion propagate.
func (s *Service) dispatch(ctx context.Context, src, dst Backend, items []workItem) error {
	var g errgroup.Group
	g.SetLimit(s.poolSize)
	for _, it := range items {
		g.Go(func() error {
			if it.isDir {
				return s.copyResolved(ctx, src, it.srcPath, dst, it.dstPath, true)
			}
			s.transferFile(ctx, src, it.srcPath, dst, it.dstPath, it.size)
			return nil
		})
	}
	return g.Wait()
}

// RootCopy is the top-level entry point for copy requests. When the
// destination already exists as a directory and the source is not a
// wildcard, the source's final path segment is appended to the destination,
// mirroring conventional copy-into-directory semantics. If the destination
// backend is transactional the whole copy runs inside one transaction.
func (s *Service) RootCopy(ctx context.Context, source, destination, message string, recursive bool) error {
	if message == "" {
		message = fmt.Sprintf("copy %s to %s", source, destination)
	}

	src, srcPath, err := s.resolver.Resolve(ctx, source)
	if err != nil {
		return err
	}
	dst, dstPath, err := s.resolver.Resolve(ctx, destination)
	if err != nil {
		return err
	}

	dstIsDir, err := backendIsDir(ctx, dst, dstPath)
	if err != nil {
		return fmt.Errorf("checking destination type: %w", err)
	}
	if dstIsDir && !strings.Contains(source, "*") {
		dstPath = joinUnderRoot(NormalizeTrailingSlash(dstPath), lastSegment(NormalizeTrailingSlash(srcPath)))
	}

	if dstX, ok := Transactional(dst); ok {
		return s.withTransaction(ctx, dstX, message, func() error {
			return s.copyResolved(ctx, src, srcPath, dst, dstPath, recursive)
		})
	}
	return s.copyResolved(ctx, src, srcPath, dst, dstPath, recursive)
}
