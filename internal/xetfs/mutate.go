package xetfs

import (
	"context"
	"fmt"
	"strings"
)

// withTransaction brackets fn in a transaction labeled with message. The
// transaction is ended on every exit path; an end failure never masks the
// primary error from fn.
func (s *Service) withTransaction(ctx context.Context, b TransactionalBackend, message string, fn func() error) error {
	if err := b.BeginTransaction(ctx, message); err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	fnErr := fn()

	if err := b.EndTransaction(ctx); err != nil {
		if fnErr != nil {
			s.logger.Error("ending transaction", "error", err)
			return fnErr
		}
		return fmt.Errorf("ending transaction: %w", err)
	}
	return fnErr
}

// Move moves source to target. Both endpoints must live on the same
// backend; a cross-backend move is rejected with a hint to copy instead.
func (s *Service) Move(ctx context.Context, source, target, message string, recursive bool) error {
	if message == "" {
		message = fmt.Sprintf("move %s to %s", source, target)
		if recursive {
			message += " recursively"
		}
	}

	src, srcPath, err := s.resolver.Resolve(ctx, source)
	if err != nil {
		return err
	}
	dst, dstPath, err := s.resolver.Resolve(ctx, target)
	if err != nil {
		return err
	}

	if src.Protocol() != dst.Protocol() {
		return fmt.Errorf("%w (%s, %s): you may want to copy instead",
			ErrCrossBackendMove, src.Protocol(), dst.Protocol())
	}

	if dstX, ok := Transactional(dst); ok {
		return s.withTransaction(ctx, dstX, message, func() error {
			return dst.Move(ctx, srcPath, dstPath)
		})
	}
	return dst.Move(ctx, srcPath, dstPath)
}

// Remove deletes every given URI. All URIs must resolve to the same
// backend. Branch roots are refused: branch deletion is irreversible and
// handled by a dedicated operation. On a transactional backend all
// deletions run inside one transaction.
func (s *Service) Remove(ctx context.Context, uris []string, message string) error {
	if len(uris) == 0 {
		return nil
	}
	if message == "" {
		message = fmt.Sprintf("delete %s", strings.Join(uris, " "))
	}

	b, _, err := s.resolver.Resolve(ctx, uris[0])
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(uris))
	for _, uri := range uris {
		ub, p, err := s.resolver.Resolve(ctx, uri)
		if err != nil {
			return err
		}
		if ub.Protocol() != b.Protocol() {
			return fmt.Errorf("cannot delete across backends: %s and %s", b.Protocol(), ub.Protocol())
		}
		paths = append(paths, p)
	}

	bx, ok := Transactional(b)
	if !ok {
		for _, p := range paths {
			if err := b.Remove(ctx, p); err != nil {
				return fmt.Errorf("removing %s: %w", p, err)
			}
		}
		return nil
	}

	for _, p := range paths {
		xp, err := ParseXetPath(p)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", p, err)
		}
		if xp.IsBranchRoot() {
			return fmt.Errorf("%w: branch deletion is irreversible and history is not preserved, use the branch deletion command", ErrBranchDelete)
		}
	}

	return s.withTransaction(ctx, bx, message, func() error {
		for _, p := range paths {
			if err := b.Remove(ctx, p); err != nil {
				return fmt.Errorf("removing %s: %w", p, err)
			}
		}
		return nil
	})
}

// Duplicate creates a new repository as a copy of the source repository.
// When dest is empty the destination name is derived from the caller's
// identity and the source's final path segment. Visibility adjustment
// failures are reported but do not roll back the duplication. Returns the
// destination URI.
func (s *Service) Duplicate(ctx context.Context, source, dest string, private, public bool) (string, error) {
	src, srcPath, err := s.resolver.Resolve(ctx, source)
	if err != nil {
		return "", err
	}
	srcX, ok := Transactional(src)
	if !ok {
		return "", fmt.Errorf("duplicate requires a content-addressed repository, got %s", src.Protocol())
	}

	repoName := lastSegment(NormalizeTrailingSlash(srcPath))
	var dstPath string
	if dest == "" {
		user, err := srcX.CurrentUser(ctx)
		if err != nil {
			return "", fmt.Errorf("resolving current user: %w", err)
		}
		dstPath = user + "/" + repoName
		dest = src.Protocol() + uriSeparator + dstPath
		s.logger.Info("duplicating", "source", source, "destination", dest)
	} else {
		_, dstPath, err = s.resolver.Resolve(ctx, dest)
		if err != nil {
			return "", err
		}
	}

	if err := srcX.DuplicateRepository(ctx, srcPath, dstPath); err != nil {
		return "", fmt.Errorf("duplicating repository: %w", err)
	}

	if private || public {
		if err := srcX.SetRepositoryAttribute(ctx, dstPath, "private", private); err != nil {
			// The duplication stands; permissions may need a manual fix.
			s.logger.Error("setting repository visibility", "error", err,
				"settings", fmt.Sprintf("%s/%s/settings", srcX.Domain(), dstPath))
		}
	}
	return dest, nil
}
