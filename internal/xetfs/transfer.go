package xetfs

import (
	"context"
	"fmt"
	"io"
)

// transferFile streams one file from src to dst. Any failure is reported
// with the offending source path and absorbed, so sibling transfers in a
// batch keep going. sizeHint is the size reported during enumeration, or a
// negative value when unknown.
func (s *Service) transferFile(ctx context.Context, src Backend, srcPath string, dst Backend, dstPath string, sizeHint int64) {
	if lastSegment(dstPath) == attributesMarker {
		s.logger.Info("skipping attributes marker", "path", dstPath)
		return
	}
	s.logger.Info("copying", "source", srcPath, "destination", dstPath)

	// Native fast path: an intra-backend copy on a content-addressed
	// backend is reference-based and moves no data.
	if dstX, ok := Transactional(dst); ok {
		if _, ok := Transactional(src); ok && src.Protocol() == dst.Protocol() {
			if err := dstX.CopyFile(ctx, srcPath, dstPath); err != nil {
				s.reportTransferError(src, srcPath, err)
			}
			return
		}
	}

	if err := s.permits.Acquire(ctx, 1); err != nil {
		s.reportTransferError(src, srcPath, err)
		return
	}
	defer s.permits.Release(1)

	if err := s.streamFile(ctx, src, srcPath, dst, dstPath, sizeHint); err != nil {
		s.reportTransferError(src, srcPath, err)
	}
}

// streamFile performs the chunked data phase of a transfer. The caller
// holds a concurrency permit for the duration.
func (s *Service) streamFile(ctx context.Context, src Backend, srcPath string, dst Backend, dstPath string, sizeHint int64) error {
	if dstX, ok := Transactional(dst); ok {
		size := sizeHint
		if size < 0 {
			info, err := src.Info(ctx, srcPath)
			if err != nil {
				return fmt.Errorf("querying source size: %w", err)
			}
			size = info.Size
		}
		// Large writes benefit from the destination fetching relevant
		// chunk manifests before the upload starts.
		if size >= DedupeHintThreshold {
			if err := dstX.PrepareDedupeHints(ctx, dstPath); err != nil {
				return fmt.Errorf("preparing deduplication hints: %w", err)
			}
		}
	}

	r, err := src.Open(ctx, srcPath)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer r.Close()

	w, err := dst.Create(ctx, dstPath)
	if err != nil {
		return fmt.Errorf("opening destination: %w", err)
	}

	if _, err := io.CopyBuffer(w, r, make([]byte, ChunkSize)); err != nil {
		w.Close()
		return fmt.Errorf("streaming data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing destination: %w", err)
	}
	return nil
}

func (s *Service) reportTransferError(src Backend, srcPath string, err error) {
	s.logger.Error("copy failed", "source", src.Protocol()+uriSeparator+srcPath, "error", err)
}
