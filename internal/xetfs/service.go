package xetfs

import (
	"golang.org/x/sync/semaphore"
)

const (
	// ChunkSize is the buffer size for chunked streaming copies.
	ChunkSize = 16 << 20

	// DedupeHintThreshold is the effective size, in bytes, at or above which
	// a transfer into a content-addressed destination requests deduplication
	// hints before opening the destination for write.
	DedupeHintThreshold = 50_000_000

	// attributesMarker is maintained by the content-addressed backend and
	// must never be overwritten by a generic copy.
	attributesMarker = ".gitattributes"

	// DefaultMaxConcurrent bounds simultaneously in-flight data-streaming
	// phases across the whole process.
	DefaultMaxConcurrent = 32

	// DefaultPoolSize bounds the workers dispatched per directory or glob
	// expansion.
	DefaultPoolSize = 16
)

// Service orchestrates transfers and mutations across backends. The
// concurrency permit pool is owned by the Service and injected into every
// transfer, so independent Services have independent bounds.
type Service struct {
	resolver *Resolver
	logger   Logger
	permits  *semaphore.Weighted
	poolSize int
}

// NewService creates a Service. maxConcurrent bounds in-flight data-streaming
// phases; poolSize bounds workers per tree/glob expansion. Non-positive
// values select the defaults.
func NewService(resolver *Resolver, logger Logger, maxConcurrent int64, poolSize int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Service{
		resolver: resolver,
		logger:   logger,
		permits:  semaphore.NewWeighted(maxConcurrent),
		poolSize: poolSize,
	}
}

// Resolver returns the resolver this service dispatches through.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}
