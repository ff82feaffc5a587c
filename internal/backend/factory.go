package backend

import (
	"context"

	"xetgo/internal/config"
	"xetgo/internal/xetfs"
)

// s3Aliases is the family of URI tags served by the S3 backend. The handle
// reports whichever tag it was resolved for, so protocol-equality checks
// downstream behave correctly.
var s3Aliases = []string{"s3", "s3a"}

// RegisterAll binds every supported URI tag to its backend constructor on
// the resolver. Handles are constructed lazily on first resolution and
// cached for the lifetime of the resolver.
func RegisterAll(r *xetfs.Resolver, cfg *config.Config, token string) {
	r.Register("file", func(ctx context.Context, tag string) (xetfs.Backend, error) {
		return NewLocal(), nil
	})
	r.Register("mem", func(ctx context.Context, tag string) (xetfs.Backend, error) {
		return NewMemory(tag), nil
	})
	for _, alias := range s3Aliases {
		r.Register(alias, func(ctx context.Context, tag string) (xetfs.Backend, error) {
			return NewS3(ctx, tag, cfg.S3)
		})
	}
	r.Register("sftp", func(ctx context.Context, tag string) (xetfs.Backend, error) {
		return NewSFTP(cfg.SFTP)
	})
	r.Register("xet", func(ctx context.Context, tag string) (xetfs.Backend, error) {
		return NewXet(cfg.Domain, token), nil
	})
}
