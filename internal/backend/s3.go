package backend

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bmatcuk/doublestar/v4"

	"xetgo/internal/config"
	"xetgo/internal/xetfs"
)

// S3 is the object-store backend. Paths have the form "bucket/key...".
// The s3 family reports multiple aliases for one logical protocol (s3,
// s3a); the handle reports whichever tag it was resolved for.
type S3 struct {
	protocol string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3 creates an S3 backend handle for the requested protocol tag.
// Credentials and region fall back to the ambient AWS configuration when
// not set explicitly.
func NewS3(ctx context.Context, protocol string, cfg config.S3Config) (*S3, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3{
		protocol: protocol,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (b *S3) Protocol() string { return b.protocol }

// splitObjectPath splits "bucket/key..." into its bucket and key parts.
// The key may be empty, denoting the bucket root.
func splitObjectPath(path string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return "", "", fmt.Errorf("object path has no bucket: %q", path)
	}
	bucket, key, _ = strings.Cut(trimmed, "/")
	return bucket, key, nil
}

func (b *S3) Info(ctx context.Context, path string) (xetfs.EntryInfo, error) {
	bucket, key, err := splitObjectPath(path)
	if err != nil {
		return xetfs.EntryInfo{}, err
	}
	if key == "" {
		return xetfs.EntryInfo{Path: path, Type: xetfs.TypeDirectory}, nil
	}

	head, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return xetfs.EntryInfo{Path: path, Type: xetfs.TypeFile, Size: aws.ToInt64(head.ContentLength)}, nil
	}

	// Not an object; a populated key prefix acts as a directory.
	isPrefix, perr := b.hasPrefix(ctx, bucket, key)
	if perr != nil {
		return xetfs.EntryInfo{}, perr
	}
	if isPrefix {
		return xetfs.EntryInfo{Path: path, Type: xetfs.TypeDirectory}, nil
	}
	return xetfs.EntryInfo{}, fmt.Errorf("object not found: %s: %w", path, err)
}

func (b *S3) IsDir(ctx context.Context, path string) (bool, error) {
	bucket, key, err := splitObjectPath(path)
	if err != nil {
		return false, err
	}
	if key == "" {
		return true, nil
	}
	return b.hasPrefix(ctx, bucket, key)
}

// hasPrefix reports whether any object exists under key treated as a
// directory prefix.
func (b *S3) hasPrefix(ctx context.Context, bucket, key string) (bool, error) {
	out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(strings.TrimSuffix(key, "/") + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("listing %s/%s: %w", bucket, key, err)
	}
	return len(out.Contents) > 0, nil
}

func (b *S3) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key, err := splitObjectPath(path)
	if err != nil {
		return nil, err
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", path, err)
	}
	return out.Body, nil
}

func (b *S3) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	bucket, key, err := splitObjectPath(path)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("cannot write to bucket root: %s", path)
	}

	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		if err != nil {
			// Unblock the writer side.
			pr.CloseWithError(err)
		}
		w.done <- err
	}()
	return w, nil
}

// s3Writer streams a multipart upload through a pipe. Close finishes the
// upload and surfaces its result.
type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *s3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	if err := <-w.done; err != nil {
		return fmt.Errorf("finishing upload: %w", err)
	}
	return nil
}

func (b *S3) Enumerate(ctx context.Context, path string) (map[string]xetfs.EntryInfo, error) {
	bucket, key, err := splitObjectPath(path)
	if err != nil {
		return nil, err
	}
	prefix := ""
	if key != "" {
		prefix = strings.TrimSuffix(key, "/") + "/"
	}

	// Object stores have no true directories; only objects are reported.
	entries := make(map[string]xetfs.EntryInfo)
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", path, err)
		}
		for _, obj := range page.Contents {
			full := bucket + "/" + aws.ToString(obj.Key)
			entries[full] = xetfs.EntryInfo{Path: full, Type: xetfs.TypeFile, Size: aws.ToInt64(obj.Size)}
		}
	}
	return entries, nil
}

func (b *S3) Glob(ctx context.Context, pattern string) (map[string]xetfs.EntryInfo, error) {
	bucket, keyPattern, err := splitObjectPath(pattern)
	if err != nil {
		return nil, err
	}
	if strings.Contains(bucket, "*") {
		return nil, fmt.Errorf("bucket names cannot contain wildcards: %s", pattern)
	}

	// List from the longest fixed prefix and match keys client-side.
	fixed := keyPattern
	if i := strings.Index(keyPattern, "*"); i >= 0 {
		fixed = keyPattern[:i]
	}

	entries := make(map[string]xetfs.EntryInfo)
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(fixed),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", pattern, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			ok, err := doublestar.Match(keyPattern, key)
			if err != nil {
				return nil, fmt.Errorf("matching %s: %w", pattern, err)
			}
			if !ok {
				continue
			}
			full := bucket + "/" + key
			entries[full] = xetfs.EntryInfo{Path: full, Type: xetfs.TypeFile, Size: aws.ToInt64(obj.Size)}
		}
	}
	return entries, nil
}

// MakeDirs is a no-op: object stores have no directories to create.
func (b *S3) MakeDirs(context.Context, string) error { return nil }

func (b *S3) Move(ctx context.Context, src, dst string) error {
	srcBucket, srcKey, err := splitObjectPath(src)
	if err != nil {
		return err
	}
	dstBucket, dstKey, err := splitObjectPath(dst)
	if err != nil {
		return err
	}

	_, err = b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(srcBucket + "/" + srcKey),
	})
	if err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}

	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(srcBucket),
		Key:    aws.String(srcKey),
	})
	if err != nil {
		return fmt.Errorf("deleting %s after copy: %w", src, err)
	}
	return nil
}

func (b *S3) Remove(ctx context.Context, path string) error {
	bucket, key, err := splitObjectPath(path)
	if err != nil {
		return err
	}
	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	return nil
}

var _ xetfs.Backend = (*S3)(nil)
