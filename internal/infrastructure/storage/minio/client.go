// Package minio provides the object-storage archive for mol-block payloads.
// Resolved and analyzed structures can be large (3D conformer blocks); they
// are archived by content hash so repeated analyses of the same structure
// reuse one object.
package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kFady/stereo-site-1/internal/config"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/pkg/errors"
)

// minioAPI is the slice of the MinIO SDK the archive needs.  GetObject is
// narrowed to io.ReadCloser so tests can fake it without the SDK's concrete
// Object type.
type minioAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
}

// sdkAdapter adapts *minio.Client to minioAPI.
type sdkAdapter struct {
	c *minio.Client
}

func (a sdkAdapter) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return a.c.BucketExists(ctx, bucket)
}

func (a sdkAdapter) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return a.c.MakeBucket(ctx, bucket, opts)
}

func (a sdkAdapter) PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return a.c.PutObject(ctx, bucket, object, reader, size, opts)
}

func (a sdkAdapter) GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.c.GetObject(ctx, bucket, object, opts)
}

func (a sdkAdapter) StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return a.c.StatObject(ctx, bucket, object, opts)
}

func (a sdkAdapter) RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error {
	return a.c.RemoveObject(ctx, bucket, object, opts)
}

func (a sdkAdapter) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	return a.c.ListBuckets(ctx)
}

// Client wraps the MinIO SDK with connection verification and bucket setup.
type Client struct {
	api    minioAPI
	bucket string
	logger logging.Logger
}

// NewClient connects to MinIO, verifies reachability, and ensures the archive
// bucket exists.
func NewClient(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	sdk, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "minio: failed to create client")
	}

	c := &Client{api: sdkAdapter{c: sdk}, bucket: cfg.Bucket, logger: log}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := c.api.ListBuckets(checkCtx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio: failed to connect")
	}
	if err := c.ensureBucket(checkCtx); err != nil {
		return nil, err
	}

	log.Info("MinIO client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL),
	)
	return c, nil
}

// NewClientWithAPI wraps an existing API implementation (used by tests).
func NewClientWithAPI(api minioAPI, bucket string, log logging.Logger) *Client {
	return &Client{api: api, bucket: bucket, logger: log}
}

func (c *Client) ensureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "minio: failed to check bucket")
	}
	if !exists {
		if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "minio: failed to create bucket")
		}
		c.logger.Info("Created archive bucket", logging.String("bucket", c.bucket))
	}
	return nil
}

// HealthCheck verifies MinIO reachability and bucket presence.
func (c *Client) HealthCheck(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "minio: health check failed")
	}
	if !exists {
		return errors.New(errors.ErrCodeStorageError, "minio: archive bucket missing").WithDetail(c.bucket)
	}
	return nil
}
