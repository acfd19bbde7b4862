package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"media-manager/internal/logging"
	"media-manager/internal/metrics"
)

// ObjectStore is the object storage surface the rest of the service depends
// on. Handlers and bulk executors take this interface so tests can swap in
// an in-memory implementation.
type ObjectStore interface {
	// Put uploads an object and returns nothing; the object name is the
	// caller-chosen storage key.
	Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error
	// Get opens the object for reading. The caller must close it.
	Get(ctx context.Context, objectName string) (io.ReadCloser, error)
	// Remove deletes the object. Removing a missing object is not an error.
	Remove(ctx context.Context, objectName string) error
	// Copy duplicates src to dst within the bucket.
	Copy(ctx context.Context, src, dst string) error
	// PresignGet returns a time-limited download URL for the object.
	PresignGet(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// Config holds the MinIO connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Client is the MinIO-backed ObjectStore.
type Client struct {
	mc     *minio.Client
	bucket string
}

// New connects to MinIO and ensures the configured bucket exists.
func New(ctx context.Context, cfg Config) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		logging.Info("Created storage bucket: %s", cfg.Bucket)
	}

	logging.Info("Connected to object storage at %s (bucket %s)", cfg.Endpoint, cfg.Bucket)
	return &Client{mc: mc, bucket: cfg.Bucket}, nil
}

func record(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StorageOperationsTotal.WithLabelValues(operation, status).Inc()
}

func (c *Client) Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error {
	_, err := c.mc.PutObject(ctx, c.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	record("put", err)
	if err != nil {
		return fmt.Errorf("failed to store object %s: %w", objectName, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	record("get", err)
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", objectName, err)
	}
	return obj, nil
}

func (c *Client) Remove(ctx context.Context, objectName string) error {
	err := c.mc.RemoveObject(ctx, c.bucket, objectName, minio.RemoveObjectOptions{})
	record("remove", err)
	if err != nil {
		return fmt.Errorf("failed to remove object %s: %w", objectName, err)
	}
	return nil
}

func (c *Client) Copy(ctx context.Context, src, dst string) error {
	_, err := c.mc.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: c.bucket, Object: dst},
		minio.CopySrcOptions{Bucket: c.bucket, Object: src},
	)
	record("copy", err)
	if err != nil {
		return fmt.Errorf("failed to copy object %s to %s: %w", src, dst, err)
	}
	return nil
}

func (c *Client) PresignGet(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	u, err := c.mc.PresignedGetObject(ctx, c.bucket, objectName, expiry, url.Values{})
	record("presign", err)
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", objectName, err)
	}
	return u.String(), nil
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.mc.BucketExists(ctx, c.bucket)
	return err
}
