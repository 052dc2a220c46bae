// Package s3 implements a store.Resolver rooted at an S3 bucket prefix.
//
// Request paths map directly onto object keys: "/css/site.css" with key
// prefix "public/" reads object "public/css/site.css". The bucket is treated
// as read-only; nothing in this package writes to it.
package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/marmos91/fileshover/pkg/store"
)

// ObjectAPI is the subset of *s3.Client the resolver needs.
type ObjectAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ ObjectAPI = (*s3.Client)(nil)

// Store resolves request paths to objects in a single bucket.
//
// Thread Safety:
// Safe for concurrent use. The SDK client is shared by all workers.
type Store struct {
	client    ObjectAPI
	bucket    string
	keyPrefix string
	metrics   Metrics
}

var _ store.Resolver = (*Store)(nil)

// Config contains configuration for the S3 resolver.
type Config struct {
	// Client is the configured S3 client
	Client ObjectAPI

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is prepended to every resolved path.
	// Example: "site/" serves "/index.html" from "site/index.html"
	KeyPrefix string

	// Metrics is optional; nil disables collection.
	Metrics Metrics
}

// New creates an S3 resolver and verifies that the bucket is reachable.
//
// The bucket must already exist. A failed HeadBucket is returned as an error
// so that a misconfigured bucket stops the server at startup instead of
// turning every request into a 500.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	m := cfg.Metrics
	if m == nil {
		m = noopMetrics{}
	}

	return &Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		metrics:   m,
	}, nil
}

// objectKey returns the full key for a cleaned relative path.
func (s *Store) objectKey(rel string) string {
	return s.keyPrefix + rel
}

// Resolve fetches the object for requestPath and returns its body stream.
//
// Size comes from the object's ContentLength. NoSuchKey and NotFound
// responses map to store.KindNotFound; every other failure is store.KindIO.
func (s *Store) Resolve(ctx context.Context, requestPath string) (h *store.FileHandle, err error) {
	rel, err := store.CleanRequestPath(requestPath)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("GetObject", time.Since(start), err)
	}()

	if err := ctx.Err(); err != nil {
		return nil, store.IOError(requestPath, err)
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(rel)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, store.NotFoundError(requestPath, err)
		}
		return nil, store.IOError(requestPath, err)
	}

	if result.ContentLength == nil {
		_ = result.Body.Close()
		return nil, store.IOError(requestPath, fmt.Errorf("content length not available for %s", rel))
	}

	return &store.FileHandle{
		Reader: &metricsReadCloser{
			ReadCloser: result.Body,
			metrics:    s.metrics,
			operation:  "read",
		},
		Size: *result.ContentLength,
	}, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
