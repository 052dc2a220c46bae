//go:build integration

package s3_test

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	proto "github.com/marmos91/fileshover/internal/protocol/http"
	adapterhttp "github.com/marmos91/fileshover/pkg/adapter/http"
	"github.com/marmos91/fileshover/pkg/config"
	"github.com/marmos91/fileshover/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localstackEndpoint() string {
	if endpoint := os.Getenv("LOCALSTACK_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	return "http://localhost:4566"
}

// setupTestBucket creates a bucket on Localstack, uploads objects and
// removes everything on cleanup.
//
// Prerequisites:
//
//	docker run --rm -p 4566:4566 localstack/localstack
//	go test -tags=integration ./test/integration/s3/...
func setupTestBucket(t *testing.T, bucket string, objects map[string]string) {
	t.Helper()
	ctx := context.Background()

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(localstackEndpoint())
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err, "is Localstack running at %s?", localstackEndpoint())

	for key, body := range objects {
		_, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   strings.NewReader(body),
		})
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		for key := range objects {
			_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			})
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	})
}

func newS3Resolver(t *testing.T, bucket, prefix string) store.Resolver {
	t.Helper()
	resolver, err := config.CreateResolver(context.Background(), &config.StoreConfig{
		Type: "s3",
		S3: map[string]any{
			"region":            "us-east-1",
			"bucket":            bucket,
			"key_prefix":        prefix,
			"endpoint":          localstackEndpoint(),
			"access_key_id":     "test",
			"secret_access_key": "test",
			"max_retries":       2,
		},
	}, nil)
	require.NoError(t, err)
	return resolver
}

func TestS3Resolver_Integration(t *testing.T) {
	bucket := fmt.Sprintf("fileshover-it-%d", time.Now().UnixNano())
	setupTestBucket(t, bucket, map[string]string{
		"site/index.html":  "<h1>Hello World</h1>",
		"site/css/app.css": "body{}",
		"other/secret.txt": "not under the prefix",
	})

	resolver := newS3Resolver(t, bucket, "site/")
	ctx := context.Background()

	h, err := resolver.Resolve(ctx, "/index.html")
	require.NoError(t, err)
	body, err := io.ReadAll(h.Reader)
	require.NoError(t, err)
	require.NoError(t, h.Close())
	assert.Equal(t, "<h1>Hello World</h1>", string(body))
	assert.Equal(t, int64(len(body)), h.Size)

	h, err = resolver.Resolve(ctx, "/css/app.css")
	require.NoError(t, err)
	assert.Equal(t, int64(6), h.Size)
	require.NoError(t, h.Close())

	_, err = resolver.Resolve(ctx, "/missing.html")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = resolver.Resolve(ctx, "/../other/secret.txt")
	assert.ErrorIs(t, err, store.ErrInvalidPath)
}

func TestS3Resolver_ServedOverHTTP(t *testing.T) {
	bucket := fmt.Sprintf("fileshover-it-http-%d", time.Now().UnixNano())
	setupTestBucket(t, bucket, map[string]string{
		"index.html": "<h1>Hello World</h1>",
	})

	adapter := adapterhttp.New(adapterhttp.HTTPConfig{Enabled: true, Workers: 2}, nil)
	adapter.SetResolver(newS3Resolver(t, bucket, ""))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- adapter.ServeListener(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	for _, tc := range []struct {
		path   string
		status proto.Status
		body   string
	}{
		{"/index.html", proto.StatusOK, "<h1>Hello World</h1>"},
		{"/nope.html", proto.StatusNotFound, ""},
	} {
		conn, err := net.Dial("tcp", ln.Addr().String())
		require.NoError(t, err)

		_, err = fmt.Fprintf(conn, "GET %s HTTP/1.1\r\nHost: test\r\n\r\n", tc.path)
		require.NoError(t, err)

		raw, err := io.ReadAll(conn)
		require.NoError(t, err)
		_ = conn.Close()

		head, err := proto.ReadResponseHead(bufio.NewReader(bytes.NewReader(raw)))
		require.NoError(t, err)
		assert.Equal(t, tc.status, head.Status, tc.path)
		if tc.body != "" {
			assert.True(t, bytes.HasSuffix(raw, []byte(tc.body)), tc.path)
		}
	}
}
