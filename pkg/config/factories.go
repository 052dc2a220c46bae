package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/fileshover/internal/logger"
	"github.com/marmos91/fileshover/pkg/store"
	storeFs "github.com/marmos91/fileshover/pkg/store/fs"
	storeS3 "github.com/marmos91/fileshover/pkg/store/s3"
	"github.com/mitchellh/mapstructure"
)

// FilesystemStoreConfig holds the options of the filesystem backend.
type FilesystemStoreConfig struct {
	Root string `mapstructure:"root"`
}

// S3StoreConfig holds the options of the S3 backend.
type S3StoreConfig struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// CreateResolver builds the resolver selected by cfg.Type.
//
// s3Metrics may be nil; it is only used by the s3 backend.
func CreateResolver(ctx context.Context, cfg *StoreConfig, s3Metrics storeS3.Metrics) (store.Resolver, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemResolver(ctx, cfg.Filesystem)
	case "s3":
		return createS3Resolver(ctx, cfg.S3, s3Metrics)
	default:
		return nil, fmt.Errorf("unknown store type: %q (supported: filesystem, s3)", cfg.Type)
	}
}

// decodeOptions decodes a backend option map. Values from the environment
// arrive as strings, hence the weak typing.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(options)
}

func createFilesystemResolver(ctx context.Context, options map[string]any) (store.Resolver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var storeCfg FilesystemStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem store config: %w", err)
	}

	if storeCfg.Root == "" {
		return nil, fmt.Errorf("filesystem store: root is required")
	}

	resolver, err := storeFs.New(storeCfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem store: %w", err)
	}

	logger.Info("Serving files from %s", resolver.Root())
	return resolver, nil
}

func createS3Resolver(ctx context.Context, options map[string]any, s3Metrics storeS3.Metrics) (store.Resolver, error) {
	var storeCfg S3StoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 store: region is required")
	}

	client, err := newS3Client(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	resolver, err := storeS3.New(ctx, storeS3.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
		Metrics:   s3Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store: %w", err)
	}

	logger.Info("S3 store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return resolver, nil
}

// newS3Client loads the AWS configuration and builds a client.
//
// A custom endpoint (MinIO, Localstack) switches to path-style addressing.
// Static credentials are used only when both key and secret are set;
// otherwise the default credential chain applies.
func newS3Client(ctx context.Context, storeCfg S3StoreConfig) (*s3.Client, error) {
	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
