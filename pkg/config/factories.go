package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/casahub/casahub/internal/logger"
	"github.com/casahub/casahub/pkg/blob"
	chunkbadger "github.com/casahub/casahub/pkg/blob/chunk/badger"
	chunkmemory "github.com/casahub/casahub/pkg/blob/chunk/memory"
	chunks3 "github.com/casahub/casahub/pkg/blob/chunk/s3"
	"github.com/casahub/casahub/pkg/blob/registry"
	"github.com/casahub/casahub/pkg/catalog"
)

// CreateChunkStore creates a chunk store based on configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/blob/chunk/memory (in-memory storage, ephemeral)
//   - "badger": Uses pkg/blob/chunk/badger (BadgerDB storage, persistent)
//   - "s3": Uses pkg/blob/chunk/s3 (Amazon S3 or compatible storage)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Chunk store configuration
//
// Returns:
//   - blob.ChunkStore: Initialized chunk store
//   - error: Configuration or initialization error
func CreateChunkStore(ctx context.Context, cfg *ChunkStoreConfig) (blob.ChunkStore, error) {
	switch cfg.Type {
	case "memory":
		return chunkmemory.NewMemoryChunkStore(ctx)
	case "badger":
		return createBadgerChunkStore(ctx, cfg.Badger)
	case "s3":
		return createS3ChunkStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown chunk store type: %q (supported: memory, badger, s3)", cfg.Type)
	}
}

// createBadgerChunkStore creates a BadgerDB-based persistent chunk store.
func createBadgerChunkStore(ctx context.Context, options map[string]any) (blob.ChunkStore, error) {
	var storeCfg chunkbadger.BadgerChunkStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger chunk store config: %w", err)
	}

	if storeCfg.DBPath == "" {
		return nil, fmt.Errorf("badger chunk store: db_path is required")
	}

	store, err := chunkbadger.NewBadgerChunkStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger chunk store: %w", err)
	}

	return store, nil
}

// createS3ChunkStore creates an S3-based chunk store.
func createS3ChunkStore(ctx context.Context, options map[string]any) (blob.ChunkStore, error) {
	// Wire-level options for the S3 backend
	type S3ChunkStoreOptions struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3ChunkStoreOptions
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 chunk store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 chunk store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 chunk store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Custom endpoint support for MinIO, Localstack, etc.
	if storeCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
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

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		// Path-style addressing for MinIO/Localstack compatibility
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	store, err := chunks3.NewS3ChunkStore(ctx, chunks3.S3ChunkStoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 chunk store: %w", err)
	}

	logger.Info("S3 chunk store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// CreateRecordStore creates a blob record store based on configuration.
//
// Supported types:
//   - "memory": in-memory storage, ephemeral
//   - "badger": BadgerDB storage, persistent
func CreateRecordStore(ctx context.Context, cfg *RecordStoreConfig) (registry.RecordStore, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return registry.NewMemoryRecordStore(), nil
	case "badger":
		var storeCfg registry.BadgerRecordStoreConfig
		if err := mapstructure.Decode(cfg.Badger, &storeCfg); err != nil {
			return nil, fmt.Errorf("failed to decode badger record store config: %w", err)
		}
		store, err := registry.NewBadgerRecordStore(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create badger record store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown record store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// CreateListingSource creates a catalog listing source based on
// configuration.
//
// Supported types:
//   - "memory": in-memory storage, ephemeral
//   - "badger": BadgerDB storage, persistent
func CreateListingSource(ctx context.Context, cfg *CatalogConfig) (catalog.MutableSource, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return catalog.NewMemorySource(), nil
	case "badger":
		var storeCfg catalog.BadgerSourceConfig
		if err := mapstructure.Decode(cfg.Badger, &storeCfg); err != nil {
			return nil, fmt.Errorf("failed to decode badger listing source config: %w", err)
		}
		source, err := catalog.NewBadgerSource(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create badger listing source: %w", err)
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unknown listing source type: %q (supported: memory, badger)", cfg.Type)
	}
}
