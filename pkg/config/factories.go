package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/datahaven/aclfs/internal/logger"
	"github.com/datahaven/aclfs/pkg/feed"
	feedBadger "github.com/datahaven/aclfs/pkg/feed/badger"
	feedMemory "github.com/datahaven/aclfs/pkg/feed/memory"
	"github.com/datahaven/aclfs/pkg/store/archive"
	archiveFs "github.com/datahaven/aclfs/pkg/store/archive/fs"
	archiveS3 "github.com/datahaven/aclfs/pkg/store/archive/s3"
)

// CreateJournal creates a change-feed journal based on configuration.
//
// This factory function uses the Type field to determine which journal
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the journal's constructor.
//
// Supported types:
//   - "memory": Uses pkg/feed/memory (in-memory, ephemeral)
//   - "badger": Uses pkg/feed/badger (BadgerDB, persistent)
func CreateJournal(ctx context.Context, cfg *FeedConfig) (feed.Journal, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryJournal(ctx, cfg.Memory)
	case "badger":
		return createBadgerJournal(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown feed journal type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createMemoryJournal creates an in-memory change-feed journal.
func createMemoryJournal(ctx context.Context, options map[string]any) (feed.Journal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type MemoryJournalOptions struct {
		MaxEntries int `mapstructure:"max_entries"`
	}

	var opts MemoryJournalOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode memory journal options: %w", err)
	}

	return feedMemory.New(opts.MaxEntries), nil
}

// createBadgerJournal creates a BadgerDB-backed persistent journal.
func createBadgerJournal(ctx context.Context, options map[string]any) (feed.Journal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type BadgerJournalOptions struct {
		Path     string `mapstructure:"path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var opts BadgerJournalOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode badger journal options: %w", err)
	}

	if opts.Path == "" && !opts.InMemory {
		return nil, fmt.Errorf("badger journal: path is required")
	}

	journal, err := feedBadger.Open(feedBadger.Config{
		Path:     opts.Path,
		InMemory: opts.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open badger journal: %w", err)
	}

	return journal, nil
}

// CreateArchiveStore creates a policy version archive based on configuration.
//
// Supported types:
//   - "none": No archiving; previous policy versions are discarded
//   - "filesystem": Uses pkg/store/archive/fs (local directory tree)
//   - "s3": Uses pkg/store/archive/s3 (Amazon S3 or compatible storage)
//
// Returns (nil, nil) for type "none"; the mutation service treats a nil
// archive as disabled.
func CreateArchiveStore(ctx context.Context, cfg *ArchiveConfig) (archive.Store, error) {
	switch cfg.Type {
	case "none":
		return nil, nil
	case "filesystem":
		return createFilesystemArchive(ctx, cfg.Filesystem)
	case "s3":
		return createS3Archive(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive type: %q (supported: none, filesystem, s3)", cfg.Type)
	}
}

// createFilesystemArchive creates a local directory archive.
func createFilesystemArchive(ctx context.Context, options map[string]any) (archive.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type FilesystemArchiveOptions struct {
		Path string `mapstructure:"path"`
	}

	var opts FilesystemArchiveOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem archive options: %w", err)
	}

	if opts.Path == "" {
		return nil, fmt.Errorf("filesystem archive: path is required")
	}

	store, err := archiveFs.New(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem archive: %w", err)
	}

	return store, nil
}

// createS3Archive creates an S3-based archive.
func createS3Archive(ctx context.Context, options map[string]any) (archive.Store, error) {
	type S3ArchiveOptions struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var opts S3ArchiveOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 archive options: %w", err)
	}

	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3 archive: bucket is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("S3 archive: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(opts.Region))

	// Custom endpoint for MinIO, Localstack, etc.
	if opts.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               opts.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default chain
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := opts.MaxRetries
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

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for MinIO/Localstack compatibility
		if opts.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	store, err := archiveS3.New(client, opts.Bucket, opts.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 archive: %w", err)
	}

	logger.Info("S3 archive initialized: bucket=%s, region=%s, prefix=%s",
		opts.Bucket, opts.Region, opts.KeyPrefix)

	return store, nil
}
