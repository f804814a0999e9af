// Package s3 implements S3-based policy version archival.
//
// Objects are written under <prefix>/<governed directory>/<version name>
// so the bucket layout mirrors the datasite tree. Compatible with
// S3-compatible stores (MinIO, Localstack) via custom endpoints; client
// construction lives in pkg/config.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/datahaven/aclfs/pkg/store/archive"
)

// Store archives policy versions to an S3 bucket.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3 archive store writing to the given bucket under the
// given key prefix (may be empty).
func New(client *s3.Client, bucket, prefix string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 archive store: client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("s3 archive store: bucket is required")
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}, nil
}

// objectKey builds the bucket key for one archived version.
func (s *Store) objectKey(directory string, when time.Time) string {
	return path.Join(s.prefix, directory, archive.VersionName(when))
}

// Put uploads one archived policy version.
//
// The PutObject call respects context cancellation.
func (s *Store) Put(ctx context.Context, directory string, when time.Time, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(directory, when)),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return fmt.Errorf("failed to archive policy to S3: %w", err)
	}

	return nil
}
