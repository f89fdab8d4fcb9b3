// Package s3 implements blob.ChunkStore on Amazon S3 or any S3-compatible
// object store (MinIO, Localstack).
//
// Each chunk is stored as one object under
//
//	<key_prefix><blobID>/<%08d seq>
//
// so all chunks of a blob share a common prefix: deletion and enumeration
// are prefix listings, and lexicographic object order equals ascending
// sequence order.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/casahub/casahub/pkg/blob"
)

// S3ChunkStore implements blob.ChunkStore backed by an S3 bucket.
//
// Thread safety: the AWS SDK client is safe for concurrent use; the store
// holds no mutable state of its own.
//
// Idempotent writes: S3 has no compare-and-set, so WriteChunk reads an
// existing object before writing. The read-then-write pair is not atomic,
// but uploads never share a blob ID, so conflicting concurrent writers do
// not occur in practice; the check exists to catch retries with divergent
// payloads.
//
// Implements blob.ChunkStore and blob.ChunkLister.
type S3ChunkStore struct {
	client    *awss3.Client
	bucket    string
	keyPrefix string
}

// S3ChunkStoreConfig contains configuration for creating an S3 chunk store.
type S3ChunkStoreConfig struct {
	// Client is a configured S3 client (region, credentials, endpoint).
	Client *awss3.Client

	// Bucket is the target bucket name. Required.
	Bucket string

	// KeyPrefix namespaces all chunk objects (e.g. "chunks/"). Optional.
	KeyPrefix string
}

// NewS3ChunkStore creates a chunk store over the given bucket.
//
// The bucket must already exist; a HeadBucket probe verifies access so
// misconfiguration fails at startup rather than on the first upload.
func NewS3ChunkStore(ctx context.Context, config S3ChunkStoreConfig) (*S3ChunkStore, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("s3 chunk store: client is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("s3 chunk store: bucket is required")
	}

	prefix := config.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	store := &S3ChunkStore{
		client:    config.Client,
		bucket:    config.Bucket,
		keyPrefix: prefix,
	}

	if _, err := store.client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(store.bucket),
	}); err != nil {
		return nil, fmt.Errorf("s3 chunk store: bucket %q not accessible: %w", store.bucket, err)
	}

	return store, nil
}

// objectKey builds the S3 key for one chunk.
func (s *S3ChunkStore) objectKey(id blob.ID, seq uint32) string {
	return fmt.Sprintf("%s%s/%08d", s.keyPrefix, id, seq)
}

// blobPrefix builds the S3 key prefix shared by all chunks of a blob.
func (s *S3ChunkStore) blobPrefix(id blob.ID) string {
	return s.keyPrefix + string(id) + "/"
}

// WriteChunk uploads one chunk object. A retried write with identical bytes
// is a no-op; divergent content for an existing key returns
// blob.ErrChunkConflict.
func (s *S3ChunkStore) WriteChunk(ctx context.Context, id blob.ID, seq uint32, data []byte) error {
	key := s.objectKey(id, seq)

	existing, err := s.getObject(ctx, key)
	switch {
	case err == nil:
		if bytes.Equal(existing, data) {
			return nil
		}
		return fmt.Errorf("chunk %s/%d: %w", id, seq, blob.ErrChunkConflict)
	case errors.Is(err, blob.ErrChunkNotFound):
		// First write for this sequence number.
	default:
		return fmt.Errorf("s3 probe chunk %s/%d: %w: %v", id, seq, blob.ErrStorageFailure, err)
	}

	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3 write chunk %s/%d: %w: %v", id, seq, blob.ErrStorageFailure, err)
	}

	return nil
}

// ReadChunk downloads one chunk object, or returns blob.ErrChunkNotFound.
func (s *S3ChunkStore) ReadChunk(ctx context.Context, id blob.ID, seq uint32) ([]byte, error) {
	data, err := s.getObject(ctx, s.objectKey(id, seq))
	if err != nil {
		if errors.Is(err, blob.ErrChunkNotFound) {
			return nil, fmt.Errorf("chunk %s/%d: %w", id, seq, blob.ErrChunkNotFound)
		}
		return nil, fmt.Errorf("s3 read chunk %s/%d: %w: %v", id, seq, blob.ErrStorageFailure, err)
	}
	return data, nil
}

// getObject fetches a whole object body. Maps the backend's NoSuchKey to
// blob.ErrChunkNotFound.
func (s *S3ChunkStore) getObject(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, blob.ErrChunkNotFound
		}
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

// DeleteChunks removes every chunk object under the blob prefix using
// batched DeleteObjects calls (up to 1000 keys per call, the S3 limit).
// Idempotent.
func (s *S3ChunkStore) DeleteChunks(ctx context.Context, id blob.ID) error {
	prefix := s.blobPrefix(id)

	var continuation *string
	for {
		list, err := s.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return fmt.Errorf("s3 list chunks %s: %w: %v", id, blob.ErrStorageFailure, err)
		}

		if len(list.Contents) > 0 {
			objects := make([]types.ObjectIdentifier, 0, len(list.Contents))
			for _, obj := range list.Contents {
				objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
			}

			_, err = s.client.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
				Bucket: aws.String(s.bucket),
				Delete: &types.Delete{
					Objects: objects,
					Quiet:   aws.Bool(true),
				},
			})
			if err != nil {
				return fmt.Errorf("s3 delete chunks %s: %w: %v", id, blob.ErrStorageFailure, err)
			}
		}

		if list.IsTruncated == nil || !*list.IsTruncated {
			return nil
		}
		continuation = list.NextContinuationToken
	}
}

// ListBlobIDs enumerates blob identifiers by listing common prefixes under
// the store's key prefix (one directory-style prefix per blob).
func (s *S3ChunkStore) ListBlobIDs(ctx context.Context) ([]blob.ID, error) {
	var ids []blob.ID

	var continuation *string
	for {
		list, err := s.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.keyPrefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 list blob ids: %w: %v", blob.ErrStorageFailure, err)
		}

		for _, cp := range list.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			id := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, s.keyPrefix), "/")
			if id != "" {
				ids = append(ids, blob.ID(id))
			}
		}

		if list.IsTruncated == nil || !*list.IsTruncated {
			return ids, nil
		}
		continuation = list.NextContinuationToken
	}
}

// Close releases nothing: the S3 client has no shutdown handshake.
func (s *S3ChunkStore) Close() error {
	return nil
}
