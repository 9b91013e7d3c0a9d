package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Client is the subset of *s3.Client the backend depends on, so tests can
// substitute a fake without standing up real AWS credentials.
type S3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, input *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Backend stores blobs in an S3-compatible bucket, one object per blob at
// key {submodelID}/{blobID}.
type S3Backend struct {
	Client          S3Client
	Bucket          string
	InlineThreshold int64
	ChunkSize       int64
}

// NewS3Backend constructs an S3Backend over an already-configured client.
func NewS3Backend(client S3Client, bucket string, inlineThreshold, chunkSize int64) *S3Backend {
	return &S3Backend{Client: client, Bucket: bucket, InlineThreshold: inlineThreshold, ChunkSize: chunkSize}
}

func (s *S3Backend) objectKey(submodelID, blobID string) string {
	return fmt.Sprintf("%s/%s", submodelID, blobID)
}

// Store uploads content under a freshly generated blob id.
func (s *S3Backend) Store(ctx context.Context, submodelID, idShortPath string, content []byte, contentType, filename string) (Metadata, error) {
	blobID := uuid.NewString()
	key := s.objectKey(submodelID, blobID)

	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Metadata{}, fmt.Errorf("blobstore: s3 put %s: %w", key, err)
	}

	now := time.Now().UTC()
	return Metadata{
		ID:          blobID,
		SubmodelID:  submodelID,
		IdShortPath: idShortPath,
		StorageType: "s3",
		StorageURI:  fmt.Sprintf("s3://%s/%s", s.Bucket, key),
		ContentType: contentType,
		Filename:    filename,
		SizeBytes:   int64(len(content)),
		ContentHash: ComputeHash(content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Retrieve downloads the full object into memory.
func (s *S3Backend) Retrieve(ctx context.Context, meta Metadata) ([]byte, error) {
	rc, err := s.Stream(ctx, meta)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Stream returns the object body as a reader; the SDK itself streams the
// HTTP response, so no explicit chunking is needed on the read side.
func (s *S3Backend) Stream(ctx context.Context, meta Metadata) (io.ReadCloser, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(meta.SubmodelID, meta.ID)),
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: s3 get %s: %w", meta.ID, err)
	}
	return out.Body, nil
}

// Delete removes the object. A missing object is not an error.
func (s *S3Backend) Delete(ctx context.Context, meta Metadata) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(meta.SubmodelID, meta.ID)),
	})
	if err != nil {
		return fmt.Errorf("blobstore: s3 delete %s: %w", meta.ID, err)
	}
	return nil
}

// Exists issues a HEAD request for the object.
func (s *S3Backend) Exists(ctx context.Context, meta Metadata) (bool, error) {
	_, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(meta.SubmodelID, meta.ID)),
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}

// ShouldExternalize reports whether content exceeds the configured inline
// threshold.
func (s *S3Backend) ShouldExternalize(content []byte, contentType string) bool {
	return int64(len(content)) > s.InlineThreshold
}
