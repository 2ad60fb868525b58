// Package storage wraps whole-object reads and writes against the S3
// compatible object store, plus the CSV codec used for every tabular object.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the whole-object contract the pipeline needs. There is no
// partial read or append primitive anywhere in the system.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

// MinioStore is the production ObjectStore.
type MinioStore struct {
	cli *minio.Client
}

// Options configures the object store connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// NewMinioStore dials the object store, retrying while the endpoint comes up.
func NewMinioStore(ctx context.Context, opts Options) (*MinioStore, error) {
	var lastErr error
	for i := 0; i < 10; i++ {
		cli, err := minio.New(opts.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
			Secure: opts.UseSSL,
		})
		if err == nil {
			if _, err = cli.ListBuckets(ctx); err == nil {
				return &MinioStore{cli: cli}, nil
			}
		}
		lastErr = err
		log.Printf("object store not ready (attempt %d): %v", i+1, err)
		time.Sleep(time.Second * time.Duration(1+i))
	}
	return nil, fmt.Errorf("object store not ready: %w", lastErr)
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.cli.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("bucket check %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	return s.cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}

// Get reads an entire object.
func (s *MinioStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.cli.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer obj.Close()
	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return b, nil
}

// Put writes an entire object, replacing any previous version.
func (s *MinioStore) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	r := bytes.NewReader(body)
	_, err := s.cli.PutObject(ctx, bucket, key, r, int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
