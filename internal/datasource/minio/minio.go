// Package minio implements a Store on a MinIO server with minio-go. URLs
// take the form minio://bucket/prefix/; the server address comes from
// object_store.endpoint.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"datalake/internal/datasource"
)

func init() {
	datasource.Register("minio", New)
}

// Store is a MinIO bucket prefix.
type Store struct {
	cli    *minio.Client
	bucket string
	prefix string
}

// New connects to opts.ObjectStore.Endpoint with static V4 credentials.
func New(ctx context.Context, loc datasource.Location, opts datasource.Options) (datasource.Store, error) {
	endpoint := strings.TrimSpace(opts.ObjectStore.Endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	if endpoint == "" {
		return nil, fmt.Errorf("minio: object_store.endpoint is required")
	}
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.Credentials.AccessKeyID, opts.Credentials.SecretAccessKey, ""),
		Secure: opts.ObjectStore.UseSSL,
		Region: opts.ObjectStore.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: client: %w", err)
	}
	ok, err := cli.BucketExists(ctx, loc.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio: bucket %s: %w", loc.Bucket, err)
	}
	if !ok {
		if err := cli.MakeBucket(ctx, loc.Bucket, minio.MakeBucketOptions{Region: opts.ObjectStore.Region}); err != nil {
			return nil, fmt.Errorf("minio: make bucket %s: %w", loc.Bucket, err)
		}
	}
	return &Store{cli: cli, bucket: loc.Bucket, prefix: loc.Prefix}, nil
}

func (s *Store) URL() string {
	return fmt.Sprintf("minio://%s/%s", s.bucket, s.prefix)
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.cli.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix + prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio: list %s/%s%s: %w", s.bucket, s.prefix, prefix, obj.Err)
		}
		k := strings.TrimPrefix(obj.Key, s.prefix)
		if k == "" || strings.HasSuffix(k, "/") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	// GetObject is lazy; Stat surfaces a missing key before the first Read.
	obj, err := s.cli.GetObject(ctx, s.bucket, s.prefix+key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio: get %s: %w", key, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("minio: get %s: %w", key, datasource.ErrNotExist)
		}
		return nil, fmt.Errorf("minio: stat %s: %w", key, err)
	}
	return obj, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.cli.PutObject(ctx, s.bucket, s.prefix+key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(key),
	})
	if err != nil {
		return fmt.Errorf("minio: put %s: %w", key, err)
	}
	return nil
}

func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for i, k := range keys {
		if err := s.cli.RemoveObject(ctx, s.bucket, s.prefix+k, minio.RemoveObjectOptions{}); err != nil {
			return i, fmt.Errorf("minio: remove %s: %w", k, err)
		}
	}
	return len(keys), nil
}

func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".parquet"):
		return "application/vnd.apache.parquet"
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	}
	return "application/octet-stream"
}
