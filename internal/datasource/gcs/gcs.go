// Package gcs implements a Store on Google Cloud Storage for gs:// URLs.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"datalake/internal/datasource"
)

func init() {
	datasource.Register("gs", New)
}

// API is the slice of bucket operations Store needs. A missing object is
// reported as storage.ErrObjectNotExist.
type API interface {
	ListNames(ctx context.Context, bucket, prefix string) ([]string, error)
	NewReader(ctx context.Context, bucket, name string) (io.ReadCloser, error)
	NewWriter(ctx context.Context, bucket, name string) io.WriteCloser
	Delete(ctx context.Context, bucket, name string) error
}

// clientAPI adapts *storage.Client to API.
type clientAPI struct{ c *storage.Client }

func (a clientAPI) ListNames(ctx context.Context, bucket, prefix string) ([]string, error) {
	it := a.c.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		names = append(names, attrs.Name)
	}
}

func (a clientAPI) NewReader(ctx context.Context, bucket, name string) (io.ReadCloser, error) {
	return a.c.Bucket(bucket).Object(name).NewReader(ctx)
}

func (a clientAPI) NewWriter(ctx context.Context, bucket, name string) io.WriteCloser {
	return a.c.Bucket(bucket).Object(name).NewWriter(ctx)
}

func (a clientAPI) Delete(ctx context.Context, bucket, name string) error {
	return a.c.Bucket(bucket).Object(name).Delete(ctx)
}

// Store is a GCS bucket prefix.
type Store struct {
	api    API
	bucket string
	prefix string
}

// New builds a client from the configured service-account key file, or from
// application default credentials when none is set. A custom endpoint (e.g.
// a local emulator) disables authentication.
func New(ctx context.Context, loc datasource.Location, opts datasource.Options) (datasource.Store, error) {
	var copts []option.ClientOption
	switch {
	case opts.ObjectStore.Endpoint != "":
		copts = append(copts, option.WithEndpoint(opts.ObjectStore.Endpoint), option.WithoutAuthentication())
	case opts.ObjectStore.GCSCredentialsFile != "":
		copts = append(copts, option.WithCredentialsFile(opts.ObjectStore.GCSCredentialsFile))
	}
	copts = append(copts, option.WithScopes(storage.ScopeReadWrite))

	client, err := storage.NewClient(ctx, copts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: client: %w", err)
	}
	return NewWithAPI(clientAPI{c: client}, loc), nil
}

// NewWithAPI builds a Store on an existing API implementation.
func NewWithAPI(api API, loc datasource.Location) *Store {
	return &Store{api: api, bucket: loc.Bucket, prefix: loc.Prefix}
}

func (s *Store) URL() string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.prefix)
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	names, err := s.api.ListNames(ctx, s.bucket, s.prefix+prefix)
	if err != nil {
		return nil, fmt.Errorf("gcs: list gs://%s/%s%s: %w", s.bucket, s.prefix, prefix, err)
	}
	var keys []string
	for _, n := range names {
		k := strings.TrimPrefix(n, s.prefix)
		if k == "" || strings.HasSuffix(k, "/") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.api.NewReader(ctx, s.bucket, s.prefix+key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gcs: get %s: %w", key, datasource.ErrNotExist)
		}
		return nil, fmt.Errorf("gcs: get %s: %w", key, err)
	}
	return r, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	w := s.api.NewWriter(ctx, s.bucket, s.prefix+key)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: close %s: %w", key, err)
	}
	return nil
}

func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for i, k := range keys {
		err := s.api.Delete(ctx, s.bucket, s.prefix+k)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return i, fmt.Errorf("gcs: delete %s: %w", k, err)
		}
	}
	return len(keys), nil
}
