// Package datasource abstracts the object stores that hold raw input and
// table output: the local filesystem, S3 (and S3-compatible gateways),
// MinIO and Google Cloud Storage.
//
// A Store is rooted at a URL such as "s3a://udacity-dend/" or "./output/".
// Keys are '/'-separated paths relative to that root. Backends register a
// Factory for their URL schemes from init; importing datasource/all links
// every backend into a binary.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"datalake/internal/config"
)

// ErrNotExist is wrapped by Open when a key does not exist.
var ErrNotExist = errors.New("datasource: object does not exist")

// Store is a flat key space of immutable objects.
type Store interface {
	// URL returns the root URL of the store, ending in '/'.
	URL() string

	// List returns every key under prefix (recursively), sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Open returns a reader for key. Callers must close it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Put stores data at key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// DeletePrefix removes every key under prefix and reports how many were
	// removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Options carries what a backend needs to build a client.
type Options struct {
	Credentials config.Credentials
	ObjectStore config.ObjectStore
}

// Factory builds a Store rooted at bucket/prefix.
type Factory func(ctx context.Context, loc Location, opts Options) (Store, error)

// Location is a parsed store URL.
type Location struct {
	Scheme string
	// Bucket is the bucket name; empty for local paths.
	Bucket string
	// Prefix is the key prefix inside the bucket (no leading '/', trailing
	// '/' when non-empty), or the directory for local paths.
	Prefix string
	Raw    string
}

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register binds f to scheme. It is typically called from a backend's init.
func Register(scheme string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[strings.ToLower(scheme)] = f
}

// Schemes returns the registered schemes, sorted.
func Schemes() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for s := range factories {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ParseLocation splits raw into scheme, bucket and prefix. A raw value with
// no scheme is a local path and gets scheme "file".
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("datasource: empty location")
	}
	if !strings.Contains(raw, "://") {
		return Location{Scheme: "file", Prefix: filepath.Clean(raw), Raw: raw}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("datasource: parse %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "file" {
		p := u.Path
		if u.Host != "" {
			p = u.Host + p
		}
		return Location{Scheme: scheme, Prefix: filepath.Clean(p), Raw: raw}, nil
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("datasource: %q has no bucket", raw)
	}
	prefix := strings.TrimPrefix(u.Path, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return Location{Scheme: scheme, Bucket: u.Host, Prefix: prefix, Raw: raw}, nil
}

// Open resolves raw to a Store using the factory registered for its scheme.
func Open(ctx context.Context, raw string, opts Options) (Store, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	mu.RLock()
	f, ok := factories[loc.Scheme]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("datasource: no store registered for scheme %q (have %v)", loc.Scheme, Schemes())
	}
	return f(ctx, loc, opts)
}

// Join joins key segments with '/', dropping empty segments.
func Join(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		b.WriteString(p)
	}
	return b.String()
}

// ReadAll opens key and reads it fully.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("datasource: read %s: %w", key, err)
	}
	return b, nil
}
