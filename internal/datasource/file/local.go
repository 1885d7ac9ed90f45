// Package file implements a local filesystem Store.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"datalake/internal/datasource"
)

func init() {
	datasource.Register("file", func(_ context.Context, loc datasource.Location, _ datasource.Options) (datasource.Store, error) {
		return NewLocal(loc.Prefix), nil
	})
}

// Local is a Store rooted at a directory. It is safe for concurrent use.
type Local struct{ root string }

// NewLocal returns a Store rooted at dir. The directory does not need to
// exist until the first Put.
func NewLocal(dir string) *Local { return &Local{root: filepath.Clean(dir)} }

func (l *Local) URL() string {
	return filepath.ToSlash(l.root) + "/"
}

func (l *Local) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

// List walks the directory that contains prefix. A missing directory yields
// no keys.
func (l *Local) List(ctx context.Context, prefix string) ([]string, error) {
	dir := path.Dir(prefix + "x")
	start := l.path(dir)

	var keys []string
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", start, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Open returns the context error without touching the filesystem when ctx
// is already done.
func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	p := l.path(key)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", p, datasource.ErrNotExist)
		}
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	adviseSequential(f)
	return f, nil
}

// Put writes data to a temporary sibling and renames it into place.
func (l *Local) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := l.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(p), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-"+filepath.Base(p)+"-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", p, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", p, err)
	}
	return nil
}

// DeletePrefix removes every file under prefix, then prunes directories left
// empty below the prefix directory.
func (l *Local) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := l.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, k := range keys {
		if err := os.Remove(l.path(k)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return n, fmt.Errorf("remove %s: %w", k, err)
		}
		n++
	}
	if strings.HasSuffix(prefix, "/") {
		if err := pruneEmptyDirs(l.path(prefix)); err != nil {
			return n, err
		}
	}
	return n, nil
}

func pruneEmptyDirs(dir string) error {
	var dirs []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("prune %s: %w", dir, err)
	}
	// Deepest first.
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
	return nil
}
