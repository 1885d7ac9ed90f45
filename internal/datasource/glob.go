package datasource

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Hidden reports whether a key names a hidden or metadata file: its base
// name starts with '.' or '_' (e.g. _SUCCESS, .crc files).
func Hidden(key string) bool {
	base := path.Base(key)
	return strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_")
}

// Glob returns the keys of s matching pattern, sorted. '*' matches within a
// single path segment; '**' crosses segments. Hidden files are skipped.
func Glob(ctx context.Context, s Store, pattern string) ([]string, error) {
	pattern = strings.TrimPrefix(pattern, "/")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("datasource: invalid glob %q", pattern)
	}
	prefix := staticPrefix(pattern)
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("datasource: list %s%s: %w", s.URL(), prefix, err)
	}
	var out []string
	for _, k := range keys {
		if Hidden(k) {
			continue
		}
		ok, err := doublestar.Match(pattern, k)
		if err != nil {
			return nil, fmt.Errorf("datasource: match %q: %w", pattern, err)
		}
		if ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// staticPrefix returns the leading directory segments of pattern that hold no
// glob metacharacters, with a trailing '/'.
func staticPrefix(pattern string) string {
	segs := strings.Split(pattern, "/")
	var keep []string
	for _, s := range segs[:len(segs)-1] {
		if strings.ContainsAny(s, `*?[{\`) {
			break
		}
		keep = append(keep, s)
	}
	if len(keep) == 0 {
		return ""
	}
	return strings.Join(keep, "/") + "/"
}
