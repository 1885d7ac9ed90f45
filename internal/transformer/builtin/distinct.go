package builtin

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/zeebo/xxh3"
)

// DistinctBy keeps the first item for every distinct key tuple, preserving
// input order. Key values are hashed with xxh3 and compared exactly on
// collision. Supported key value types are nil, string, bool, the integer
// types, float64 and time.Time; NaN equals NaN.
func DistinctBy[T any](in []T, key func(T) []any) []T {
	if len(in) == 0 {
		return in
	}
	type seenKey struct{ vals []any }
	seen := make(map[uint64][]seenKey, len(in))
	out := make([]T, 0, len(in))
	h := xxh3.New()
	for _, item := range in {
		vals := key(item)
		h.Reset()
		hashValues(h, vals)
		sum := h.Sum64()

		dup := false
		for _, s := range seen[sum] {
			if tupleEqual(s.vals, vals) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[sum] = append(seen[sum], seenKey{vals: vals})
		out = append(out, item)
	}
	return out
}

func hashValues(h *xxh3.Hasher, vals []any) {
	var buf [9]byte
	put := func(tag byte, u uint64) {
		buf[0] = tag
		binary.LittleEndian.PutUint64(buf[1:], u)
		_, _ = h.Write(buf[:])
	}
	for _, v := range vals {
		switch x := v.(type) {
		case nil:
			_, _ = h.Write([]byte{0})
		case string:
			put(1, uint64(len(x)))
			_, _ = h.WriteString(x)
		case bool:
			if x {
				put(2, 1)
			} else {
				put(2, 0)
			}
		case int:
			put(3, uint64(x))
		case int32:
			put(3, uint64(int64(x)))
		case int64:
			put(3, uint64(x))
		case float64:
			if math.IsNaN(x) {
				x = math.NaN()
			}
			put(4, math.Float64bits(x))
		case time.Time:
			put(5, uint64(x.UnixNano()))
		default:
			// Unhashable types fall back to exact comparison in one bucket.
			_, _ = h.Write([]byte{0xff})
		}
	}
}

func tupleEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valueEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case float64:
		y, ok := b.(float64)
		if !ok {
			return false
		}
		return x == y || (math.IsNaN(x) && math.IsNaN(y))
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case int, int32, int64, string, bool:
		return a == b
	}
	return false
}
