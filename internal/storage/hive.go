package storage

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"datalake/internal/schema"
)

// DefaultPartitionName is the directory value used for NULL (and empty
// string) partition values.
const DefaultPartitionName = "__HIVE_DEFAULT_PARTITION__"

// needsEscape reports whether r must be %-escaped in a partition directory
// name, following the Hive convention.
func needsEscape(r byte) bool {
	if r < 0x20 || r == 0x7f {
		return true
	}
	switch r {
	case '"', '#', '%', '\'', '*', '/', ':', '=', '?', '\\', '{', '[', ']', '^':
		return true
	}
	return false
}

// EscapePathName escapes s for use as a partition column name or value.
func EscapePathName(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(c) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// UnescapePathName reverses EscapePathName. Malformed escapes are kept
// literally.
func UnescapePathName(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// PartitionValue renders v as a partition directory value.
func PartitionValue(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return DefaultPartitionName
	case string:
		s = x
	case int32:
		s = strconv.FormatInt(int64(x), 10)
	case int64:
		s = strconv.FormatInt(x, 10)
	case int:
		s = strconv.Itoa(x)
	case float64:
		switch {
		case math.IsNaN(x):
			s = "NaN"
		case math.IsInf(x, 1):
			s = "Infinity"
		case math.IsInf(x, -1):
			s = "-Infinity"
		default:
			s = strconv.FormatFloat(x, 'f', -1, 64)
		}
	case time.Time:
		s = x.UTC().Format("2006-01-02 15:04:05")
	case bool:
		s = strconv.FormatBool(x)
	default:
		s = fmt.Sprint(x)
	}
	if s == "" {
		return DefaultPartitionName
	}
	return EscapePathName(s)
}

// PartitionDir renders the directory path for one partition, e.g.
// "year=2018/month=11".
func PartitionDir(cols []string, vals []any) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = EscapePathName(c) + "=" + PartitionValue(vals[i])
	}
	return strings.Join(parts, "/")
}

// ParsePartitionPath extracts the col=value segments of key (a path
// relative to the table root). cols lists the column names outermost first;
// the file name segment is ignored.
func ParsePartitionPath(key string) (cols []string, vals map[string]string) {
	segs := strings.Split(key, "/")
	vals = map[string]string{}
	for _, seg := range segs[:len(segs)-1] {
		k, v, ok := strings.Cut(seg, "=")
		if !ok {
			continue
		}
		name := UnescapePathName(k)
		if _, dup := vals[name]; !dup {
			cols = append(cols, name)
		}
		vals[name] = UnescapePathName(v)
	}
	return cols, vals
}

// ParsePartitionValue converts a directory value back to a column value of
// type t. The default partition name maps to nil.
func ParsePartitionValue(s string, t schema.Type) any {
	if s == DefaultPartitionName {
		return nil
	}
	var raw any = s
	switch t {
	case schema.Integer, schema.Long:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil
		}
		raw = n
	case schema.Double:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			v, _ := schema.Convert(s, t)
			return v
		}
		raw = f
	}
	v, _ := schema.Convert(raw, t)
	return v
}

// PartitionGroup is the set of rows sharing one partition directory.
type PartitionGroup struct {
	Dir  string
	Rows [][]any
}

// GroupByPartition splits t.Rows by the values of t.PartitionBy. Groups are
// sorted by directory; rows keep their relative order. An unpartitioned
// table yields one group with an empty Dir.
func GroupByPartition(t Table) []PartitionGroup {
	if len(t.PartitionBy) == 0 {
		return []PartitionGroup{{Rows: t.Rows}}
	}
	idx := make([]int, len(t.PartitionBy))
	for i, c := range t.PartitionBy {
		idx[i] = t.ColumnIndex(c)
	}
	byDir := map[string]*PartitionGroup{}
	vals := make([]any, len(idx))
	for _, r := range t.Rows {
		for i, j := range idx {
			vals[i] = r[j]
		}
		dir := PartitionDir(t.PartitionBy, vals)
		g, ok := byDir[dir]
		if !ok {
			g = &PartitionGroup{Dir: dir}
			byDir[dir] = g
		}
		g.Rows = append(g.Rows, r)
	}
	out := make([]PartitionGroup, 0, len(byDir))
	for _, g := range byDir {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dir < out[j].Dir })
	return out
}

// DataColumns returns the schema of the columns stored inside files, i.e.
// t.Schema without the partition columns, and their positions in t.Schema.
func DataColumns(t Table) (schema.Struct, []int) {
	part := make(map[string]bool, len(t.PartitionBy))
	for _, p := range t.PartitionBy {
		part[p] = true
	}
	var (
		s   schema.Struct
		pos []int
	)
	for i, f := range t.Schema.Fields {
		if part[f.Name] {
			continue
		}
		s.Fields = append(s.Fields, f)
		pos = append(pos, i)
	}
	return s, pos
}
