package etl

import (
	"math"
	"strings"
	"testing"
	"time"

	"datalake/internal/schema"
	"datalake/internal/storage"
)

func TestShow(t *testing.T) {
	t.Parallel()

	tbl := storage.Table{
		Schema: schema.NewStruct(
			schema.Field{Name: "id", Type: schema.String},
			schema.Field{Name: "n", Type: schema.Double},
		),
		Rows: [][]any{
			{"SOA", 1.0},
			{nil, math.NaN()},
			{"x", 2.5},
		},
	}
	var b strings.Builder
	if err := Show(&b, tbl, 2, time.UTC); err != nil {
		t.Fatalf("Show: %v", err)
	}
	want := strings.Join([]string{
		"+----+---+",
		"|  id|  n|",
		"+----+---+",
		"| SOA|1.0|",
		"|null|NaN|",
		"+----+---+",
		"only showing top 2 rows",
		"",
		"",
	}, "\n")
	if b.String() != want {
		t.Fatalf("Show output:\n%s\nwant:\n%s", b.String(), want)
	}
}

func TestCell(t *testing.T) {
	t.Parallel()

	ts := time.Date(2018, 11, 1, 20, 57, 10, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{int32(7), "7"},
		{218.93179, "218.93179"},
		{math.Inf(-1), "-Infinity"},
		{ts, "2018-11-01 20:57:10"},
		{"Mozilla/5.0 (Windows NT 6.1)", "Mozilla/5.0 (Wind..."},
	}
	for _, tt := range tests {
		if got := cell(tt.in, time.UTC); got != tt.want {
			t.Errorf("cell(%v)=%q, want %q", tt.in, got, tt.want)
		}
	}
}
