package storage

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"datalake/internal/schema"
)

func TestEscapePathName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"ARJIE2Y1187B994AB7", "ARJIE2Y1187B994AB7"},
		{"a/b", "a%2Fb"},
		{"x=y", "x%3Dy"},
		{"100%", "100%25"},
		{"New York, NY", "New York, NY"},
		{"tab\there", "tab%09here"},
		{"ü", "ü"},
	}
	for _, tt := range tests {
		got := EscapePathName(tt.in)
		if got != tt.want {
			t.Errorf("EscapePathName(%q)=%q, want %q", tt.in, got, tt.want)
		}
		if back := UnescapePathName(got); back != tt.in {
			t.Errorf("UnescapePathName(%q)=%q, want %q", got, back, tt.in)
		}
	}
	if got := UnescapePathName("50%"); got != "50%" {
		t.Errorf("dangling escape: got %q", got)
	}
	if got := UnescapePathName("%zz"); got != "%zz" {
		t.Errorf("bad hex: got %q", got)
	}
}

func TestPartitionValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want string
	}{
		{nil, DefaultPartitionName},
		{"", DefaultPartitionName},
		{int32(2018), "2018"},
		{int64(-5), "-5"},
		{1.5, "1.5"},
		{math.NaN(), "NaN"},
		{time.Date(2018, 11, 1, 21, 1, 46, 0, time.UTC), "2018-11-01 21%3A01%3A46"},
	}
	for _, tt := range tests {
		if got := PartitionValue(tt.in); got != tt.want {
			t.Errorf("PartitionValue(%#v)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParsePartitionPath(t *testing.T) {
	t.Parallel()

	cols, got := ParsePartitionPath("year=2018/artist_id=a%2Fb/part-00000.snappy.parquet")
	want := map[string]string{"year": "2018", "artist_id": "a/b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"year", "artist_id"}, cols); diff != "" {
		t.Fatalf("column order mismatch (-want +got):\n%s", diff)
	}
	if cols, got := ParsePartitionPath("part-00000.snappy.parquet"); len(got) != 0 || len(cols) != 0 {
		t.Fatalf("unpartitioned key yielded %v %v", cols, got)
	}

	if v := ParsePartitionValue("2018", schema.Integer); v != int32(2018) {
		t.Errorf("Integer: got %#v", v)
	}
	if v := ParsePartitionValue(DefaultPartitionName, schema.Integer); v != nil {
		t.Errorf("default partition: got %#v", v)
	}
	if v := ParsePartitionValue("ARX", schema.String); v != "ARX" {
		t.Errorf("String: got %#v", v)
	}
	if v := ParsePartitionValue("abc", schema.Long); v != nil {
		t.Errorf("bad Long: got %#v", v)
	}
}

func TestGroupByPartition(t *testing.T) {
	t.Parallel()

	tbl := Table{
		Name:        "songs_table",
		Schema:      schema.SongsTable,
		PartitionBy: schema.SongsPartitionBy,
		Rows: [][]any{
			{"S1", "a", "AR2", int32(2000), 1.0},
			{"S2", "b", "AR1", int32(0), 2.0},
			{"S3", "c", "AR2", int32(2000), 3.0},
			{"S4", "d", nil, nil, 4.0},
		},
	}
	if err := tbl.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	groups := GroupByPartition(tbl)
	var dirs []string
	for _, g := range groups {
		dirs = append(dirs, g.Dir)
	}
	want := []string{
		"year=0/artist_id=AR1",
		"year=2000/artist_id=AR2",
		"year=" + DefaultPartitionName + "/artist_id=" + DefaultPartitionName,
	}
	if diff := cmp.Diff(want, dirs); diff != "" {
		t.Fatalf("dirs mismatch (-want +got):\n%s", diff)
	}
	if len(groups[1].Rows) != 2 || groups[1].Rows[0][0] != "S1" || groups[1].Rows[1][0] != "S3" {
		t.Fatalf("rows not kept in order: %v", groups[1].Rows)
	}

	ds, pos := DataColumns(tbl)
	if diff := cmp.Diff([]string{"song_id", "title", "duration"}, ds.Names()); diff != "" {
		t.Fatalf("data columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1, 4}, pos); diff != "" {
		t.Fatalf("positions mismatch (-want +got):\n%s", diff)
	}
}

func TestTableValidate(t *testing.T) {
	t.Parallel()

	base := Table{Name: "users_table", Schema: schema.UsersTable}
	bad := []Table{
		{Schema: schema.UsersTable},
		{Name: "x"},
		{Name: "x", Schema: schema.UsersTable, PartitionBy: []string{"nope"}},
		{Name: "x", Schema: schema.UsersTable, Rows: [][]any{{"1"}}},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid table: %v", err)
	}
	for i, tbl := range bad {
		if err := tbl.Validate(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}
