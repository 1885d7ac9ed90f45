package builtin

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
	"time"

	"datalake/internal/schema"
	"datalake/internal/transformer"
	"datalake/pkg/records"
)

func TestSnakeCase(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"firstName":     "first_name",
		"itemInSession": "item_in_session",
		"lastName":      "last_name",
		"sessionId":     "session_id",
		"userAgent":     "user_agent",
		"userId":        "user_id",
		"userID":        "user_id",
		"HTTPCode":      "http_code",
		"song_id":       "song_id",
		"page":          "page",
		"Année-Sortie":  "annee_sortie",
		" a..b ":        "a_b",
		"%%":            "col",
	}
	for in, want := range tests {
		if got := SnakeCase(in); got != want {
			t.Errorf("SnakeCase(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestRenameMap_LogSchema(t *testing.T) {
	t.Parallel()

	got := RenameMap(schema.LogData.Names())
	want := map[string]string{
		"firstName":     "first_name",
		"itemInSession": "item_in_session",
		"lastName":      "last_name",
		"sessionId":     "session_id",
		"userAgent":     "user_agent",
		"userId":        "user_id",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RenameMap=%v\nwant %v", got, want)
	}
}

func TestRename(t *testing.T) {
	t.Parallel()

	in := []records.Record{{"userId": "1", "page": "NextSong"}, {"page": "Home"}}
	got := Rename{Map: map[string]string{"userId": "user_id"}}.Apply(in)
	want := []records.Record{{"user_id": "1", "page": "NextSong"}, {"page": "Home"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v want %#v", got, want)
	}
}

func TestCoerceAndRequire(t *testing.T) {
	t.Parallel()

	in := []records.Record{
		{"song_id": "S1", "title": "A", "year": json.Number("2001")},
		{"song_id": "S2", "title": nil},
		{"title": "C", "year": "bad"},
		{"song_id": "S4", "title": ""},
	}
	var nulled, dropped int
	out := transformer.Chain{
		Coerce{Schema: schema.SongData, OnNulled: func(n int) { nulled += n }},
		Require{Fields: schema.SongData.Required(), OnDropped: func(n int) { dropped += n }},
	}.Apply(in)

	if len(out) != 2 {
		t.Fatalf("len(out)=%d, want 2: %#v", len(out), out)
	}
	if out[0]["year"] != int32(2001) || out[1]["song_id"] != "S4" {
		t.Fatalf("unexpected survivors: %#v", out)
	}
	if nulled != 1 || dropped != 2 {
		t.Fatalf("nulled=%d dropped=%d, want 1/2", nulled, dropped)
	}
}

func TestEquals_Idempotent(t *testing.T) {
	t.Parallel()

	mk := func() []records.Record {
		return []records.Record{
			{"page": "NextSong", "n": 1},
			{"page": "Home", "n": 2},
			{"page": nil, "n": 3},
			{"n": 4},
			{"page": "NextSong", "n": 5},
		}
	}
	f := Equals{Field: "page", Value: "NextSong"}
	once := f.Apply(mk())
	twice := f.Apply(f.Apply(mk()))
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("filter not idempotent: %#v vs %#v", once, twice)
	}
	if len(once) != 2 {
		t.Fatalf("len=%d, want 2", len(once))
	}

	in := mk()
	_ = f.Apply(in)
	if !reflect.DeepEqual(in, mk()) {
		t.Fatalf("input slice modified: %#v", in)
	}
}

func TestDistinctBy_Records(t *testing.T) {
	t.Parallel()

	ts := time.Unix(1541105830, 0).UTC()
	in := []records.Record{
		{"user_id": "26", "level": "free", "n": 1},
		{"user_id": "26", "level": "free", "n": 2},
		{"user_id": "26", "level": "paid", "n": 3},
		{"user_id": nil, "level": "free", "n": 4},
		{"user_id": nil, "level": "free", "n": 5},
		{"user_id": "7", "level": nil, "ts": ts, "n": 6},
	}
	got := DistinctBy(in, userLevel)
	var ns []int
	for _, r := range got {
		ns = append(ns, r["n"].(int))
	}
	if !reflect.DeepEqual(ns, []int{1, 3, 4, 6}) {
		t.Fatalf("kept %v, want [1 3 4 6]", ns)
	}
}

func TestDistinctBy_NaNAndTime(t *testing.T) {
	t.Parallel()

	a := time.Date(2018, 11, 1, 21, 1, 46, 0, time.UTC)
	b := a.In(time.FixedZone("X", 3600))
	in := [][]any{{math.NaN()}, {math.NaN()}, {a}, {b}, {int32(1)}, {int64(1)}}
	got := DistinctBy(in, func(v []any) []any { return v })
	if len(got) != 4 {
		t.Fatalf("len=%d, want 4 (NaN collapsed, equal instants collapsed, int32/int64 distinct)", len(got))
	}
}

func BenchmarkDistinctBy(b *testing.B) {
	in := make([]records.Record, 10000)
	for i := range in {
		in[i] = records.Record{"user_id": string(rune('a' + i%26)), "level": "free"}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = DistinctBy(in, userLevel)
	}
}

func userLevel(r records.Record) []any { return []any{r["user_id"], r["level"]} }
