package etl

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"datalake/internal/schema"
	"datalake/pkg/records"
)

func sp(s string) *string { return &s }
func ip(n int32) *int32   { return &n }
func lp(n int64) *int64   { return &n }

func TestStartTime_Truncates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ts   int64
		want int64
	}{
		{1541105830796, 1541105830},
		{1541105830999, 1541105830},
		{1541105830000, 1541105830},
		{1541105830001, 1541105830},
		{0, 0},
		{-1, -1},
		{-1000, -1},
		{-1001, -2},
	}
	for _, tt := range tests {
		got := StartTime(tt.ts)
		if got.Unix() != tt.want || got.Nanosecond() != 0 {
			t.Errorf("StartTime(%d)=%v (%d), want %d", tt.ts, got, got.Unix(), tt.want)
		}
		if got.Location() != time.UTC {
			t.Errorf("StartTime(%d) location=%v", tt.ts, got.Location())
		}
	}
}

func TestDeriveTimestamp(t *testing.T) {
	t.Parallel()

	events := DeriveTimestamp([]schema.LogEvent{{TS: lp(1541105830796)}, {}})
	if events[0].StartTime == nil || events[0].StartTime.Unix() != 1541105830 {
		t.Fatalf("start_time=%v", events[0].StartTime)
	}
	if events[1].StartTime != nil {
		t.Fatalf("null ts should give null start_time, got %v", events[1].StartTime)
	}
}

func logParts() []records.Partition {
	return []records.Partition{
		{Index: 0, Records: []records.Record{
			{"page": "NextSong", "song": "a"},
			{"page": "Home"},
			{"page": "nextsong"},
		}},
		{Index: 1, Records: []records.Record{
			{"page": nil},
			{"page": "NextSong", "song": "b"},
		}},
	}
}

func TestFilterSongPlays_Idempotent(t *testing.T) {
	t.Parallel()

	once := FilterSongPlays(logParts())
	twice := FilterSongPlays(FilterSongPlays(logParts()))
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("filter not idempotent (-once +twice):\n%s", diff)
	}
	if records.Count(once) != 2 {
		t.Fatalf("kept %d, want 2", records.Count(once))
	}
	if once[1].Index != 1 || once[1].Records[0]["song"] != "b" {
		t.Fatalf("partition boundaries lost: %+v", once)
	}

	in := logParts()
	first := FilterSongPlays(in)
	second := FilterSongPlays(in)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("filtering the same input twice differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(logParts(), in); diff != "" {
		t.Fatalf("input partitions modified (-want +got):\n%s", diff)
	}
}

func TestNormalizeNames(t *testing.T) {
	t.Parallel()

	parts := NormalizeNames([]records.Partition{{Records: []records.Record{{
		"firstName": "Lily", "itemInSession": int32(0), "lastName": "Koch",
		"sessionId": int32(7), "userAgent": "ua", "userId": "15", "ts": int64(1), "page": "NextSong",
	}}}})
	want := records.Record{
		"first_name": "Lily", "item_in_session": int32(0), "last_name": "Koch",
		"session_id": int32(7), "user_agent": "ua", "user_id": "15", "ts": int64(1), "page": "NextSong",
	}
	if diff := cmp.Diff(want, parts[0].Records[0]); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if len(LogRenames) != 6 {
		t.Fatalf("LogRenames=%v, want 6 entries", LogRenames)
	}
}

func TestDeriveUsers_KeepsLevelChanges(t *testing.T) {
	t.Parallel()

	ev := func(level string) schema.LogEvent {
		return schema.LogEvent{UserID: sp("15"), FirstName: sp("Lily"), LastName: sp("Koch"), Gender: sp("F"), Level: sp(level)}
	}
	users := DeriveUsers([]schema.LogEvent{ev("free"), ev("free"), ev("paid"), {UserID: nil}, {UserID: nil}})
	want := []schema.User{
		{UserID: sp("15"), FirstName: sp("Lily"), LastName: sp("Koch"), Gender: sp("F"), Level: sp("free")},
		{UserID: sp("15"), FirstName: sp("Lily"), LastName: sp("Koch"), Gender: sp("F"), Level: sp("paid")},
		{},
	}
	if diff := cmp.Diff(want, users); diff != "" {
		t.Fatalf("users mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveTime(t *testing.T) {
	t.Parallel()

	events := DeriveTimestamp([]schema.LogEvent{
		{TS: lp(1541105830796)},
		{TS: lp(1541105830001)}, // same second
		{},
		{TS: lp(1542241826796)},
	})
	got := DeriveTime(events, time.UTC)
	want := []schema.TimeRow{
		{StartTime: time.Unix(1541105830, 0).UTC(), Hour: 20, Day: 1, Week: 44, Month: 11, Year: 2018, Weekday: 5},
		{StartTime: time.Unix(1542241826, 0).UTC(), Hour: 0, Day: 15, Week: 46, Month: 11, Year: 2018, Weekday: 5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("time rows mismatch (-want +got):\n%s", diff)
	}

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	r := TimeRowOf(time.Unix(1542241826, 0).UTC(), ny)
	if r.Hour != 19 || r.Day != 14 || r.Weekday != 4 {
		t.Fatalf("New York row=%+v", r)
	}
}

func TestDeriveSongplays_FanOutAndIDs(t *testing.T) {
	t.Parallel()

	songs := []schema.Song{
		{SongID: sp("SO1"), Title: sp("Test Song"), ArtistID: sp("AR1")},
		{SongID: sp("SO2"), Title: sp("Test Song"), ArtistID: sp("AR2")},
		{SongID: sp("SO3"), Title: nil, ArtistID: sp("AR3")},
		{SongID: sp("SO4"), Title: sp("Other"), ArtistID: sp("AR4")},
	}
	st := time.Unix(1541105830, 0).UTC()
	events := []schema.LogEvent{
		{Song: sp("Test Song"), UserID: sp("15"), Level: sp("free"), SessionID: ip(3), StartTime: &st, Partition: 0},
		{Song: nil, UserID: sp("15"), StartTime: &st, Partition: 0},
		{Song: sp("Missing"), UserID: sp("16"), Partition: 2},
	}

	got := DeriveSongplays(events, songs, time.UTC)
	if len(got) != 4 {
		t.Fatalf("got %d rows, want 4: %+v", len(got), got)
	}

	ids := []int64{got[0].SongplayID, got[1].SongplayID, got[2].SongplayID, got[3].SongplayID}
	if diff := cmp.Diff([]int64{0, 1, 2, 2 << 33}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if *got[0].SongID != "SO1" || *got[1].SongID != "SO2" || *got[1].ArtistID != "AR2" {
		t.Fatalf("fan-out rows=%+v %+v", got[0], got[1])
	}
	if got[2].SongID != nil || got[2].ArtistID != nil {
		t.Fatalf("null song must not match: %+v", got[2])
	}
	if got[3].SongID != nil || got[3].Month != nil || got[3].Year != nil {
		t.Fatalf("unmatched row=%+v", got[3])
	}
	if *got[0].Month != 11 || *got[0].Year != 2018 || *got[0].SessionID != 3 {
		t.Fatalf("calendar fields=%+v", got[0])
	}
}

func TestSongsFromTable(t *testing.T) {
	t.Parallel()

	songs := []schema.Song{{SongID: sp("SO1"), Title: sp("a"), Year: ip(2000)}}
	got, err := SongsFromTable(SongsTable(songs))
	if err != nil {
		t.Fatalf("SongsFromTable: %v", err)
	}
	if diff := cmp.Diff(songs, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	bad := SongsTable(nil)
	bad.Schema = schema.UsersTable
	if _, err := SongsFromTable(bad); err == nil {
		t.Fatalf("expected missing column error")
	}
}
