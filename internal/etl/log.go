package etl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"datalake/internal/metrics"
	"datalake/internal/schema"
	"datalake/internal/session"
	"datalake/internal/storage"
	"datalake/internal/transformer"
	"datalake/internal/transformer/builtin"
	"datalake/pkg/records"
)

// NextSongPage is the page value of a song play event.
const NextSongPage = "NextSong"

// songplayIDShift places the partition index above the per-partition row
// counter in a songplay_id.
const songplayIDShift = 33

// LogRenames maps the camelCase log fields to their snake_case names.
var LogRenames = builtin.RenameMap(schema.LogData.Names())

// NormalizeNames renames the camelCase log fields (firstName, itemInSession,
// lastName, sessionId, userAgent, userId) to snake_case.
func NormalizeNames(parts []records.Partition) []records.Partition {
	return transformer.ApplyPartitions(builtin.Rename{Map: LogRenames}, parts)
}

// FilterSongPlays keeps events whose page is exactly "NextSong". Applying it
// twice is the same as applying it once.
func FilterSongPlays(parts []records.Partition) []records.Partition {
	return transformer.ApplyPartitions(builtin.Equals{Field: "page", Value: NextSongPage}, parts)
}

// Events converts normalized log records into typed events, remembering the
// partition of each.
func Events(parts []records.Partition) []schema.LogEvent {
	out := make([]schema.LogEvent, 0, records.Count(parts))
	for _, p := range parts {
		for _, r := range p.Records {
			out = append(out, schema.LogEvent{
				Artist:        str(r, "artist"),
				Auth:          str(r, "auth"),
				FirstName:     str(r, "first_name"),
				Gender:        str(r, "gender"),
				ItemInSession: i32(r, "item_in_session"),
				LastName:      str(r, "last_name"),
				Length:        f64(r, "length"),
				Level:         str(r, "level"),
				Location:      str(r, "location"),
				Method:        str(r, "method"),
				Page:          str(r, "page"),
				Registration:  f64(r, "registration"),
				SessionID:     i32(r, "session_id"),
				Song:          str(r, "song"),
				Status:        i32(r, "status"),
				TS:            i64(r, "ts"),
				UserAgent:     str(r, "user_agent"),
				UserID:        str(r, "user_id"),
				Partition:     p.Index,
			})
		}
	}
	return out
}

// StartTime converts epoch milliseconds to a timestamp truncated to whole
// seconds. The sub-second part is dropped, rounding toward negative
// infinity for instants before the epoch.
func StartTime(ts int64) time.Time {
	sec := ts / 1000
	if ts%1000 < 0 {
		sec--
	}
	return time.Unix(sec, 0).UTC()
}

// DeriveTimestamp sets StartTime on every event from its ts. Events with a
// null ts get a null StartTime.
func DeriveTimestamp(events []schema.LogEvent) []schema.LogEvent {
	for i := range events {
		if events[i].TS == nil {
			events[i].StartTime = nil
			continue
		}
		st := StartTime(*events[i].TS)
		events[i].StartTime = &st
	}
	return events
}

// DeriveUsers returns one row per distinct (user_id, first_name, last_name,
// gender, level) tuple in first-occurrence order. A user whose level changed
// appears once per level.
func DeriveUsers(events []schema.LogEvent) []schema.User {
	users := make([]schema.User, len(events))
	for i, e := range events {
		users[i] = schema.User{
			UserID:    e.UserID,
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Gender:    e.Gender,
			Level:     e.Level,
		}
	}
	return builtin.DistinctBy(users, func(u schema.User) []any {
		return []any{deref(u.UserID), deref(u.FirstName), deref(u.LastName), deref(u.Gender), deref(u.Level)}
	})
}

// TimeRowOf computes the calendar fields of start in loc. Weekday counts
// from 1=Sunday; Week is the ISO-8601 week.
func TimeRowOf(start time.Time, loc *time.Location) schema.TimeRow {
	t := start.In(loc)
	_, week := t.ISOWeek()
	return schema.TimeRow{
		StartTime: start,
		Hour:      int32(t.Hour()),
		Day:       int32(t.Day()),
		Week:      int32(week),
		Month:     int32(t.Month()),
		Year:      int32(t.Year()),
		Weekday:   int32(t.Weekday()) + 1,
	}
}

// DeriveTime returns one row per distinct start time in first-occurrence
// order. Events without a start time are skipped.
func DeriveTime(events []schema.LogEvent, loc *time.Location) []schema.TimeRow {
	var out []schema.TimeRow
	for _, e := range events {
		if e.StartTime == nil {
			continue
		}
		out = append(out, TimeRowOf(*e.StartTime, loc))
	}
	return builtin.DistinctBy(out, func(r schema.TimeRow) []any { return []any{r.StartTime} })
}

// SongsFromTable converts songs_table rows back into songs.
func SongsFromTable(t storage.Table) ([]schema.Song, error) {
	idx := map[string]int{}
	for _, c := range schema.SongsTable.Names() {
		i := t.ColumnIndex(c)
		if i < 0 {
			return nil, fmt.Errorf("%s: missing column %s", t.Name, c)
		}
		idx[c] = i
	}
	out := make([]schema.Song, len(t.Rows))
	for n, row := range t.Rows {
		r := records.Record{}
		for c, i := range idx {
			r[c] = row[i]
		}
		out[n] = schema.Song{
			SongID:   str(r, "song_id"),
			Title:    str(r, "title"),
			ArtistID: str(r, "artist_id"),
			Year:     i32(r, "year"),
			Duration: f64(r, "duration"),
		}
	}
	return out, nil
}

// DeriveSongplays left-joins events to songs on song == title. Each matching
// song yields one row; an event with no match (or a null song) yields one
// row with null song_id and artist_id. songplay_id is the event's partition
// index shifted left 33 bits plus a running count of rows emitted for that
// partition: unique and increasing within a partition, not consecutive
// across partitions.
func DeriveSongplays(events []schema.LogEvent, songs []schema.Song, loc *time.Location) []schema.Songplay {
	byTitle := make(map[string][]schema.Song)
	for _, s := range songs {
		if s.Title == nil {
			continue
		}
		byTitle[*s.Title] = append(byTitle[*s.Title], s)
	}

	next := map[int]int64{}
	out := make([]schema.Songplay, 0, len(events))
	emitRow := func(e schema.LogEvent, songID, artistID *string) {
		id := int64(e.Partition)<<songplayIDShift + next[e.Partition]
		next[e.Partition]++
		sp := schema.Songplay{
			SongplayID: id,
			StartTime:  e.StartTime,
			UserID:     e.UserID,
			Level:      e.Level,
			SongID:     songID,
			ArtistID:   artistID,
			SessionID:  e.SessionID,
			Location:   e.Location,
			UserAgent:  e.UserAgent,
		}
		if e.StartTime != nil {
			t := e.StartTime.In(loc)
			month, year := int32(t.Month()), int32(t.Year())
			sp.Month, sp.Year = &month, &year
		}
		out = append(out, sp)
	}

	for _, e := range events {
		var matches []schema.Song
		if e.Song != nil {
			matches = byTitle[*e.Song]
		}
		if len(matches) == 0 {
			emitRow(e, nil, nil)
			continue
		}
		for _, s := range matches {
			emitRow(e, s.SongID, s.ArtistID)
		}
	}
	return out
}

// UsersTable wraps users as the unpartitioned users_table.
func UsersTable(users []schema.User) storage.Table {
	return storage.Table{Name: schema.UsersTableName, Schema: schema.UsersTable, Rows: rows(users)}
}

// TimeTable wraps time rows as time_table, partitioned by year and month.
func TimeTable(tr []schema.TimeRow) storage.Table {
	return storage.Table{
		Name:        schema.TimeTableName,
		Schema:      schema.TimeTable,
		PartitionBy: schema.TimePartitionBy,
		Rows:        rows(tr),
	}
}

// SongplaysTable wraps song plays as songplays_table, partitioned by year
// and month.
func SongplaysTable(sp []schema.Songplay) storage.Table {
	return storage.Table{
		Name:        schema.SongplaysTableName,
		Schema:      schema.SongplaysTable,
		PartitionBy: schema.SongplaysPartitionBy,
		Rows:        rows(sp),
	}
}

// ProcessLogData loads the activity log and writes users_table, time_table
// and songplays_table. songs_table is read back from the repository for the
// join, even in inspect-only runs.
func ProcessLogData(ctx context.Context, sess *session.Session) error {
	var events []schema.LogEvent
	err := step(ctx, sess, "load_log_data", func(ctx context.Context) error {
		parts, err := LoadLogData(ctx, sess)
		if err != nil {
			return err
		}
		if err := preview(sess, schema.LogData, parts, 5); err != nil {
			return err
		}
		parts = NormalizeNames(parts)
		before := records.Count(parts)
		parts = FilterSongPlays(parts)
		metrics.RecordRow(sess.Job.Job, "filtered", int64(before-records.Count(parts)))
		events = DeriveTimestamp(Events(parts))
		sess.Logger.Info("song plays selected", zap.Int("events", len(events)), zap.Int("filtered_out", before-len(events)))
		return nil
	})
	if err != nil {
		return err
	}

	if err := emit(ctx, sess, UsersTable(DeriveUsers(events))); err != nil {
		return err
	}
	if err := emit(ctx, sess, TimeTable(DeriveTime(events, sess.Location))); err != nil {
		return err
	}

	var songs []schema.Song
	err = step(ctx, sess, "read_"+schema.SongsTableName, func(ctx context.Context) error {
		t, err := sess.Output.ReadTable(ctx, schema.SongsTableName, schema.SongsTable)
		if err != nil {
			return err
		}
		songs, err = SongsFromTable(t)
		return err
	})
	if err != nil {
		return err
	}

	return emit(ctx, sess, SongplaysTable(DeriveSongplays(events, songs, sess.Location)))
}
