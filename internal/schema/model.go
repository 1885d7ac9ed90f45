package schema

import "time"

// Song is one row of songs_table.
type Song struct {
	SongID   *string
	Title    *string
	ArtistID *string
	Year     *int32
	Duration *float64
}

// Row returns the values of s in SongsTable column order.
func (s Song) Row() []any {
	return []any{ptr(s.SongID), ptr(s.Title), ptr(s.ArtistID), ptr(s.Year), ptr(s.Duration)}
}

// Artist is one row of artists_table. Artists are not de-duplicated, so the
// same artist_id may appear once per song.
type Artist struct {
	ArtistID  *string
	Name      *string
	Location  *string
	Latitude  *float64
	Longitude *float64
}

func (a Artist) Row() []any {
	return []any{ptr(a.ArtistID), ptr(a.Name), ptr(a.Location), ptr(a.Latitude), ptr(a.Longitude)}
}

// LogEvent is one activity-log record after column names were normalised.
// Partition is the index of the input file the event came from.
type LogEvent struct {
	Artist        *string
	Auth          *string
	FirstName     *string
	Gender        *string
	ItemInSession *int32
	LastName      *string
	Length        *float64
	Level         *string
	Location      *string
	Method        *string
	Page          *string
	Registration  *float64
	SessionID     *int32
	Song          *string
	Status        *int32
	TS            *int64
	UserAgent     *string
	UserID        *string

	// StartTime is ts truncated to whole seconds; nil until derived or when
	// ts is nil.
	StartTime *time.Time

	Partition int
}

// User is one row of users_table.
type User struct {
	UserID    *string
	FirstName *string
	LastName  *string
	Gender    *string
	Level     *string
}

func (u User) Row() []any {
	return []any{ptr(u.UserID), ptr(u.FirstName), ptr(u.LastName), ptr(u.Gender), ptr(u.Level)}
}

// TimeRow is one row of time_table. Weekday counts from 1=Sunday to
// 7=Saturday; Week is the ISO-8601 week number.
type TimeRow struct {
	StartTime time.Time
	Hour      int32
	Day       int32
	Week      int32
	Month     int32
	Year      int32
	Weekday   int32
}

func (t TimeRow) Row() []any {
	return []any{t.StartTime, t.Hour, t.Day, t.Week, t.Month, t.Year, t.Weekday}
}

// Songplay is one row of the songplays_table fact.
type Songplay struct {
	SongplayID int64
	StartTime  *time.Time
	UserID     *string
	Level      *string
	SongID     *string
	ArtistID   *string
	SessionID  *int32
	Location   *string
	UserAgent  *string
	Month      *int32
	Year       *int32
}

func (p Songplay) Row() []any {
	return []any{
		p.SongplayID, ptr(p.StartTime), ptr(p.UserID), ptr(p.Level), ptr(p.SongID),
		ptr(p.ArtistID), ptr(p.SessionID), ptr(p.Location), ptr(p.UserAgent),
		ptr(p.Month), ptr(p.Year),
	}
}

// ptr dereferences p, mapping a nil pointer to an untyped nil.
func ptr[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
