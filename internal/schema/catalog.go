package schema

// SongData is the schema of one song-metadata JSON object. song_id and title
// are non-nullable; every other field is nullable.
var SongData = NewStruct(
	Field{Name: "num_songs", Type: Integer, Nullable: true},
	Field{Name: "artist_id", Type: String, Nullable: true},
	Field{Name: "artist_latitude", Type: Double, Nullable: true},
	Field{Name: "artist_longitude", Type: Double, Nullable: true},
	Field{Name: "artist_location", Type: String, Nullable: true},
	Field{Name: "artist_name", Type: String, Nullable: true},
	Field{Name: "song_id", Type: String, Nullable: false},
	Field{Name: "title", Type: String, Nullable: false},
	Field{Name: "duration", Type: Double, Nullable: true},
	Field{Name: "year", Type: Integer, Nullable: true},
)

// LogData is the schema of one activity-log JSON object, with the camelCase
// field names used by the event producer.
var LogData = NewStruct(
	Field{Name: "artist", Type: String, Nullable: true},
	Field{Name: "auth", Type: String, Nullable: true},
	Field{Name: "firstName", Type: String, Nullable: true},
	Field{Name: "gender", Type: String, Nullable: true},
	Field{Name: "itemInSession", Type: Integer, Nullable: true},
	Field{Name: "lastName", Type: String, Nullable: true},
	Field{Name: "length", Type: Double, Nullable: true},
	Field{Name: "level", Type: String, Nullable: true},
	Field{Name: "location", Type: String, Nullable: true},
	Field{Name: "method", Type: String, Nullable: true},
	Field{Name: "page", Type: String, Nullable: true},
	Field{Name: "registration", Type: Double, Nullable: true},
	Field{Name: "sessionId", Type: Integer, Nullable: true},
	Field{Name: "song", Type: String, Nullable: true},
	Field{Name: "status", Type: Integer, Nullable: true},
	Field{Name: "ts", Type: Long, Nullable: true},
	Field{Name: "userAgent", Type: String, Nullable: true},
	Field{Name: "userId", Type: String, Nullable: true},
)

// Output table names.
const (
	SongsTableName     = "songs_table"
	ArtistsTableName   = "artists_table"
	UsersTableName     = "users_table"
	TimeTableName      = "time_table"
	SongplaysTableName = "songplays_table"
)

// SongsTable is the songs dimension, partitioned by year then artist_id.
var SongsTable = NewStruct(
	Field{Name: "song_id", Type: String, Nullable: true},
	Field{Name: "title", Type: String, Nullable: true},
	Field{Name: "artist_id", Type: String, Nullable: true},
	Field{Name: "year", Type: Integer, Nullable: true},
	Field{Name: "duration", Type: Double, Nullable: true},
)

var ArtistsTable = NewStruct(
	Field{Name: "artist_id", Type: String, Nullable: true},
	Field{Name: "artist_name", Type: String, Nullable: true},
	Field{Name: "artist_location", Type: String, Nullable: true},
	Field{Name: "artist_latitude", Type: Double, Nullable: true},
	Field{Name: "artist_longitude", Type: Double, Nullable: true},
)

var UsersTable = NewStruct(
	Field{Name: "user_id", Type: String, Nullable: true},
	Field{Name: "first_name", Type: String, Nullable: true},
	Field{Name: "last_name", Type: String, Nullable: true},
	Field{Name: "gender", Type: String, Nullable: true},
	Field{Name: "level", Type: String, Nullable: true},
)

var TimeTable = NewStruct(
	Field{Name: "start_time", Type: Timestamp, Nullable: true},
	Field{Name: "hour", Type: Integer, Nullable: true},
	Field{Name: "day", Type: Integer, Nullable: true},
	Field{Name: "week", Type: Integer, Nullable: true},
	Field{Name: "month", Type: Integer, Nullable: true},
	Field{Name: "year", Type: Integer, Nullable: true},
	Field{Name: "weekday", Type: Integer, Nullable: true},
)

var SongplaysTable = NewStruct(
	Field{Name: "songplay_id", Type: Long, Nullable: true},
	Field{Name: "start_time", Type: Timestamp, Nullable: true},
	Field{Name: "user_id", Type: String, Nullable: true},
	Field{Name: "level", Type: String, Nullable: true},
	Field{Name: "song_id", Type: String, Nullable: true},
	Field{Name: "artist_id", Type: String, Nullable: true},
	Field{Name: "session_id", Type: Integer, Nullable: true},
	Field{Name: "location", Type: String, Nullable: true},
	Field{Name: "user_agent", Type: String, Nullable: true},
	Field{Name: "month", Type: Integer, Nullable: true},
	Field{Name: "year", Type: Integer, Nullable: true},
)

// Partition columns per output table. Unpartitioned tables have none.
var (
	SongsPartitionBy     = []string{"year", "artist_id"}
	TimePartitionBy      = []string{"year", "month"}
	SongplaysPartitionBy = []string{"year", "month"}
)
