package etl

import (
	"context"

	"datalake/internal/schema"
	"datalake/internal/session"
	"datalake/internal/storage"
	"datalake/pkg/records"
)

// DeriveSongs projects every song record onto songs_table.
func DeriveSongs(parts []records.Partition) []schema.Song {
	out := make([]schema.Song, 0, records.Count(parts))
	for _, p := range parts {
		for _, r := range p.Records {
			out = append(out, schema.Song{
				SongID:   str(r, "song_id"),
				Title:    str(r, "title"),
				ArtistID: str(r, "artist_id"),
				Year:     i32(r, "year"),
				Duration: f64(r, "duration"),
			})
		}
	}
	return out
}

// DeriveArtists projects every song record onto artists_table. One row is
// emitted per song, so an artist with several songs repeats.
func DeriveArtists(parts []records.Partition) []schema.Artist {
	out := make([]schema.Artist, 0, records.Count(parts))
	for _, p := range parts {
		for _, r := range p.Records {
			out = append(out, schema.Artist{
				ArtistID:  str(r, "artist_id"),
				Name:      str(r, "artist_name"),
				Location:  str(r, "artist_location"),
				Latitude:  f64(r, "artist_latitude"),
				Longitude: f64(r, "artist_longitude"),
			})
		}
	}
	return out
}

// SongsTable wraps songs as the partitioned songs_table.
func SongsTable(songs []schema.Song) storage.Table {
	return storage.Table{
		Name:        schema.SongsTableName,
		Schema:      schema.SongsTable,
		PartitionBy: schema.SongsPartitionBy,
		Rows:        rows(songs),
	}
}

// ArtistsTable wraps artists as the unpartitioned artists_table.
func ArtistsTable(artists []schema.Artist) storage.Table {
	return storage.Table{
		Name:   schema.ArtistsTableName,
		Schema: schema.ArtistsTable,
		Rows:   rows(artists),
	}
}

// ProcessSongData loads song metadata and writes songs_table and
// artists_table.
func ProcessSongData(ctx context.Context, sess *session.Session) error {
	var parts []records.Partition
	err := step(ctx, sess, "load_song_data", func(ctx context.Context) error {
		var err error
		parts, err = LoadSongData(ctx, sess)
		if err != nil {
			return err
		}
		return preview(sess, schema.SongData, parts, 5)
	})
	if err != nil {
		return err
	}

	if err := emit(ctx, sess, SongsTable(DeriveSongs(parts))); err != nil {
		return err
	}
	return emit(ctx, sess, ArtistsTable(DeriveArtists(parts)))
}
