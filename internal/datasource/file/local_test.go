package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"datalake/internal/datasource"
)

func TestLocal_PutListOpenDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewLocal(t.TempDir())

	for _, k := range []string{
		"songs_table/year=2000/artist_id=AR1/part-00000.snappy.parquet",
		"songs_table/year=2001/artist_id=AR2/part-00001.snappy.parquet",
		"songs_table/_SUCCESS",
		"songs_table_backup/x",
		"users_table/part-00000.snappy.parquet",
	} {
		if err := l.Put(ctx, k, []byte(k)); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}

	got, err := l.List(ctx, "songs_table/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		"songs_table/_SUCCESS",
		"songs_table/year=2000/artist_id=AR1/part-00000.snappy.parquet",
		"songs_table/year=2001/artist_id=AR2/part-00001.snappy.parquet",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List=%v\nwant %v", got, want)
	}

	rc, err := l.Open(ctx, "users_table/part-00000.snappy.parquet")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if string(b) != "users_table/part-00000.snappy.parquet" {
		t.Fatalf("content=%q", b)
	}

	n, err := l.DeletePrefix(ctx, "songs_table/")
	if err != nil || n != 3 {
		t.Fatalf("DeletePrefix n=%d err=%v", n, err)
	}
	if _, err := os.Stat(filepath.Join(l.root, "songs_table")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("songs_table dir should be pruned, stat err=%v", err)
	}
	if keys, _ := l.List(ctx, "songs_table_backup/"); len(keys) != 1 {
		t.Fatalf("sibling prefix was touched: %v", keys)
	}
}

func TestLocal_MissingAndCanceled(t *testing.T) {
	t.Parallel()
	l := NewLocal(filepath.Join(t.TempDir(), "absent"))

	keys, err := l.List(context.Background(), "log_data/")
	if err != nil || len(keys) != 0 {
		t.Fatalf("List on missing dir = %v, %v", keys, err)
	}
	if _, err := l.Open(context.Background(), "nope.json"); !errors.Is(err, datasource.ErrNotExist) {
		t.Fatalf("Open missing err=%v, want ErrNotExist", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Open(ctx, "nope.json"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Open canceled err=%v", err)
	}
}

func TestGlob_SongAndLogPatterns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewLocal(t.TempDir())

	for _, k := range []string{
		"song_data/A/B/C/TRABCEI128F424C983.json",
		"song_data/A/A/B/TRAABJL12903CDCF1A.json",
		"song_data/A/B/TRTOOSHALLOW.json",
		"song_data/A/B/C/D/TRTOODEEP.json",
		"song_data/A/B/C/.TRHIDDEN.json.crc",
		"song_data/A/B/C/_metadata.json",
		"song_data/A/B/C/notes.txt",
		"log_data/2018/11/2018-11-01-events.json",
		"log_data/2018/11/2018-11-02-events.json",
	} {
		if err := l.Put(ctx, k, []byte("{}")); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	songs, err := datasource.Glob(ctx, l, "song_data/*/*/*/*.json")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	wantSongs := []string{"song_data/A/A/B/TRAABJL12903CDCF1A.json", "song_data/A/B/C/TRABCEI128F424C983.json"}
	if !reflect.DeepEqual(songs, wantSongs) {
		t.Fatalf("songs=%v\nwant %v", songs, wantSongs)
	}

	logs, err := datasource.Glob(ctx, l, "log_data/*/*/*.json")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("logs=%v", logs)
	}
}
