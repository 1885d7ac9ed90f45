package etl

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"datalake/internal/datasource"
	"datalake/internal/metrics"
	parser "datalake/internal/parser/json"
	"datalake/internal/schema"
	"datalake/internal/session"
	"datalake/internal/transformer"
	"datalake/internal/transformer/builtin"
	"datalake/pkg/records"
)

// Input globs, relative to the input root.
const (
	SongDataGlob = "song_data/*/*/*/*.json"
	LogDataGlob  = "log_data/*/*/*.json"
)

// maxLoggedMalformed bounds the per-load warnings for skipped lines.
const maxLoggedMalformed = 5

// LoadSongData reads every song-metadata file and coerces it to
// schema.SongData. Records without song_id or title are dropped.
func LoadSongData(ctx context.Context, sess *session.Session) ([]records.Partition, error) {
	return load(ctx, sess, SongDataGlob, schema.SongData)
}

// LoadLogData reads every activity-log file and coerces it to
// schema.LogData.
func LoadLogData(ctx context.Context, sess *session.Session) ([]records.Partition, error) {
	return load(ctx, sess, LogDataGlob, schema.LogData)
}

// load expands pattern, decodes the matching files concurrently and applies
// the schema to each. The result holds one partition per file, in sorted key
// order.
func load(ctx context.Context, sess *session.Session, pattern string, s schema.Struct) ([]records.Partition, error) {
	keys, err := datasource.Glob(ctx, sess.Input, pattern)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no input files match %s%s", sess.Input.URL(), pattern)
	}

	var malformed, nulled, dropped atomic.Int64
	chain := transformer.Chain{
		builtin.Coerce{Schema: s, OnNulled: func(n int) { nulled.Add(int64(n)) }},
		builtin.Require{Fields: s.Required(), OnDropped: func(n int) { dropped.Add(int64(n)) }},
	}

	parts := make([]records.Partition, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sess.ReaderWorkers())
	for i, key := range keys {
		g.Go(func() error {
			rc, err := sess.Input.Open(gctx, key)
			if err != nil {
				return err
			}
			defer rc.Close()

			recs, _, err := parser.DecodeAll(rc, func(err error) {
				if malformed.Add(1) <= maxLoggedMalformed {
					sess.Logger.Warn("skipping malformed line", zap.String("path", key), zap.Error(err))
				}
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			parts[i] = records.Partition{Index: i, Source: key, Records: recs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	read := records.Count(parts)
	parts = transformer.ApplyPartitions(chain, parts)

	job := sess.Job.Job
	metrics.RecordRow(job, "read", int64(read))
	metrics.RecordRow(job, "parse_errors", malformed.Load())
	metrics.RecordRow(job, "coerce_nulls", nulled.Load())
	metrics.RecordRow(job, "dropped", dropped.Load())
	sess.Logger.Info("input loaded",
		zap.String("pattern", pattern),
		zap.Int("files", len(keys)),
		zap.Int("records", records.Count(parts)),
		zap.Int64("malformed", malformed.Load()),
		zap.Int64("dropped", dropped.Load()),
	)
	return parts, nil
}
