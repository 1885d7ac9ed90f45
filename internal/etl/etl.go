// Package etl implements the song and log pipelines of the song-play data
// lake: load raw NDJSON from the input store, derive the star-schema tables
// and persist them through the session's table repository.
//
// Every pipeline stage is a plain function over typed values so it can be
// tested without a store; ProcessSongData and ProcessLogData sequence them
// and wrap each stage in a traced, metered step.
package etl

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"datalake/internal/metrics"
	"datalake/internal/session"
	"datalake/internal/storage"
)

// Run executes the song pipeline and then the log pipeline. The log pipeline
// reads songs_table back, so it must not start before the song pipeline has
// written it.
func Run(ctx context.Context, sess *session.Session) error {
	if err := ProcessSongData(ctx, sess); err != nil {
		return err
	}
	return ProcessLogData(ctx, sess)
}

// step runs fn inside a span and records its duration and outcome.
func step(ctx context.Context, sess *session.Session, name string, fn func(context.Context) error) error {
	ctx, span := sess.Tracer.Start(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	metrics.RecordStep(sess.Job.Job, name, err, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		sess.Logger.Error("step failed", zap.String("step", name), zap.Duration("elapsed", elapsed), zap.Error(err))
		return fmt.Errorf("etl: %s: %w", name, err)
	}
	sess.Logger.Debug("step done", zap.String("step", name), zap.Duration("elapsed", elapsed))
	return nil
}

// emit previews t when requested and writes it unless the run is
// inspect-only.
func emit(ctx context.Context, sess *session.Session, t storage.Table) error {
	return step(ctx, sess, "write_"+t.Name, func(ctx context.Context) error {
		if n := sess.Job.ShowRows(); n > 0 && sess.Out != nil {
			if err := Show(sess.Out, t, n, sess.Location); err != nil {
				return err
			}
		}
		metrics.RecordRow(sess.Job.Job, "derived", int64(len(t.Rows)))
		if !sess.Job.WriteData {
			sess.Logger.Info("write skipped", zap.String("table", t.Name), zap.Int("rows", len(t.Rows)))
			return nil
		}
		res, err := sess.Output.WriteTable(ctx, t)
		if err != nil {
			return err
		}
		metrics.RecordRow(sess.Job.Job, "written", res.Rows)
		metrics.RecordFiles(sess.Job.Job, t.Name, int64(res.Files))
		if span := spanFrom(ctx); span != nil {
			span.SetAttributes(
				attribute.String("table", t.Name),
				attribute.Int64("rows", res.Rows),
				attribute.Int("files", res.Files),
			)
		}
		return nil
	})
}
