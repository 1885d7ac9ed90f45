package main

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"datalake/internal/config"
	"datalake/internal/etl"
	"datalake/internal/metrics"
	"datalake/internal/metrics/datadog"
	"datalake/internal/metrics/prompush"
	"datalake/internal/session"
)

// newSession is a test hook.
var newSession = session.New

// run opens the session and executes the song pipeline followed by the log
// pipeline.
func run(ctx context.Context, job config.Job, creds config.Credentials, log *zap.Logger, runID string, stdout io.Writer) error {
	sess, err := newSession(ctx, job, creds, log, session.WithRunID(runID))
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("close session", zap.Error(err))
		}
	}()
	sess.Out = stdout

	start := time.Now()
	log.Info("run started",
		zap.String("input", job.Input),
		zap.String("output", job.Output),
		zap.String("storage", job.Storage.Kind),
		zap.Stringer("credentials", creds),
	)
	if err := etl.Run(ctx, sess); err != nil {
		return err
	}
	log.Info("run completed", zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
	return nil
}

// setupMetrics installs the configured metrics backend and returns the
// function that flushes it. Backend failures only disable metrics.
func setupMetrics(job config.Job, log *zap.Logger) func() {
	nop := func() {}
	jobName := job.Job
	if jobName == "" {
		jobName = "etl_job"
	}

	var (
		b   metrics.Backend
		err error
	)
	switch job.Metrics.Backend {
	case "pushgateway":
		gwURL := job.Metrics.PushgatewayURL
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err = prompush.NewBackend(jobName, gwURL)
		if err == nil {
			log.Info("metrics enabled", zap.String("backend", "pushgateway"), zap.String("url", gwURL))
		}
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       job.Metrics.DatadogAddr,
			Namespace:  "etl.",
			GlobalTags: []string{"job:" + jobName},
		})
		if err == nil {
			log.Info("metrics enabled", zap.String("backend", "datadog"), zap.String("addr", job.Metrics.DatadogAddr))
		}
	case "", "none":
		log.Debug("metrics disabled")
		return nop
	default:
		log.Warn("unknown metrics backend; metrics disabled", zap.String("backend", job.Metrics.Backend))
		return nop
	}
	if err != nil {
		log.Warn("metrics backend init failed; using nop", zap.String("backend", job.Metrics.Backend), zap.Error(err))
		return nop
	}

	prev := metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush", zap.Error(err))
		}
		metrics.SetBackend(prev)
	}
}
