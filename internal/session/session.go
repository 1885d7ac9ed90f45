// Package session builds the execution context shared by the song and log
// pipelines: the input object store, the output table repository, the time
// zone used for calendar fields and the run id.
//
// Credentials are handed to the storage clients explicitly. Nothing here
// touches the process environment.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"datalake/internal/config"
	"datalake/internal/datasource"
	"datalake/internal/storage"
	"datalake/internal/tracing"
)

// Session is the handle the pipelines run against.
type Session struct {
	Job      config.Job
	RunID    string
	Location *time.Location

	// Input holds song_data/ and log_data/.
	Input datasource.Store
	// Output persists and reads back the derived tables.
	Output storage.Repository

	Logger *zap.Logger
	Tracer trace.Tracer

	// Out receives table previews.
	Out io.Writer
}

// Option customizes New.
type Option func(*options)

type options struct {
	runID    string
	openRepo func(context.Context, storage.Config) (storage.Repository, error)
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option { return func(o *options) { o.runID = id } }

// NewRunID returns a fresh random run id.
func NewRunID() string { return uuid.NewString() }

// New resolves the stores and repository described by job.
func New(ctx context.Context, job config.Job, creds config.Credentials, log *zap.Logger, opts ...Option) (*Session, error) {
	o := options{openRepo: storage.New}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = NewRunID()
	}
	if log == nil {
		log = zap.NewNop()
	}

	loc, err := LoadLocation(job.Timezone)
	if err != nil {
		return nil, err
	}

	dsOpts := datasource.Options{Credentials: creds, ObjectStore: job.ObjectStore}
	in, err := datasource.Open(ctx, job.Input, dsOpts)
	if err != nil {
		return nil, fmt.Errorf("session: input: %w", err)
	}

	kind := strings.ToLower(strings.TrimSpace(job.Storage.Kind))
	if kind == "" {
		kind = "parquet"
	}
	repoCfg := storage.Config{
		Kind:          kind,
		DSN:           job.Storage.DSN,
		Schema:        job.Storage.Schema,
		WriterWorkers: job.Runtime.WriterWorkers,
		RunID:         o.runID,
		Logger:        log.Named("storage"),
	}
	if kind == "parquet" {
		out, err := datasource.Open(ctx, job.Output, dsOpts)
		if err != nil {
			return nil, fmt.Errorf("session: output: %w", err)
		}
		repoCfg.Store = out
	}
	repo, err := o.openRepo(ctx, repoCfg)
	if err != nil {
		return nil, fmt.Errorf("session: open %s repository: %w", kind, err)
	}

	s := &Session{
		Job:      job,
		RunID:    o.runID,
		Location: loc,
		Input:    in,
		Output:   repo,
		Logger:   log,
		Tracer:   tracing.Tracer(),
		Out:      os.Stdout,
	}
	log.Info("session ready",
		zap.String("input", in.URL()),
		zap.String("storage", kind),
		zap.String("timezone", loc.String()),
		zap.Bool("write_data", job.WriteData),
	)
	return s, nil
}

// LoadLocation resolves an IANA zone name. Empty means UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("session: timezone %q: %w", name, err)
	}
	return loc, nil
}

// ReaderWorkers returns the bounded input read parallelism.
func (s *Session) ReaderWorkers() int {
	if s.Job.Runtime.ReaderWorkers > 0 {
		return s.Job.Runtime.ReaderWorkers
	}
	return 1
}

// Close releases the output repository.
func (s *Session) Close() error {
	if s == nil || s.Output == nil {
		return nil
	}
	if err := s.Output.Close(); err != nil {
		return fmt.Errorf("session: close repository: %w", err)
	}
	return nil
}
