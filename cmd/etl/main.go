// Command etl runs the song-play data lake job: it loads song metadata and
// activity logs from the input root, derives the songs, artists, users, time
// and songplays tables, and writes them to the configured repository.
//
// Usage:
//
//	etl -config configs/job.yaml -credentials dl.cfg
//	etl -input ./data/ -output ./output/ -dry-run -show 5
//	etl -config configs/job.yaml -validate
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"datalake/internal/config"
	"datalake/internal/logging"
	"datalake/internal/session"
	"datalake/internal/tracing"

	// register all object stores and table repositories; the job config
	// picks which ones are used.
	_ "datalake/internal/datasource/all"
	_ "datalake/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// cliFlags holds command-line overrides. Only flags that were set on the
// command line override the job file.
type cliFlags struct {
	cfgPath        string
	credentials    string
	input          string
	output         string
	dryRun         bool
	show           int
	validate       bool
	metricsBackend string
	pushgatewayURL string
	trace          bool
	verbose        bool

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (cliFlags, error) {
	var f cliFlags
	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.cfgPath, "config", "", "job config file (yaml, json or toml); empty uses defaults and ETL_* env")
	fs.StringVar(&f.credentials, "credentials", "", "INI credential file with an [AWS] section (default dl.cfg)")
	fs.StringVar(&f.input, "input", "", "input root holding song_data/ and log_data/")
	fs.StringVar(&f.output, "output", "", "output root for the table directories")
	fs.BoolVar(&f.dryRun, "dry-run", false, "derive and show the tables without writing them")
	fs.IntVar(&f.show, "show", 0, "rows to print per derived table")
	fs.BoolVar(&f.validate, "validate", false, "validate the configuration and exit")
	fs.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend (none, pushgateway, datadog); overrides METRICS_BACKEND")
	fs.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.BoolVar(&f.trace, "trace", false, "print OpenTelemetry spans to stderr")
	fs.BoolVar(&f.verbose, "v", false, "enable debug logs")
	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}
	f.set = map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// apply copies the flags that were set onto job.
func (f cliFlags) apply(job *config.Job) {
	if f.set["credentials"] {
		job.Credentials = f.credentials
	}
	if f.set["input"] {
		job.Input = withSlash(f.input)
	}
	if f.set["output"] {
		job.Output = withSlash(f.output)
	}
	if f.set["dry-run"] {
		job.WriteData = !f.dryRun
	}
	if f.set["show"] {
		job.Show = f.show
	}
	if f.set["pushgateway-url"] {
		job.Metrics.PushgatewayURL = f.pushgatewayURL
	}
	if f.set["trace"] {
		job.Trace = f.trace
	}
	if f.verbose {
		job.Log.Level = "debug"
	}

	// Decide metrics backend: flag → job file → env.
	switch {
	case f.set["metrics-backend"]:
		job.Metrics.Backend = f.metricsBackend
	case job.Metrics.Backend == "" || job.Metrics.Backend == "none":
		if env := os.Getenv("METRICS_BACKEND"); env != "" {
			job.Metrics.Backend = env
		}
	}
	if job.Metrics.PushgatewayURL == "" {
		job.Metrics.PushgatewayURL = os.Getenv("PUSHGATEWAY_URL")
	}
}

func withSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

// runMain is main without the process exit, returning the exit status.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	job, err := config.Load(flags.cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	flags.apply(&job)

	issues := config.ValidateJob(job)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintf(stderr, "configuration is invalid: %s\n", describe(flags.cfgPath))
		return 1
	}
	if flags.validate {
		fmt.Fprintf(stderr, "configuration is valid: %s\n", describe(flags.cfgPath))
		return 0
	}

	// Missing credentials are a configuration error: fail before any
	// pipeline runs.
	creds, err := config.LoadCredentials(job.Credentials)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	runID := session.NewRunID()
	log, err := logging.New(logging.Config{Level: job.Log.Level, Format: job.Log.Format, Job: job.Job, RunID: runID})
	if err != nil {
		log, _ = logging.New(logging.Config{Format: job.Log.Format, Job: job.Job, RunID: runID})
		log.Warn("falling back to info level", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName: job.Job,
		RunID:       runID,
		Stdout:      job.Trace,
		Writer:      stderr,
	})
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	} else {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				log.Warn("tracing shutdown", zap.Error(err))
			}
		}()
	}

	flush := setupMetrics(job, log)
	defer flush()

	if err := run(ctx, job, creds, log, runID, stdout); err != nil {
		log.Error("run failed", zap.Error(err))
		return 1
	}
	return 0
}

func describe(path string) string {
	if path == "" {
		return "(defaults and environment)"
	}
	return path
}
