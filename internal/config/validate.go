package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Job.
//
// Path is a dotted path into the config (e.g. "storage.kind").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains at least one SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// StorageKinds lists the table repository kinds understood by the job.
var StorageKinds = []string{"parquet", "postgres", "sqlite", "mssql"}

// URLSchemes lists the object store schemes understood by the job. The empty
// scheme is a local path.
var URLSchemes = []string{"", "file", "s3", "s3a", "s3n", "minio", "gs"}

// ValidateJob performs static validation of a Job. It does not touch the
// network or the filesystem, except for loading the time zone database.
func ValidateJob(j Job) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, a ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if strings.TrimSpace(j.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it is used for metrics labeling and identifying runs")
	}

	if strings.TrimSpace(j.Input) == "" {
		add(SeverityError, "input", "input root must not be empty")
	} else if msg := checkURL(j.Input); msg != "" {
		add(SeverityError, "input", "%s", msg)
	}

	kind := strings.ToLower(strings.TrimSpace(j.Storage.Kind))
	switch kind {
	case "parquet":
		// songs_table is read back from the output root even in inspect-only
		// runs, so the root is always required.
		if strings.TrimSpace(j.Output) == "" {
			add(SeverityError, "output", "output root must not be empty for storage.kind=parquet")
		} else if msg := checkURL(j.Output); msg != "" {
			add(SeverityError, "output", "%s", msg)
		}
	case "postgres", "sqlite", "mssql":
		if strings.TrimSpace(j.Storage.DSN) == "" {
			add(SeverityError, "storage.dsn", "storage.kind=%s requires a dsn", kind)
		}
		if j.Output != "" {
			add(SeverityWarning, "output", "output is ignored for storage.kind=%s", kind)
		}
	case "":
		add(SeverityError, "storage.kind", "storage.kind must not be empty")
	default:
		add(SeverityError, "storage.kind", "unknown storage kind %q; expected one of %s", kind, strings.Join(StorageKinds, ", "))
	}

	if strings.TrimSpace(j.Credentials) == "" {
		add(SeverityError, "credentials", "credential file path must not be empty")
	}
	if _, err := time.LoadLocation(j.Timezone); err != nil {
		add(SeverityError, "timezone", "unknown time zone %q: %v", j.Timezone, err)
	}
	if j.Show < 0 {
		add(SeverityError, "show", "show must be >= 0, got %d", j.Show)
	}

	if j.Runtime.ReaderWorkers < 0 {
		add(SeverityError, "runtime.reader_workers", "must be >= 0, got %d", j.Runtime.ReaderWorkers)
	}
	if j.Runtime.WriterWorkers < 0 {
		add(SeverityError, "runtime.writer_workers", "must be >= 0, got %d", j.Runtime.WriterWorkers)
	}

	switch j.Metrics.Backend {
	case "", "none":
	case "pushgateway":
		if j.Metrics.PushgatewayURL == "" {
			add(SeverityWarning, "metrics.pushgateway_url", "empty; the CLI falls back to PUSHGATEWAY_URL or http://localhost:9091")
		}
	case "datadog":
		if j.Metrics.DatadogAddr == "" {
			add(SeverityError, "metrics.datadog_addr", "datadog backend requires an address")
		}
	default:
		add(SeverityWarning, "metrics.backend", "unknown metrics backend %q; metrics disabled", j.Metrics.Backend)
	}

	if _, err := zapcore.ParseLevel(j.Log.Level); err != nil {
		add(SeverityWarning, "log.level", "unknown level %q; using info", j.Log.Level)
	}
	switch strings.ToLower(j.Log.Format) {
	case "", "json", "console":
	default:
		add(SeverityWarning, "log.format", "unknown format %q; using json", j.Log.Format)
	}

	return issues
}

func checkURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL %q: %v", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	for _, s := range URLSchemes {
		if s == scheme {
			if scheme != "" && scheme != "file" && u.Host == "" {
				return fmt.Sprintf("%q has no bucket", raw)
			}
			return ""
		}
	}
	return fmt.Sprintf("unsupported scheme %q in %q", u.Scheme, raw)
}
