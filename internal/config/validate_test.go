package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validJob() Job {
	return Job{
		Job:         "sparkify",
		Input:       "s3a://udacity-dend/",
		Output:      "./output/",
		WriteData:   true,
		Timezone:    "UTC",
		Credentials: "dl.cfg",
		Storage:     Storage{Kind: "parquet"},
		Runtime:     Runtime{ReaderWorkers: 4, WriterWorkers: 2},
		Metrics:     Metrics{Backend: "none"},
		Log:         Log{Level: "info", Format: "json"},
	}
}

func TestValidateJob_ValidMinimal(t *testing.T) {
	t.Parallel()
	if issues := ValidateJob(validJob()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidateJob_Findings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Job)
		sev    IssueSeverity
		path   string
		substr string
	}{
		{"empty job", func(j *Job) { j.Job = " " }, SeverityError, "job", "must not be empty"},
		{"empty input", func(j *Job) { j.Input = "" }, SeverityError, "input", "must not be empty"},
		{"bad scheme", func(j *Job) { j.Input = "ftp://host/x/" }, SeverityError, "input", "unsupported scheme"},
		{"bucketless", func(j *Job) { j.Output = "s3a:///x/" }, SeverityError, "output", "no bucket"},
		{"parquet needs output", func(j *Job) { j.Output = "" }, SeverityError, "output", "must not be empty"},
		{"sql needs dsn", func(j *Job) { j.Storage.Kind = "postgres" }, SeverityError, "storage.dsn", "requires a dsn"},
		{"unknown storage", func(j *Job) { j.Storage.Kind = "delta" }, SeverityError, "storage.kind", "unknown storage kind"},
		{"timezone", func(j *Job) { j.Timezone = "Mars/Olympus" }, SeverityError, "timezone", "unknown time zone"},
		{"credentials", func(j *Job) { j.Credentials = "" }, SeverityError, "credentials", "must not be empty"},
		{"negative show", func(j *Job) { j.Show = -1 }, SeverityError, "show", ">= 0"},
		{"datadog addr", func(j *Job) { j.Metrics.Backend = "datadog" }, SeverityError, "metrics.datadog_addr", "requires an address"},
		{"unknown metrics", func(j *Job) { j.Metrics.Backend = "graphite" }, SeverityWarning, "metrics.backend", "unknown metrics backend"},
		{"log level", func(j *Job) { j.Log.Level = "loud" }, SeverityWarning, "log.level", "unknown level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			j := validJob()
			tt.mutate(&j)
			issues := ValidateJob(j)
			if !hasIssue(t, issues, tt.sev, tt.path, tt.substr) {
				t.Fatalf("missing %s at %s (%q); got %+v", tt.sev, tt.path, tt.substr, issues)
			}
			if got := HasErrors(issues); got != (tt.sev == SeverityError) {
				t.Fatalf("HasErrors=%v for %+v", got, issues)
			}
		})
	}
}
