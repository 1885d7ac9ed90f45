// Package metrics records operational metrics from the song and log
// pipelines behind a small backend-agnostic interface.
//
// A global backend defaults to a no-op implementation, so instrumentation is
// always safe to call. Concrete systems (Prometheus Pushgateway, Datadog)
// live in subpackages and are installed by the CLI with SetBackend.
//
// Metric names:
//
//   - etl_step_total, etl_step_duration_seconds: one observation per pipeline
//     step (load_song_data, write_songs_table, ...), labelled job/step/status.
//   - etl_records_total: record counts labelled job/kind, where kind is one
//     of read, parse_errors, coerce_nulls, dropped, filtered, derived,
//     written.
//   - etl_files_total: table files written, labelled job/table.
package metrics

import (
	"sync"
	"time"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b and returns the previous backend. Passing nil
// restores the no-op backend.
func SetBackend(b Backend) Backend {
	mu.Lock()
	defer mu.Unlock()
	prev := backend
	if b == nil {
		b = nopBackend{}
	}
	backend = b
	return prev
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep records latency and success/failure for one pipeline step.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}
	b := current()
	b.IncCounter("etl_step_total", 1, lbls)
	b.ObserveHistogram("etl_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRow increments the record counter for kind.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter("etl_records_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordFiles increments the written-files counter for table.
func RecordFiles(job, table string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter("etl_files_total", float64(delta), Labels{
		"job":   job,
		"table": table,
	})
}
