package prompush

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"datalake/internal/metrics"
)

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend("job", ""); err == nil {
		t.Fatalf("expected error for empty gateway URL")
	}
	b, err := NewBackend("", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.jobName != "etl" {
		t.Fatalf("jobName=%q, want default etl", b.jobName)
	}
}

func TestBackend_Counters(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("sparkify", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter("etl_records_total", 3, metrics.Labels{"kind": "read"})
	b.IncCounter("etl_records_total", 2, metrics.Labels{"kind": "read"})
	b.IncCounter("etl_files_total", 1, metrics.Labels{"table": "songs_table"})
	b.IncCounter("etl_step_total", 1, metrics.Labels{"step": "load", "status": "success"})
	b.IncCounter("unknown_metric", 1, nil)
	b.ObserveHistogram("etl_step_duration_seconds", 0.25, metrics.Labels{"step": "load", "status": "success"})
	b.ObserveHistogram("other", 1, nil)

	if got := testutil.ToFloat64(b.recordCounter.WithLabelValues("read")); got != 5 {
		t.Fatalf("records{kind=read}=%v, want 5", got)
	}
	if got := testutil.ToFloat64(b.fileCounter.WithLabelValues("songs_table")); got != 1 {
		t.Fatalf("files{table=songs_table}=%v, want 1", got)
	}
	if got := testutil.ToFloat64(b.stepCounter.WithLabelValues("load", "success")); got != 1 {
		t.Fatalf("steps=%v, want 1", got)
	}
	if n := testutil.CollectAndCount(b.stepDuration); n != 1 {
		t.Fatalf("summary series=%d, want 1", n)
	}
}

func TestBackend_FlushPushesToGateway(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("sparkify", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter("etl_records_total", 1, metrics.Labels{"kind": "written"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 1 || !strings.HasPrefix(paths[0], "PUT /metrics/job/sparkify") {
		t.Fatalf("pushes=%v", paths)
	}
}
