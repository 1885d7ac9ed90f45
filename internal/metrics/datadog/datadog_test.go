package datadog

import (
	"reflect"
	"testing"

	"datalake/internal/metrics"
)

type call struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	calls  []call
	closed bool
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"histogram", name, value, tags})
	return nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()
	if _, err := NewBackend(Config{}); err == nil {
		t.Fatalf("expected error for empty Addr")
	}
}

func TestBackend_Forwarding(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := &Backend{client: fc}

	b.IncCounter("etl_records_total", 4, metrics.Labels{"kind": "read", "job": "sparkify"})
	b.ObserveHistogram("etl_step_duration_seconds", 1.5, metrics.Labels{"step": "load"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := []call{
		{"count", "etl_records_total", 4, []string{"job:sparkify", "kind:read"}},
		{"histogram", "etl_step_duration_seconds", 1.5, []string{"step:load"}},
	}
	if !reflect.DeepEqual(fc.calls, want) {
		t.Fatalf("calls=%#v\nwant %#v", fc.calls, want)
	}
	if !fc.closed {
		t.Fatalf("Flush should close the client")
	}
}

func TestLabelsToTags_Empty(t *testing.T) {
	t.Parallel()
	if got := labelsToTags(nil); got != nil {
		t.Fatalf("labelsToTags(nil)=%v", got)
	}
}
