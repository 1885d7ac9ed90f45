package etl

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"datalake/pkg/records"
)

func spanFrom(ctx context.Context) trace.Span {
	s := trace.SpanFromContext(ctx)
	if !s.IsRecording() {
		return nil
	}
	return s
}

// Typed accessors over coerced records. A missing key, nil, or a value of
// another type reads as nil.

func str(r records.Record, k string) *string {
	if v, ok := r[k].(string); ok {
		return &v
	}
	return nil
}

func i32(r records.Record, k string) *int32 {
	if v, ok := r[k].(int32); ok {
		return &v
	}
	return nil
}

func i64(r records.Record, k string) *int64 {
	if v, ok := r[k].(int64); ok {
		return &v
	}
	return nil
}

func f64(r records.Record, k string) *float64 {
	if v, ok := r[k].(float64); ok {
		return &v
	}
	return nil
}

// deref turns an optional value into a key component; nil stays nil.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func rows[T interface{ Row() []any }](in []T) [][]any {
	out := make([][]any, len(in))
	for i, v := range in {
		out[i] = v.Row()
	}
	return out
}
