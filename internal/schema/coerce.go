package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"datalake/pkg/records"
)

// Convert coerces v to the Go representation of t:
//
//	String    -> string
//	Integer   -> int32
//	Long      -> int64
//	Double    -> float64
//	Timestamp -> time.Time (UTC)
//
// The boolean result is false when a non-nil value could not be represented
// and was replaced with nil. A nil input is a valid NULL and reports true.
func Convert(v any, t Type) (any, bool) {
	if v == nil {
		return nil, true
	}
	var (
		out any
		ok  bool
	)
	switch t {
	case String:
		out, ok = toString(v)
	case Integer:
		var n int64
		n, ok = toInt(v, math.MinInt32, math.MaxInt32)
		out = int32(n)
	case Long:
		out, ok = toInt(v, math.MinInt64, math.MaxInt64)
	case Double:
		out, ok = toFloat(v)
	case Timestamp:
		out, ok = toTime(v)
	}
	if !ok {
		return nil, false
	}
	return out, true
}

// Coerce projects rec onto s: declared fields are converted with Convert,
// undeclared keys are dropped and missing keys become nil. It returns the new
// record and the number of fields that were nulled by a failed conversion.
func (s Struct) Coerce(rec records.Record) (records.Record, int) {
	out := make(records.Record, len(s.Fields))
	bad := 0
	for _, f := range s.Fields {
		v, ok := Convert(rec[f.Name], f.Type)
		if !ok {
			bad++
		}
		out[f.Name] = v
	}
	return out, bad
}

func toString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case time.Time:
		return x.Format(time.RFC3339), true
	case []byte:
		return string(x), true
	case map[string]any, []any:
		// Nested values keep their raw JSON text.
		b, err := json.Marshal(x)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
	return "", false
}

func toInt(v any, lo, hi int64) (int64, bool) {
	var n int64
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, false
		}
		n = i
	case int32:
		n = int64(x)
	case int64:
		n = x
	case int:
		n = int64(x)
	case float64:
		if x != math.Trunc(x) || x < float64(lo) || x > float64(hi) {
			return 0, false
		}
		n = int64(x)
	default:
		return 0, false
	}
	if n < lo || n > hi {
		return 0, false
	}
	return n, true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		switch strings.TrimSpace(x) {
		case "NaN":
			return math.NaN(), true
		case "Infinity", "+Infinity", "Inf", "+Inf":
			return math.Inf(1), true
		case "-Infinity", "-Inf":
			return math.Inf(-1), true
		}
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), true
	case int64:
		return time.UnixMilli(x).UTC(), true
	case json.Number:
		ms, err := x.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	case float64:
		if x != math.Trunc(x) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(x)).UTC(), true
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, x); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
