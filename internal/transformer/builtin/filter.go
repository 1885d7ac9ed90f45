package builtin

import "datalake/pkg/records"

// Equals keeps records whose Field holds exactly the string Value. Records
// with a nil or non-string value are removed. The input slice is left intact.
type Equals struct {
	Field string
	Value string
}

func (e Equals) Apply(in []records.Record) []records.Record {
	out := make([]records.Record, 0, len(in))
	for _, r := range in {
		if s, ok := r[e.Field].(string); ok && s == e.Value {
			out = append(out, r)
		}
	}
	return out
}
