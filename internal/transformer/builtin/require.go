package builtin

import "datalake/pkg/records"

// Require removes records with a missing or nil value in any of Fields.
// Empty strings are kept: they are values, not NULLs. The input slice is left
// intact.
type Require struct {
	Fields []string
	// OnDropped, if set, receives the number of records removed per batch.
	OnDropped func(n int)
}

func (r Require) Apply(in []records.Record) []records.Record {
	out := make([]records.Record, 0, len(in))
	for _, rec := range in {
		ok := true
		for _, f := range r.Fields {
			if v, exists := rec[f]; !exists || v == nil {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	if dropped := len(in) - len(out); dropped > 0 && r.OnDropped != nil {
		r.OnDropped(dropped)
	}
	return out
}
