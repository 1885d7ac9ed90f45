// Package builtin contains the reusable record transformers used by the
// pipelines: schema coercion, required-field enforcement, renaming,
// predicate filtering and full-row de-duplication.
package builtin

import (
	"datalake/internal/schema"
	"datalake/pkg/records"
)

// Coerce projects every record onto Schema (see schema.Struct.Coerce).
// OnNulled, if set, receives the number of fields nulled per batch.
type Coerce struct {
	Schema   schema.Struct
	OnNulled func(n int)
}

func (c Coerce) Apply(in []records.Record) []records.Record {
	nulled := 0
	for i, r := range in {
		out, bad := c.Schema.Coerce(r)
		in[i] = out
		nulled += bad
	}
	if c.OnNulled != nil && nulled > 0 {
		c.OnNulled(nulled)
	}
	return in
}
