// Package transformer defines the record-level transformation contract used
// between decoding and typed projection.
package transformer

import "datalake/pkg/records"

// Transformer maps a batch of records to a new batch. Filters return a fresh
// slice; rewriting transformers (Coerce, Rename) update records in place.
type Transformer interface {
	Apply([]records.Record) []records.Record
}

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in []records.Record) []records.Record {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}

// ApplyPartitions runs t over every partition independently, keeping
// partition boundaries and indexes.
func ApplyPartitions(t Transformer, parts []records.Partition) []records.Partition {
	out := make([]records.Partition, len(parts))
	for i, p := range parts {
		out[i] = records.Partition{Index: p.Index, Source: p.Source, Records: t.Apply(p.Records)}
	}
	return out
}
