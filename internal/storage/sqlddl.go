package storage

import (
	"fmt"
	"strings"

	"datalake/internal/schema"
)

// Dialect describes how a SQL backend quotes identifiers and names column
// types.
type Dialect struct {
	Quote    func(ident string) string
	TypeName func(t schema.Type) string
}

// QuoteList quotes every name in cols.
func (d Dialect) QuoteList(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.Quote(c)
	}
	return out
}

// CreateTable renders a CREATE TABLE statement for s. table must already be
// quoted.
func (d Dialect) CreateTable(table string, s schema.Struct) string {
	defs := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		null := " NULL"
		if !f.Nullable {
			null = " NOT NULL"
		}
		defs[i] = d.Quote(f.Name) + " " + d.TypeName(f.Type) + null
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", table, strings.Join(defs, ",\n  "))
}

// CreatePartitionIndex renders an index over the partition columns of t, or
// "" when t is unpartitioned. table must already be quoted.
func (d Dialect) CreatePartitionIndex(table string, t Table) string {
	if len(t.PartitionBy) == 0 {
		return ""
	}
	name := t.Name + "_" + strings.Join(t.PartitionBy, "_") + "_idx"
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)", d.Quote(name), table, strings.Join(d.QuoteList(t.PartitionBy), ", "))
}

// Select renders a SELECT of the columns of s from table.
func (d Dialect) Select(table string, s schema.Struct) string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(d.QuoteList(s.Names()), ", "), table)
}

// ConvertRow converts raw driver values to the column types of s. Values
// the column type cannot hold become NULL.
func ConvertRow(raw []any, s schema.Struct) []any {
	out := make([]any, len(s.Fields))
	for i, f := range s.Fields {
		if raw[i] == nil {
			continue
		}
		if v, ok := schema.Convert(raw[i], f.Type); ok {
			out[i] = v
		}
	}
	return out
}
