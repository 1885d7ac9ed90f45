// Package schema declares the column types and record schemas used by the
// loaders and table writers, together with the lenient value coercion applied
// when raw JSON records are read against a schema.
//
// Coercion never rejects a record: a value that cannot be represented in the
// declared type becomes nil (NULL) for that field only. Whether a record with
// a NULL in a non-nullable field survives is decided later by a Require
// transformer, so both behaviours stay visible in the pipeline definition.
package schema

import (
	"fmt"
	"strings"
)

// Type is a column type.
type Type int

const (
	String Type = iota + 1
	// Integer is a 32-bit signed integer.
	Integer
	// Long is a 64-bit signed integer.
	Long
	Double
	// Timestamp is an instant with second precision or finer, stored in
	// columnar files as milliseconds since the Unix epoch.
	Timestamp
)

var typeNames = map[Type]string{
	String:    "string",
	Integer:   "integer",
	Long:      "long",
	Double:    "double",
	Timestamp: "timestamp",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Field is a named, typed column.
type Field struct {
	Name     string
	Type     Type
	Nullable bool
}

// Struct is an ordered list of fields.
type Struct struct {
	Fields []Field
}

// NewStruct builds a Struct from fields.
func NewStruct(fields ...Field) Struct {
	return Struct{Fields: fields}
}

// Names returns the field names in declaration order.
func (s Struct) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Lookup returns the field named name.
func (s Struct) Lookup(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Required returns the names of the non-nullable fields.
func (s Struct) Required() []string {
	var out []string
	for _, f := range s.Fields {
		if !f.Nullable {
			out = append(out, f.Name)
		}
	}
	return out
}

// String renders s as an indented tree in the style of a dataframe
// printSchema call.
func (s Struct) String() string {
	var b strings.Builder
	b.WriteString("root\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, " |-- %s: %s (nullable = %t)\n", f.Name, f.Type, f.Nullable)
	}
	return b.String()
}
