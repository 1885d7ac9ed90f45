// Package records defines the dynamic record shape that flows between the
// parser, transformer and loader stages before rows are projected into typed
// tables.
package records

// Record is a single decoded object keyed by column name. A nil value (or a
// missing key) is a SQL NULL.
type Record map[string]any

// Partition is the set of records decoded from one input file. Index is the
// position of the file in the sorted input listing and seeds surrogate ids.
type Partition struct {
	Index   int
	Source  string
	Records []Record
}

// Count returns the total number of records across parts.
func Count(parts []Partition) int {
	n := 0
	for _, p := range parts {
		n += len(p.Records)
	}
	return n
}
