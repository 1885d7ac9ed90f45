package etl

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"datalake/internal/schema"
	"datalake/internal/session"
	"datalake/internal/storage"
	"datalake/pkg/records"
)

// showTruncate is the width beyond which cell text is cut with "...".
const showTruncate = 20

// Show prints the first n rows of t as a bordered text table:
//
//	+-------+-----+
//	|song_id|title|
//	+-------+-----+
//	|    SOA|  abc|
//	+-------+-----+
//	only showing top 1 row
//
// Cells are right-aligned and NULL prints as "null". Timestamps are
// rendered in loc.
func Show(w io.Writer, t storage.Table, n int, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	names := t.Schema.Names()
	shown := t.Rows
	if n >= 0 && len(shown) > n {
		shown = shown[:n]
	}

	cells := make([][]string, len(shown))
	widths := make([]int, len(names))
	for i, name := range names {
		widths[i] = max(3, utf8.RuneCountInString(name))
	}
	for r, row := range shown {
		cells[r] = make([]string, len(names))
		for i := range names {
			s := cell(row[i], loc)
			cells[r][i] = s
			widths[i] = max(widths[i], utf8.RuneCountInString(s))
		}
	}

	var b strings.Builder
	sep := separator(widths)
	b.WriteString(sep)
	writeLine(&b, names, widths)
	b.WriteString(sep)
	for _, row := range cells {
		writeLine(&b, row, widths)
	}
	b.WriteString(sep)
	if len(t.Rows) > len(shown) {
		unit := "rows"
		if len(shown) == 1 {
			unit = "row"
		}
		fmt.Fprintf(&b, "only showing top %d %s\n", len(shown), unit)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func separator(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	return b.String()
}

func writeLine(b *strings.Builder, vals []string, widths []int) {
	b.WriteByte('|')
	for i, v := range vals {
		b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(v)))
		b.WriteString(v)
		b.WriteByte('|')
	}
	b.WriteByte('\n')
}

func cell(v any, loc *time.Location) string {
	var s string
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		s = x
	case float64:
		s = formatDouble(x)
	case time.Time:
		s = x.In(loc).Format("2006-01-02 15:04:05")
	default:
		s = fmt.Sprint(x)
	}
	if utf8.RuneCountInString(s) > showTruncate {
		r := []rune(s)
		s = string(r[:showTruncate-3]) + "..."
	}
	return s
}

func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// preview prints the schema and first n records of freshly loaded input when
// previews are enabled.
func preview(sess *session.Session, s schema.Struct, parts []records.Partition, n int) error {
	if sess.Job.ShowRows() <= 0 || sess.Out == nil {
		return nil
	}
	t := storage.Table{Name: "input", Schema: s}
	for _, p := range parts {
		for _, r := range p.Records {
			if len(t.Rows) > n {
				break
			}
			row := make([]any, len(s.Fields))
			for i, f := range s.Fields {
				row[i] = r[f.Name]
			}
			t.Rows = append(t.Rows, row)
		}
	}
	if err := Show(sess.Out, t, n, sess.Location); err != nil {
		return err
	}
	_, err := io.WriteString(sess.Out, s.String()+"\n")
	return err
}
