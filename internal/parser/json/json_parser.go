// Package json turns newline-delimited JSON into records.Record maps.
//
// Input is read line by line, one object per line:
//
//	{"song_id":"SOAAA","title":"a"}
//	{"song_id":"SOBBB","title":"b"}
//
// Blank lines are ignored. A line that is not valid JSON, or whose top-level
// value is not an object, is skipped and counted as malformed; the decoder
// resumes at the next line. Numbers are kept as json.Number so the schema
// layer can decide integer versus floating point representation.
package json

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"datalake/pkg/records"
)

// MaxLineBytes bounds a single input line.
const MaxLineBytes = 16 << 20

// ErrMalformed is returned by Next for a line that could not be decoded into
// an object. The decoder stays usable.
var ErrMalformed = errors.New("json parser: malformed line")

// Decoder reads records from an NDJSON stream.
type Decoder struct {
	r    *bufio.Reader
	line int
}

// NewDecoder constructs a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64<<10)}
}

// Line returns the 1-based number of the last line consumed.
func (d *Decoder) Line() int { return d.line }

// Next returns the next record. io.EOF signals the end of the stream. An
// error wrapping ErrMalformed reports a skipped line; callers may continue.
func (d *Decoder) Next() (records.Record, error) {
	for {
		raw, err := d.readLine()
		if len(raw) == 0 && err != nil {
			return nil, err
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			if err != nil {
				return nil, err
			}
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if derr := dec.Decode(&v); derr != nil {
			return nil, fmt.Errorf("%w %d: %v", ErrMalformed, d.line, derr)
		}
		if dec.More() {
			return nil, fmt.Errorf("%w %d: trailing data after object", ErrMalformed, d.line)
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w %d: top-level %T is not an object", ErrMalformed, d.line, v)
		}
		return records.Record(m), nil
	}
}

func (d *Decoder) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := d.r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > MaxLineBytes {
			return nil, fmt.Errorf("json parser: line %d exceeds %d bytes", d.line+1, MaxLineBytes)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if len(buf) > 0 || err == nil {
			d.line++
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return buf, fmt.Errorf("json parser: read: %w", err)
		}
		return buf, err
	}
}

// Stats summarizes a DecodeAll call.
type Stats struct {
	Records   int
	Malformed int
}

// DecodeAll reads every record from r, skipping malformed lines. onMalformed,
// if non-nil, is called for each skipped line.
func DecodeAll(r io.Reader, onMalformed func(error)) ([]records.Record, Stats, error) {
	d := NewDecoder(r)
	var (
		out []records.Record
		st  Stats
	)
	for {
		rec, err := d.Next()
		switch {
		case err == nil:
			out = append(out, rec)
			st.Records++
		case errors.Is(err, io.EOF):
			return out, st, nil
		case errors.Is(err, ErrMalformed):
			st.Malformed++
			if onMalformed != nil {
				onMalformed(err)
			}
		default:
			return out, st, err
		}
	}
}
