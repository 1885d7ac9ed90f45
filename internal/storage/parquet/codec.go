package parquet

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/buffer"
	goparquet "github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"datalake/internal/schema"
)

// parallelism handed to the parquet-go reader and writer.
const parallelism = 4

// columnTag returns the parquet-go metadata tag for f. Every column is
// written OPTIONAL so NULLs round-trip.
func columnTag(f schema.Field) (string, error) {
	var typ string
	switch f.Type {
	case schema.String:
		typ = "type=BYTE_ARRAY, convertedtype=UTF8"
	case schema.Integer:
		typ = "type=INT32"
	case schema.Long:
		typ = "type=INT64"
	case schema.Double:
		typ = "type=DOUBLE"
	case schema.Timestamp:
		typ = "type=INT64, convertedtype=TIMESTAMP_MILLIS"
	default:
		return "", fmt.Errorf("parquet: column %s: unsupported type %s", f.Name, f.Type)
	}
	return fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", f.Name, typ), nil
}

func metadata(s schema.Struct) ([]string, error) {
	md := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		tag, err := columnTag(f)
		if err != nil {
			return nil, err
		}
		md[i] = tag
	}
	return md, nil
}

// physical converts v to the Go type parquet-go expects for column type t.
func physical(v any, t schema.Type) (any, error) {
	if v == nil {
		return nil, nil
	}
	cv, ok := schema.Convert(v, t)
	if !ok {
		return nil, fmt.Errorf("value %v (%T) is not a %s", v, v, t)
	}
	if ts, ok := cv.(time.Time); ok {
		return ts.UnixMilli(), nil
	}
	return cv, nil
}

// encode writes rows (already projected onto s) as one snappy-compressed
// parquet file and returns its bytes.
func encode(s schema.Struct, rows [][]any) ([]byte, error) {
	md, err := metadata(s)
	if err != nil {
		return nil, err
	}
	fw := buffer.NewBufferFile()
	pw, err := writer.NewCSVWriter(md, fw, parallelism)
	if err != nil {
		return nil, fmt.Errorf("parquet: new writer: %w", err)
	}
	pw.CompressionType = goparquet.CompressionCodec_SNAPPY

	rec := make([]any, len(s.Fields))
	for i, r := range rows {
		for j, f := range s.Fields {
			v, err := physical(r[j], f.Type)
			if err != nil {
				return nil, fmt.Errorf("parquet: row %d column %s: %w", i, f.Name, err)
			}
			rec[j] = v
		}
		// Write keeps a reference until the row group is flushed.
		if err := pw.Write(append([]any(nil), rec...)); err != nil {
			return nil, fmt.Errorf("parquet: write row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("parquet: finish: %w", err)
	}
	return fw.Bytes(), nil
}

// decoded is the content of one parquet file: column names in file order
// and the row values as plain Go values (nil for NULL).
type decoded struct {
	Columns []string
	Rows    [][]any
}

func decode(data []byte) (decoded, error) {
	fr := buffer.NewBufferFileFromBytes(data)
	pr, err := reader.NewParquetReader(fr, nil, parallelism)
	if err != nil {
		return decoded{}, fmt.Errorf("parquet: open reader: %w", err)
	}
	defer pr.ReadStop()

	var out decoded
	for _, info := range pr.SchemaHandler.Infos[1:] {
		out.Columns = append(out.Columns, info.ExName)
	}

	n := int(pr.GetNumRows())
	if n == 0 {
		return out, nil
	}
	objs, err := pr.ReadByNumber(n)
	if err != nil {
		return decoded{}, fmt.Errorf("parquet: read: %w", err)
	}
	out.Rows = make([][]any, 0, len(objs))
	for _, o := range objs {
		v := reflect.ValueOf(o)
		if v.Kind() == reflect.Ptr {
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return decoded{}, fmt.Errorf("parquet: unexpected row type %T", o)
		}
		row := make([]any, v.NumField())
		for i := range row {
			f := v.Field(i)
			if f.Kind() == reflect.Ptr {
				if f.IsNil() {
					continue
				}
				f = f.Elem()
			}
			row[i] = f.Interface()
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// columnIndex finds name among the file columns. parquet-go may report
// names with an upper-cased first letter, so the match is case-insensitive
// as a fallback.
func (d decoded) columnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	for i, c := range d.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}
