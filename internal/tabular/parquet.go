package tabular

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// rowBatch is the number of rows read from a row group per call.
const rowBatch = 256

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// decodeParquet reads every row group of a flat Parquet file. Nested column
// paths are joined with ".".
func decodeParquet(data []byte) (*Frame, error) {
	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening parquet: %w", err)
	}

	paths := file.Schema().Columns()
	columns := make([]string, len(paths))
	for i, p := range paths {
		columns[i] = strings.Join(p, ".")
	}

	f := NewFrame(columns...)
	buf := make([]parquet.Row, rowBatch)
	for _, rg := range file.RowGroups() {
		if err := readRowGroup(rg, buf, f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func readRowGroup(rg parquet.RowGroup, buf []parquet.Row, f *Frame) error {
	rows := rg.Rows()
	defer rows.Close()

	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			cells := make([]any, len(f.Columns))
			for _, v := range row {
				if col := v.Column(); col >= 0 && col < len(cells) {
					cells[col] = cellOf(v)
				}
			}
			f.Rows = append(f.Rows, cells)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading parquet rows: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

// cellOf converts a Parquet value into a frame cell.
func cellOf(v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return v.String()
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

var (
	stringType  = reflect.TypeOf("")
	float64Type = reflect.TypeOf(float64(0))
	int64Type   = reflect.TypeOf(int64(0))
	boolType    = reflect.TypeOf(false)
)

// encodeParquet writes f with one optional column per frame column, in frame
// order. Column types are inferred from the first non-null cell; all-null
// columns are written as strings.
func encodeParquet(f *Frame) ([]byte, error) {
	if len(f.Columns) == 0 {
		return nil, errors.New("encoding parquet: frame has no columns")
	}

	types, err := columnTypes(f)
	if err != nil {
		return nil, err
	}

	fields := make([]reflect.StructField, len(f.Columns))
	for i, name := range f.Columns {
		fields[i] = reflect.StructField{
			Name: "C" + strconv.Itoa(i),
			Type: reflect.PointerTo(types[i]),
			Tag:  reflect.StructTag("parquet:" + strconv.Quote(name)),
		}
	}
	rowType := reflect.StructOf(fields)
	schema := parquet.SchemaOf(reflect.New(rowType).Elem().Interface())

	var buf bytes.Buffer
	w := parquet.NewWriter(&buf, schema)
	for r, cells := range f.Rows {
		row := reflect.New(rowType).Elem()
		for i := range f.Columns {
			if i >= len(cells) || cells[i] == nil {
				continue
			}
			v, err := convertCell(cells[i], types[i])
			if err != nil {
				return nil, fmt.Errorf("encoding parquet row %d column %q: %w", r, f.Columns[i], err)
			}
			ptr := reflect.New(types[i])
			ptr.Elem().Set(v)
			row.Field(i).Set(ptr)
		}
		if err := w.Write(row.Interface()); err != nil {
			return nil, fmt.Errorf("writing parquet row %d: %w", r, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func columnTypes(f *Frame) ([]reflect.Type, error) {
	types := make([]reflect.Type, len(f.Columns))
	for i, name := range f.Columns {
		for _, row := range f.Rows {
			if i >= len(row) || row[i] == nil {
				continue
			}
			t, err := storageType(row[i])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			types[i] = t
			break
		}
		if types[i] == nil {
			types[i] = stringType
		}
	}
	return types, nil
}

func storageType(v any) (reflect.Type, error) {
	switch v.(type) {
	case string:
		return stringType, nil
	case float64, float32:
		return float64Type, nil
	case int64, int32, int:
		return int64Type, nil
	case bool:
		return boolType, nil
	}
	return nil, fmt.Errorf("unsupported cell type %T", v)
}

func convertCell(v any, t reflect.Type) (reflect.Value, error) {
	switch t {
	case stringType:
		if s, ok := v.(string); ok {
			return reflect.ValueOf(s), nil
		}
	case float64Type:
		switch x := v.(type) {
		case float64:
			return reflect.ValueOf(x), nil
		case float32:
			return reflect.ValueOf(float64(x)), nil
		case int64:
			return reflect.ValueOf(float64(x)), nil
		case int32:
			return reflect.ValueOf(float64(x)), nil
		case int:
			return reflect.ValueOf(float64(x)), nil
		}
	case int64Type:
		switch x := v.(type) {
		case int64:
			return reflect.ValueOf(x), nil
		case int32:
			return reflect.ValueOf(int64(x)), nil
		case int:
			return reflect.ValueOf(int64(x)), nil
		}
	case boolType:
		if b, ok := v.(bool); ok {
			return reflect.ValueOf(b), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("cell %v (%T) does not match column type %s", v, v, t)
}
