package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeCSV reads a header row followed by data rows. Empty fields are null;
// everything else is kept as a string.
func decodeCSV(data []byte) (*Frame, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return NewFrame(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	f := NewFrame(header...)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", len(f.Rows)+1, err)
		}
		row := make([]any, len(record))
		for i, field := range record {
			if field != "" {
				row[i] = field
			}
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

func encodeCSV(f *Frame) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(f.Columns); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	record := make([]string, len(f.Columns))
	for _, row := range f.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = formatCell(row[i])
			}
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}
