package tabular

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedEncoding is returned for any encoding other than CSV or
// Parquet.
var ErrUnsupportedEncoding = errors.New("unsupported encoding")

// Encoding identifies how a frame is serialized inside an object.
type Encoding string

const (
	// CSV is the row-oriented text encoding: comma separated, UTF-8, header row.
	CSV Encoding = "csv"
	// Parquet is the columnar binary encoding.
	Parquet Encoding = "parquet"
)

// ParseEncoding maps a configuration value onto an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case CSV:
		return CSV, nil
	case Parquet:
		return Parquet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedEncoding, s)
}

// Valid reports whether e is one of the supported encodings.
func (e Encoding) Valid() bool {
	return e == CSV || e == Parquet
}

// Decode parses data in the given encoding.
func Decode(enc Encoding, data []byte) (*Frame, error) {
	switch enc {
	case CSV:
		return decodeCSV(data)
	case Parquet:
		return decodeParquet(data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, string(enc))
}

// Encode serializes f in the given encoding.
func Encode(enc Encoding, f *Frame) ([]byte, error) {
	switch enc {
	case CSV:
		return encodeCSV(f)
	case Parquet:
		return encodeParquet(f)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, string(enc))
}
