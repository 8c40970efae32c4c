package strata

import (
	"bufio"
	"fmt"
	"io"
)

const maxScanTokenSize = 1024 * 1024 // 1MB

// -----------------------------------------------------------------------------
// JSONL Codec
// -----------------------------------------------------------------------------

// jsonlCodec implements Codec using JSON Lines format.
type jsonlCodec struct{}

// NewJSONLCodec creates a JSONL (JSON Lines) manifest codec.
//
// Each row is serialized as a single line of JSON.
func NewJSONLCodec() Codec {
	return &jsonlCodec{}
}

func (j *jsonlCodec) Name() string {
	return "jsonl"
}

func (j *jsonlCodec) Encode(w io.Writer, rows []ManifestRow) error {
	enc := jsonCodec.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

func (j *jsonlCodec) Decode(r io.Reader) ([]ManifestRow, error) {
	var rows []ManifestRow
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var row ManifestRow
		if err := jsonCodec.Unmarshal(b, &row); err != nil {
			return nil, fmt.Errorf("jsonl: line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// CodecByName returns the manifest codec with the given name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "jsonl", "":
		return NewJSONLCodec(), nil
	case "parquet":
		return NewParquetCodec(), nil
	default:
		return nil, fmt.Errorf("strata: unknown codec %q", name)
	}
}
