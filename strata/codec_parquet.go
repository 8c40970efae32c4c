package strata

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// ErrInvalidFormat indicates manifest data that is not a readable Parquet
// file.
var ErrInvalidFormat = errors.New("invalid format")

// ParquetCompression specifies internal Parquet compression.
type ParquetCompression int

// Parquet compression options for internal file compression.
const (
	ParquetCompressionNone ParquetCompression = iota
	ParquetCompressionSnappy
	ParquetCompressionGzip
)

// ParquetOption configures Parquet codec behavior.
type ParquetOption func(*parquetCodec)

// WithParquetCompression sets internal Parquet compression.
func WithParquetCompression(codec ParquetCompression) ParquetOption {
	return func(c *parquetCodec) {
		c.compression = codec
	}
}

// manifest columns; parquet groups order their fields by name.
const (
	colBatchID    = "batch_id"
	colDescriptor = "descriptor"
	colPath       = "path"
)

// parquetCodec implements Codec for Apache Parquet manifests.
type parquetCodec struct {
	compression ParquetCompression
	schema      *parquet.Schema
	columns     map[string]int
}

// NewParquetCodec creates a Parquet manifest codec. Rows are written as a
// single row group with Snappy compression unless configured otherwise.
func NewParquetCodec(opts ...ParquetOption) Codec {
	c := &parquetCodec{compression: ParquetCompressionSnappy}
	for _, opt := range opts {
		opt(c)
	}
	c.schema = parquet.NewSchema("manifest", parquet.Group{
		colBatchID:    parquet.String(),
		colDescriptor: parquet.Int(64),
		colPath:       parquet.String(),
	})
	c.columns = make(map[string]int, 3)
	for i, f := range c.schema.Fields() {
		c.columns[f.Name()] = i
	}
	return c
}

func (c *parquetCodec) Name() string {
	return "parquet"
}

func (c *parquetCodec) Encode(w io.Writer, rows []ManifestRow) error {
	var buf bytes.Buffer

	rowBuf := parquet.NewBuffer(c.schema)
	for i, r := range rows {
		if _, err := rowBuf.WriteRows([]parquet.Row{c.toRow(r)}); err != nil {
			return fmt.Errorf("parquet: write row %d: %w", i, err)
		}
	}

	pqWriter := parquet.NewWriter(&buf, c.schema, c.compressionOption())
	if _, err := pqWriter.WriteRowGroup(rowBuf); err != nil {
		_ = pqWriter.Close()
		return fmt.Errorf("parquet: write row group: %w", err)
	}
	if err := pqWriter.Close(); err != nil {
		return fmt.Errorf("parquet: close writer: %w", err)
	}

	_, err := io.Copy(w, &buf)
	return err
}

func (c *parquetCodec) Decode(r io.Reader) ([]ManifestRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("parquet: read file: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrInvalidFormat
	}

	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if file.NumRows() == 0 {
		return []ManifestRow{}, nil
	}

	reader := parquet.NewReader(file)
	defer func() { _ = reader.Close() }()

	out := make([]ManifestRow, 0, file.NumRows())
	buf := make([]parquet.Row, 128)
	for {
		n, err := reader.ReadRows(buf)
		for i := 0; i < n; i++ {
			out = append(out, c.fromRow(buf[i]))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: read rows: %w", ErrInvalidFormat, err)
		}
	}
	return out, nil
}

func (c *parquetCodec) toRow(r ManifestRow) parquet.Row {
	row := make(parquet.Row, len(c.columns))
	set := func(name string, v parquet.Value) {
		i := c.columns[name]
		row[i] = v.Level(0, 0, i)
	}
	set(colBatchID, parquet.ByteArrayValue([]byte(r.BatchID)))
	set(colDescriptor, parquet.Int64Value(int64(r.Descriptor)))
	set(colPath, parquet.ByteArrayValue([]byte(r.Path)))
	return row
}

func (c *parquetCodec) fromRow(row parquet.Row) ManifestRow {
	get := func(name string) parquet.Value {
		if i := c.columns[name]; i < len(row) {
			return row[i]
		}
		return parquet.Value{}
	}
	return ManifestRow{
		BatchID:    string(get(colBatchID).ByteArray()),
		Descriptor: int(get(colDescriptor).Int64()),
		Path:       string(get(colPath).ByteArray()),
	}
}

func (c *parquetCodec) compressionOption() parquet.WriterOption {
	switch c.compression {
	case ParquetCompressionSnappy:
		return parquet.Compression(&parquet.Snappy)
	case ParquetCompressionGzip:
		return parquet.Compression(&parquet.Gzip)
	default:
		return parquet.Compression(&parquet.Uncompressed)
	}
}
