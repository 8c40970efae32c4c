package strata

import (
	"fmt"
	"io"
)

// ManifestRow is one resolved path of a batch, written for downstream
// packagers that must not receive paths on a command line.
type ManifestRow struct {
	BatchID    string `json:"batch_id"`
	Descriptor int    `json:"descriptor"`
	Path       string `json:"path"`
}

// ManifestRows flattens a batch into rows in descriptor order. Skipped
// descriptors contribute no rows. A batch with a placeholder yields only the
// placeholder row.
func ManifestRows(b BatchResult) []ManifestRow {
	if b.Placeholder != "" {
		return []ManifestRow{{BatchID: b.BatchID, Path: b.Placeholder}}
	}
	var rows []ManifestRow
	for _, s := range b.Statuses {
		if s.Skipped() {
			continue
		}
		for _, p := range s.Result.Paths {
			rows = append(rows, ManifestRow{BatchID: b.BatchID, Descriptor: s.Index, Path: p})
		}
	}
	return rows
}

// WriteManifest encodes the rows of b with codec through compressor.
func WriteManifest(w io.Writer, b BatchResult, codec Codec, compressor Compressor) error {
	cw, err := compressor.Compress(w)
	if err != nil {
		return fmt.Errorf("strata: manifest: %s compressor: %w", compressor.Name(), err)
	}
	if err := codec.Encode(cw, ManifestRows(b)); err != nil {
		_ = cw.Close()
		return fmt.Errorf("strata: manifest: encode %s: %w", codec.Name(), err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("strata: manifest: close %s: %w", compressor.Name(), err)
	}
	return nil
}

// ReadManifest decodes rows written by WriteManifest.
func ReadManifest(r io.Reader, codec Codec, compressor Compressor) ([]ManifestRow, error) {
	cr, err := compressor.Decompress(r)
	if err != nil {
		return nil, fmt.Errorf("strata: manifest: %s decompressor: %w", compressor.Name(), err)
	}
	defer closer(cr)()

	rows, err := codec.Decode(cr)
	if err != nil {
		return nil, fmt.Errorf("strata: manifest: decode %s: %w", codec.Name(), err)
	}
	return rows, nil
}

// ManifestName returns the conventional file name of a batch manifest.
func ManifestName(b BatchResult, codec Codec, compressor Compressor) string {
	return "manifest-" + b.BatchID + "." + codec.Name() + compressor.Extension()
}

// closer returns a function that closes c, discarding the error.
func closer(c io.Closer) func() {
	return func() { _ = c.Close() }
}
