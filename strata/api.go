// Package strata resolves dataset queries against a date-partitioned archive
// of raster and tabular files.
//
// Strata answers two questions for a caller: which stored files satisfy a
// dataset descriptor and date range, and whether the answer can be expressed
// as a small set of directory paths instead of a flat file list. It never
// reads file contents and keeps no index; every call re-walks the relevant
// part of the archive.
package strata

import (
	"context"
	"errors"
	"io"
)

// -----------------------------------------------------------------------------
// Archive interface
// -----------------------------------------------------------------------------

// EntryKind classifies a directory entry.
type EntryKind int

const (
	// KindOther covers symbolic links, devices, sockets and anything else
	// that is neither a regular file nor a directory.
	KindOther EntryKind = iota

	// KindFile is a regular file.
	KindFile

	// KindDir is a directory.
	KindDir
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "other"
	}
}

// Entry is a single named child of an archive directory.
type Entry struct {
	// Name is the base name of the entry.
	Name string

	// Kind classifies the entry without following symbolic links.
	Kind EntryKind
}

// Archive abstracts the read-only view of a date-partitioned file tree.
//
// Paths are slash-separated and relative to the archive root; the empty
// path names the root itself. Implementations must be safe for concurrent
// use. Strata never writes, renames or deletes through an Archive.
type Archive interface {
	// ReadDir lists the immediate children of dir in listing order.
	// Returns ErrNotFound if dir does not exist.
	ReadDir(ctx context.Context, dir string) ([]Entry, error)

	// Stat describes the entry at p without following symbolic links.
	// Returns ErrNotFound if p does not exist.
	Stat(ctx context.Context, p string) (Entry, error)
}

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// PathResult is the resolved answer for one descriptor or one tree walk.
type PathResult struct {
	// Paths lists matching files, or directories whose whole subtree matched.
	Paths []string `json:"paths"`

	// NumFiles counts every matching file, including files behind collapsed
	// directory paths.
	NumFiles int `json:"numFiles"`

	// Collapsed reports that the walked root was fully covered.
	Collapsed bool `json:"collapse"`
}

// DescriptorStatus records the outcome of resolving one descriptor.
type DescriptorStatus struct {
	// Index is the position of the descriptor in the batch.
	Index int `json:"index"`

	// Result holds the descriptor's paths when it resolved.
	Result PathResult `json:"result"`

	// Skip is non-nil when the descriptor contributed nothing because it
	// failed. The aggregate batch result never includes skipped work.
	Skip error `json:"-"`

	// Reason is the text of Skip, empty for resolved descriptors.
	Reason string `json:"skip,omitempty"`
}

// Skipped reports whether the descriptor failed to resolve.
func (s DescriptorStatus) Skipped() bool { return s.Skip != nil }

// BatchResult aggregates the resolution of a batch of descriptors.
type BatchResult struct {
	// BatchID correlates log events for this batch.
	BatchID string `json:"batchId"`

	// Root is the archive root that Paths are relative to.
	Root string `json:"root"`

	// NumFiles is the total file count over every resolved descriptor.
	NumFiles int `json:"numFiles"`

	// Paths concatenates the resolved paths in descriptor order.
	Paths []string `json:"paths"`

	// Placeholder is the stand-in path reported for an empty batch.
	Placeholder string `json:"placeholder,omitempty"`

	// Statuses holds one entry per descriptor, in batch order.
	Statuses []DescriptorStatus `json:"statuses"`
}

// UsePlaceholder reports p as the only path of the batch. Manifests of the
// batch then hold a single row for p attributed to the first descriptor.
func (b *BatchResult) UsePlaceholder(p string) {
	b.Paths = []string{p}
	b.Placeholder = p
}

// -----------------------------------------------------------------------------
// Codec interface
// -----------------------------------------------------------------------------

// Codec serializes manifest rows.
//
// Codecs are pluggable and orthogonal to compression.
type Codec interface {
	// Name returns the codec identifier (for example, "jsonl" or "parquet").
	Name() string

	// Encode writes rows to the given writer.
	Encode(w io.Writer, rows []ManifestRow) error

	// Decode reads rows from the given reader.
	Decode(r io.Reader) ([]ManifestRow, error)
}

// -----------------------------------------------------------------------------
// Compressor interface
// -----------------------------------------------------------------------------

// Compressor handles compression and decompression of manifest streams.
type Compressor interface {
	// Name returns the compressor identifier (for example, "gzip", "zstd", "noop").
	Name() string

	// Extension returns the file extension (for example, ".gz", ".zst", "").
	Extension() string

	// Compress wraps a writer with compression.
	Compress(w io.Writer) (io.WriteCloser, error)

	// Decompress wraps a reader with decompression.
	Decompress(r io.Reader) (io.ReadCloser, error)
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// Error sentinel values for common conditions.
var (
	// ErrNotFound indicates a requested archive path does not exist.
	ErrNotFound = errNotFound{}

	// ErrInvalidPath indicates a path that would escape the archive root.
	ErrInvalidPath = errors.New("invalid path: escapes archive root")

	// ErrInvalidPeriod indicates a period that is not a calendar granularity
	// supported by the operation.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidDate indicates a date that cannot be parsed or lies outside
	// the calendar.
	ErrInvalidDate = errors.New("invalid date")

	// ErrUnknownFileType indicates a file-type tag missing from the
	// file-type table.
	ErrUnknownFileType = errors.New("unknown file type")

	// ErrInvalidDescriptor indicates a descriptor that cannot be resolved.
	ErrInvalidDescriptor = errors.New("invalid descriptor")

	// ErrInvalidRequest indicates a request body of the wrong shape.
	ErrInvalidRequest = errors.New("invalid request")
)

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }
