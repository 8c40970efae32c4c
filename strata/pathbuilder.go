package strata

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// FilePart locates one period-level file: the folder one level coarser than
// the period and the date suffix of the file name.
type FilePart struct {
	Folder string
	Suffix string
}

// DateParts is the date-derived half of the constructed paths of a dated
// descriptor.
type DateParts struct {
	// FolderParts are whole coarser partitions such as "2021" or "2021/03".
	FolderParts []string

	// FileParts are the individually dated period-level files.
	FileParts []FilePart

	// AggregateFolders are the distinct folders of FileParts, in order.
	// Aggregated file types keep one file per such folder.
	AggregateFolders []string
}

// BuildDateParts decomposes the range at period and renders folder and file
// date parts. Year-period files sit directly under the file-type directory,
// so their folder is empty.
func BuildDateParts(period Granularity, r DateRange) (DateParts, error) {
	parts, err := Decompose(period, r.Start, r.End)
	if err != nil {
		return DateParts{}, err
	}

	var out DateParts
	for g := Year; g < period; g++ {
		for _, k := range parts.Keys(g) {
			out.FolderParts = append(out.FolderParts, DatePath(k, g, "/"))
		}
	}

	seen := make(map[string]bool)
	for _, k := range parts.Keys(period) {
		var folder string
		if period > Year {
			folder = DatePath(k, period-1, "/")
		}
		out.FileParts = append(out.FileParts, FilePart{Folder: folder, Suffix: DatePath(k, period, "_")})
		if !seen[folder] {
			seen[folder] = true
			out.AggregateFolders = append(out.AggregateFolders, folder)
		}
	}
	return out, nil
}

// BuildPaths renders the date parts of a dated descriptor.
func BuildPaths(d Descriptor) (DateParts, error) {
	g, ok := d.Granularity()
	if !ok || d.Range == nil {
		return DateParts{}, fmt.Errorf("strata: build paths for %s: %w", d, ErrInvalidPeriod)
	}
	return BuildDateParts(g, *d.Range)
}

// DatasetDir joins the present hierarchy attributes of d under root.
func (c Config) DatasetDir(root string, d Descriptor) string {
	elems := []string{root}
	for _, attr := range c.Hierarchy {
		if v, ok := d.Attr(attr); ok {
			elems = append(elems, v)
		}
	}
	return path.Join(elems...)
}

// FilenamePrefix joins the present hierarchy attributes of d with
// underscores.
func (c Config) FilenamePrefix(d Descriptor) string {
	var vals []string
	for _, attr := range c.Hierarchy {
		if v, ok := d.Attr(attr); ok {
			vals = append(vals, v)
		}
	}
	return strings.Join(vals, "_")
}

// CandidatePaths lists the paths a file type of d is expected to occupy
// under dir. Whole coarser folders come first, then either aggregate folders
// or individual file names. Undated file types yield their single file.
func (c Config) CandidatePaths(dir string, d Descriptor, tag string, ft FileType, parts *DateParts) []string {
	typeDir := path.Join(dir, tag)
	prefix := c.FilenamePrefix(d)

	if !ft.IsDated() || parts == nil {
		return []string{path.Join(typeDir, joinName(prefix, tag)+"."+ft.Extension)}
	}

	var out []string
	for _, folder := range parts.FolderParts {
		out = append(out, path.Join(typeDir, folder))
	}
	if ft.IsAggregated() {
		for _, folder := range parts.AggregateFolders {
			out = append(out, path.Join(typeDir, folder))
		}
		return out
	}
	for _, fp := range parts.FileParts {
		name := joinName(prefix, tag, fp.Suffix) + "." + ft.Extension
		out = append(out, path.Join(typeDir, fp.Folder, name))
	}
	return out
}

func joinName(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "_")
}

// CountFiles counts the regular files at or under p. Missing paths and
// unreadable branches count as zero.
func CountFiles(ctx context.Context, a Archive, p string) int {
	e, err := a.Stat(ctx, p)
	if err != nil {
		return 0
	}
	return countEntry(ctx, a, p, e.Kind)
}

func countEntry(ctx context.Context, a Archive, p string, kind EntryKind) int {
	switch kind {
	case KindFile:
		return 1
	case KindDir:
		entries, err := a.ReadDir(ctx, p)
		if err != nil {
			return 0
		}
		n := 0
		for _, e := range entries {
			n += countEntry(ctx, a, path.Join(p, e.Name), e.Kind)
		}
		return n
	default:
		return 0
	}
}
