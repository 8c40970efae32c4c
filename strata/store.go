package strata

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Filesystem Archive
// -----------------------------------------------------------------------------

// fsArchive implements Archive over a local directory tree.
type fsArchive struct {
	root string
}

// NewFS creates a filesystem-backed Archive rooted at the given directory.
// The directory must exist.
//
// Symbolic links are reported as KindOther and never followed.
func NewFS(root string) (Archive, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, os.ErrNotExist
	}
	return &fsArchive{root: root}, nil
}

func (f *fsArchive) ReadDir(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("strata: read dir %q: %w", dir, ErrNotFound)
		}
		return nil, fmt.Errorf("strata: read dir %q: %w", dir, err)
	}
	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		entries = append(entries, Entry{Name: de.Name(), Kind: kindOf(de.Type())})
	}
	return entries, nil
}

func (f *fsArchive) Stat(ctx context.Context, p string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	fullPath, err := f.safePath(p)
	if err != nil {
		return Entry{}, err
	}
	info, err := os.Lstat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, fmt.Errorf("strata: stat %q: %w", p, ErrNotFound)
		}
		return Entry{}, fmt.Errorf("strata: stat %q: %w", p, err)
	}
	return Entry{Name: info.Name(), Kind: kindOf(info.Mode().Type())}, nil
}

func kindOf(m fs.FileMode) EntryKind {
	switch {
	case m.IsDir():
		return KindDir
	case m.IsRegular():
		return KindFile
	default:
		return KindOther
	}
}

// safePath maps an archive path to a host path inside the root.
// The empty path maps to the root itself.
func (f *fsArchive) safePath(p string) (string, error) {
	if p == "" {
		return f.root, nil
	}

	cleaned := filepath.Clean(filepath.FromSlash(p))
	if cleaned == "." {
		return f.root, nil
	}
	if filepath.IsAbs(cleaned) {
		return "", ErrInvalidPath
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}

	fullPath := filepath.Join(f.root, cleaned)

	absRoot, err := filepath.Abs(f.root)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}

	return fullPath, nil
}

// -----------------------------------------------------------------------------
// Memory Archive
// -----------------------------------------------------------------------------

// MemoryArchive implements Archive over an in-memory tree. Directories are
// implied by the entries added beneath them.
//
// MemoryArchive is safe for concurrent use.
type MemoryArchive struct {
	mu      sync.RWMutex
	entries map[string]EntryKind
	fail    map[string]error
	listed  []string
}

// NewMemory creates a MemoryArchive holding the given regular files.
func NewMemory(files ...string) *MemoryArchive {
	m := &MemoryArchive{
		entries: make(map[string]EntryKind),
		fail:    make(map[string]error),
	}
	for _, f := range files {
		m.AddFile(f)
	}
	return m
}

// AddFile adds a regular file and its parent directories.
func (m *MemoryArchive) AddFile(p string) { m.add(p, KindFile) }

// AddDir adds an empty directory and its parents.
func (m *MemoryArchive) AddDir(p string) { m.add(p, KindDir) }

// AddOther adds an entry that is neither a file nor a directory, such as a
// symbolic link.
func (m *MemoryArchive) AddOther(p string) { m.add(p, KindOther) }

// FailReadDir makes every listing of dir fail with err.
func (m *MemoryArchive) FailReadDir(dir string, err error) {
	normalized, ok := normalizeArchivePath(dir)
	if !ok {
		return
	}
	m.mu.Lock()
	m.fail[normalized] = err
	m.mu.Unlock()
}

// Listed returns every directory listed so far, sorted.
func (m *MemoryArchive) Listed() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]string(nil), m.listed...)
	sort.Strings(out)
	return out
}

func (m *MemoryArchive) add(p string, kind EntryKind) {
	normalized, ok := normalizeArchivePath(p)
	if !ok || normalized == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[normalized] = kind
	for dir := path.Dir(normalized); dir != "."; dir = path.Dir(dir) {
		m.entries[dir] = KindDir
	}
}

func (m *MemoryArchive) ReadDir(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	normalized, ok := normalizeArchivePath(dir)
	if !ok {
		return nil, ErrInvalidPath
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.listed = append(m.listed, normalized)

	if err, failed := m.fail[normalized]; failed {
		return nil, err
	}
	if normalized != "" {
		if kind, exists := m.entries[normalized]; !exists || kind != KindDir {
			return nil, fmt.Errorf("strata: read dir %q: %w", dir, ErrNotFound)
		}
	}

	var entries []Entry
	for p, kind := range m.entries {
		parent := path.Dir(p)
		if parent == "." {
			parent = ""
		}
		if parent == normalized {
			entries = append(entries, Entry{Name: path.Base(p), Kind: kind})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (m *MemoryArchive) Stat(ctx context.Context, p string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	normalized, ok := normalizeArchivePath(p)
	if !ok {
		return Entry{}, ErrInvalidPath
	}
	if normalized == "" {
		return Entry{Kind: KindDir}, nil
	}

	m.mu.RLock()
	kind, exists := m.entries[normalized]
	m.mu.RUnlock()

	if !exists {
		return Entry{}, fmt.Errorf("strata: stat %q: %w", p, ErrNotFound)
	}
	return Entry{Name: path.Base(normalized), Kind: kind}, nil
}

func normalizeArchivePath(p string) (string, bool) {
	if p == "" {
		return "", true
	}

	cleaned := path.Clean(filepath.ToSlash(p))
	cleaned = strings.TrimPrefix(cleaned, "/")

	if cleaned == "." || cleaned == "" {
		return "", true
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}
