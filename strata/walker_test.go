package strata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pithecene-io/strata/internal/testutil"
)

// dayFiles returns one day-dated file per day of year under root.
func dayFiles(root string, year int) []string {
	var files []string
	for d := day(year, time.January, 1); d.Year() == year; d = d.AddDate(0, 0, 1) {
		files = append(files, fmt.Sprintf("%s/%04d/%02d/rainfall_data_map_%s.tif", root, year, int(d.Month()), DatePath(d, Day, "_")))
	}
	return files
}

func monthDirs(root string, year int, except ...int) []string {
	skip := make(map[int]bool)
	for _, m := range except {
		skip[m] = true
	}
	var out []string
	for m := 1; m <= 12; m++ {
		if !skip[m] {
			out = append(out, fmt.Sprintf("%s/%04d/%02d", root, year, m))
		}
	}
	return out
}

func newTestWalker(t *testing.T, a Archive) *Walker {
	t.Helper()
	w, err := NewWalker(a, WithWalkConcurrency(4))
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestWalker_CollapsesFullyCoveredYear(t *testing.T) {
	a := NewMemory(dayFiles("data_map", 2021)...)
	a.AddFile("data_map/2020/12/rainfall_data_map_2020_12_31.tif")
	w := newTestWalker(t, a)

	got := w.Walk(t.Context(), "data_map", day(2021, time.January, 1), day(2021, time.December, 31), true)

	want := PathResult{Paths: []string{"data_map/2021"}, NumFiles: 365}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("walk mismatch (-want +got):\n%s", diff)
	}
}

func TestWalker_CollapsesRoot(t *testing.T) {
	a := NewMemory(dayFiles("data_map", 2021)...)
	w := newTestWalker(t, a)

	got := w.Walk(t.Context(), "data_map", day(2021, time.January, 1), day(2021, time.December, 31), true)

	want := PathResult{Paths: []string{"data_map"}, NumFiles: 365, Collapsed: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("walk mismatch (-want +got):\n%s", diff)
	}
}

func TestWalker_OutOfRangeFileBlocksCollapse(t *testing.T) {
	a := NewMemory(dayFiles("data_map", 2021)...)
	a.AddFile("data_map/2021/06/rainfall_data_map_2022_06_15.tif")
	w := newTestWalker(t, a)
	start, end := day(2021, time.January, 1), day(2021, time.December, 31)

	got := w.Walk(t.Context(), "data_map", start, end, true)

	var june []string
	for _, f := range dayFiles("data_map", 2021) {
		if path.Dir(f) == "data_map/2021/06" {
			june = append(june, f)
		}
	}
	var want []string
	want = append(want, monthDirs("data_map", 2021)[:5]...)
	want = append(want, june...)
	want = append(want, monthDirs("data_map", 2021)[6:]...)

	if got.Collapsed {
		t.Error("expected root not collapsed")
	}
	if got.NumFiles != 365 {
		t.Errorf("NumFiles = %d, want 365", got.NumFiles)
	}
	if diff := cmp.Diff(want, got.Paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}

	flat := w.Walk(t.Context(), "data_map", start, end, false)
	if diff := cmp.Diff(dayFiles("data_map", 2021), flat.Paths); diff != "" {
		t.Errorf("flat paths mismatch (-want +got):\n%s", diff)
	}
	if flat.NumFiles != 365 || flat.Collapsed {
		t.Errorf("flat walk = %d files collapsed=%v, want 365 not collapsed", flat.NumFiles, flat.Collapsed)
	}
}

func TestWalker_Conservativeness(t *testing.T) {
	start, end := day(2021, time.January, 1), day(2021, time.December, 31)

	tests := []struct {
		name    string
		mutate  func(a *MemoryArchive)
		blocked string // month directory expected to be expanded
		files   int
	}{
		{
			name:    "malformed file name",
			mutate:  func(a *MemoryArchive) { a.AddFile("data_map/2021/03/readme.txt") },
			blocked: "03",
			files:   365,
		},
		{
			name:    "special entry",
			mutate:  func(a *MemoryArchive) { a.AddOther("data_map/2021/03/latest.tif") },
			blocked: "03",
			files:   365,
		},
		{
			name:    "non-numeric directory",
			mutate:  func(a *MemoryArchive) { a.AddDir("data_map/2021/03/tmp") },
			blocked: "03",
			files:   365,
		},
		{
			name:    "impossible day directory",
			mutate:  func(a *MemoryArchive) { a.AddFile("data_map/2021/03/32/rainfall_data_map_2021_03_31.tif") },
			blocked: "03",
			files:   365,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewMemory(dayFiles("data_map", 2021)...)
			tt.mutate(a)
			w := newTestWalker(t, a)

			got := w.Walk(t.Context(), "data_map", start, end, true)
			if got.Collapsed {
				t.Error("expected root not collapsed")
			}
			if got.NumFiles != tt.files {
				t.Errorf("NumFiles = %d, want %d", got.NumFiles, tt.files)
			}
			for _, p := range got.Paths {
				if p == "data_map/2021" || p == "data_map/2021/"+tt.blocked {
					t.Errorf("ancestor of the offending entry collapsed: %s", p)
				}
			}
		})
	}
}

func TestWalker_BranchErrorIsolated(t *testing.T) {
	a := NewMemory(dayFiles("data_map", 2021)...)
	a.FailReadDir("data_map/2021/02", errors.New("permission denied"))
	w := newTestWalker(t, a)

	got := w.Walk(t.Context(), "data_map", day(2021, time.January, 1), day(2021, time.December, 31), true)

	if got.NumFiles != 365-28 {
		t.Errorf("NumFiles = %d, want %d", got.NumFiles, 365-28)
	}
	if diff := cmp.Diff(monthDirs("data_map", 2021, 2), got.Paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	if got.Collapsed {
		t.Error("expected root not collapsed")
	}
}

func TestWalker_PrunesOutOfRangeDirectories(t *testing.T) {
	a := NewMemory(dayFiles("data_map", 2020)...)
	for _, f := range dayFiles("data_map", 2021) {
		a.AddFile(f)
	}
	w := newTestWalker(t, a)

	got := w.Walk(t.Context(), "data_map", day(2021, time.March, 1), day(2021, time.March, 31), true)

	if diff := cmp.Diff([]string{"data_map/2021/03"}, got.Paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	if got.NumFiles != 31 {
		t.Errorf("NumFiles = %d, want 31", got.NumFiles)
	}
	want := []string{"data_map", "data_map/2021", "data_map/2021/03"}
	if diff := cmp.Diff(want, a.Listed()); diff != "" {
		t.Errorf("listed mismatch (-want +got):\n%s", diff)
	}
}

func TestWalker_EndIsInclusive(t *testing.T) {
	a := NewMemory(dayFiles("data_map", 2021)...)
	w := newTestWalker(t, a)

	got := w.Walk(t.Context(), "data_map", day(2021, time.January, 1), day(2021, time.January, 5), false)

	want := dayFiles("data_map", 2021)[:5]
	if diff := cmp.Diff(want, got.Paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}

	// An end later in the same day still selects that day's file.
	got = w.Walk(t.Context(), "data_map", day(2021, time.January, 5), time.Date(2021, time.January, 5, 23, 0, 0, 0, time.UTC), false)
	if diff := cmp.Diff(want[4:], got.Paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestWalker_MatchesAtFileDepth(t *testing.T) {
	a := NewMemory(
		"station_data/2021/rainfall_station_data_2021_03.csv",
		"station_data/2021/rainfall_station_data_2021_05.csv",
		"station_data/2021/rainfall_station_data_2021.csv",
	)
	w := newTestWalker(t, a)

	got := w.Walk(t.Context(), "station_data", day(2021, time.March, 15), day(2021, time.April, 10), false)

	want := []string{
		"station_data/2021/rainfall_station_data_2021.csv",
		"station_data/2021/rainfall_station_data_2021_03.csv",
	}
	if diff := cmp.Diff(want, got.Paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestWalker_MissingRoot(t *testing.T) {
	w := newTestWalker(t, NewMemory("other/2021/a_2021.tif"))

	got := w.Walk(t.Context(), "data_map", day(2021, time.January, 1), day(2021, time.December, 31), true)
	if diff := cmp.Diff(PathResult{}, got); diff != "" {
		t.Errorf("expected empty result (-want +got):\n%s", diff)
	}
}

func TestWalker_CanceledContext(t *testing.T) {
	w := newTestWalker(t, NewMemory(dayFiles("data_map", 2021)...))
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	got := w.Walk(ctx, "data_map", day(2021, time.January, 1), day(2021, time.December, 31), true)
	if got.NumFiles != 0 || len(got.Paths) != 0 || got.Collapsed {
		t.Errorf("expected empty result, got %+v", got)
	}
}

func TestWalker_Idempotent(t *testing.T) {
	a := NewMemory(dayFiles("data_map", 2021)...)
	a.AddFile("data_map/2021/06/notes.txt")
	w := newTestWalker(t, a)
	start, end := day(2021, time.February, 10), day(2021, time.September, 3)

	first := w.Walk(t.Context(), "data_map", start, end, true)
	second := w.Walk(t.Context(), "data_map", start, end, true)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("walks differ (-first +second):\n%s", diff)
	}
}

func TestNewWalker_Options(t *testing.T) {
	if _, err := NewWalker(nil); err == nil {
		t.Error("expected error for nil archive")
	}
	if _, err := NewWalker(NewMemory(), WithWalkConcurrency(0)); err == nil {
		t.Error("expected error for zero concurrency")
	}
	if _, err := NewWalker(NewMemory(), WithStrategy(StrategyConstruct)); !errors.Is(err, ErrOptionNotValidForWalker) {
		t.Errorf("expected ErrOptionNotValidForWalker, got: %v", err)
	}
}

func TestWalker_FSSymlinkBlocksCollapse(t *testing.T) {
	root := t.TempDir()
	files := []string{
		"data_map/2021/01/rainfall_data_map_2021_01_01.tif",
		"data_map/2021/01/rainfall_data_map_2021_01_02.tif",
		"data_map/2021/02/rainfall_data_map_2021_02_01.tif",
	}
	if err := testutil.BuildTree(root, files...); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(root, "data_map", "2021", "01", "rainfall_data_map_2021_01_01.tif")
	link := filepath.Join(root, "data_map", "2021", "02", "rainfall_data_map_2021_02_02.tif")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	a, err := NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	w := newTestWalker(t, a)

	got := w.Walk(t.Context(), "data_map", day(2021, time.January, 1), day(2021, time.February, 28), true)

	want := PathResult{
		Paths:    []string{"data_map/2021/01", "data_map/2021/02/rainfall_data_map_2021_02_01.tif"},
		NumFiles: 3,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("walk mismatch (-want +got):\n%s", diff)
	}
}
