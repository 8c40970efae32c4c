package strata

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestBuildDateParts(t *testing.T) {
	parts, err := BuildDateParts(Day, DateRange{Start: day(2020, time.November, 30), End: day(2022, time.January, 1)})
	if err != nil {
		t.Fatal(err)
	}

	want := DateParts{
		FolderParts: []string{"2021", "2020/12"},
		FileParts: []FilePart{
			{Folder: "2020/11", Suffix: "2020_11_30"},
			{Folder: "2022/01", Suffix: "2022_01_01"},
		},
		AggregateFolders: []string{"2020/11", "2022/01"},
	}
	if diff := cmp.Diff(want, parts); diff != "" {
		t.Errorf("date parts mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDateParts_YearPeriod(t *testing.T) {
	parts, err := BuildDateParts(Year, DateRange{Start: day(2019, time.June, 1), End: day(2020, time.June, 1)})
	if err != nil {
		t.Fatal(err)
	}

	want := DateParts{
		FileParts: []FilePart{
			{Folder: "", Suffix: "2019"},
			{Folder: "", Suffix: "2020"},
		},
		AggregateFolders: []string{""},
	}
	if diff := cmp.Diff(want, parts); diff != "" {
		t.Errorf("date parts mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPaths_Undated(t *testing.T) {
	_, err := BuildPaths(Descriptor{Datatype: "rainfall", Period: "day"})
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod for missing range, got: %v", err)
	}

	r := &DateRange{Start: day(2021, time.January, 1), End: day(2021, time.January, 2)}
	_, err = BuildPaths(Descriptor{Datatype: "rainfall", Period: "hour", Range: r})
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod for hour period, got: %v", err)
	}
}

func TestDatasetDirAndPrefix(t *testing.T) {
	cfg := DefaultConfig()
	d := Descriptor{Datatype: "rainfall", Production: "new", Period: "month", Extent: "statewide", Extras: map[string]string{"model": "ignored"}}

	if got := cfg.DatasetDir("hawaii", d); got != "hawaii/rainfall/new/month/statewide" {
		t.Errorf("DatasetDir = %q", got)
	}
	if got := cfg.FilenamePrefix(d); got != "rainfall_new_month_statewide" {
		t.Errorf("FilenamePrefix = %q", got)
	}
}

func TestCandidatePaths(t *testing.T) {
	cfg := DefaultConfig()
	d := Descriptor{
		Datatype:   "rainfall",
		Production: "new",
		Period:     "day",
		Extent:     "statewide",
		Range:      &DateRange{Start: day(2020, time.November, 30), End: day(2022, time.January, 1)},
	}
	dir := cfg.DatasetDir("hawaii", d)
	parts, err := BuildPaths(d)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		tag  string
		want []string
	}{
		{
			tag: "data_map",
			want: []string{
				dir + "/data_map/2021",
				dir + "/data_map/2020/12",
				dir + "/data_map/2020/11/rainfall_new_day_statewide_data_map_2020_11_30.tif",
				dir + "/data_map/2022/01/rainfall_new_day_statewide_data_map_2022_01_01.tif",
			},
		},
		{
			tag: "station_data",
			want: []string{
				dir + "/station_data/2021",
				dir + "/station_data/2020/12",
				dir + "/station_data/2020/11",
				dir + "/station_data/2022/01",
			},
		},
		{
			tag:  "station_metadata",
			want: []string{dir + "/station_metadata/rainfall_new_day_statewide_station_metadata.csv"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			ft, err := cfg.LookupFileType(tt.tag)
			if err != nil {
				t.Fatal(err)
			}
			got := cfg.CandidatePaths(dir, d, tt.tag, ft, &parts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("candidates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCandidatePaths_YearPeriod(t *testing.T) {
	cfg := DefaultConfig()
	d := Descriptor{
		Datatype: "temperature",
		Period:   "year",
		Range:    &DateRange{Start: day(2019, time.January, 1), End: day(2019, time.December, 31)},
	}
	parts, err := BuildPaths(d)
	if err != nil {
		t.Fatal(err)
	}
	got := cfg.CandidatePaths("hawaii/temperature/year", d, "data_map", DatedAt(0, "tif"), &parts)
	want := []string{"hawaii/temperature/year/data_map/temperature_year_data_map_2019.tif"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestCountFiles(t *testing.T) {
	ctx := t.Context()
	a := NewMemory(
		"ds/data_map/2021/01/a_2021_01_01.tif",
		"ds/data_map/2021/01/a_2021_01_02.tif",
		"ds/data_map/2021/02/a_2021_02_01.tif",
	)
	a.AddOther("ds/data_map/2021/02/link.tif")

	tests := []struct {
		path string
		want int
	}{
		{"ds/data_map/2021", 3},
		{"ds/data_map/2021/02", 1},
		{"ds/data_map/2021/01/a_2021_01_01.tif", 1},
		{"ds/data_map/2021/02/link.tif", 0},
		{"ds/data_map/2022", 0},
	}

	for _, tt := range tests {
		if got := CountFiles(ctx, a, tt.path); got != tt.want {
			t.Errorf("CountFiles(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}

func TestCountFiles_UnreadableBranch(t *testing.T) {
	ctx := t.Context()
	a := NewMemory("ds/2021/01/a_2021_01_01.tif", "ds/2021/02/a_2021_02_01.tif")
	a.FailReadDir("ds/2021/01", errors.New("permission denied"))

	if got := CountFiles(ctx, a, "ds/2021"); got != 1 {
		t.Errorf("CountFiles = %d, want 1", got)
	}
}
