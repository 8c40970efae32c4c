package strata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

const rainfallDir = "hawaii/rainfall/new/day/statewide"

// rainfallArchive holds daily rainfall maps for January and February 2021.
func rainfallArchive() *MemoryArchive {
	a := NewMemory()
	for d := day(2021, time.January, 1); d.Before(day(2021, time.March, 1)); d = d.AddDate(0, 0, 1) {
		a.AddFile(fmt.Sprintf("%s/data_map/%s/rainfall_new_day_statewide_data_map_%s.tif",
			rainfallDir, DatePath(d, Month, "/"), DatePath(d, Day, "_")))
	}
	a.AddFile(rainfallDir + "/station_metadata/rainfall_new_day_statewide_station_metadata.csv")
	return a
}

func rainfall(start, end time.Time, files ...string) Descriptor {
	return Descriptor{
		Datatype:   "rainfall",
		Production: "new",
		Period:     "day",
		Range:      &DateRange{Start: start, End: end},
		Files:      files,
	}
}

func newTestResolver(t *testing.T, a Archive, opts ...Option) *Resolver {
	t.Helper()
	r, err := NewResolver(a, DefaultConfig(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestResolver_SkipsMissingAndInvalid(t *testing.T) {
	r := newTestResolver(t, rainfallArchive())

	missing := rainfall(day(2021, time.January, 1), day(2021, time.January, 31), "data_map")
	missing.Production = "legacy"
	valid := rainfall(day(2021, time.January, 1), day(2021, time.January, 31), "data_map")

	batch := r.Resolve(t.Context(), []Descriptor{missing, valid, {Files: []string{"data_map"}}}, true)

	if diff := cmp.Diff([]string{rainfallDir + "/data_map/2021/01"}, batch.Paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	if batch.NumFiles != 31 {
		t.Errorf("NumFiles = %d, want 31", batch.NumFiles)
	}
	if batch.Root != "hawaii" {
		t.Errorf("Root = %q, want hawaii", batch.Root)
	}
	if batch.BatchID == "" {
		t.Error("expected a batch id")
	}

	if len(batch.Statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(batch.Statuses))
	}
	if s := batch.Statuses[0]; s.Skipped() || s.Result.NumFiles != 0 {
		t.Errorf("missing dataset status = %+v, want resolved with no files", s)
	}
	if s := batch.Statuses[1]; s.Skipped() || s.Result.NumFiles != 31 {
		t.Errorf("valid dataset status = %+v", s)
	}
	if s := batch.Statuses[2]; !errors.Is(s.Skip, ErrInvalidDescriptor) || s.Reason != s.Skip.Error() {
		t.Errorf("expected ErrInvalidDescriptor skip with its reason, got: %v (%q)", s.Skip, s.Reason)
	}
	if s := batch.Statuses[1]; s.Reason != "" {
		t.Errorf("resolved status reason = %q, want empty", s.Reason)
	}
}

func TestBatchResult_StatusesInJSON(t *testing.T) {
	r := newTestResolver(t, rainfallArchive())
	batch := r.Resolve(t.Context(), []Descriptor{
		rainfall(day(2021, time.January, 1), day(2021, time.January, 2), "data_map"),
		{Files: []string{"data_map"}},
	}, false)

	data, err := jsonCodec.Marshal(batch)
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Statuses []struct {
			Index  int        `json:"index"`
			Result PathResult `json:"result"`
			Skip   string     `json:"skip"`
		} `json:"statuses"`
	}
	if err := jsonCodec.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Statuses) != 2 {
		t.Fatalf("expected 2 statuses in %s", data)
	}
	if s := decoded.Statuses[0]; s.Index != 0 || s.Result.NumFiles != 2 || s.Skip != "" {
		t.Errorf("resolved status = %+v", s)
	}
	if s := decoded.Statuses[1]; s.Index != 1 || !strings.Contains(s.Skip, ErrInvalidDescriptor.Error()) {
		t.Errorf("skipped status = %+v", s)
	}
}

func TestResolver_EmptyRaster(t *testing.T) {
	r := newTestResolver(t, NewMemory())

	tests := []struct {
		name string
		d    Descriptor
		want string
	}{
		{"defaults", Descriptor{Datatype: "rainfall"}, "empty/hawaii/statewide_empty.tif"},
		{"unknown location", Descriptor{Datatype: "rainfall", Location: "atlantis", Extent: "bi"}, "empty/hawaii/bi_empty.tif"},
		{"no default extent", Descriptor{Datatype: "rainfall", Location: "american_samoa"}, "empty/american_samoa/empty.tif"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.EmptyRaster(tt.d); got != tt.want {
				t.Errorf("EmptyRaster() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_WalkCollapse(t *testing.T) {
	r := newTestResolver(t, rainfallArchive())

	got, err := r.ResolveOne(t.Context(), rainfall(day(2021, time.January, 1), day(2021, time.February, 28), "data_map"), true)
	if err != nil {
		t.Fatal(err)
	}
	want := PathResult{Paths: []string{rainfallDir + "/data_map"}, NumFiles: 59, Collapsed: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	got, err = r.ResolveOne(t.Context(), rainfall(day(2021, time.January, 30), day(2021, time.February, 1), "data_map"), true)
	if err != nil {
		t.Fatal(err)
	}
	if got.NumFiles != 3 || len(got.Paths) != 3 || got.Collapsed {
		t.Errorf("partial range = %+v, want 3 flat paths", got)
	}
}

func TestResolver_ConstructStrategy(t *testing.T) {
	r := newTestResolver(t, rainfallArchive(), WithStrategy(StrategyConstruct))

	got, err := r.ResolveOne(t.Context(), rainfall(day(2021, time.January, 30), day(2021, time.March, 2), "data_map", "station_metadata"), true)
	if err != nil {
		t.Fatal(err)
	}
	want := PathResult{
		Paths: []string{
			rainfallDir + "/data_map/2021/02",
			rainfallDir + "/data_map/2021/01/rainfall_new_day_statewide_data_map_2021_01_30.tif",
			rainfallDir + "/data_map/2021/01/rainfall_new_day_statewide_data_map_2021_01_31.tif",
			rainfallDir + "/station_metadata/rainfall_new_day_statewide_station_metadata.csv",
		},
		NumFiles: 31,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_StrategiesAgreeOnFileCount(t *testing.T) {
	a := rainfallArchive()
	walk := newTestResolver(t, a)
	construct := newTestResolver(t, a, WithStrategy(StrategyConstruct))
	d := rainfall(day(2021, time.January, 10), day(2021, time.February, 20), "data_map")

	w, err := walk.ResolveOne(t.Context(), d, false)
	if err != nil {
		t.Fatal(err)
	}
	c, err := construct.ResolveOne(t.Context(), d, false)
	if err != nil {
		t.Fatal(err)
	}
	if w.NumFiles != 42 || c.NumFiles != w.NumFiles {
		t.Errorf("walk = %d files, construct = %d files, want 42", w.NumFiles, c.NumFiles)
	}
}

func TestResolver_UnknownFileType(t *testing.T) {
	r := newTestResolver(t, rainfallArchive())

	undated := Descriptor{Datatype: "rainfall", Production: "new", Period: "day", Files: []string{"thumbnails"}}
	if _, err := r.ResolveOne(t.Context(), undated, true); !errors.Is(err, ErrUnknownFileType) {
		t.Errorf("expected ErrUnknownFileType, got: %v", err)
	}

	// Dated queries walk unknown file types.
	dated := rainfall(day(2021, time.January, 1), day(2021, time.January, 31), "thumbnails")
	got, err := r.ResolveOne(t.Context(), dated, true)
	if err != nil {
		t.Fatal(err)
	}
	if got.NumFiles != 0 {
		t.Errorf("NumFiles = %d, want 0", got.NumFiles)
	}
}

func TestResolver_IgnitionMetadata(t *testing.T) {
	a := NewMemory(
		"hawaii/ignition_probability/lead00/statewide/metadata/ignition_metadata_a.txt",
		"hawaii/ignition_probability/lead00/statewide/metadata/ignition_metadata_b.txt",
	)
	a.AddDir("hawaii/ignition_probability/lead00/statewide/metadata/old")
	r := newTestResolver(t, a)

	got, err := r.ResolveOne(t.Context(), Descriptor{Datatype: "ignition_probability", Files: []string{"metadata"}}, true)
	if err != nil {
		t.Fatal(err)
	}
	want := PathResult{
		Paths: []string{
			"hawaii/ignition_probability/lead00/statewide/metadata/ignition_metadata_a.txt",
			"hawaii/ignition_probability/lead00/statewide/metadata/ignition_metadata_b.txt",
		},
		NumFiles: 2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_Families(t *testing.T) {
	dsPath := "hawaii/downscaling_rainfall/statistical/wet/present/downscaling_rainfall_statistical_wet_present_mm.tif"
	climPath := "hawaii/rainfall_climatology/rainfall/mean_monthly/statewide/rainfall_climatology_rainfall_mean_monthly_statewide_march_mm.tif"
	r := newTestResolver(t, NewMemory(dsPath, climPath))

	batch := r.Resolve(t.Context(), []Descriptor{
		{
			Datatype: "downscaling_rainfall",
			Period:   "present",
			Files:    []string{"data_map", "data_map_change"},
			Extras:   map[string]string{"dsm": "statistical", "season": "wet", "model": "rcp85"},
		},
		{
			Datatype: "rainfall_climatology",
			Files:    []string{"data_map"},
			Extras:   map[string]string{"variable": "rainfall", "mean_type": "mean_monthly", "date": "2021-03-15", "units": "mm"},
		},
	}, true)

	if diff := cmp.Diff([]string{dsPath, climPath}, batch.Paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	if batch.NumFiles != 2 {
		t.Errorf("NumFiles = %d, want 2", batch.NumFiles)
	}
}

func TestResolver_Idempotent(t *testing.T) {
	r := newTestResolver(t, rainfallArchive())
	ds := []Descriptor{rainfall(day(2021, time.January, 15), day(2021, time.February, 3), "data_map")}

	first := r.Resolve(t.Context(), ds, true)
	second := r.Resolve(t.Context(), ds, true)
	if diff := cmp.Diff(first.Paths, second.Paths); diff != "" {
		t.Errorf("paths differ (-first +second):\n%s", diff)
	}
	if first.NumFiles != second.NumFiles {
		t.Errorf("file counts differ: %d vs %d", first.NumFiles, second.NumFiles)
	}
}

func TestResolver_DoesNotMutateInput(t *testing.T) {
	r := newTestResolver(t, rainfallArchive())
	d := rainfall(day(2021, time.January, 1), day(2021, time.January, 2), "data_map")
	before := d.clone()

	_ = r.Resolve(t.Context(), []Descriptor{d}, true)
	if diff := cmp.Diff(before, d); diff != "" {
		t.Errorf("descriptor mutated (-before +after):\n%s", diff)
	}
}

func TestResolver_CanceledContext(t *testing.T) {
	r := newTestResolver(t, rainfallArchive())
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	batch := r.Resolve(ctx, []Descriptor{rainfall(day(2021, time.January, 1), day(2021, time.January, 31), "data_map")}, true)
	if batch.NumFiles != 0 || len(batch.Paths) != 0 {
		t.Errorf("expected empty batch, got %+v", batch)
	}
	if !errors.Is(batch.Statuses[0].Skip, context.Canceled) {
		t.Errorf("expected context.Canceled skip, got: %v", batch.Statuses[0].Skip)
	}
}

func TestResolver_LogsSkips(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r := newTestResolver(t, rainfallArchive(), WithLogger(logger))

	batch := r.Resolve(t.Context(), []Descriptor{{Files: []string{"data_map"}}}, true)

	out := buf.String()
	if !strings.Contains(out, `"message":"descriptor skipped"`) {
		t.Errorf("missing skip event in %s", out)
	}
	if !strings.Contains(out, `"batch_id":"`+batch.BatchID+`"`) {
		t.Errorf("missing batch id in %s", out)
	}
	if !strings.Contains(out, `"message":"batch resolved"`) {
		t.Errorf("missing summary event in %s", out)
	}
}

func TestNewResolver_Invalid(t *testing.T) {
	if _, err := NewResolver(nil, DefaultConfig()); err == nil {
		t.Error("expected error for nil archive")
	}

	cfg := DefaultConfig()
	cfg.DefaultLocation = "atlantis"
	if _, err := NewResolver(NewMemory(), cfg); err == nil {
		t.Error("expected error for invalid config")
	}

	if _, err := NewResolver(NewMemory(), DefaultConfig(), WithWalkConcurrency(-1)); err == nil {
		t.Error("expected error for negative concurrency")
	}
}
