package strata

import (
	"errors"
	"fmt"
	"path"
	"time"

	// Location time zones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"
)

// FileType describes how a file-type tag is dated and named.
type FileType struct {
	// Aggregation is nil for undated files, 0 for files dated at the
	// descriptor's period, and n for files dated n levels coarser.
	Aggregation *int `yaml:"aggregation"`

	// Extension is the file extension without the leading dot.
	Extension string `yaml:"extension"`
}

// Undated returns a file type without a date suffix.
func Undated(ext string) FileType { return FileType{Extension: ext} }

// DatedAt returns a file type dated agg levels coarser than the period.
func DatedAt(agg int, ext string) FileType { return FileType{Aggregation: &agg, Extension: ext} }

// IsDated reports whether files of this type carry a date suffix.
func (f FileType) IsDated() bool { return f.Aggregation != nil }

// IsAggregated reports whether one file covers a whole coarser folder.
func (f FileType) IsAggregated() bool { return f.Aggregation != nil && *f.Aggregation > 0 }

// Location describes one production archive location.
type Location struct {
	// Root is the archive-relative directory holding the location's datasets.
	Root string `yaml:"root"`

	// DefaultExtent is applied to descriptors that omit an extent.
	DefaultExtent string `yaml:"default_extent"`

	// Timezone is an IANA zone name used for dataset date ranges.
	Timezone string `yaml:"timezone"`
}

// Config is the immutable resolution configuration shared by every call.
// Build it once at startup and pass it to NewResolver.
type Config struct {
	// Hierarchy orders the attributes joined into dataset directories and
	// file-name prefixes.
	Hierarchy []string `yaml:"hierarchy"`

	// FileTypes maps file-type tags to their dating and extension.
	FileTypes map[string]FileType `yaml:"file_types"`

	// Locations maps location names to their archive roots.
	Locations map[string]Location `yaml:"locations"`

	// DefaultLocation replaces unknown or missing descriptor locations.
	DefaultLocation string `yaml:"default_location"`

	// EmptyRoot is the archive-relative directory of placeholder rasters.
	EmptyRoot string `yaml:"empty_root"`
}

// DefaultHierarchy is the attribute order of standard datasets.
var DefaultHierarchy = []string{"datatype", "production", "aggregation", "period", "lead", "timescale", "extent", "fill"}

// DefaultConfig returns the production layout.
func DefaultConfig() Config {
	return Config{
		Hierarchy: append([]string(nil), DefaultHierarchy...),
		FileTypes: map[string]FileType{
			"metadata":         DatedAt(0, "txt"),
			"data_map":         DatedAt(0, "tif"),
			"se":               DatedAt(0, "tif"),
			"anom":             DatedAt(0, "tif"),
			"anom_se":          DatedAt(0, "tif"),
			"station_metadata": Undated("csv"),
			"station_data":     DatedAt(1, "csv"),
		},
		Locations: map[string]Location{
			"hawaii":         {Root: "hawaii", DefaultExtent: "statewide", Timezone: "Pacific/Honolulu"},
			"american_samoa": {Root: "american_samoa", Timezone: "Pacific/Pago_Pago"},
		},
		DefaultLocation: "hawaii",
		EmptyRoot:       "empty",
	}
}

// Validate reports the first inconsistency in c.
func (c Config) Validate() error {
	if len(c.Hierarchy) == 0 {
		return errors.New("strata: config: hierarchy is required")
	}
	seen := make(map[string]bool, len(c.Hierarchy))
	for _, attr := range c.Hierarchy {
		if attr == "" || seen[attr] {
			return fmt.Errorf("strata: config: hierarchy attribute %q is empty or repeated", attr)
		}
		seen[attr] = true
	}
	for tag, ft := range c.FileTypes {
		if ft.Extension == "" {
			return fmt.Errorf("strata: config: file type %q: extension is required", tag)
		}
		if ft.Aggregation != nil && (*ft.Aggregation < 0 || *ft.Aggregation > int(Day)) {
			return fmt.Errorf("strata: config: file type %q: aggregation %d out of range", tag, *ft.Aggregation)
		}
	}
	if _, ok := c.Locations[c.DefaultLocation]; !ok {
		return fmt.Errorf("strata: config: default location %q is not configured", c.DefaultLocation)
	}
	for name, loc := range c.Locations {
		if loc.Timezone == "" {
			continue
		}
		if _, err := time.LoadLocation(loc.Timezone); err != nil {
			return fmt.Errorf("strata: config: location %q: %w", name, err)
		}
	}
	return nil
}

// LookupFileType looks up a file-type tag.
func (c Config) LookupFileType(tag string) (FileType, error) {
	ft, ok := c.FileTypes[tag]
	if !ok {
		return FileType{}, fmt.Errorf("strata: file type %q: %w", tag, ErrUnknownFileType)
	}
	return ft, nil
}

// LocationRoot returns the archive-relative root of a location.
func (c Config) LocationRoot(location string) string {
	if loc, ok := c.Locations[location]; ok && loc.Root != "" {
		return loc.Root
	}
	return location
}

// TimeLocation returns the time zone of a location, UTC when unset.
func (c Config) TimeLocation(location string) *time.Location {
	if loc, ok := c.Locations[location]; ok && loc.Timezone != "" {
		if tz, err := time.LoadLocation(loc.Timezone); err == nil {
			return tz
		}
	}
	return time.UTC
}

// EmptyRaster returns the placeholder raster for a location and extent.
func (c Config) EmptyRaster(location, extent string) string {
	name := "empty.tif"
	if extent != "" {
		name = extent + "_" + name
	}
	return path.Join(c.EmptyRoot, location, name)
}
