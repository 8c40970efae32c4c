package strata

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
)

// DatasetDateRange returns the dates of the first and last data maps of a
// dated descriptor. ok is false when the dataset has no data maps.
//
// The first and last files are found by descending the lexically smallest
// and largest branches that hold files. Dates are taken from the trailing
// name segments and keep their wall-clock value in the location's time zone.
func (r *Resolver) DatasetDateRange(ctx context.Context, d Descriptor) (first, last time.Time, ok bool, err error) {
	d = d.clone()
	r.cfg.fillDefaults(&d)

	g, dated := d.Granularity()
	if !dated {
		return time.Time{}, time.Time{}, false, fmt.Errorf("strata: date range of %s: %w", d, ErrInvalidPeriod)
	}
	dir := path.Join(r.cfg.DatasetDir(r.cfg.LocationRoot(d.Location), d), "data_map")
	loc := r.cfg.TimeLocation(d.Location)

	firstName, err := r.edgeFile(ctx, dir, false)
	if err != nil || firstName == "" {
		return time.Time{}, time.Time{}, false, ignoreNotFound(err)
	}
	lastName, err := r.edgeFile(ctx, dir, true)
	if err != nil || lastName == "" {
		return time.Time{}, time.Time{}, false, ignoreNotFound(err)
	}

	first, err = trailingDate(firstName, g, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	last, err = trailingDate(lastName, g, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	return first, last, true, nil
}

// edgeFile descends dir along its first (or last) branch holding files and
// returns that file's name. Subdirectories are preferred over files at the
// same level.
func (r *Resolver) edgeFile(ctx context.Context, dir string, reverse bool) (string, error) {
	entries, err := r.archive.ReadDir(ctx, dir)
	if err != nil {
		return "", err
	}
	sort.Slice(entries, func(i, j int) bool {
		if reverse {
			return entries[i].Name > entries[j].Name
		}
		return entries[i].Name < entries[j].Name
	})

	for _, e := range entries {
		if e.Kind != KindDir {
			continue
		}
		name, err := r.edgeFile(ctx, path.Join(dir, e.Name), reverse)
		if err != nil {
			return "", err
		}
		if name != "" {
			return name, nil
		}
	}
	for _, e := range entries {
		if e.Kind == KindFile {
			return e.Name, nil
		}
	}
	return "", nil
}

// trailingDate decodes the last period+1 underscore segments of a file stem.
func trailingDate(name string, period Granularity, loc *time.Location) (time.Time, error) {
	stem := strings.TrimSuffix(name, path.Ext(name))
	segs := strings.Split(stem, "_")
	n := int(period) + 1
	if len(segs) < n {
		return time.Time{}, fmt.Errorf("strata: date of %q: %w", name, ErrInvalidDate)
	}
	return DecodeSegments(segs[len(segs)-n:], loc)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
