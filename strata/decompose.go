package strata

import (
	"fmt"
	"sort"
	"time"
)

// Coverage is the half-open interval [Start, End) covered by one partition
// key at Granularity.
type Coverage struct {
	Granularity Granularity
	Start       time.Time
	End         time.Time
}

// Partitions holds the minimal set of calendar partition keys covering a
// date range. Levels finer than Period are always empty. Keys within a level
// are chronological.
type Partitions struct {
	Period Granularity
	Years  []time.Time
	Months []time.Time
	Days   []time.Time
}

// Keys returns the keys emitted at g.
func (p Partitions) Keys(g Granularity) []time.Time {
	switch g {
	case Year:
		return p.Years
	case Month:
		return p.Months
	case Day:
		return p.Days
	default:
		return nil
	}
}

func (p *Partitions) add(g Granularity, t time.Time) {
	switch g {
	case Year:
		p.Years = append(p.Years, t)
	case Month:
		p.Months = append(p.Months, t)
	case Day:
		p.Days = append(p.Days, t)
	}
}

// Len returns the total number of keys across all levels.
func (p Partitions) Len() int { return len(p.Years) + len(p.Months) + len(p.Days) }

// Coverages reconstitutes the interval of each key, ordered by start.
func (p Partitions) Coverages() []Coverage {
	var out []Coverage
	for g := Year; g <= Day; g++ {
		for _, k := range p.Keys(g) {
			out = append(out, Coverage{Granularity: g, Start: k, End: Advance(k, g, 1)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

type interval struct {
	start, end time.Time
}

// Decompose splits the range from start to end into whole years, whole
// months and individual period-level keys.
//
// start is truncated to period and end is truncated to period then advanced
// by one unit, so the range always includes the unit containing end. All
// arithmetic happens in start's location. Each level emits the units fully
// inside the still-uncovered intervals and hands the leading and trailing
// leftovers to the next finer level; at period every leftover unit is
// emitted individually. An end before start yields no keys.
func Decompose(period Granularity, start, end time.Time) (Partitions, error) {
	if period < Year || period > Day {
		return Partitions{}, fmt.Errorf("strata: decompose at %s: %w", period, ErrInvalidPeriod)
	}

	loc := start.Location()
	s := Truncate(start, period)
	e := Advance(Truncate(end.In(loc), period), period, 1)

	parts := Partitions{Period: period}
	if !e.After(s) {
		return parts, nil
	}

	pending := []interval{{start: s, end: e}}
	for g := Year; g <= period && len(pending) > 0; g++ {
		var next []interval
		for _, iv := range pending {
			if g == period {
				for k := iv.start; k.Before(iv.end); k = Advance(k, g, 1) {
					parts.add(g, k)
				}
				continue
			}

			first := Truncate(iv.start, g)
			if first.Before(iv.start) {
				first = Advance(first, g, 1)
			}
			last := first
			for !Advance(last, g, 1).After(iv.end) {
				parts.add(g, last)
				last = Advance(last, g, 1)
			}
			if last.Equal(first) {
				next = append(next, iv)
				continue
			}
			if iv.start.Before(first) {
				next = append(next, interval{start: iv.start, end: first})
			}
			if last.Before(iv.end) {
				next = append(next, interval{start: last, end: iv.end})
			}
		}
		pending = next
	}
	return parts, nil
}
