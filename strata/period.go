package strata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Granularity is a calendar unit, ordered from coarsest to finest.
// The numeric value doubles as the depth of the unit in a date-partitioned
// tree: year directories sit at depth 0, month directories at depth 1.
type Granularity int

const (
	Year Granularity = iota
	Month
	Day
	Hour
	Minute
	Second
)

// maxDepth is the deepest date component a tree or file name can encode.
const maxDepth = int(Second)

var granularityNames = [...]string{"year", "month", "day", "hour", "minute", "second"}

func (g Granularity) String() string {
	if !g.valid() {
		return "granularity(" + strconv.Itoa(int(g)) + ")"
	}
	return granularityNames[g]
}

func (g Granularity) valid() bool { return g >= Year && g <= Second }

// ParseGranularity parses a lowercase unit name such as "day".
func ParseGranularity(s string) (Granularity, error) {
	for i, name := range granularityNames {
		if s == name {
			return Granularity(i), nil
		}
	}
	return 0, fmt.Errorf("strata: parse granularity %q: %w", s, ErrInvalidPeriod)
}

// Coarser returns the granularity n levels coarser than g.
func Coarser(g Granularity, n int) (Granularity, error) {
	c := g - Granularity(n)
	if !c.valid() {
		return 0, fmt.Errorf("strata: %s shifted %d levels: %w", g, n, ErrInvalidPeriod)
	}
	return c, nil
}

// Truncate returns the start of the calendar unit containing t,
// in t's location.
func Truncate(t time.Time, g Granularity) time.Time {
	y, mo, d := t.Date()
	hh, mm, ss := t.Clock()
	switch g {
	case Year:
		mo, d, hh, mm, ss = time.January, 1, 0, 0, 0
	case Month:
		d, hh, mm, ss = 1, 0, 0, 0
	case Day:
		hh, mm, ss = 0, 0, 0
	case Hour:
		mm, ss = 0, 0
	case Minute:
		ss = 0
	}
	return civil(y, mo, d, hh, mm, ss, 0, t.Location())
}

// Advance adds n calendar units to t using wall-clock arithmetic.
// For days and coarser units, a t at the start of its day stays at the start
// of the resulting day, even where that day begins after local midnight.
func Advance(t time.Time, g Granularity, n int) time.Time {
	y, mo, d := t.Date()
	hh, mm, ss := t.Clock()
	ns := t.Nanosecond()
	if g <= Day && t.Equal(Truncate(t, Day)) {
		hh, mm, ss, ns = 0, 0, 0, 0
	}
	switch g {
	case Year:
		y += n
	case Month:
		mo += time.Month(n)
	case Day:
		d += n
	case Hour:
		hh += n
	case Minute:
		mm += n
	case Second:
		ss += n
	}
	return civil(y, mo, d, hh, mm, ss, ns, t.Location())
}

// civil returns the moment of a wall-clock time in loc. A wall time skipped
// by a forward zone transition maps to the same distance past the end of the
// gap, so the first instant of a day never falls on the previous day.
func civil(y int, mo time.Month, d, hh, mm, ss, ns int, loc *time.Location) time.Time {
	t := time.Date(y, mo, d, hh, mm, ss, ns, loc)
	want := time.Date(y, mo, d, hh, mm, ss, ns, time.UTC)
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	if wall.Before(want) {
		return t.Add(want.Sub(wall))
	}
	return t
}

// component returns the calendar value of t at g (months are 1-based).
func component(t time.Time, g Granularity) int {
	switch g {
	case Year:
		return t.Year()
	case Month:
		return int(t.Month())
	case Day:
		return t.Day()
	case Hour:
		return t.Hour()
	case Minute:
		return t.Minute()
	default:
		return t.Second()
	}
}

// withComponent replaces the value of t at g. It reports false when v is not
// a valid value for that unit given the coarser components of t.
func withComponent(t time.Time, g Granularity, v int) (time.Time, bool) {
	y, mo, d := t.Date()
	hh, mm, ss := t.Clock()
	switch g {
	case Year:
		if v > 9999 {
			return time.Time{}, false
		}
		y = v
	case Month:
		if v < 1 || v > 12 {
			return time.Time{}, false
		}
		mo = time.Month(v)
	case Day:
		if v < 1 || v > daysIn(y, mo) {
			return time.Time{}, false
		}
		d = v
	case Hour:
		if v > 23 {
			return time.Time{}, false
		}
		hh = v
	case Minute:
		if v > 59 {
			return time.Time{}, false
		}
		mm = v
	case Second:
		if v > 59 {
			return time.Time{}, false
		}
		ss = v
	default:
		return time.Time{}, false
	}
	return civil(y, mo, d, hh, mm, ss, 0, t.Location()), true
}

func daysIn(y int, mo time.Month) int {
	return time.Date(y, mo+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FormatKey renders the partition key of t at g: four digits for years,
// two digits for every finer unit.
func FormatKey(t time.Time, g Granularity) string {
	if g == Year {
		return fmt.Sprintf("%04d", t.Year())
	}
	return fmt.Sprintf("%02d", component(t, g))
}

// DatePath joins the partition keys of t from Year down to g with sep,
// for example "2021/11/29" or "2021_11_29".
func DatePath(t time.Time, g Granularity, sep string) string {
	parts := make([]string, 0, int(g)+1)
	for level := Year; level <= g; level++ {
		parts = append(parts, FormatKey(t, level))
	}
	return strings.Join(parts, sep)
}

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
