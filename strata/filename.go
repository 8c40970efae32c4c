package strata

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// filenamePattern captures the date suffix of an archive file name:
// 1 to 6 underscore-joined numeric groups before the final extension, a
// 4-digit year first, the sixth group optionally carrying a fraction.
var filenamePattern = regexp.MustCompile(`^.+?([0-9]{4}(?:(?:_[0-9]{2}){0,5}|(?:_[0-9]{2}){5}\.[0-9]+))\.[a-zA-Z0-9]+$`)

// MatchFilename returns the date segments embedded in name, or false if name
// does not follow the archive naming convention. The pattern requires at
// least one character before the date, so pass a rooted path rather than a
// bare date name.
func MatchFilename(name string) ([]string, bool) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return nil, false
	}
	return strings.Split(m[1], "_"), true
}

// DecodeSegments converts date segments into a moment in loc. Omitted finer
// components take their minimum value. The sixth segment may carry a
// sub-second fraction.
func DecodeSegments(segs []string, loc *time.Location) (time.Time, error) {
	if len(segs) == 0 || len(segs) > maxDepth+1 {
		return time.Time{}, fmt.Errorf("strata: decode %d date segments: %w", len(segs), ErrInvalidDate)
	}
	if loc == nil {
		loc = time.UTC
	}

	t := time.Date(0, time.January, 1, 0, 0, 0, 0, loc)
	nanos := 0
	for i, seg := range segs {
		g := Granularity(i)
		if g == Second {
			if whole, frac, ok := strings.Cut(seg, "."); ok {
				n, err := fractionNanos(frac)
				if err != nil {
					return time.Time{}, err
				}
				seg, nanos = whole, n
			}
		}
		if !isDigits(seg) {
			return time.Time{}, fmt.Errorf("strata: decode segment %q: %w", seg, ErrInvalidDate)
		}
		v, err := strconv.Atoi(seg)
		if err != nil {
			return time.Time{}, fmt.Errorf("strata: decode segment %q: %w", seg, ErrInvalidDate)
		}
		next, ok := withComponent(t, g, v)
		if !ok {
			return time.Time{}, fmt.Errorf("strata: %s %d out of range: %w", g, v, ErrInvalidDate)
		}
		t = next
	}
	return t.Add(time.Duration(nanos)), nil
}

func fractionNanos(frac string) (int, error) {
	if !isDigits(frac) {
		return 0, fmt.Errorf("strata: decode fraction %q: %w", frac, ErrInvalidDate)
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	frac += strings.Repeat("0", 9-len(frac))
	return strconv.Atoi(frac)
}

// DateSuffix renders the file-name date suffix of t at g. A non-zero
// sub-second part is kept only at Second granularity.
func DateSuffix(t time.Time, g Granularity) string {
	s := DatePath(t, g, "_")
	if g == Second && t.Nanosecond() != 0 {
		frac := strings.TrimRight(fmt.Sprintf("%09d", t.Nanosecond()), "0")
		s += "." + frac
	}
	return s
}

// fileDate decodes the date of the file at p. depth is the granularity the
// file name encodes.
func fileDate(p string, loc *time.Location) (time.Time, Granularity, bool) {
	segs, ok := MatchFilename(p)
	if !ok {
		return time.Time{}, 0, false
	}
	t, err := DecodeSegments(segs, loc)
	if err != nil {
		return time.Time{}, 0, false
	}
	return t, Granularity(len(segs) - 1), true
}
