package strata

import (
	"fmt"
	"strings"
	"time"
)

// Family selects the resolution strategy for a descriptor.
type Family int

const (
	// FamilyUnknown marks a descriptor without a datatype.
	FamilyUnknown Family = iota

	// FamilyStandard datasets follow the attribute hierarchy followed by a
	// file-type directory and date-partitioned tiers.
	FamilyStandard

	// FamilyDownscaling datasets hold one file per model scenario.
	FamilyDownscaling

	// FamilyClimatology datasets hold long-term means keyed by period label.
	FamilyClimatology
)

func (f Family) String() string {
	switch f {
	case FamilyStandard:
		return "standard"
	case FamilyDownscaling:
		return "downscaling"
	case FamilyClimatology:
		return "climatology"
	default:
		return "unknown"
	}
}

// DateRange is the requested [Start, End] range of a descriptor. The end is
// inclusive at the descriptor's period.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Descriptor identifies one dataset query.
//
// The fixed fields are the known hierarchy attributes. Empty fields are
// absent and are omitted from paths. Family-specific attributes such as
// dsm, season, model, units, variable, mean_type and date live in Extras.
type Descriptor struct {
	Location    string
	Datatype    string
	Production  string
	Aggregation string
	Period      string
	Lead        string
	Timescale   string
	Extent      string
	Fill        string

	// Range is nil for undated queries.
	Range *DateRange

	// Files lists the requested file-type tags.
	Files []string

	Extras map[string]string
}

// Attr returns the value of a named attribute and whether it is present.
func (d Descriptor) Attr(name string) (string, bool) {
	var v string
	switch name {
	case "location":
		v = d.Location
	case "datatype":
		v = d.Datatype
	case "production":
		v = d.Production
	case "aggregation":
		v = d.Aggregation
	case "period":
		v = d.Period
	case "lead":
		v = d.Lead
	case "timescale":
		v = d.Timescale
	case "extent":
		v = d.Extent
	case "fill":
		v = d.Fill
	default:
		v = d.Extras[name]
	}
	return v, v != ""
}

// setAttr assigns a named attribute, routing unknown names to Extras.
func (d *Descriptor) setAttr(name, v string) {
	switch name {
	case "location":
		d.Location = v
	case "datatype":
		d.Datatype = v
	case "production":
		d.Production = v
	case "aggregation":
		d.Aggregation = v
	case "period":
		d.Period = v
	case "lead":
		d.Lead = v
	case "timescale":
		d.Timescale = v
	case "extent":
		d.Extent = v
	case "fill":
		d.Fill = v
	default:
		if d.Extras == nil {
			d.Extras = make(map[string]string)
		}
		d.Extras[name] = v
	}
}

// Family classifies the descriptor by datatype.
func (d Descriptor) Family() Family {
	switch {
	case d.Datatype == "":
		return FamilyUnknown
	case d.Datatype == "downscaling_rainfall" || d.Datatype == "downscaling_temperature":
		return FamilyDownscaling
	case strings.HasSuffix(d.Datatype, "_climatology"):
		return FamilyClimatology
	default:
		return FamilyStandard
	}
}

// Granularity parses Period as a calendar granularity. It reports false for
// undated descriptors and for periods that are labels rather than units.
func (d Descriptor) Granularity() (Granularity, bool) {
	g, err := ParseGranularity(d.Period)
	if err != nil || g > Day {
		return 0, false
	}
	return g, true
}

// Dated reports whether the descriptor carries both a calendar period and
// a range.
func (d Descriptor) Dated() bool {
	_, ok := d.Granularity()
	return ok && d.Range != nil
}

func (d Descriptor) String() string {
	var b strings.Builder
	b.WriteString(d.Datatype)
	for _, v := range []string{d.Production, d.Aggregation, d.Period, d.Lead, d.Timescale, d.Extent, d.Fill} {
		if v != "" {
			b.WriteByte('/')
			b.WriteString(v)
		}
	}
	if d.Location != "" {
		fmt.Fprintf(&b, "@%s", d.Location)
	}
	return b.String()
}

// clone returns a copy whose maps and slices are independent of d.
func (d Descriptor) clone() Descriptor {
	c := d
	if d.Range != nil {
		r := *d.Range
		c.Range = &r
	}
	c.Files = append([]string(nil), d.Files...)
	if d.Extras != nil {
		c.Extras = make(map[string]string, len(d.Extras))
		for k, v := range d.Extras {
			c.Extras[k] = v
		}
	}
	return c
}
