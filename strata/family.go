package strata

import (
	"context"
	"fmt"
	"math"
	"path"
	"strings"
)

// fillDefaults completes a descriptor with location-dependent defaults.
func (c Config) fillDefaults(d *Descriptor) {
	original := d.Location
	if _, ok := c.Locations[d.Location]; !ok {
		d.Location = c.DefaultLocation
	}
	if d.Extent == "" {
		d.Extent = c.Locations[d.Location].DefaultExtent
	}
	if d.Datatype == "ignition_probability" && d.Lead == "" {
		d.Lead = "lead00"
	}
	if original == "american_samoa" && d.Datatype == "prism_climatology" {
		if _, ok := d.Attr("units"); !ok {
			switch d.Extras["variable"] {
			case "rainfall":
				d.setAttr("units", "mm")
			case "air_temperature":
				d.setAttr("units", "celcius")
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Downscaling
// -----------------------------------------------------------------------------

// downscalingHierarchy returns the directory attributes of a downscaling
// descriptor. Only Hawaii temperature projections skip the season tier.
func downscalingHierarchy(d Descriptor) []string {
	if d.Location == "hawaii" && d.Datatype == "downscaling_temperature" {
		return []string{"dsm", "period"}
	}
	return []string{"dsm", "season", "period"}
}

// downscalingPaths renders the expected file of each requested tag. Each
// file sits under the datatype and its hierarchy values; projections and
// change maps add the model tier.
func downscalingPaths(root string, d Descriptor) []string {
	base := []string{d.Datatype}
	for _, attr := range downscalingHierarchy(d) {
		v, _ := d.Attr(attr)
		base = append(base, v)
	}

	units, ok := d.Attr("units")
	if !ok {
		units = "celcius"
		if d.Datatype == "downscaling_rainfall" {
			units = "mm"
		}
	}
	model, _ := d.Attr("model")

	var out []string
	for _, tag := range d.Files {
		values := append([]string(nil), base...)
		var suffix string
		switch {
		case tag == "data_map_change":
			values = append(values, model)
			suffix = "change_" + units + ".tif"
		case d.Period != "present":
			values = append(values, model)
			suffix = "prediction_" + units + ".tif"
		default:
			suffix = units + ".tif"
		}
		dir := path.Join(append([]string{root}, values...)...)
		name := strings.Join(append(values, suffix), "_")
		out = append(out, path.Join(dir, name))
	}
	return out
}

// -----------------------------------------------------------------------------
// Climatology
// -----------------------------------------------------------------------------

// climatologyPeriod derives the period label of a climatology map from its
// mean type and reference date. Unknown mean types have no derived label.
func climatologyPeriod(meanType, date string) (string, error) {
	switch meanType {
	case "mean_30yr_annual", "mean_annual_decadal", "mean_monthly":
	default:
		return "", nil
	}
	t, err := ParseTime(date)
	if err != nil {
		return "", err
	}
	year := t.Year()
	switch meanType {
	case "mean_30yr_annual":
		// 30-year windows end on years congruent to 10 modulo 30.
		end := int(math.Ceil(float64(year-10)/30))*30 + 10
		return fmt.Sprintf("%d-%d", end-29, end), nil
	case "mean_annual_decadal":
		end := int(math.Ceil(float64(year)/10)) * 10
		return fmt.Sprintf("%d-%d", end-9, end), nil
	default:
		return strings.ToLower(t.Month().String()), nil
	}
}

// climatologyPaths renders the expected metadata document and data map of
// a climatology descriptor. Other tags have no climatology file.
func (c Config) climatologyPaths(root string, d Descriptor) ([]string, error) {
	variable, _ := d.Attr("variable")
	meanType, _ := d.Attr("mean_type")
	units, _ := d.Attr("units")

	var out []string
	for _, tag := range d.Files {
		switch tag {
		case "metadata":
			ext := "txt"
			if d.Location == "hawaii" {
				ext = "pdf"
			}
			name := fmt.Sprintf("%s_%s_metadata.%s", d.Datatype, variable, ext)
			out = append(out, path.Join(root, d.Datatype, variable, name))
		case "data_map":
			period := d.Period
			if period == "" {
				date, _ := d.Attr("date")
				p, err := climatologyPeriod(meanType, date)
				if err != nil {
					return nil, err
				}
				period = p
			}
			ext := "tif"
			if ft, err := c.LookupFileType(tag); err == nil {
				ext = ft.Extension
			}
			name := joinName(d.Datatype, d.Aggregation, variable, meanType, d.Extent, period, units) + "." + ext
			out = append(out, path.Join(root, d.Datatype, variable, d.Aggregation, meanType, d.Extent, name))
		}
	}
	return out, nil
}

// existing keeps the candidates that exist as regular files.
func existing(ctx context.Context, a Archive, candidates []string) PathResult {
	var res PathResult
	for _, p := range candidates {
		e, err := a.Stat(ctx, p)
		if err != nil || e.Kind != KindFile {
			continue
		}
		res.Paths = append(res.Paths, p)
		res.NumFiles++
	}
	return res
}
