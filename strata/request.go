package strata

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// DecodeRequest parses a JSON array of descriptors. It accepts both the
// flat descriptor shape and the legacy shape, which is detected by a
// fileData field on the first element.
func DecodeRequest(data []byte) ([]Descriptor, error) {
	var raw []jsoniter.RawMessage
	if err := jsonCodec.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("strata: decode request: %w: %v", ErrInvalidRequest, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	if isLegacy(raw[0]) {
		var items []LegacyItem
		if err := jsonCodec.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("strata: decode legacy request: %w: %v", ErrInvalidRequest, err)
		}
		return Convert(items)
	}

	out := make([]Descriptor, 0, len(raw))
	for i, msg := range raw {
		var attrs map[string]any
		if err := jsonCodec.Unmarshal(msg, &attrs); err != nil {
			return nil, fmt.Errorf("strata: decode descriptor %d: %w: %v", i, ErrInvalidRequest, err)
		}
		d, err := descriptorFromAttrs(attrs)
		if err != nil {
			return nil, fmt.Errorf("strata: decode descriptor %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func isLegacy(first jsoniter.RawMessage) bool {
	return jsonCodec.Get(first, "fileData").ValueType() != jsoniter.InvalidValue
}

// descriptorFromAttrs builds a descriptor from a decoded attribute bag.
// Known hierarchy names fill the fixed fields; everything else becomes an
// extra. Null values are absent.
func descriptorFromAttrs(attrs map[string]any) (Descriptor, error) {
	var d Descriptor

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := attrs[k]
		if v == nil {
			continue
		}
		switch k {
		case "files":
			files, err := stringList(v)
			if err != nil {
				return Descriptor{}, fmt.Errorf("files: %w", err)
			}
			d.Files = files
		case "range":
			r, err := rangeFrom(v)
			if err != nil {
				return Descriptor{}, fmt.Errorf("range: %w", err)
			}
			d.Range = r
		default:
			s, err := scalarString(v)
			if err != nil {
				return Descriptor{}, fmt.Errorf("%s: %w", k, err)
			}
			if s != "" {
				d.setAttr(k, s)
			}
		}
	}
	return d, nil
}

func stringList(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array: %w", ErrInvalidDescriptor)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected string tag: %w", ErrInvalidDescriptor)
		}
		out = append(out, s)
	}
	return out, nil
}

func rangeFrom(v any) (*DateRange, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object: %w", ErrInvalidDescriptor)
	}
	start, _ := m["start"].(string)
	end, _ := m["end"].(string)
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, fmt.Errorf("start and end are both required: %w", ErrInvalidDescriptor)
	}
	s, err := ParseTime(start)
	if err != nil {
		return nil, err
	}
	e, err := ParseTime(end)
	if err != nil {
		return nil, err
	}
	return &DateRange{Start: s, End: e}, nil
}

func scalarString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", fmt.Errorf("expected scalar value: %w", ErrInvalidDescriptor)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseTime parses a request timestamp. Values without an offset are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("strata: parse time %q: %w", s, ErrInvalidDate)
}
