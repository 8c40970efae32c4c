package strata

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// -----------------------------------------------------------------------------
// Legacy request shape
// -----------------------------------------------------------------------------

// LegacyItem groups several file-type tag sets with parameter variants that
// share one date range and one set of top-level parameters.
type LegacyItem struct {
	FileData []LegacyFileData `json:"fileData"`
	Dates    *LegacyDates     `json:"dates"`
	Params   map[string]any   `json:"params"`
}

// LegacyFileData pairs file-type tags with named parameter variants.
type LegacyFileData struct {
	Files      []string      `json:"files"`
	FileParams ParamVariants `json:"fileParams"`
}

// LegacyDates is the shared date range of a legacy item.
type LegacyDates struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ParamVariants maps parameter names to their candidate values, keeping the
// declaration order of the names.
type ParamVariants struct {
	Names  []string
	Values map[string][]any
}

// UnmarshalJSON decodes an object of arrays, preserving key order.
func (p *ParamVariants) UnmarshalJSON(data []byte) error {
	iter := jsonCodec.BorrowIterator(data)
	defer jsonCodec.ReturnIterator(iter)

	if iter.WhatIsNext() == jsoniter.NilValue {
		iter.Skip()
		return iter.Error
	}

	out := ParamVariants{Values: make(map[string][]any)}
	var shapeErr error
	iter.ReadObjectCB(func(it *jsoniter.Iterator, name string) bool {
		if it.WhatIsNext() != jsoniter.ArrayValue {
			shapeErr = fmt.Errorf("strata: fileParams %q is not an array: %w", name, ErrInvalidRequest)
			return false
		}
		var vals []any
		it.ReadVal(&vals)
		if _, dup := out.Values[name]; !dup {
			out.Names = append(out.Names, name)
		}
		out.Values[name] = vals
		return it.Error == nil
	})
	if shapeErr != nil {
		return shapeErr
	}
	if iter.Error != nil {
		return fmt.Errorf("strata: decode fileParams: %w", iter.Error)
	}
	*p = out
	return nil
}

// MarshalJSON encodes the variants in declaration order.
func (p ParamVariants) MarshalJSON() ([]byte, error) {
	stream := jsonCodec.BorrowStream(nil)
	defer jsonCodec.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, name := range p.Names {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(name)
		stream.WriteVal(p.Values[name])
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

// Combinations returns the Cartesian product of the variants. The first
// declared name varies slowest. An empty set yields one empty combination.
func (p ParamVariants) Combinations() []map[string]any {
	combos := []map[string]any{{}}
	for i := len(p.Names) - 1; i >= 0; i-- {
		name := p.Names[i]
		var next []map[string]any
		for _, v := range p.Values[name] {
			for _, rest := range combos {
				c := make(map[string]any, len(rest)+1)
				for k, rv := range rest {
					c[k] = rv
				}
				c[name] = v
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos
}

// -----------------------------------------------------------------------------
// Conversion
// -----------------------------------------------------------------------------

// Convert expands legacy items into flat descriptors, one per file-data
// entry and parameter combination. Attributes merge in order: the shared
// files and range, the item parameters, then the combination, later values
// replacing earlier ones.
func Convert(items []LegacyItem) ([]Descriptor, error) {
	var out []Descriptor
	for i, item := range items {
		if item.FileData == nil {
			return nil, fmt.Errorf("strata: convert item %d: missing fileData: %w", i, ErrInvalidRequest)
		}
		for _, fd := range item.FileData {
			for _, combo := range fd.FileParams.Combinations() {
				attrs := map[string]any{"files": toAnySlice(fd.Files)}
				if item.Dates != nil {
					attrs["range"] = map[string]any{"start": item.Dates.Start, "end": item.Dates.End}
				}
				for k, v := range item.Params {
					attrs[k] = v
				}
				for k, v := range combo {
					attrs[k] = v
				}
				d, err := descriptorFromAttrs(attrs)
				if err != nil {
					return nil, fmt.Errorf("strata: convert item %d: %w", i, err)
				}
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
