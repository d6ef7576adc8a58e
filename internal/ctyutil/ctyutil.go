// Package ctyutil converts between cty values and the float slices the
// numeric handlers work in. All values crossing the operator execution
// boundary are cty values; handlers decode on the way in and encode on the
// way out.
package ctyutil

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// FloatsToList encodes a float slice as a cty list of numbers. An empty slice
// encodes as an empty list of number.
func FloatsToList(vals []float64) cty.Value {
	if len(vals) == 0 {
		return cty.ListValEmpty(cty.Number)
	}
	elems := make([]cty.Value, len(vals))
	for i, v := range vals {
		elems[i] = cty.NumberFloatVal(v)
	}
	return cty.ListVal(elems)
}

// ListToFloats decodes a cty list (or tuple) of numbers into a float slice.
func ListToFloats(v cty.Value) ([]float64, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, fmt.Errorf("value is null or unknown")
	}
	ty := v.Type()
	if !ty.IsListType() && !ty.IsTupleType() {
		return nil, fmt.Errorf("expected a list of numbers, got %s", ty.FriendlyName())
	}
	out := make([]float64, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		f, err := Float(ev)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Float decodes a cty number into a float64.
func Float(v cty.Value) (float64, error) {
	if v.IsNull() || !v.IsKnown() {
		return 0, fmt.Errorf("value is null or unknown")
	}
	if v.Type() != cty.Number {
		return 0, fmt.Errorf("expected a number, got %s", v.Type().FriendlyName())
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}

// ParamFloat reads a float parameter with a default for missing entries.
func ParamFloat(params map[string]cty.Value, name string, def float64) float64 {
	v, ok := params[name]
	if !ok {
		return def
	}
	f, err := Float(v)
	if err != nil {
		return def
	}
	return f
}
