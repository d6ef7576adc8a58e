// Package combinator provides the fan-in operator handlers: dimension
// preserving concat-merge, softmax attention pooling, and path alignment.
package combinator

import (
	"context"
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/ctyutil"
	"github.com/vk/rosettago/internal/handlers"
)

// Module implements handlers.Module for this package.
type Module struct{}

func decodeAll(name string, inputs []cty.Value) ([][]float64, error) {
	if len(inputs) < 2 {
		return nil, fmt.Errorf("%s expects at least 2 inputs, got %d", name, len(inputs))
	}
	vecs := make([][]float64, len(inputs))
	for i, in := range inputs {
		v, err := ctyutil.ListToFloats(in)
		if err != nil {
			return nil, fmt.Errorf("%s input %d: %w", name, i, err)
		}
		vecs[i] = v
	}
	for i := 1; i < len(vecs); i++ {
		if len(vecs[i]) != len(vecs[0]) {
			return nil, fmt.Errorf("%s inputs disagree on length: %d vs %d", name, len(vecs[0]), len(vecs[i]))
		}
	}
	return vecs, nil
}

// OnEvalConcat merges equal-length vectors elementwise. The declared type is
// dimension preserving, so the merge averages rather than stacking.
func OnEvalConcat(ctx context.Context, inputs []cty.Value, params map[string]cty.Value) (cty.Value, error) {
	vecs, err := decodeAll("concat", inputs)
	if err != nil {
		return cty.NilVal, err
	}
	out := make([]float64, len(vecs[0]))
	for _, v := range vecs {
		for i, x := range v {
			out[i] += x
		}
	}
	for i := range out {
		out[i] /= float64(len(vecs))
	}
	return ctyutil.FloatsToList(out), nil
}

// OnEvalAlign merges two paths pointwise; it exists so multi-input positions
// are exercised on sequence-typed data too.
func OnEvalAlign(ctx context.Context, inputs []cty.Value, params map[string]cty.Value) (cty.Value, error) {
	return OnEvalConcat(ctx, inputs, params)
}

// attention weights each input vector by the softmax of its energy, sharpened
// by a trainable temperature.
type attention struct{}

func (attention) Evaluate(ctx context.Context, inputs []cty.Value, params map[string]cty.Value) (cty.Value, error) {
	vecs, err := decodeAll("attention", inputs)
	if err != nil {
		return cty.NilVal, err
	}
	temp := ctyutil.ParamFloat(params, "temp", 1.0)
	if temp <= 0 {
		temp = 1.0
	}

	weights := make([]float64, len(vecs))
	var norm float64
	for i, v := range vecs {
		var energy float64
		for _, x := range v {
			energy += x * x
		}
		weights[i] = math.Exp(energy / temp)
		norm += weights[i]
	}

	out := make([]float64, len(vecs[0]))
	for i, v := range vecs {
		w := weights[i] / norm
		for j, x := range v {
			out[j] += w * x
		}
	}
	return ctyutil.FloatsToList(out), nil
}

func (attention) ApplyGradient(signal float64, params map[string]cty.Value) map[string]cty.Value {
	temp := ctyutil.ParamFloat(params, "temp", 1.0)
	out := make(map[string]cty.Value, len(params))
	for k, v := range params {
		out[k] = v
	}
	next := temp - 0.01*signal
	if next < 0.05 {
		next = 0.05
	}
	out["temp"] = cty.NumberFloatVal(next)
	return out
}

var _ catalog.Trainable = attention{}

// Register registers the handlers with the engine.
func (m *Module) Register(r *handlers.Registry) {
	r.Register("OnEvalConcat", catalog.HandlerFunc(OnEvalConcat))
	r.Register("OnEvalAlign", catalog.HandlerFunc(OnEvalAlign))
	r.Register("OnEvalAttention", attention{})
}
