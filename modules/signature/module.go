// Package signature provides the path-signature style operator handlers: a
// cheap first-order scattering approximation and an expensive second-order
// path signature. Both are trainable through a scalar scale parameter.
package signature

import (
	"context"
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/ctyutil"
	"github.com/vk/rosettago/internal/handlers"
)

// FeatureWidth matches the pooled feature width used across modules.
const FeatureWidth = 16

// Module implements handlers.Module for this package.
type Module struct{}

// scaled wraps a pooling function with the shared trainable scale parameter.
type scaled struct {
	name string
	pool func(x []float64, scale float64) []float64
}

func (s scaled) Evaluate(ctx context.Context, inputs []cty.Value, params map[string]cty.Value) (cty.Value, error) {
	if len(inputs) != 1 {
		return cty.NilVal, fmt.Errorf("%s expects 1 input, got %d", s.name, len(inputs))
	}
	x, err := ctyutil.ListToFloats(inputs[0])
	if err != nil {
		return cty.NilVal, err
	}
	if len(x) == 0 {
		return cty.NilVal, fmt.Errorf("%s input is empty", s.name)
	}
	scale := ctyutil.ParamFloat(params, "scale", 1.0)
	return ctyutil.FloatsToList(s.pool(x, scale)), nil
}

func (s scaled) ApplyGradient(signal float64, params map[string]cty.Value) map[string]cty.Value {
	scale := ctyutil.ParamFloat(params, "scale", 1.0)
	out := make(map[string]cty.Value, len(params))
	for k, v := range params {
		out[k] = v
	}
	out["scale"] = cty.NumberFloatVal(scale - 0.01*signal)
	return out
}

var _ catalog.Trainable = scaled{}

// scattering pools rectified first differences into FeatureWidth windows.
func scattering(x []float64, scale float64) []float64 {
	out := make([]float64, FeatureWidth)
	for i := 1; i < len(x); i++ {
		bin := i * FeatureWidth / len(x)
		if bin >= FeatureWidth {
			bin = FeatureWidth - 1
		}
		out[bin] += scale * math.Abs(x[i]-x[i-1])
	}
	return out
}

// pathSig pools second-order increment products, a quadratically more
// expensive signal than scattering.
func pathSig(x []float64, scale float64) []float64 {
	out := make([]float64, FeatureWidth)
	for i := 1; i < len(x); i++ {
		di := x[i] - x[i-1]
		for j := 1; j <= i; j++ {
			dj := x[j] - x[j-1]
			bin := (i + j) * FeatureWidth / (2 * len(x))
			if bin >= FeatureWidth {
				bin = FeatureWidth - 1
			}
			out[bin] += scale * di * dj
		}
	}
	return out
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *handlers.Registry) {
	r.Register("OnEvalScattering1D", scaled{name: "scattering1d", pool: scattering})
	r.Register("OnEvalPathSig", scaled{name: "path_sig", pool: pathSig})
}
