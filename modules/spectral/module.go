// Package spectral provides the spectral-transform operator handlers: a naive
// DFT magnitude transform and a spectrum pooling operator. The math here is
// deliberately small; the engine only cares about the handler contract.
package spectral

import (
	"context"
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/ctyutil"
	"github.com/vk/rosettago/internal/handlers"
)

// FeatureWidth is the fixed width of pooled feature vectors.
const FeatureWidth = 16

// Module implements handlers.Module for this package.
type Module struct{}

// OnEvalFFT computes a naive DFT magnitude spectrum of the input path. It has
// no trainable parameters.
func OnEvalFFT(ctx context.Context, inputs []cty.Value, params map[string]cty.Value) (cty.Value, error) {
	if len(inputs) != 1 {
		return cty.NilVal, fmt.Errorf("fft expects 1 input, got %d", len(inputs))
	}
	x, err := ctyutil.ListToFloats(inputs[0])
	if err != nil {
		return cty.NilVal, err
	}
	n := len(x)
	if n == 0 {
		return cty.NilVal, fmt.Errorf("fft input is empty")
	}
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		var re, im float64
		for i, v := range x {
			angle := 2 * math.Pi * float64(k) * float64(i) / float64(n)
			re += v * math.Cos(angle)
			im -= v * math.Sin(angle)
		}
		out[k] = math.Hypot(re, im) / float64(n)
	}
	return ctyutil.FloatsToList(out), nil
}

// specPool pools a spectrum into FeatureWidth bins, scaled by a trainable
// gain parameter.
type specPool struct{}

func (specPool) Evaluate(ctx context.Context, inputs []cty.Value, params map[string]cty.Value) (cty.Value, error) {
	if len(inputs) != 1 {
		return cty.NilVal, fmt.Errorf("spec_pool expects 1 input, got %d", len(inputs))
	}
	s, err := ctyutil.ListToFloats(inputs[0])
	if err != nil {
		return cty.NilVal, err
	}
	if len(s) == 0 {
		return cty.NilVal, fmt.Errorf("spec_pool input is empty")
	}
	gain := ctyutil.ParamFloat(params, "gain", 1.0)
	out := make([]float64, FeatureWidth)
	for i, v := range s {
		bin := i * FeatureWidth / len(s)
		if bin >= FeatureWidth {
			bin = FeatureWidth - 1
		}
		out[bin] += gain * v
	}
	return ctyutil.FloatsToList(out), nil
}

func (specPool) ApplyGradient(signal float64, params map[string]cty.Value) map[string]cty.Value {
	gain := ctyutil.ParamFloat(params, "gain", 1.0)
	out := make(map[string]cty.Value, len(params))
	for k, v := range params {
		out[k] = v
	}
	out["gain"] = cty.NumberFloatVal(gain - 0.01*signal)
	return out
}

var _ catalog.Trainable = specPool{}

// OnEvalFeatEmbed re-embeds a pooled feature vector as a flat spectrum, the
// inverse direction of pooling. Width is preserved.
func OnEvalFeatEmbed(ctx context.Context, inputs []cty.Value, params map[string]cty.Value) (cty.Value, error) {
	if len(inputs) != 1 {
		return cty.NilVal, fmt.Errorf("feat_embed expects 1 input, got %d", len(inputs))
	}
	v, err := ctyutil.ListToFloats(inputs[0])
	if err != nil {
		return cty.NilVal, err
	}
	return ctyutil.FloatsToList(v), nil
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *handlers.Registry) {
	r.Register("OnEvalFFT", catalog.HandlerFunc(OnEvalFFT))
	r.Register("OnEvalSpecPool", specPool{})
	r.Register("OnEvalFeatEmbed", catalog.HandlerFunc(OnEvalFeatEmbed))
}
