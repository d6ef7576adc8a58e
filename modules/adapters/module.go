// Package adapters provides the semantics-preserving cast handlers. An
// adapter's only job is to re-express a value in another type kind; the graph
// inserts these automatically when a slot is adapter-bridgeable.
package adapters

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/ctyutil"
	"github.com/vk/rosettago/internal/handlers"
)

// FeatureWidth matches the pooled feature width used across modules.
const FeatureWidth = 16

// Module implements handlers.Module for this package.
type Module struct{}

// OnEvalSpecCast resamples a spectrum of any length onto the fixed feature
// width without reweighting, the cheapest faithful cast available.
func OnEvalSpecCast(ctx context.Context, inputs []cty.Value, params map[string]cty.Value) (cty.Value, error) {
	if len(inputs) != 1 {
		return cty.NilVal, fmt.Errorf("spec_cast expects 1 input, got %d", len(inputs))
	}
	s, err := ctyutil.ListToFloats(inputs[0])
	if err != nil {
		return cty.NilVal, err
	}
	if len(s) == 0 {
		return cty.NilVal, fmt.Errorf("spec_cast input is empty")
	}
	out := make([]float64, FeatureWidth)
	for i := range out {
		src := i * len(s) / FeatureWidth
		out[i] = s[src]
	}
	return ctyutil.FloatsToList(out), nil
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *handlers.Registry) {
	r.Register("OnEvalSpecCast", catalog.HandlerFunc(OnEvalSpecCast))
}
