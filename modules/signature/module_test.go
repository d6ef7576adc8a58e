package signature_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/ctyutil"
	"github.com/vk/rosettago/internal/handlers"
	"github.com/vk/rosettago/modules/signature"
)

func handler(t *testing.T, name string) catalog.Handler {
	t.Helper()
	r := handlers.New()
	(&signature.Module{}).Register(r)
	h, ok := r.Get(name)
	require.True(t, ok)
	return h
}

func TestScatteringIsShiftInvariantForConstants(t *testing.T) {
	h := handler(t, "OnEvalScattering1D")
	in := ctyutil.FloatsToList([]float64{5, 5, 5, 5, 5, 5, 5, 5})

	out, err := h.Evaluate(context.Background(), []cty.Value{in}, nil)
	require.NoError(t, err)

	feat, err := ctyutil.ListToFloats(out)
	require.NoError(t, err)
	require.Len(t, feat, signature.FeatureWidth)
	for _, v := range feat {
		assert.Zero(t, v, "a constant path has no increments")
	}
}

func TestScatteringScalesWithParameter(t *testing.T) {
	h := handler(t, "OnEvalScattering1D")
	in := ctyutil.FloatsToList([]float64{0, 1, 0, 1})

	base, err := h.Evaluate(context.Background(), []cty.Value{in},
		map[string]cty.Value{"scale": cty.NumberFloatVal(1)})
	require.NoError(t, err)
	doubled, err := h.Evaluate(context.Background(), []cty.Value{in},
		map[string]cty.Value{"scale": cty.NumberFloatVal(2)})
	require.NoError(t, err)

	b, err := ctyutil.ListToFloats(base)
	require.NoError(t, err)
	d, err := ctyutil.ListToFloats(doubled)
	require.NoError(t, err)
	for i := range b {
		assert.InDelta(t, 2*b[i], d[i], 1e-9)
	}
}

func TestPathSigGradientMovesScale(t *testing.T) {
	h := handler(t, "OnEvalPathSig")
	trainable, ok := h.(catalog.Trainable)
	require.True(t, ok)

	next := trainable.ApplyGradient(5, map[string]cty.Value{"scale": cty.NumberFloatVal(1)})
	assert.InDelta(t, 0.95, ctyutil.ParamFloat(next, "scale", 0), 1e-9)
}
