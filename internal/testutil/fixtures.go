// Package testutil builds the shared operator fixtures used across package
// tests: a small catalog of spectral, signature, combinator and adapter
// operators with real toy handlers, matching the widths the modules agree on.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/ctyutil"
	"github.com/vk/rosettago/internal/handlers"
	"github.com/vk/rosettago/internal/typing"
	"github.com/vk/rosettago/modules/adapters"
	"github.com/vk/rosettago/modules/combinator"
	"github.com/vk/rosettago/modules/signature"
	"github.com/vk/rosettago/modules/spectral"
)

// FeatureWidth mirrors the width the operator modules pool to.
const FeatureWidth = spectral.FeatureWidth

// PathType is the symbolic sequence type: path[t]/euclidean.
func PathType() typing.Type {
	return typing.New("path", []typing.Dim{typing.Sym("t")}, "euclidean")
}

// ConcretePath is a path with a fixed length.
func ConcretePath(n int) typing.Type {
	return typing.New("path", []typing.Dim{typing.Fixed(n)}, "euclidean")
}

// SpectrumType is the symbolic spectrum type: spectrum[t]/l2.
func SpectrumType() typing.Type {
	return typing.New("spectrum", []typing.Dim{typing.Sym("t")}, "l2")
}

// FeatureType is the fixed-width feature vector type: feature[16]/l2.
func FeatureType() typing.Type {
	return typing.New("feature", []typing.Dim{typing.Fixed(FeatureWidth)}, "l2")
}

// SymbolicFeature is the feature type with a symbolic width, as combinators
// declare it.
func SymbolicFeature() typing.Type {
	return typing.New("feature", []typing.Dim{typing.Sym("d")}, "l2")
}

// PointcloudType is a kind with no operators registered over it.
func PointcloudType() typing.Type {
	return typing.New("pointcloud", []typing.Dim{typing.Sym("p"), typing.Fixed(3)}, "euclidean")
}

// Handlers registers every operator module and returns the handler registry.
func Handlers() *handlers.Registry {
	r := handlers.New()
	for _, m := range []handlers.Module{
		&spectral.Module{},
		&signature.Module{},
		&combinator.Module{},
		&adapters.Module{},
	} {
		m.Register(r)
	}
	return r
}

func mustHandler(t *testing.T, r *handlers.Registry, name string) catalog.Handler {
	t.Helper()
	h, ok := r.Get(name)
	require.True(t, ok, "handler %s not registered", name)
	return h
}

// NewCatalog builds the frozen scenario catalog:
//
//	fft          path -> spectrum   cost 10
//	scattering1d path -> feature    cost 5   differentiable
//	path_sig     path -> feature    cost 30  differentiable
//	spec_pool    spectrum -> feature cost 3  differentiable
//	spec_cast    spectrum -> feature cost 1  adapter
//	concat       feature x feature -> feature cost 1 differentiable
//	attention    feature x feature -> feature cost 4 differentiable, unknown stability
//	feat_embed   feature -> spectrum cost 6 differentiable
//	align        path x path -> path cost 2 differentiable
func NewCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := NewUnfrozenCatalog(t)
	c.Freeze()
	return c
}

// NewUnfrozenCatalog is NewCatalog without the final Freeze, for tests that
// register extra operators.
func NewUnfrozenCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	r := Handlers()
	c := catalog.New("path", "spectrum", "feature", "pointcloud", "barcode")

	scale := map[string]cty.Value{"scale": cty.NumberFloatVal(1)}
	gain := map[string]cty.Value{"gain": cty.NumberFloatVal(1)}
	temp := map[string]cty.Value{"temp": cty.NumberFloatVal(1)}

	ops := []*catalog.Operator{
		{
			Name: "fft", InTypes: []typing.Type{PathType()}, OutType: SpectrumType(),
			Cost: map[string]float64{"cost": 10}, Stability: catalog.KnownBound(1),
			Handler: mustHandler(t, r, "OnEvalFFT"),
		},
		{
			Name: "scattering1d", InTypes: []typing.Type{PathType()}, OutType: FeatureType(),
			Differentiable: true, Cost: map[string]float64{"cost": 5},
			Stability: catalog.KnownBound(1), Params: scale,
			Handler: mustHandler(t, r, "OnEvalScattering1D"),
		},
		{
			Name: "path_sig", InTypes: []typing.Type{PathType()}, OutType: FeatureType(),
			Differentiable: true, Cost: map[string]float64{"cost": 30},
			Stability: catalog.KnownBound(2), Params: scale,
			Handler: mustHandler(t, r, "OnEvalPathSig"),
		},
		{
			Name: "spec_pool", InTypes: []typing.Type{SpectrumType()}, OutType: FeatureType(),
			Differentiable: true, Cost: map[string]float64{"cost": 3},
			Stability: catalog.KnownBound(1), Params: gain,
			Handler: mustHandler(t, r, "OnEvalSpecPool"),
		},
		{
			Name: "spec_cast", InTypes: []typing.Type{SpectrumType()}, OutType: FeatureType(),
			Adapter: true, Cost: map[string]float64{"cost": 1},
			Stability: catalog.KnownBound(1),
			Handler:   mustHandler(t, r, "OnEvalSpecCast"),
		},
		{
			Name:    "concat",
			InTypes: []typing.Type{SymbolicFeature(), SymbolicFeature()}, OutType: SymbolicFeature(),
			Differentiable: true, Cost: map[string]float64{"cost": 1},
			Stability: catalog.KnownBound(1),
			Handler:   mustHandler(t, r, "OnEvalConcat"),
		},
		{
			Name:    "attention",
			InTypes: []typing.Type{SymbolicFeature(), SymbolicFeature()}, OutType: SymbolicFeature(),
			Differentiable: true, Cost: map[string]float64{"cost": 4},
			Stability: catalog.UnknownBound(), Params: temp,
			Handler: mustHandler(t, r, "OnEvalAttention"),
		},
		{
			Name:    "feat_embed",
			InTypes: []typing.Type{FeatureType()},
			OutType: typing.New("spectrum", []typing.Dim{typing.Fixed(FeatureWidth)}, "l2"),
			Differentiable: true, Cost: map[string]float64{"cost": 6},
			Stability: catalog.KnownBound(1),
			Handler:   mustHandler(t, r, "OnEvalFeatEmbed"),
		},
		{
			Name:    "align",
			InTypes: []typing.Type{alignPath(), alignPath()}, OutType: alignPath(),
			Differentiable: true, Cost: map[string]float64{"cost": 2},
			Stability: catalog.KnownBound(1),
			Handler:   mustHandler(t, r, "OnEvalAlign"),
		},
	}
	for _, op := range ops {
		require.NoError(t, c.Register(op))
	}
	return c
}

// alignPath uses its own shape symbol so aligning two paths constrains their
// lengths against each other, not against unrelated operators.
func alignPath() typing.Type {
	return typing.New("path", []typing.Dim{typing.Sym("s")}, "euclidean")
}

// Wave returns a deterministic synthetic path of length n: a sine mixed with
// a slower phase-shifted component.
func Wave(n int, freq, phase float64) cty.Value {
	vals := make([]float64, n)
	for i := range vals {
		x := float64(i) / float64(n)
		vals[i] = math.Sin(2*math.Pi*freq*x+phase) + 0.5*math.Sin(2*math.Pi*freq*x/3)
	}
	return ctyutil.FloatsToList(vals)
}
