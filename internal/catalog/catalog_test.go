package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rosettago/internal/typing"
)

func noopHandler() Handler {
	return HandlerFunc(func(ctx context.Context, inputs []cty.Value, params map[string]cty.Value) (cty.Value, error) {
		return cty.NilVal, nil
	})
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := New("path", "spectrum", "feature")

	path := typing.New("path", []typing.Dim{typing.Sym("n")}, "euclidean")
	spectrum := typing.New("spectrum", []typing.Dim{typing.Sym("n")}, "l2")
	feature := typing.New("feature", []typing.Dim{typing.Fixed(16)}, "l2")

	ops := []*Operator{
		{
			Name: "fft", InTypes: []typing.Type{path}, OutType: spectrum,
			Cost: map[string]float64{DefaultCostMetric: 10}, Stability: KnownBound(1),
			Handler: noopHandler(),
		},
		{
			Name: "scattering1d", InTypes: []typing.Type{path}, OutType: feature,
			Differentiable: true, Cost: map[string]float64{DefaultCostMetric: 5},
			Stability: KnownBound(1), Handler: noopHandler(),
		},
		{
			Name: "spec_pool", InTypes: []typing.Type{spectrum}, OutType: feature,
			Differentiable: true, Cost: map[string]float64{DefaultCostMetric: 3},
			Stability: KnownBound(1), Handler: noopHandler(),
		},
		{
			Name: "spec_cast", InTypes: []typing.Type{spectrum}, OutType: feature,
			Adapter: true, Cost: map[string]float64{DefaultCostMetric: 1},
			Stability: KnownBound(1), Handler: noopHandler(),
		},
	}
	for _, op := range ops {
		require.NoError(t, c.Register(op))
	}
	return c
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	c := testCatalog(t)
	err := c.Register(&Operator{
		Name:    "fft",
		InTypes: []typing.Type{typing.New("path", nil, "")},
		OutType: typing.New("spectrum", nil, ""),
		Handler: noopHandler(),
	})
	var dup *DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "fft", dup.Name)
}

func TestRegisterRejectsMalformedSignatures(t *testing.T) {
	c := New("path")
	path := typing.New("path", nil, "")

	cases := []struct {
		name string
		op   *Operator
	}{
		{"unknown input kind", &Operator{Name: "a", InTypes: []typing.Type{typing.New("barcode", nil, "")}, OutType: path, Handler: noopHandler()}},
		{"unknown output kind", &Operator{Name: "b", InTypes: []typing.Type{path}, OutType: typing.New("barcode", nil, ""), Handler: noopHandler()}},
		{"zero arity", &Operator{Name: "c", OutType: path, Handler: noopHandler()}},
		{"adapter arity", &Operator{Name: "d", Adapter: true, InTypes: []typing.Type{path, path}, OutType: path, Handler: noopHandler()}},
		{"missing handler", &Operator{Name: "e", InTypes: []typing.Type{path}, OutType: path}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := c.Register(tc.op)
			var malformed *MalformedSignatureError
			assert.ErrorAs(t, err, &malformed)
		})
	}

	// A rejected entry is fatal to that entry only.
	require.NoError(t, c.Register(&Operator{Name: "ok", InTypes: []typing.Type{path}, OutType: path, Handler: noopHandler()}))
	assert.Equal(t, 1, c.Len())
}

func TestFreezeBlocksRegistration(t *testing.T) {
	c := testCatalog(t)
	c.Freeze()
	require.True(t, c.Frozen())

	err := c.Register(&Operator{
		Name:    "late",
		InTypes: []typing.Type{typing.New("path", nil, "")},
		OutType: typing.New("path", nil, ""),
		Handler: noopHandler(),
	})
	assert.ErrorIs(t, err, ErrFrozen)
}

func TestLookupDeterministicOrder(t *testing.T) {
	c := testCatalog(t)
	c.Freeze()

	path := typing.New("path", []typing.Dim{typing.Sym("n")}, "euclidean")
	feature := typing.New("feature", []typing.Dim{typing.Fixed(16)}, "l2")

	ops := c.Lookup(path, feature)
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Name
	}
	// scattering1d maps path->feature directly; fft maps path->spectrum,
	// bridged to feature by the spec_cast adapter. Cost ascending: 5 < 10.
	assert.Equal(t, []string{"scattering1d", "fft"}, names)
}

func TestLookupByInput(t *testing.T) {
	c := testCatalog(t)
	c.Freeze()

	spectrum := typing.New("spectrum", []typing.Dim{typing.Sym("n")}, "l2")
	ops := c.LookupByInput(spectrum)
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Name
	}
	// Cost ascending: spec_cast (1) before spec_pool (3).
	assert.Equal(t, []string{"spec_cast", "spec_pool"}, names)
}

func TestAdapterBetween(t *testing.T) {
	c := testCatalog(t)
	c.Freeze()

	spectrum := typing.New("spectrum", []typing.Dim{typing.Sym("n")}, "l2")
	feature := typing.New("feature", []typing.Dim{typing.Fixed(16)}, "l2")

	name, ok := c.AdapterBetween(spectrum, feature)
	require.True(t, ok)
	assert.Equal(t, "spec_cast", name)

	_, ok = c.AdapterBetween(feature, spectrum)
	assert.False(t, ok)
}
