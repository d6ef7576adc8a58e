package typing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifyConcreteShapes(t *testing.T) {
	a := New("path", []Dim{Fixed(128), Fixed(3)}, "euclidean")
	b := New("path", []Dim{Fixed(128), Fixed(3)}, "euclidean")

	require.NoError(t, Unify(a, b, NewBindings()))

	c := New("path", []Dim{Fixed(128), Fixed(4)}, "euclidean")
	assert.Error(t, Unify(a, c, NewBindings()))
}

func TestUnifyBindsSymbols(t *testing.T) {
	template := New("path", []Dim{Sym("n"), Fixed(3)}, "euclidean")
	candidate := New("path", []Dim{Fixed(256), Fixed(3)}, "euclidean")

	b := NewBindings()
	require.NoError(t, Unify(template, candidate, b))

	size, ok := b.Lookup("n")
	require.True(t, ok)
	assert.Equal(t, 256, size)

	// The same symbol must agree at every later occurrence.
	later := New("path", []Dim{Fixed(512), Fixed(3)}, "euclidean")
	err := Unify(template, later, b)
	require.Error(t, err)
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestUnifySymbolIdentity(t *testing.T) {
	a := New("spectrum", []Dim{Sym("n")}, "l2")
	same := New("spectrum", []Dim{Sym("n")}, "l2")
	other := New("spectrum", []Dim{Sym("m")}, "l2")

	assert.NoError(t, Unify(a, same, NewBindings()))
	assert.Error(t, Unify(a, other, NewBindings()))
}

func TestUnifyRejectsMismatchedFields(t *testing.T) {
	base := New("path", []Dim{Sym("n")}, "euclidean", "time_shift")

	t.Run("kind", func(t *testing.T) {
		c := New("spectrum", []Dim{Sym("n")}, "euclidean", "time_shift")
		assert.Error(t, Unify(base, c, NewBindings()))
	})
	t.Run("metric", func(t *testing.T) {
		c := New("path", []Dim{Sym("n")}, "l2", "time_shift")
		assert.Error(t, Unify(base, c, NewBindings()))
	})
	t.Run("group is set equality not subset", func(t *testing.T) {
		wider := New("path", []Dim{Sym("n")}, "euclidean", "time_shift", "scaling")
		narrower := New("path", []Dim{Sym("n")}, "euclidean")
		assert.Error(t, Unify(base, wider, NewBindings()))
		assert.Error(t, Unify(base, narrower, NewBindings()))
	})
	t.Run("rank", func(t *testing.T) {
		c := New("path", []Dim{Sym("n"), Fixed(3)}, "euclidean", "time_shift")
		assert.Error(t, Unify(base, c, NewBindings()))
	})
}

func TestGroupNormalization(t *testing.T) {
	a := New("feature", []Dim{Fixed(8)}, "l2", "rotation", "scaling", "rotation")
	b := New("feature", []Dim{Fixed(8)}, "l2", "scaling", "rotation")
	assert.True(t, GroupEqual(a.Group, b.Group))
}

type fakeAdapters struct {
	from, to Type
	name     string
}

func (f *fakeAdapters) AdapterBetween(from, to Type) (string, bool) {
	if from.Kind == f.from.Kind && to.Kind == f.to.Kind {
		return f.name, true
	}
	return "", false
}

func TestCompatible(t *testing.T) {
	spectrum := New("spectrum", []Dim{Sym("n")}, "l2")
	feature := New("feature", []Dim{Sym("n")}, "l2")
	adapters := &fakeAdapters{from: spectrum, to: feature, name: "spec_to_feat"}

	assert.Equal(t, CompatEqual, Compatible(spectrum, spectrum, adapters).Kind)

	c := Compatible(spectrum, feature, adapters)
	assert.Equal(t, CompatAdaptable, c.Kind)
	assert.Equal(t, "spec_to_feat", c.Adapter)

	assert.Equal(t, CompatIncompatible, Compatible(feature, spectrum, adapters).Kind)
	assert.Equal(t, CompatIncompatible, Compatible(feature, spectrum, nil).Kind)
}

func TestResolve(t *testing.T) {
	b := NewBindings()
	require.NoError(t, b.Bind("n", 64))

	ty := New("spectrum", []Dim{Sym("n"), Sym("m")}, "l2")
	resolved := ty.Resolve(b)

	assert.Equal(t, Fixed(64), resolved.Shape[0])
	assert.Equal(t, Sym("m"), resolved.Shape[1])
}
