package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/cost"
	"github.com/vk/rosettago/internal/decode"
	"github.com/vk/rosettago/internal/graph"
	"github.com/vk/rosettago/internal/search"
	"github.com/vk/rosettago/internal/supergraph"
	"github.com/vk/rosettago/internal/testutil"
	"github.com/vk/rosettago/internal/typing"
)

func examples(n int) []search.Example {
	out := make([]search.Example, n)
	for i := range out {
		out[i] = search.Example{
			Input:  testutil.Wave(64, float64(i%4)+1, float64(i)*0.3),
			Target: 0.1 * float64(i%3),
		}
	}
	return out
}

func testConfig() search.Config {
	return search.Config{Steps: 6, Workers: 2, BatchSize: 2}
}

func opNames(g *graph.Graph) []string {
	var names []string
	for _, n := range g.Nodes() {
		if n.Op != nil {
			names = append(names, n.Op.Name)
		}
	}
	return names
}

func TestSearchStaysWithinBudget(t *testing.T) {
	cat := testutil.NewCatalog(t)
	g, report, err := search.Search(context.Background(), cat, search.Request{
		Input:      testutil.ConcretePath(64),
		Output:     testutil.FeatureType(),
		TaskKind:   "regression",
		Train:      examples(8),
		Budget:     cost.Budget{"cost": 20},
		DepthBound: 2,
		Seed:       1,
		Config:     testConfig(),
	})
	require.NoError(t, err, "a feasible chain exists under this budget, so infeasibility is a bug")
	require.NotNil(t, g)

	names := opNames(g)
	assert.Contains(t, [][]string{
		{"scattering1d"},
		{"fft", "spec_pool"},
		{"fft", "spec_cast"},
	}, names)

	assert.NotEmpty(t, report.RunID)
	assert.LessOrEqual(t, report.Cost["cost"], 20.0)
	assert.Equal(t, 6, report.Steps)
}

func TestSearchRequiresFrozenCatalog(t *testing.T) {
	cat := testutil.NewUnfrozenCatalog(t)
	_, _, err := search.Search(context.Background(), cat, search.Request{
		Input:      testutil.ConcretePath(64),
		Output:     testutil.FeatureType(),
		Train:      examples(2),
		DepthBound: 2,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frozen")
}

func TestSearchInfeasibleTypePath(t *testing.T) {
	cat := testutil.NewCatalog(t)
	_, _, err := search.Search(context.Background(), cat, search.Request{
		Input:      testutil.PointcloudType(),
		Output:     testutil.FeatureType(),
		Train:      examples(2),
		DepthBound: 1,
		Config:     testConfig(),
	})
	var nce *supergraph.NoCandidatesError
	require.ErrorAs(t, err, &nce)
}

func TestSearchImpossibleBudget(t *testing.T) {
	cat := testutil.NewCatalog(t)
	_, _, err := search.Search(context.Background(), cat, search.Request{
		Input:      testutil.ConcretePath(64),
		Output:     testutil.FeatureType(),
		Train:      examples(4),
		Budget:     cost.Budget{"cost": 1},
		DepthBound: 2,
		Config:     testConfig(),
	})
	var infeasible *decode.SearchInfeasibleError
	require.ErrorAs(t, err, &infeasible)
	assert.NotNil(t, infeasible.Best, "the best-effort graph must survive the failure")
}

func TestSearchDeterministicForSeed(t *testing.T) {
	cat := testutil.NewCatalog(t)
	run := func() ([]string, map[string]float64) {
		g, report, err := search.Search(context.Background(), cat, search.Request{
			Input:      testutil.ConcretePath(64),
			Output:     testutil.FeatureType(),
			Train:      examples(8),
			Budget:     cost.Budget{"cost": 20},
			DepthBound: 2,
			Seed:       42,
			Config:     testConfig(),
		})
		require.NoError(t, err)
		return opNames(g), report.Cost
	}
	names1, cost1 := run()
	names2, cost2 := run()
	assert.Equal(t, names1, names2)
	assert.Equal(t, cost1, cost2)
}

func TestSearchCancelledStillDecodes(t *testing.T) {
	cat := testutil.NewCatalog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, report, err := search.Search(ctx, cat, search.Request{
		Input:      testutil.ConcretePath(64),
		Output:     testutil.FeatureType(),
		Train:      examples(4),
		Budget:     cost.Budget{"cost": 20},
		DepthBound: 2,
		Config:     testConfig(),
	})
	require.NoError(t, err, "cancellation stops optimization but still decodes")
	require.NotNil(t, g)
	assert.Zero(t, report.Steps)
}

func TestSearchCancelledAvoidsSameKindDeadEnd(t *testing.T) {
	cat := testutil.NewUnfrozenCatalog(t)
	h, ok := testutil.Handlers().Get("OnEvalScattering1D")
	require.True(t, ok)
	// Cheapest candidate of the right kind, wrong width: with uniform weights
	// a naive argmax would walk straight into it.
	require.NoError(t, cat.Register(&catalog.Operator{
		Name:           "feat_narrow",
		InTypes:        []typing.Type{testutil.PathType()},
		OutType:        typing.New("feature", []typing.Dim{typing.Fixed(8)}, "l2"),
		Differentiable: true,
		Cost:           map[string]float64{"cost": 1},
		Stability:      catalog.KnownBound(1),
		Handler:        h,
	}))
	cat.Freeze()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, _, err := search.Search(ctx, cat, search.Request{
		Input:      testutil.ConcretePath(64),
		Output:     testutil.FeatureType(),
		Train:      examples(4),
		Budget:     cost.Budget{"cost": 20},
		DepthBound: 1,
		Config:     testConfig(),
	})
	require.NoError(t, err, "a same-kind operator that cannot produce the requested width must never derail decoding")
	require.NotNil(t, g)
	assert.Equal(t, []string{"scattering1d"}, opNames(g))
}

func TestSearchValidatesRequest(t *testing.T) {
	cat := testutil.NewCatalog(t)

	_, _, err := search.Search(context.Background(), cat, search.Request{
		Input: testutil.ConcretePath(64), Output: testutil.FeatureType(),
		DepthBound: 2,
	})
	assert.Error(t, err, "no training data")

	_, _, err = search.Search(context.Background(), cat, search.Request{
		Input: testutil.ConcretePath(64), Output: testutil.FeatureType(),
		Train: examples(2),
	})
	assert.Error(t, err, "missing depth bound")

	_, _, err = search.Search(context.Background(), cat, search.Request{
		Input: testutil.ConcretePath(64), Output: testutil.FeatureType(),
		Train: examples(2), DepthBound: 2, TaskKind: "ranking",
	})
	assert.Error(t, err, "unknown task kind")
}
