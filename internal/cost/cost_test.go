package cost_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/rosettago/internal/cost"
	"github.com/vk/rosettago/internal/graph"
	"github.com/vk/rosettago/internal/testutil"
)

func chainGraph(t *testing.T, ops ...string) *graph.Graph {
	t.Helper()
	cat := testutil.NewCatalog(t)
	g := graph.New(cat)
	cur := g.AddInput("x", testutil.ConcretePath(64))
	for _, name := range ops {
		op, ok := cat.Get(name)
		require.True(t, ok, "operator %s", name)
		n, err := g.AddNode(op, []*graph.Node{cur})
		require.NoError(t, err)
		cur = n
	}
	g.SetOutput(cur)
	return g
}

func TestAggregateIsAdditive(t *testing.T) {
	g := chainGraph(t, "fft", "spec_pool")
	assert.Equal(t, 13.0, cost.Aggregate(g, "cost"))
}

func TestAggregateSkipsDeadBranches(t *testing.T) {
	cat := testutil.NewCatalog(t)
	g := graph.New(cat)
	in := g.AddInput("x", testutil.ConcretePath(64))

	fft, _ := cat.Get("fft")
	pool, _ := cat.Get("spec_pool")
	scat, _ := cat.Get("scattering1d")

	spec, err := g.AddNode(fft, []*graph.Node{in})
	require.NoError(t, err)
	feat, err := g.AddNode(pool, []*graph.Node{spec})
	require.NoError(t, err)
	_, err = g.AddNode(scat, []*graph.Node{in})
	require.NoError(t, err)

	g.SetOutput(feat)
	assert.Equal(t, 13.0, cost.Aggregate(g, "cost"), "the dangling scattering node must not count")
}

func TestAggregateUnknownMetricIsZero(t *testing.T) {
	g := chainGraph(t, "scattering1d")
	assert.Zero(t, cost.Aggregate(g, "memory"))
}

func TestCheckNamesExceededMetrics(t *testing.T) {
	g := chainGraph(t, "fft", "spec_pool")

	assert.NoError(t, cost.Check(g, cost.Budget{"cost": 20}))

	err := cost.Check(g, cost.Budget{"cost": 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cost")
}

func TestViolationsReportsActuals(t *testing.T) {
	g := chainGraph(t, "fft", "spec_pool")
	actual, over := cost.Violations(g, cost.Budget{"cost": 10, "memory": 1})
	assert.Equal(t, 13.0, actual["cost"])
	assert.Zero(t, actual["memory"])
	assert.Equal(t, []string{"cost"}, over)
}

func TestStabilityComposesDeclaredBounds(t *testing.T) {
	g := chainGraph(t, "path_sig")
	b := cost.Stability(g)
	require.True(t, b.Known)
	assert.Equal(t, 2.0, b.Value, "input contributes 1, path_sig declares 2")

	g = chainGraph(t, "fft", "spec_pool")
	b = cost.Stability(g)
	require.True(t, b.Known)
	assert.Equal(t, 1.0, b.Value, "sequential bounds multiply")
}

func TestStabilityFanInTakesWorstInput(t *testing.T) {
	cat := testutil.NewCatalog(t)
	g := graph.New(cat)
	in := g.AddInput("x", testutil.ConcretePath(64))

	sig, _ := cat.Get("path_sig")
	scat, _ := cat.Get("scattering1d")
	concat, _ := cat.Get("concat")

	a, err := g.AddNode(sig, []*graph.Node{in})
	require.NoError(t, err)
	b, err := g.AddNode(scat, []*graph.Node{in})
	require.NoError(t, err)
	merged, err := g.AddNode(concat, []*graph.Node{a, b})
	require.NoError(t, err)
	g.SetOutput(merged)

	bound := cost.Stability(g)
	require.True(t, bound.Known)
	assert.Equal(t, 2.0, bound.Value, "fan-in takes the max over inputs")
}

func TestStabilityUnknownPropagates(t *testing.T) {
	cat := testutil.NewCatalog(t)
	g := graph.New(cat)
	in := g.AddInput("x", testutil.ConcretePath(64))

	scat, _ := cat.Get("scattering1d")
	attn, _ := cat.Get("attention")

	feat, err := g.AddNode(scat, []*graph.Node{in})
	require.NoError(t, err)
	merged, err := g.AddNode(attn, []*graph.Node{feat, feat})
	require.NoError(t, err)
	g.SetOutput(merged)

	assert.False(t, cost.Stability(g).Known, "an undeclared bound poisons the aggregate")
}
