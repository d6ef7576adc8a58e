package decode

import (
	"context"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/cost"
	"github.com/vk/rosettago/internal/ctxlog"
	"github.com/vk/rosettago/internal/graph"
	"github.com/vk/rosettago/internal/supergraph"
	"github.com/vk/rosettago/internal/typing"
)

// insertNonDifferentiable is how non-differentiable operators ever enter a
// decoded graph: positions whose mixture excluded them are re-scored by
// evaluating each excluded candidate directly on the held-out metric. A
// candidate is kept only when it improves the metric and the graph stays
// within budget.
func insertNonDifferentiable(ctx context.Context, sg *supergraph.Supergraph, cat *catalog.Catalog, g *graph.Graph, selection []choice, budget cost.Budget, val Metric, opts Options) (*graph.Graph, []choice, error) {
	logger := ctxlog.FromContext(ctx)

	base, err := val(ctx, g)
	if err != nil {
		return nil, nil, err
	}

	for pos, ch := range selection {
		for _, alt := range ch.state.Candidates {
			if alt == ch.cand || alt.Pruned || alt.Differentiable() {
				continue
			}
			if typing.Unify(ch.cand.Out, alt.Out, typing.NewBindings()) != nil {
				continue
			}

			trial := swapped(selection, pos, alt)
			tg, err := materialize(sg, cat, trial)
			if err != nil {
				continue
			}
			if _, over := cost.Violations(tg, budget); len(over) > 0 {
				continue
			}
			m, err := val(ctx, tg)
			if err != nil {
				return nil, nil, err
			}
			if m < base-opts.MinImprovement {
				logger.Debug("Keeping non-differentiable insertion.",
					"position", pos, "operator", alt.Op.Name, "metric", m, "was", base)
				g, selection, base = tg, trial, m
				ch = selection[pos]
			}
		}
	}
	return g, selection, nil
}
