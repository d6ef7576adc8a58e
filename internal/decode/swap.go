package decode

import (
	"context"
	"math"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/cost"
	"github.com/vk/rosettago/internal/ctxlog"
	"github.com/vk/rosettago/internal/graph"
	"github.com/vk/rosettago/internal/supergraph"
	"github.com/vk/rosettago/internal/typing"
)

// swapOption is one candidate substitution considered while recovering
// budget.
type swapOption struct {
	pos       int
	alt       *supergraph.Candidate
	g         *graph.Graph
	selection []choice
	metric    float64
	saved     float64
	totalCost float64
	order     int
}

// enforceBudget validates the decoded graph against the budget and, while it
// is exceeded, applies the greedy swap that costs the least validation-metric
// degradation per unit of budget recovered. When no swap can help it fails
// with *SearchInfeasibleError carrying the best-effort graph.
func enforceBudget(ctx context.Context, sg *supergraph.Supergraph, cat *catalog.Catalog, g *graph.Graph, selection []choice, budget cost.Budget, val Metric, opts Options) (*graph.Graph, []choice, error) {
	logger := ctxlog.FromContext(ctx)

	for {
		actual, over := cost.Violations(g, budget)
		if len(over) == 0 {
			return g, selection, nil
		}

		base, err := val(ctx, g)
		if err != nil {
			return nil, nil, err
		}

		best, err := bestSwap(ctx, sg, cat, selection, budget, over, base, val, opts)
		if err != nil {
			return nil, nil, err
		}
		if best == nil {
			logger.Debug("No swap recovers the budget.", "violated", over)
			return nil, nil, &SearchInfeasibleError{Best: g, Cost: actual}
		}

		logger.Debug("Applying budget swap.",
			"position", best.pos, "operator", best.alt.Op.Name, "saved", best.saved)
		g, selection = best.g, best.selection
	}
}

// bestSwap enumerates every chain-preserving substitution that recovers some
// of the violated metrics and returns the one minimizing metric degradation
// per unit recovered.
func bestSwap(ctx context.Context, sg *supergraph.Supergraph, cat *catalog.Catalog, selection []choice, budget cost.Budget, over []string, base float64, val Metric, opts Options) (*swapOption, error) {
	var best *swapOption

	for pos, ch := range selection {
		for order, alt := range ch.state.Candidates {
			if alt == ch.cand || alt.Pruned {
				continue
			}
			// The replacement must keep the downstream chain typed: same
			// resolved output.
			if typing.Unify(ch.cand.Out, alt.Out, typing.NewBindings()) != nil {
				continue
			}
			var saved float64
			for _, metric := range over {
				saved += ch.cand.Op.Cost[metric] - alt.Op.Cost[metric]
			}
			if saved <= 0 {
				continue
			}

			trial := swapped(selection, pos, alt)
			tg, err := materialize(sg, cat, trial)
			if err != nil {
				continue
			}
			m, err := val(ctx, tg)
			if err != nil {
				return nil, err
			}

			opt := &swapOption{
				pos: pos, alt: alt, g: tg, selection: trial,
				metric: m, saved: saved,
				totalCost: totalCost(tg, budget),
				order:     order,
			}
			if best == nil || better(opt, best, base, opts) {
				best = opt
			}
		}
	}
	return best, nil
}

// better orders swap options: degradation per unit recovered first, then the
// configured tie-break.
func better(a, b *swapOption, base float64, opts Options) bool {
	ra := (a.metric - base) / a.saved
	rb := (b.metric - base) / b.saved
	if ra != rb {
		return ra < rb
	}
	if opts.TieBreak == TieBreakCostThenOrder && a.totalCost != b.totalCost {
		return a.totalCost < b.totalCost
	}
	if a.pos != b.pos {
		return a.pos < b.pos
	}
	return a.order < b.order
}

func swapped(selection []choice, pos int, alt *supergraph.Candidate) []choice {
	out := append([]choice(nil), selection...)
	out[pos] = choice{state: selection[pos].state, cand: alt}
	return out
}

func totalCost(g *graph.Graph, budget cost.Budget) float64 {
	var total float64
	for _, metric := range budget.Metrics() {
		total += cost.Aggregate(g, metric)
	}
	if len(budget) == 0 {
		return math.NaN()
	}
	return total
}
