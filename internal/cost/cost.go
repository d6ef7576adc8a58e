// Package cost aggregates declared per-operator cost and stability metadata
// along graph paths, and holds the Budget a decoded graph must satisfy.
package cost

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/graph"
)

// Budget maps metric name to the limit a decoded graph must not exceed. It
// is owned by the search invocation and read-only during a run.
type Budget map[string]float64

// Metrics returns the budget's metric names in sorted order.
func (b Budget) Metrics() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aggregate sums the declared per-node cost for metric over every node
// actually reachable from the graph's output. Dead branches do not count.
// Nodes that do not declare the metric contribute zero.
func Aggregate(g *graph.Graph, metric string) float64 {
	used := g.Used()
	var total float64
	for _, n := range g.Nodes() {
		if n.Op == nil || !used[n.ID] {
			continue
		}
		total += n.Op.Cost[metric]
	}
	return total
}

// Violations returns the metrics whose aggregate exceeds the budget, with the
// actual aggregates for every budgeted metric alongside.
func Violations(g *graph.Graph, b Budget) (actual map[string]float64, over []string) {
	actual = make(map[string]float64, len(b))
	for _, metric := range b.Metrics() {
		actual[metric] = Aggregate(g, metric)
		if actual[metric] > b[metric] {
			over = append(over, metric)
		}
	}
	return actual, over
}

// Check returns an error naming every exceeded metric, or nil when the graph
// fits the budget.
func Check(g *graph.Graph, b Budget) error {
	actual, over := Violations(g, b)
	if len(over) == 0 {
		return nil
	}
	parts := make([]string, len(over))
	for i, metric := range over {
		parts[i] = fmt.Sprintf("%s %.4g > %.4g", metric, actual[metric], b[metric])
	}
	return fmt.Errorf("budget exceeded: %s", strings.Join(parts, ", "))
}

// Stability composes the declared per-node Lipschitz bounds backward from the
// output: multiplicatively along sequential composition, and by the maximum
// across fan-in slots (worst-case sensitivity). Any node without a declared
// bound makes the whole aggregate an explicit unknown.
func Stability(g *graph.Graph) catalog.Bound {
	out := g.Output()
	if out == nil {
		return catalog.UnknownBound()
	}
	memo := make(map[int]catalog.Bound)
	var walk func(id int) catalog.Bound
	walk = func(id int) catalog.Bound {
		if b, ok := memo[id]; ok {
			return b
		}
		n, _ := g.Node(id)
		var b catalog.Bound
		switch {
		case n.Op == nil:
			b = catalog.KnownBound(1)
		case !n.Op.Stability.Known:
			b = catalog.UnknownBound()
		default:
			worst := catalog.KnownBound(1)
			for _, in := range n.Inputs {
				ib := walk(in)
				if !ib.Known {
					worst = catalog.UnknownBound()
					break
				}
				if ib.Value > worst.Value {
					worst = ib
				}
			}
			if worst.Known {
				b = catalog.KnownBound(n.Op.Stability.Value * worst.Value)
			} else {
				b = catalog.UnknownBound()
			}
		}
		memo[id] = b
		return b
	}
	return walk(out.ID)
}
