package graph

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rosettago/internal/ctxlog"
)

// Execute evaluates the graph on the given input values and returns the
// output node's value. Nodes run in ascending id order (a topological order
// by construction, ties broken by id for determinism), and only nodes
// actually reachable from the output are evaluated. Operator failures are
// wrapped with the failing node's id and re-raised, never swallowed.
func (g *Graph) Execute(ctx context.Context, inputs map[string]cty.Value) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	if g.output < 0 {
		return cty.NilVal, fmt.Errorf("graph has no output node")
	}

	used := g.Used()
	values := make(map[int]cty.Value, len(used))

	for _, n := range g.nodes {
		if !used[n.ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return cty.NilVal, err
		}

		if n.Op == nil {
			v, ok := inputs[n.Name]
			if !ok {
				return cty.NilVal, fmt.Errorf("no value supplied for graph input %q", n.Name)
			}
			values[n.ID] = v
			continue
		}

		args := make([]cty.Value, len(n.Inputs))
		for i, inID := range n.Inputs {
			args[i] = values[inID]
		}
		out, err := n.Op.Handler.Evaluate(ctx, args, n.Op.Params)
		if err != nil {
			return cty.NilVal, fmt.Errorf("node %d (%s): %w", n.ID, n.Op.Name, err)
		}
		values[n.ID] = out
	}

	logger.Debug("Graph execution finished.", "nodes_evaluated", len(values))
	return values[g.output], nil
}
