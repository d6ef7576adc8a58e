package decode

import (
	"context"
	"fmt"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/cost"
	"github.com/vk/rosettago/internal/ctxlog"
	"github.com/vk/rosettago/internal/graph"
	"github.com/vk/rosettago/internal/supergraph"
	"github.com/vk/rosettago/internal/typing"
)

// InputName is the name decoded graphs give their single input node.
const InputName = "x"

// Metric scores a candidate graph on held-out data; lower is better.
type Metric func(ctx context.Context, g *graph.Graph) (float64, error)

// TieBreak selects among swap options that tie exactly on the validation
// metric.
type TieBreak int

const (
	// TieBreakCostThenOrder prefers the lower aggregate cost, then the lower
	// catalog sort order. The default.
	TieBreakCostThenOrder TieBreak = iota
	// TieBreakOrderOnly prefers only the lower catalog sort order.
	TieBreakOrderOnly
)

// Options tunes the controller.
type Options struct {
	TieBreak TieBreak

	// MinImprovement is how much a non-differentiable insertion must improve
	// the validation metric to be kept.
	MinImprovement float64
}

// choice is one decoded position: a state and the candidate committed there.
type choice struct {
	state *supergraph.State
	cand  *supergraph.Candidate
}

// Decode collapses the supergraph into a single typed graph: argmax per
// position (ties broken by catalog sort order), budget validation with greedy
// swaps, then the non-differentiable insertion pass. On budget failure it
// returns *SearchInfeasibleError carrying the best-effort graph.
func Decode(ctx context.Context, sg *supergraph.Supergraph, cat *catalog.Catalog, budget cost.Budget, val Metric, opts Options) (*graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	selection, err := selectPath(sg)
	if err != nil {
		return nil, err
	}
	g, err := materialize(sg, cat, selection)
	if err != nil {
		return nil, err
	}

	g, selection, err = enforceBudget(ctx, sg, cat, g, selection, budget, val, opts)
	if err != nil {
		return nil, err
	}

	g, selection, err = insertNonDifferentiable(ctx, sg, cat, g, selection, budget, val, opts)
	if err != nil {
		return nil, err
	}

	commit(selection)
	logger.Debug("Decode finished.", "nodes", len(g.Nodes()))
	return g, nil
}

// selectPath walks the supergraph from the root, taking the argmax-weight
// candidate at every position. Ties resolve to the earlier candidate, which
// is the catalog sort order. Positions whose mixture is empty (every
// candidate non-differentiable or pruned away) fall back to the first
// unpruned candidate; the insertion pass re-scores those by direct
// evaluation.
func selectPath(sg *supergraph.Supergraph) ([]choice, error) {
	var selection []choice
	st := sg.Root()
	if st == nil {
		return nil, fmt.Errorf("supergraph has no root state")
	}
	for !st.Terminal {
		if st.Stage >= sg.DepthBound {
			return nil, fmt.Errorf("decode ran out of stages at %s", st.Type)
		}
		cand := argmax(st)
		if cand == nil {
			return nil, fmt.Errorf("state %s at stage %d has no decodable candidate", st.Type, st.Stage)
		}
		selection = append(selection, choice{state: st, cand: cand})
		next, ok := sg.StateAt(st.Stage+1, cand.Out)
		if !ok {
			return nil, fmt.Errorf("no successor state for %s at stage %d", cand.Out, st.Stage+1)
		}
		st = next
	}
	return selection, nil
}

func argmax(st *supergraph.State) *supergraph.Candidate {
	var best *supergraph.Candidate
	for _, c := range st.Active() {
		if best == nil || c.Weight > best.Weight {
			best = c
		}
	}
	if best != nil {
		return best
	}
	for _, c := range st.Candidates {
		if !c.Pruned {
			return c
		}
	}
	return nil
}

// materialize builds the typed graph for one selection. Combinator slots
// beyond the first wire to the stage the builder recorded for them; when that
// node no longer type-checks against the slot, the nearest earlier chain node
// whose resolved type unifies takes its place, falling back to the current
// node.
func materialize(sg *supergraph.Supergraph, cat *catalog.Catalog, selection []choice) (*graph.Graph, error) {
	g := graph.New(cat)
	cur := g.AddInput(InputName, sg.Input)
	chain := []*graph.Node{cur}

	for _, ch := range selection {
		op := instanceOf(ch.cand)
		inputs := make([]*graph.Node, op.Arity())
		inputs[0] = cur
		for slot := 1; slot < op.Arity(); slot++ {
			inputs[slot] = slotSource(chain, ch.cand.PredStages, slot, op.InTypes[slot], cur)
		}
		n, err := g.AddNode(op, inputs)
		if err != nil {
			return nil, fmt.Errorf("materializing %s: %w", op.Name, err)
		}
		cur = n
		chain = append(chain, n)
	}
	g.SetOutput(cur)
	return g, nil
}

// instanceOf copies the registered operator with this search instance's
// trained parameters. The catalog record itself is never written to.
func instanceOf(c *supergraph.Candidate) *catalog.Operator {
	op := *c.Op
	if len(c.Params) > 0 {
		op.Params = c.Params
	}
	return &op
}

// slotSource resolves one combinator slot beyond the first. The chain node at
// the recorded stage wins when it still unifies with the slot; the recorded
// wiring is a build-time guess, so a stale one degrades to the nearest
// type-matching node instead of failing.
func slotSource(chain []*graph.Node, preds []int, slot int, want typing.Type, fallback *graph.Node) *graph.Node {
	if slot < len(preds) {
		if s := preds[slot]; s >= 0 && s < len(chain) {
			if typing.Unify(want, chain[s].Resolved, typing.NewBindings()) == nil {
				return chain[s]
			}
		}
	}
	return nearestOfType(chain, want, fallback)
}

func nearestOfType(chain []*graph.Node, want typing.Type, fallback *graph.Node) *graph.Node {
	for i := len(chain) - 1; i >= 0; i-- {
		if typing.Unify(want, chain[i].Resolved, typing.NewBindings()) == nil {
			return chain[i]
		}
	}
	return fallback
}

// commit marks the decoded lifecycle: chosen candidates get weight 1, their
// states become Decoded.
func commit(selection []choice) {
	for _, ch := range selection {
		for _, c := range ch.state.Candidates {
			c.Weight = 0
		}
		ch.cand.Weight = 1
		ch.state.Phase = supergraph.Decoded
	}
}
