package supergraph

import (
	"context"
	"sort"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/ctxlog"
	"github.com/vk/rosettago/internal/typing"
)

// Options tunes the builder.
type Options struct {
	// MaxFanIn caps how many earlier stages a combinator slot may search
	// backward through when it is wired. Zero disables combinators.
	MaxFanIn int
}

// Build lays out the supergraph for the requested (input, output, depth)
// triple. States are created breadth-first from the input type; at each stage
// the catalog is queried for operators whose first input unifies with the
// state's type, and candidates that cannot reach the output kind within the
// remaining stages are masked out. A request with no path to the output at
// all fails with *NoCandidatesError and returns no partial structure.
func Build(ctx context.Context, cat *catalog.Catalog, input, output typing.Type, depthBound int, opts Options) (*Supergraph, error) {
	logger := ctxlog.FromContext(ctx)

	sg := &Supergraph{
		Input:      input,
		Output:     output,
		DepthBound: depthBound,
		byKey:      make(map[string]*State),
	}

	dist := distanceToKind(cat, output.Kind)

	root := sg.addState(0, input, terminal(input, output))
	frontier := []*State{root}

	for stage := 1; stage <= depthBound; stage++ {
		var next []*State
		for _, st := range frontier {
			if st.Terminal {
				continue
			}
			for _, op := range cat.LookupByInput(st.Type) {
				cand, ok := admit(cat, op, st, output, dist, depthBound)
				if !ok {
					continue
				}
				st.Candidates = append(st.Candidates, cand)
				succ, existed := sg.ensureState(stage, cand.Out, terminal(cand.Out, output))
				if !existed {
					next = append(next, succ)
				}
			}
			for _, op := range cat.Combinators() {
				cand, ok := admitCombinator(op, st, output, dist, depthBound, opts)
				if !ok {
					continue
				}
				st.Candidates = append(st.Candidates, cand)
				succ, existed := sg.ensureState(stage, cand.Out, terminal(cand.Out, output))
				if !existed {
					next = append(next, succ)
				}
			}

			// Kind-level reachability promised a way forward when this state
			// was created, but type-level unification delivered nothing: the
			// position can never be matched, which makes the whole request
			// vacuous.
			if len(st.Candidates) == 0 {
				return nil, &NoCandidatesError{Input: input, Output: output, DepthBound: depthBound, Stage: st.Stage, At: st.Type}
			}
		}
		frontier = next
	}

	// The build is vacuous unless at least one terminal state exists and the
	// root can act. A root that is already terminal is the degenerate
	// identity request and is allowed through.
	if !root.Terminal {
		if len(root.Candidates) == 0 {
			return nil, &NoCandidatesError{Input: input, Output: output, DepthBound: depthBound, Stage: 0, At: input}
		}
		if !sg.hasTerminal() {
			return nil, &NoCandidatesError{Input: input, Output: output, DepthBound: depthBound, Stage: depthBound, At: input}
		}
	}

	sg.sortStates()
	logger.Debug("Supergraph built.", "states", len(sg.States), "depth_bound", depthBound)
	return sg, nil
}

// admit masks one unary operator at a state: the candidate is kept only when
// its output kind can still reach the requested output within the remaining
// stages.
func admit(cat *catalog.Catalog, op *catalog.Operator, st *State, output typing.Type, dist map[string]int, depthBound int) (*Candidate, bool) {
	b := typing.NewBindings()
	if typing.Unify(op.InTypes[0], st.Type, b) != nil {
		return nil, false
	}
	out := op.OutType.Resolve(b)
	if !reachable(out, output, dist, depthBound-st.Stage-1) {
		return nil, false
	}
	return &Candidate{
		Op:         op,
		Out:        out,
		PredStages: []int{st.Stage},
		Params:     op.CloneParams(),
	}, true
}

// admitCombinator masks one fan-in operator. Slot 0 must unify with the
// current state; every later slot is wired backward to an earlier stage
// within the MaxFanIn window. The wiring is recorded by stage; the decoder
// resolves it against the actual decoded path.
func admitCombinator(op *catalog.Operator, st *State, output typing.Type, dist map[string]int, depthBound int, opts Options) (*Candidate, bool) {
	if opts.MaxFanIn <= 0 || st.Stage == 0 {
		return nil, false
	}
	b := typing.NewBindings()
	if typing.Unify(op.InTypes[0], st.Type, b) != nil {
		return nil, false
	}
	preds := make([]int, op.Arity())
	preds[0] = st.Stage
	for slot := 1; slot < op.Arity(); slot++ {
		// Same-type slots pair with the current state; the decoder then picks
		// the nearest earlier node of that type on the decoded path.
		if typing.Unify(op.InTypes[slot], st.Type, b.Clone()) != nil {
			return nil, false
		}
		back := st.Stage - slot
		if back < st.Stage-opts.MaxFanIn || back < 0 {
			back = st.Stage
		}
		preds[slot] = back
	}
	out := op.OutType.Resolve(b)
	if !reachable(out, output, dist, depthBound-st.Stage-1) {
		return nil, false
	}
	return &Candidate{
		Op:         op,
		Out:        out,
		PredStages: preds,
		Params:     op.CloneParams(),
	}, true
}

func terminal(ty, output typing.Type) bool {
	return typing.Unify(output, ty, typing.NewBindings()) == nil
}

func reachable(from, output typing.Type, dist map[string]int, remaining int) bool {
	if terminal(from, output) {
		return true
	}
	// With no stages left only full unification counts. Kind distance alone
	// would admit a same-kind type that never unifies with the output, and
	// that state would sit undecodable at the depth bound.
	if remaining <= 0 {
		return false
	}
	d, ok := dist[from.Kind]
	return ok && d <= remaining
}

// distanceToKind computes, at the kind level, how many operator applications
// each kind needs to reach the target kind. Backward BFS over the catalog's
// unary signatures.
func distanceToKind(cat *catalog.Catalog, target string) map[string]int {
	dist := map[string]int{target: 0}
	// Collect edges inKind -> outKind once.
	type edge struct{ in, out string }
	var edges []edge
	for _, name := range cat.Names() {
		op, _ := cat.Get(name)
		if op.Arity() != 1 {
			continue
		}
		edges = append(edges, edge{in: op.InTypes[0].Kind, out: op.OutType.Kind})
	}
	for changed := true; changed; {
		changed = false
		for _, e := range edges {
			d, ok := dist[e.out]
			if !ok {
				continue
			}
			if cur, seen := dist[e.in]; !seen || d+1 < cur {
				dist[e.in] = d + 1
				changed = true
			}
		}
	}
	return dist
}

func (sg *Supergraph) addState(stage int, ty typing.Type, term bool) *State {
	st := &State{Stage: stage, Type: ty, Terminal: term}
	sg.States = append(sg.States, st)
	sg.byKey[stateKey(stage, ty)] = st
	return st
}

func (sg *Supergraph) ensureState(stage int, ty typing.Type, term bool) (st *State, existed bool) {
	if st, ok := sg.byKey[stateKey(stage, ty)]; ok {
		return st, true
	}
	return sg.addState(stage, ty, term), false
}

func (sg *Supergraph) hasTerminal() bool {
	for _, st := range sg.States {
		if st.Terminal && st.Stage > 0 {
			return true
		}
	}
	return false
}

// sortStates fixes the deterministic traversal order: stage ascending, then
// type string. Indexes are assigned afterward.
func (sg *Supergraph) sortStates() {
	sort.Slice(sg.States, func(i, j int) bool {
		a, b := sg.States[i], sg.States[j]
		if a.Stage != b.Stage {
			return a.Stage < b.Stage
		}
		return a.Type.String() < b.Type.String()
	})
	for i, st := range sg.States {
		st.Index = i
	}
}
