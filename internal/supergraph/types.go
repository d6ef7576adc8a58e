package supergraph

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/typing"
)

// Phase is the lifecycle of one state's candidate set during search.
type Phase int

const (
	// Masked: candidates selected from the catalog, weights untouched.
	Masked Phase = iota
	// Mixing: weights are being optimized as a softmax mixture.
	Mixing
	// Annealed: the temperature schedule has sharpened the mixture.
	Annealed
	// Pruned: low-weight candidates have been permanently removed.
	Pruned
	// Decoded: a single candidate has been committed.
	Decoded
)

func (p Phase) String() string {
	switch p {
	case Masked:
		return "masked"
	case Mixing:
		return "mixing"
	case Annealed:
		return "annealed"
	case Pruned:
		return "pruned"
	case Decoded:
		return "decoded"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Candidate is one catalog operator admitted at a state, together with the
// mutable search state the optimization loop owns: the trainable logit, the
// normalized weight, and this instance's parameter values.
type Candidate struct {
	Op *catalog.Operator

	// Out is the type a value has after this candidate fires.
	Out typing.Type

	// PredStages names the stage each input slot draws from. Unary operators
	// always read the current state; combinator slots beyond the first read
	// the nearest earlier stage whose type matched at build time.
	PredStages []int

	// Logit and Weight belong to the optimization loop. Non-differentiable
	// candidates keep Weight 0 and only enter graphs through the discrete
	// controller's insertion pass.
	Logit  float64
	Weight float64

	// Params is this search instance's parameter state, seeded from the
	// operator's registered defaults.
	Params map[string]cty.Value

	// Pruned candidates are permanently out of the mixture.
	Pruned bool
}

// Differentiable reports whether the candidate participates in the mixture.
func (c *Candidate) Differentiable() bool { return c.Op.Differentiable }

// State is one typed position in the layered supergraph: "a value of type
// Type exists after Stage operators have fired".
type State struct {
	Index int
	Stage int
	Type  typing.Type
	Phase Phase

	// Terminal states unify with the requested output type; decoding stops
	// when it reaches one.
	Terminal bool

	// Candidates in catalog order (cost ascending, then name).
	Candidates []*Candidate
}

// Active returns the candidates still in the mixture: differentiable and not
// pruned.
func (s *State) Active() []*Candidate {
	var out []*Candidate
	for _, c := range s.Candidates {
		if c.Differentiable() && !c.Pruned {
			out = append(out, c)
		}
	}
	return out
}

// Supergraph is the searchable structure for one (input, output, depth)
// request. States are ordered stage-ascending, then by type string, so every
// traversal is deterministic.
type Supergraph struct {
	Input      typing.Type
	Output     typing.Type
	DepthBound int

	States []*State

	byKey map[string]*State
}

// StateAt returns the state for (stage, type), if present.
func (sg *Supergraph) StateAt(stage int, ty typing.Type) (*State, bool) {
	s, ok := sg.byKey[stateKey(stage, ty)]
	return s, ok
}

// Root returns the stage-0 state holding the graph input type.
func (sg *Supergraph) Root() *State {
	s, _ := sg.StateAt(0, sg.Input)
	return s
}

func stateKey(stage int, ty typing.Type) string {
	return fmt.Sprintf("%d|%s", stage, ty.String())
}

// NoCandidatesError reports an infeasible (input, output, depth) request: some
// required position has an empty candidate set, so no graph can exist.
type NoCandidatesError struct {
	Input      typing.Type
	Output     typing.Type
	DepthBound int
	Stage      int
	At         typing.Type
}

func (e *NoCandidatesError) Error() string {
	return fmt.Sprintf("no candidates from %s toward %s within depth %d (stuck at stage %d on %s)",
		e.Input, e.Output, e.DepthBound, e.Stage, e.At)
}
