package graph

import (
	"fmt"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/typing"
)

// Node is one vertex: an instantiated operator, an auto-inserted adapter, or
// a graph input. Input nodes have a nil Op and carry the declared input type.
type Node struct {
	ID int

	// Name is set on input nodes only; Execute matches it against the
	// caller-supplied value map.
	Name string

	Op *catalog.Operator

	// Inputs lists predecessor node ids in slot order. Always empty for
	// input nodes; ids are always smaller than ID, which makes id order a
	// topological order.
	Inputs []int

	// Resolved is Op.OutType with the graph's symbol bindings applied at the
	// time the node was added (the declared type for input nodes).
	Resolved typing.Type

	// Inserted marks adapter nodes the graph added on its own.
	Inserted bool
}

// Graph is a typed DAG with designated inputs and exactly one output node.
// Acyclicity holds by construction: a node may only reference nodes that
// already exist, so every edge points from a smaller id to a larger one.
type Graph struct {
	cat      *catalog.Catalog
	nodes    []*Node
	bindings *typing.Bindings
	inputs   []int
	output   int
}

// New returns an empty graph that resolves adapters and signatures against
// the given catalog.
func New(cat *catalog.Catalog) *Graph {
	return &Graph{
		cat:      cat,
		bindings: typing.NewBindings(),
		output:   -1,
	}
}

// Catalog returns the catalog the graph was built against.
func (g *Graph) Catalog() *catalog.Catalog { return g.cat }

// Nodes returns the node list in id order. Callers must treat it as
// read-only.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Inputs returns the ids of the designated input nodes.
func (g *Graph) Inputs() []int { return append([]int(nil), g.inputs...) }

// Bindings returns the graph's symbol environment.
func (g *Graph) Bindings() *typing.Bindings { return g.bindings }

// AddInput declares a graph input of the given type and returns its node.
func (g *Graph) AddInput(name string, ty typing.Type) *Node {
	n := &Node{
		ID:       len(g.nodes),
		Name:     name,
		Resolved: ty,
	}
	g.nodes = append(g.nodes, n)
	g.inputs = append(g.inputs, n.ID)
	return n
}

// AddNode instantiates op with the given predecessor nodes, one per input
// slot. Each slot is unified against the predecessor's resolved type; a slot
// that is only adapter-bridgeable gets the adapter inserted as an
// intermediate node (the single automatic rewrite the graph performs), and an
// incompatible slot fails with *TypeCheckError leaving the graph untouched.
func (g *Graph) AddNode(op *catalog.Operator, inputs []*Node) (*Node, error) {
	if len(inputs) != op.Arity() {
		return nil, &TypeCheckError{
			Operator: op.Name,
			Slot:     len(inputs),
			Expected: op.OutType,
			Actual:   typing.Type{},
			Cause:    fmt.Errorf("operator expects %d inputs, got %d", op.Arity(), len(inputs)),
		}
	}

	// Unify against a cloned environment and plan adapter insertions; commit
	// only when every slot checks out.
	trial := g.bindings.Clone()
	type plannedAdapter struct {
		slot int
		op   *catalog.Operator
	}
	var adapters []plannedAdapter

	for i, in := range inputs {
		expected := op.InTypes[i]
		actual := in.Resolved
		if err := typing.Unify(expected, actual, trial); err == nil {
			continue
		}

		name, ok := g.cat.AdapterBetween(actual, expected.Resolve(trial))
		if !ok {
			err := typing.Unify(expected, actual, trial.Clone())
			return nil, &TypeCheckError{Operator: op.Name, Slot: i, Expected: expected, Actual: actual, Cause: err}
		}
		adapter, _ := g.cat.Get(name)

		// The adapter's own signature must unify too; its output becomes the
		// value seen by the slot.
		if err := typing.Unify(adapter.InTypes[0], actual, trial); err != nil {
			return nil, &TypeCheckError{Operator: op.Name, Slot: i, Expected: expected, Actual: actual, Cause: err}
		}
		if err := typing.Unify(expected, adapter.OutType, trial); err != nil {
			return nil, &TypeCheckError{Operator: op.Name, Slot: i, Expected: expected, Actual: adapter.OutType, Cause: err}
		}
		adapters = append(adapters, plannedAdapter{slot: i, op: adapter})
	}

	// Commit: bindings first, then the planned adapter nodes, then the node.
	g.bindings = trial
	slotIDs := make([]int, len(inputs))
	for i, in := range inputs {
		slotIDs[i] = in.ID
	}
	for _, a := range adapters {
		an := &Node{
			ID:       len(g.nodes),
			Op:       a.op,
			Inputs:   []int{slotIDs[a.slot]},
			Resolved: a.op.OutType.Resolve(g.bindings),
			Inserted: true,
		}
		g.nodes = append(g.nodes, an)
		slotIDs[a.slot] = an.ID
	}

	n := &Node{
		ID:       len(g.nodes),
		Op:       op,
		Inputs:   slotIDs,
		Resolved: op.OutType.Resolve(g.bindings),
	}
	g.nodes = append(g.nodes, n)
	return n, nil
}

// SetOutput designates the graph's single output node.
func (g *Graph) SetOutput(n *Node) { g.output = n.ID }

// Output returns the designated output node, or nil if none is set.
func (g *Graph) Output() *Node {
	if g.output < 0 {
		return nil
	}
	return g.nodes[g.output]
}

// Node returns the node with the given id.
func (g *Graph) Node(id int) (*Node, bool) {
	if id < 0 || id >= len(g.nodes) {
		return nil, false
	}
	return g.nodes[id], true
}

// Used returns the set of node ids reachable backward from the output node.
// Cost aggregation and execution both skip dead branches through this set.
func (g *Graph) Used() map[int]bool {
	used := make(map[int]bool)
	if g.output < 0 {
		return used
	}
	var mark func(id int)
	mark = func(id int) {
		if used[id] {
			return
		}
		used[id] = true
		for _, in := range g.nodes[id].Inputs {
			mark(in)
		}
	}
	mark(g.output)
	return used
}

// Validate re-checks every node's slots under a fresh binding environment.
// It is meant for graphs that were edited by hand or rebuilt from an export;
// freshly constructed graphs are valid by construction. All failures are
// returned, not just the first.
func (g *Graph) Validate() []error {
	var errs []error
	b := typing.NewBindings()
	for _, n := range g.nodes {
		if n.Op == nil {
			continue
		}
		for i, inID := range n.Inputs {
			in := g.nodes[inID]
			if err := typing.Unify(n.Op.InTypes[i], in.Resolved, b); err != nil {
				errs = append(errs, &TypeCheckError{
					Operator: n.Op.Name,
					Slot:     i,
					Expected: n.Op.InTypes[i],
					Actual:   in.Resolved,
					Cause:    err,
				})
			}
		}
	}
	return errs
}
