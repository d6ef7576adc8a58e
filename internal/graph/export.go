package graph

import "github.com/vk/rosettago/internal/typing"

// ExportedNode is one row of the graph's externalized form: enough for a
// consumer to serialize, visualize or re-execute the graph without going back
// to the catalog.
type ExportedNode struct {
	ID       int
	Operator string
	Input    string
	Inputs   []int
	Type     typing.Type
	Inserted bool
	Output   bool
}

// Export returns the ordered node list with explicit edges and resolved
// types.
func (g *Graph) Export() []ExportedNode {
	out := make([]ExportedNode, len(g.nodes))
	for i, n := range g.nodes {
		e := ExportedNode{
			ID:       n.ID,
			Inputs:   append([]int(nil), n.Inputs...),
			Type:     n.Resolved.Resolve(g.bindings),
			Inserted: n.Inserted,
			Output:   n.ID == g.output,
		}
		if n.Op != nil {
			e.Operator = n.Op.Name
		} else {
			e.Input = n.Name
		}
		out[i] = e
	}
	return out
}
