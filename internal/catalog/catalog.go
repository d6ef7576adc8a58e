package catalog

import (
	"fmt"
	"sort"

	"github.com/vk/rosettago/internal/typing"
)

type kindPair struct {
	in, out string
}

// Catalog holds all registered operators plus a reverse index from
// (input kind, output kind) to the matching operator names. It is mutable
// during load and strictly read-only after Freeze.
type Catalog struct {
	kinds  map[string]struct{}
	ops    map[string]*Operator
	byKind map[kindPair][]string
	frozen bool
}

// New returns an empty catalog with the given type kinds pre-registered.
func New(kinds ...string) *Catalog {
	c := &Catalog{
		kinds:  make(map[string]struct{}),
		ops:    make(map[string]*Operator),
		byKind: make(map[kindPair][]string),
	}
	for _, k := range kinds {
		c.kinds[k] = struct{}{}
	}
	return c
}

// RegisterKind adds a type kind to the open enumeration. Signatures referring
// to unregistered kinds are rejected as malformed.
func (c *Catalog) RegisterKind(kind string) {
	if !c.frozen {
		c.kinds[kind] = struct{}{}
	}
}

// KnownKind reports whether the kind has been registered.
func (c *Catalog) KnownKind(kind string) bool {
	_, ok := c.kinds[kind]
	return ok
}

// Register adds one operator. It returns *DuplicateNameError for a reused
// name and *MalformedSignatureError for a signature the catalog cannot
// accept. Registration is atomic: a rejected operator leaves no trace.
func (c *Catalog) Register(op *Operator) error {
	if c.frozen {
		return ErrFrozen
	}
	if op.Name == "" {
		return &MalformedSignatureError{Name: op.Name, Reason: "empty name"}
	}
	if _, exists := c.ops[op.Name]; exists {
		return &DuplicateNameError{Name: op.Name}
	}
	if len(op.InTypes) == 0 {
		return &MalformedSignatureError{Name: op.Name, Reason: "arity must be >= 1"}
	}
	if op.Adapter && len(op.InTypes) != 1 {
		return &MalformedSignatureError{Name: op.Name, Reason: "adapters must have arity 1"}
	}
	for i, in := range op.InTypes {
		if !c.KnownKind(in.Kind) {
			return &MalformedSignatureError{Name: op.Name, Reason: fmt.Sprintf("input %d references unknown kind %q", i, in.Kind)}
		}
	}
	if !c.KnownKind(op.OutType.Kind) {
		return &MalformedSignatureError{Name: op.Name, Reason: fmt.Sprintf("output references unknown kind %q", op.OutType.Kind)}
	}
	if op.Handler == nil {
		return &MalformedSignatureError{Name: op.Name, Reason: "no handler registered"}
	}

	c.ops[op.Name] = op
	pair := kindPair{in: op.InTypes[0].Kind, out: op.OutType.Kind}
	c.byKind[pair] = append(c.byKind[pair], op.Name)
	return nil
}

// Freeze makes the catalog read-only. Every index slice is sorted once here
// so later lookups are reproducible without re-sorting.
func (c *Catalog) Freeze() {
	if c.frozen {
		return
	}
	for pair, names := range c.byKind {
		c.sortNames(names)
		c.byKind[pair] = names
	}
	c.frozen = true
}

// Frozen reports whether Freeze has been called.
func (c *Catalog) Frozen() bool { return c.frozen }

// sortNames orders operator names by declared cost ascending, then name.
func (c *Catalog) sortNames(names []string) {
	sort.Slice(names, func(i, j int) bool {
		a, b := c.ops[names[i]], c.ops[names[j]]
		if a.SortCost() != b.SortCost() {
			return a.SortCost() < b.SortCost()
		}
		return a.Name < b.Name
	})
}

// Get returns the operator registered under name.
func (c *Catalog) Get(name string) (*Operator, bool) {
	op, ok := c.ops[name]
	return op, ok
}

// Len returns the number of registered operators.
func (c *Catalog) Len() int { return len(c.ops) }

// Names returns all registered names in the catalog's deterministic order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.ops))
	for name := range c.ops {
		names = append(names, name)
	}
	c.sortNames(names)
	return names
}

// Lookup returns every operator whose signature is EQUAL to the requested
// (in, out) pair, or whose output is ADAPTABLE to the requested output
// through a registered adapter. Results come back in the catalog's
// deterministic order so downstream masking is reproducible.
func (c *Catalog) Lookup(in, out typing.Type) []*Operator {
	var matched []string
	for _, name := range c.Names() {
		op := c.ops[name]
		if len(op.InTypes) != 1 {
			continue
		}
		if typing.Unify(op.InTypes[0], in, typing.NewBindings()) != nil {
			continue
		}
		compat := typing.Compatible(op.OutType, out, c)
		if compat.Kind == typing.CompatIncompatible {
			continue
		}
		matched = append(matched, name)
	}
	ops := make([]*Operator, len(matched))
	for i, name := range matched {
		ops[i] = c.ops[name]
	}
	return ops
}

// LookupByInput returns every unary operator whose input slot accepts the
// given type, in deterministic order. The supergraph builder uses this to
// mask candidates stage by stage.
func (c *Catalog) LookupByInput(in typing.Type) []*Operator {
	var ops []*Operator
	for _, name := range c.Names() {
		op := c.ops[name]
		if len(op.InTypes) != 1 {
			continue
		}
		if typing.Unify(op.InTypes[0], in, typing.NewBindings()) == nil {
			ops = append(ops, op)
		}
	}
	return ops
}

// Combinators returns every operator with arity >= 2, in deterministic order.
func (c *Catalog) Combinators() []*Operator {
	var ops []*Operator
	for _, name := range c.Names() {
		if op := c.ops[name]; op.Arity() >= 2 {
			ops = append(ops, op)
		}
	}
	return ops
}

// AdapterBetween implements typing.AdapterIndex: it reports a registered
// adapter whose declared input unifies with from and output unifies with to.
func (c *Catalog) AdapterBetween(from, to typing.Type) (string, bool) {
	pair := kindPair{in: from.Kind, out: to.Kind}
	names := c.byKind[pair]
	if !c.frozen {
		names = append([]string(nil), names...)
		c.sortNames(names)
	}
	for _, name := range names {
		op := c.ops[name]
		if !op.Adapter {
			continue
		}
		b := typing.NewBindings()
		if typing.Unify(op.InTypes[0], from, b) != nil {
			continue
		}
		if typing.Unify(op.OutType, to, b) != nil {
			continue
		}
		return name, true
	}
	return "", false
}
