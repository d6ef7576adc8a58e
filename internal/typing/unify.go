package typing

import "fmt"

// ConflictError reports a shape symbol bound to two different concrete sizes
// within one binding environment. It is never recovered silently.
type ConflictError struct {
	Sym  string
	Have int
	Want int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("symbol %q already bound to %d, cannot rebind to %d", e.Sym, e.Have, e.Want)
}

// Bindings is the symbol environment for one graph. Symbols are existentially
// bound the first time they are seen and must agree at every later occurrence.
type Bindings struct {
	byName map[string]int
}

// NewBindings returns an empty binding environment.
func NewBindings() *Bindings {
	return &Bindings{byName: make(map[string]int)}
}

// Bind records sym = size, failing with a *ConflictError if sym is already
// bound to a different size.
func (b *Bindings) Bind(sym string, size int) error {
	if have, ok := b.byName[sym]; ok {
		if have != size {
			return &ConflictError{Sym: sym, Have: have, Want: size}
		}
		return nil
	}
	b.byName[sym] = size
	return nil
}

// Lookup reports the bound size of sym, if any.
func (b *Bindings) Lookup(sym string) (int, bool) {
	size, ok := b.byName[sym]
	return size, ok
}

// Clone returns an independent copy. Graph construction unifies against a
// clone first and swaps it in only on success, which keeps node insertion
// atomic.
func (b *Bindings) Clone() *Bindings {
	out := NewBindings()
	for k, v := range b.byName {
		out.byName[k] = v
	}
	return out
}

// Unify matches candidate against template under the binding environment b,
// extending b as new symbols are concretized. Kind, metric and invariance
// group must match exactly; shapes must have the same rank and agree term by
// term. Two symbolic dims agree only by symbol identity; a symbolic dim
// against a concrete one binds the symbol through b.
func Unify(template, candidate Type, b *Bindings) error {
	if template.Kind != candidate.Kind {
		return fmt.Errorf("kind mismatch: expected %q, got %q", template.Kind, candidate.Kind)
	}
	if template.Metric != candidate.Metric {
		return fmt.Errorf("metric mismatch: expected %q, got %q", template.Metric, candidate.Metric)
	}
	if !GroupEqual(template.Group, candidate.Group) {
		return fmt.Errorf("invariance group mismatch: expected {%v}, got {%v}", template.Group, candidate.Group)
	}
	if len(template.Shape) != len(candidate.Shape) {
		return fmt.Errorf("rank mismatch: expected %d dims, got %d", len(template.Shape), len(candidate.Shape))
	}
	for i := range template.Shape {
		if err := unifyDim(template.Shape[i], candidate.Shape[i], b); err != nil {
			return fmt.Errorf("dim %d: %w", i, err)
		}
	}
	return nil
}

func unifyDim(t, c Dim, b *Bindings) error {
	// Resolve already-bound symbols to their concrete sizes first.
	if t.Symbolic() {
		if size, ok := b.Lookup(t.Sym); ok {
			t = Fixed(size)
		}
	}
	if c.Symbolic() {
		if size, ok := b.Lookup(c.Sym); ok {
			c = Fixed(size)
		}
	}

	switch {
	case t.Symbolic() && c.Symbolic():
		if t.Sym != c.Sym {
			return fmt.Errorf("symbol %q does not match symbol %q", t.Sym, c.Sym)
		}
		return nil
	case t.Symbolic():
		return b.Bind(t.Sym, c.Size)
	case c.Symbolic():
		return b.Bind(c.Sym, t.Size)
	default:
		if t.Size != c.Size {
			return fmt.Errorf("size %d does not match size %d", c.Size, t.Size)
		}
		return nil
	}
}

// CompatKind classifies the result of a compatibility query.
type CompatKind int

const (
	// CompatIncompatible means no unification and no registered adapter.
	CompatIncompatible CompatKind = iota
	// CompatEqual means the types unify directly.
	CompatEqual
	// CompatAdaptable means a registered adapter bridges the two types.
	CompatAdaptable
)

func (k CompatKind) String() string {
	switch k {
	case CompatEqual:
		return "equal"
	case CompatAdaptable:
		return "adaptable"
	default:
		return "incompatible"
	}
}

// Compat is the answer to a compatibility query. Adapter names the bridging
// adapter when Kind is CompatAdaptable.
type Compat struct {
	Kind    CompatKind
	Adapter string
}

// AdapterIndex answers "is there a registered adapter from a to b". The
// catalog implements it; keeping it as an interface here avoids a dependency
// cycle between the type model and the catalog.
type AdapterIndex interface {
	AdapterBetween(from, to Type) (name string, ok bool)
}

// Compatible reports how a value of type a can feed a slot expecting type b.
// Unification side effects are discarded: the caller re-unifies under its own
// environment when it commits to the result.
func Compatible(a, b Type, adapters AdapterIndex) Compat {
	if err := Unify(b, a, NewBindings()); err == nil {
		return Compat{Kind: CompatEqual}
	}
	if adapters != nil {
		if name, ok := adapters.AdapterBetween(a, b); ok {
			return Compat{Kind: CompatAdaptable, Adapter: name}
		}
	}
	return Compat{Kind: CompatIncompatible}
}
