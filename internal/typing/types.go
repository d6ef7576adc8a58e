package typing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Dim is a single dimension term in a shape: either a named symbol or a
// concrete size. A Dim with a non-empty Sym is symbolic and its Size field is
// meaningless until the symbol is bound.
type Dim struct {
	Sym  string
	Size int
}

// Sym returns a symbolic dimension term.
func Sym(name string) Dim { return Dim{Sym: name} }

// Fixed returns a concrete dimension term.
func Fixed(size int) Dim { return Dim{Size: size} }

// Symbolic reports whether the dimension is an unbound symbol term.
func (d Dim) Symbolic() bool { return d.Sym != "" }

// String renders the dimension the way catalog files spell it.
func (d Dim) String() string {
	if d.Symbolic() {
		return d.Sym
	}
	return strconv.Itoa(d.Size)
}

// Type is the descriptor classifying values flowing between operators.
//
// Kind is a tag from an open enumeration ("path", "spectrum", "feature", ...).
// Metric names the notion of distance assumed on the type. Group is the set of
// invariance tags the type is asserted to respect; it is stored sorted and
// deduplicated so that comparison is set comparison.
type Type struct {
	Kind   string
	Shape  []Dim
	Metric string
	Group  []string
}

// New builds a normalized Type. The group slice is copied, sorted and
// deduplicated.
func New(kind string, shape []Dim, metric string, group ...string) Type {
	return Type{
		Kind:   kind,
		Shape:  append([]Dim(nil), shape...),
		Metric: metric,
		Group:  normalizeGroup(group),
	}
}

func normalizeGroup(group []string) []string {
	if len(group) == 0 {
		return nil
	}
	out := append([]string(nil), group...)
	sort.Strings(out)
	j := 0
	for i, g := range out {
		if i == 0 || g != out[j-1] {
			out[j] = g
			j++
		}
	}
	return out[:j]
}

// GroupEqual compares invariance groups as sets. Both sides are expected to be
// normalized (New does this). Set equality is deliberate: an operator that
// declares fewer invariances than a position requires is a failure, not a
// silent widening.
func GroupEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String renders the type as kind[d0,d1,...]/metric{g0,g1}.
func (t Type) String() string {
	var sb strings.Builder
	sb.WriteString(t.Kind)
	sb.WriteByte('[')
	for i, d := range t.Shape {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(d.String())
	}
	sb.WriteByte(']')
	if t.Metric != "" {
		sb.WriteByte('/')
		sb.WriteString(t.Metric)
	}
	if len(t.Group) > 0 {
		fmt.Fprintf(&sb, "{%s}", strings.Join(t.Group, ","))
	}
	return sb.String()
}

// Resolve substitutes bound symbols in the type's shape, leaving unbound
// symbols in place.
func (t Type) Resolve(b *Bindings) Type {
	out := t
	out.Shape = append([]Dim(nil), t.Shape...)
	for i, d := range out.Shape {
		if d.Symbolic() {
			if size, ok := b.Lookup(d.Sym); ok {
				out.Shape[i] = Fixed(size)
			}
		}
	}
	return out
}
