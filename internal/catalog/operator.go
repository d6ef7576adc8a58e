package catalog

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rosettago/internal/typing"
)

// DefaultCostMetric is the metric used for the catalog's deterministic sort
// order when an operator declares several cost metrics.
const DefaultCostMetric = "cost"

// Bound is a declared stability (Lipschitz) estimate. An operator with no
// declared estimate carries Known=false, which propagates as an explicit
// unknown through aggregation rather than defaulting to a number.
type Bound struct {
	Known bool
	Value float64
}

// KnownBound returns a concrete stability bound.
func KnownBound(v float64) Bound { return Bound{Known: true, Value: v} }

// UnknownBound returns the explicit "no estimate" marker.
func UnknownBound() Bound { return Bound{} }

// Handler is the uniform execution contract. The engine never inspects an
// operator beyond this boundary: inputs arrive in slot order, params carry the
// operator's current parameter state, and the result is a single value.
type Handler interface {
	Evaluate(ctx context.Context, inputs []cty.Value, params map[string]cty.Value) (cty.Value, error)
}

// Trainable is the optional companion contract for differentiable operators.
// The search loop feeds a scalar loss signal back and receives updated
// parameters; how the operator turns the signal into a parameter step is its
// own business.
type Trainable interface {
	ApplyGradient(signal float64, params map[string]cty.Value) map[string]cty.Value
}

// HandlerFunc adapts a plain function to the Handler contract.
type HandlerFunc func(ctx context.Context, inputs []cty.Value, params map[string]cty.Value) (cty.Value, error)

// Evaluate implements Handler.
func (f HandlerFunc) Evaluate(ctx context.Context, inputs []cty.Value, params map[string]cty.Value) (cty.Value, error) {
	return f(ctx, inputs, params)
}

// Operator is one registered operator: an atom, a fan-in combinator, or an
// adapter. Records are immutable once registered; treat every field as
// read-only.
type Operator struct {
	Name string

	// InTypes has arity >= 1. Combinators such as concat declare arity >= 2.
	InTypes []typing.Type
	OutType typing.Type

	// Differentiable operators participate in the continuous relaxation;
	// non-differentiable ones only enter graphs through the discrete
	// controller's insertion pass.
	Differentiable bool

	// Adapter marks a semantics-preserving cast between two type kinds.
	// Adapters always have arity 1.
	Adapter bool

	Invariance []string
	Stability  Bound

	// Cost maps metric name to the declared per-invocation cost.
	Cost map[string]float64

	// Params holds default parameter values handed to the handler.
	Params map[string]cty.Value

	Handler Handler
}

// Arity returns the number of input slots.
func (o *Operator) Arity() int { return len(o.InTypes) }

// SortCost is the key for the catalog's deterministic ordering: the declared
// DefaultCostMetric value, or the sum of all declared metrics when the
// operator does not declare it.
func (o *Operator) SortCost() float64 {
	if c, ok := o.Cost[DefaultCostMetric]; ok {
		return c
	}
	var sum float64
	for _, c := range o.Cost {
		sum += c
	}
	return sum
}

// CloneParams returns a mutable copy of the default parameters for one search
// instance. The registered defaults are never written to.
func (o *Operator) CloneParams() map[string]cty.Value {
	out := make(map[string]cty.Value, len(o.Params))
	for k, v := range o.Params {
		out[k] = v
	}
	return out
}
