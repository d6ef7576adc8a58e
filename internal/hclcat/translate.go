package hclcat

import (
	"strconv"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/ctyutil"
	"github.com/vk/rosettago/internal/typing"
)

// translateOperator turns one decoded operator block into a catalog record.
// Every failure is a *catalog.MalformedSignatureError so the loader can keep
// going and aggregate.
func translateOperator(block *operatorBlock, reg handlerResolver) (*catalog.Operator, error) {
	handler, ok := reg.Get(block.Handler)
	if !ok {
		return nil, &catalog.MalformedSignatureError{
			Name: block.Name, Reason: "handler " + strconv.Quote(block.Handler) + " is not registered",
		}
	}
	if block.Output == nil {
		return nil, &catalog.MalformedSignatureError{Name: block.Name, Reason: "missing output block"}
	}

	inTypes := make([]typing.Type, len(block.Inputs))
	for i, tb := range block.Inputs {
		ty, err := translateType(block.Name, tb)
		if err != nil {
			return nil, err
		}
		inTypes[i] = ty
	}
	outType, err := translateType(block.Name, block.Output)
	if err != nil {
		return nil, err
	}

	stability := catalog.UnknownBound()
	if block.Stability != nil {
		stability = catalog.KnownBound(*block.Stability)
	}

	costs, err := translateCost(block.Name, block.Cost)
	if err != nil {
		return nil, err
	}
	params, err := translateParams(block.Name, block.Params)
	if err != nil {
		return nil, err
	}

	return &catalog.Operator{
		Name:           block.Name,
		InTypes:        inTypes,
		OutType:        outType,
		Differentiable: block.Differentiable,
		Adapter:        block.Adapter,
		Invariance:     block.Invariance,
		Stability:      stability,
		Cost:           costs,
		Params:         params,
		Handler:        handler,
	}, nil
}

func translateType(opName string, tb *typeBlock) (typing.Type, error) {
	shape := make([]typing.Dim, len(tb.Shape))
	for i, term := range tb.Shape {
		if term == "" {
			return typing.Type{}, &catalog.MalformedSignatureError{Name: opName, Reason: "empty shape term"}
		}
		if n, err := strconv.Atoi(term); err == nil {
			if n <= 0 {
				return typing.Type{}, &catalog.MalformedSignatureError{
					Name: opName, Reason: "shape size " + term + " is not positive",
				}
			}
			shape[i] = typing.Fixed(n)
			continue
		}
		shape[i] = typing.Sym(term)
	}
	return typing.New(tb.Kind, shape, tb.Metric, tb.Group...), nil
}

func translateCost(opName string, v cty.Value) (map[string]float64, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, &catalog.MalformedSignatureError{Name: opName, Reason: "cost must be an object of numbers"}
	}
	out := make(map[string]float64)
	for it := v.ElementIterator(); it.Next(); {
		k, elem := it.Element()
		f, err := ctyutil.Float(elem)
		if err != nil {
			return nil, &catalog.MalformedSignatureError{
				Name: opName, Reason: "cost metric " + k.AsString() + " is not a number",
			}
		}
		out[k.AsString()] = f
	}
	return out, nil
}

func translateParams(opName string, v cty.Value) (map[string]cty.Value, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, &catalog.MalformedSignatureError{Name: opName, Reason: "params must be an object"}
	}
	out := make(map[string]cty.Value)
	for it := v.ElementIterator(); it.Next(); {
		k, elem := it.Element()
		out[k.AsString()] = elem
	}
	return out, nil
}
