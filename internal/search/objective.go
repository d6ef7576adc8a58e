package search

import (
	"context"
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rosettago/internal/ctyutil"
	"github.com/vk/rosettago/internal/decode"
	"github.com/vk/rosettago/internal/graph"
)

// objective maps a scalar prediction and target to a loss. Lower is better.
type objective func(pred, target float64) float64

// objectiveFor selects the training objective for a task kind. The kind is
// opaque to everything else in the engine.
func objectiveFor(taskKind string) (objective, error) {
	switch taskKind {
	case "", "regression":
		return func(pred, target float64) float64 {
			d := pred - target
			return d * d
		}, nil
	case "classification":
		return func(pred, target float64) float64 {
			return math.Log1p(math.Exp(-target * pred))
		}, nil
	default:
		return nil, fmt.Errorf("unknown task kind %q", taskKind)
	}
}

// scalarOf reduces an operator output value to the scalar the objective
// scores: the mean of the output vector.
func scalarOf(v cty.Value) (float64, error) {
	vec, err := ctyutil.ListToFloats(v)
	if err != nil {
		return 0, err
	}
	if len(vec) == 0 {
		return 0, fmt.Errorf("empty output vector")
	}
	var sum float64
	for _, x := range vec {
		sum += x
	}
	return sum / float64(len(vec)), nil
}

// graphMetric adapts a decoded graph to the validation metric contract: mean
// objective loss over the held-out set.
func graphMetric(obj objective, val []Example) decode.Metric {
	return func(ctx context.Context, g *graph.Graph) (float64, error) {
		if len(val) == 0 {
			return 0, nil
		}
		var total float64
		for _, ex := range val {
			out, err := g.Execute(ctx, map[string]cty.Value{decode.InputName: ex.Input})
			if err != nil {
				return 0, err
			}
			pred, err := scalarOf(out)
			if err != nil {
				return 0, err
			}
			total += obj(pred, ex.Target)
		}
		return total / float64(len(val)), nil
	}
}
