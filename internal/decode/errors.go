package decode

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/rosettago/internal/graph"
)

// SearchInfeasibleError means no swap sequence brought the decoded graph
// within budget. It carries the best graph found and its actual cost so the
// caller can decide whether to keep it anyway.
type SearchInfeasibleError struct {
	Best *graph.Graph
	Cost map[string]float64
}

func (e *SearchInfeasibleError) Error() string {
	metrics := make([]string, 0, len(e.Cost))
	for m := range e.Cost {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)
	parts := make([]string, len(metrics))
	for i, m := range metrics {
		parts[i] = fmt.Sprintf("%s=%.4g", m, e.Cost[m])
	}
	return fmt.Sprintf("decoding cannot satisfy the budget (best-effort cost: %s)", strings.Join(parts, ", "))
}
