package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/vk/rosettago/internal/ctxlog"
	"github.com/vk/rosettago/internal/ctyutil"
	"github.com/vk/rosettago/internal/decode"
	"github.com/vk/rosettago/internal/graph"
	"github.com/vk/rosettago/internal/search"
	"github.com/vk/rosettago/internal/typing"
)

// Run executes one search against the loaded catalog and prints the decoded
// graph. An infeasible budget still prints the best-effort graph before the
// error propagates.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if cfg.HealthcheckPort > 0 {
		a.startHealthcheckServer(cfg.HealthcheckPort)
	}

	input, err := typing.Parse(cfg.Input)
	if err != nil {
		return fmt.Errorf("parsing input type: %w", err)
	}
	output, err := typing.Parse(cfg.Output)
	if err != nil {
		return fmt.Errorf("parsing output type: %w", err)
	}
	budget, err := ParseBudget(cfg.Budget)
	if err != nil {
		return err
	}

	train, val := syntheticExamples(input, cfg.Samples, cfg.Seed)
	a.logger.Info("Starting search.",
		"input", input.String(), "output", output.String(), "depth", cfg.Depth, "train", len(train), "val", len(val))

	g, report, err := search.Search(ctx, a.catalog, search.Request{
		Input:      input,
		Output:     output,
		Train:      train,
		Val:        val,
		Budget:     budget,
		DepthBound: cfg.Depth,
		Seed:       cfg.Seed,
		Config: search.Config{
			Steps:   cfg.Steps,
			Workers: cfg.Workers,
		},
	})
	if err != nil {
		var infeasible *decode.SearchInfeasibleError
		if errors.As(err, &infeasible) && infeasible.Best != nil {
			a.logger.Warn("Budget is infeasible; printing the best graph found.")
			a.printGraph(infeasible.Best)
		}
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Fprintf(a.outW, "run %s  steps=%d  final_temp=%.3f  val_metric=%.6f\n",
		report.RunID, report.Steps, report.FinalTemp, report.ValMetric)
	for _, metric := range budget.Metrics() {
		fmt.Fprintf(a.outW, "budget %s: %.4g of %.4g\n", metric, report.Cost[metric], budget[metric])
	}
	a.printGraph(g)

	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) printGraph(g *graph.Graph) {
	for _, row := range g.Export() {
		switch {
		case row.Operator == "":
			fmt.Fprintf(a.outW, "%3d  input %-12s %s\n", row.ID, row.Input, row.Type)
		default:
			marker := ""
			if row.Inserted {
				marker = "  (inserted)"
			}
			if row.Output {
				marker += "  (output)"
			}
			fmt.Fprintf(a.outW, "%3d  %-18s <- %v  %s%s\n", row.ID, row.Operator, row.Inputs, row.Type, marker)
		}
	}
}

// syntheticExamples generates a deterministic labeled wave set for demo runs:
// the target tracks the dominant frequency, which gives the optimizer a real
// signal to fit. The last quarter is held out for validation.
func syntheticExamples(input typing.Type, samples int, seed int64) (train, val []search.Example) {
	n := sampleLength(input)
	rng := rand.New(rand.NewSource(seed))

	all := make([]search.Example, samples)
	for i := range all {
		freq := 1 + float64(i%4)
		phase := rng.Float64() * 6.28
		vec := make([]float64, n)
		for j := range vec {
			x := float64(j) / float64(n)
			vec[j] = math.Sin(2*math.Pi*freq*x+phase) + 0.1*rng.NormFloat64()
		}
		all[i] = search.Example{
			Input:  ctyutil.FloatsToList(vec),
			Target: freq / 4,
		}
	}

	cut := samples - samples/4
	if cut < 1 {
		cut = 1
	}
	return all[:cut], all[cut:]
}

// sampleLength picks the synthetic sequence length from the first fixed shape
// dimension, defaulting to 64 for fully symbolic inputs.
func sampleLength(input typing.Type) int {
	for _, d := range input.Shape {
		if !d.Symbolic() && d.Size > 1 {
			return d.Size
		}
	}
	return 64
}
