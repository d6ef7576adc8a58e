package search

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/cost"
	"github.com/vk/rosettago/internal/ctxlog"
	"github.com/vk/rosettago/internal/decode"
	"github.com/vk/rosettago/internal/graph"
	"github.com/vk/rosettago/internal/supergraph"
)

// Search runs one full architecture search: supergraph construction,
// relaxed optimization, and decoding into a single budget-checked graph.
// The catalog must be frozen. Cancellation during optimization still
// decodes from the weights reached so far.
func Search(ctx context.Context, cat *catalog.Catalog, req Request) (*graph.Graph, Report, error) {
	runID := uuid.NewString()
	logger := ctxlog.FromContext(ctx).With("run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)

	if !cat.Frozen() {
		return nil, Report{}, fmt.Errorf("catalog must be frozen before search")
	}
	if len(req.Train) == 0 {
		return nil, Report{}, fmt.Errorf("search needs at least one training example")
	}
	if req.DepthBound <= 0 {
		return nil, Report{}, fmt.Errorf("depth bound must be positive, got %d", req.DepthBound)
	}

	cfg := req.Config.withDefaults()
	obj, err := objectiveFor(req.TaskKind)
	if err != nil {
		return nil, Report{}, err
	}

	logger.Info("Building supergraph.",
		"input", req.Input.String(), "output", req.Output.String(), "depth", req.DepthBound)
	sg, err := supergraph.Build(ctx, cat, req.Input, req.Output, req.DepthBound,
		supergraph.Options{MaxFanIn: cfg.MaxFanIn})
	if err != nil {
		return nil, Report{}, err
	}

	// The batch rotation walks a seed-shuffled copy of the training set, so
	// two runs with the same seed see identical batches.
	train := make([]Example, len(req.Train))
	copy(train, req.Train)
	rng := rand.New(rand.NewSource(req.Seed))
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })

	opt := newOptimizer(sg, cfg, obj, train, req.Budget)
	if err := opt.run(ctx); err != nil {
		return nil, Report{}, err
	}

	val := req.Val
	if len(val) == 0 {
		val = req.Train
	}
	// Decoding must finish even when the optimization loop was cancelled:
	// the weights reached so far still decode into a usable graph.
	dctx := context.WithoutCancel(ctx)
	g, err := decode.Decode(dctx, sg, cat, req.Budget, graphMetric(obj, val), decode.Options{
		TieBreak:       cfg.TieBreak,
		MinImprovement: 1e-9,
	})
	if err != nil {
		return nil, Report{}, err
	}

	metric, err := graphMetric(obj, val)(dctx, g)
	if err != nil {
		return nil, Report{}, err
	}

	report := Report{
		RunID:     runID,
		Steps:     opt.step,
		FinalTemp: opt.temp,
		Cost:      make(map[string]float64, len(req.Budget)),
		ValMetric: metric,
	}
	for _, m := range req.Budget.Metrics() {
		report.Cost[m] = cost.Aggregate(g, m)
	}

	logger.Info("Search finished.",
		"steps", report.Steps, "final_temp", report.FinalTemp, "val_metric", report.ValMetric)
	return g, report, nil
}
