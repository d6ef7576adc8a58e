package search

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rosettago/internal/cost"
	"github.com/vk/rosettago/internal/decode"
	"github.com/vk/rosettago/internal/typing"
)

// Example is one labeled training or validation sample. Input crosses the
// operator boundary as an opaque cty value; Target is the scalar the task
// objective compares against.
type Example struct {
	Input  cty.Value
	Target float64
}

// Config tunes the optimization loop. Zero values fall back to Default.
type Config struct {
	// Steps bounds the number of optimization rounds.
	Steps int

	// Workers bounds the fan-out of candidate evaluations within one step.
	Workers int

	// BatchSize is the rotating window of training examples per step.
	BatchSize int

	LearnRate float64

	// Temp0, TempDecay and TempMin define the monotonic annealing schedule:
	// temperature(step) = max(TempMin, Temp0 * TempDecay^step).
	Temp0     float64
	TempDecay float64
	TempMin   float64

	// AnnealedTemp is the temperature below which a position counts as
	// annealed.
	AnnealedTemp float64

	// WeightFloor is the pruning threshold: candidates whose mixture weight
	// falls below it are permanently removed.
	WeightFloor float64

	// PruneEvery is the pruning cadence in steps.
	PruneEvery int

	// PenaltyWeight scales the soft budget penalty added to the training
	// signal.
	PenaltyWeight float64

	// MaxFanIn is passed through to the supergraph builder. Zero means the
	// default; a negative value disables fan-in combinators.
	MaxFanIn int

	// TieBreak is passed through to the decoder.
	TieBreak decode.TieBreak
}

// Default returns the configuration used when Request.Config is zero.
func Default() Config {
	return Config{
		Steps:         40,
		Workers:       4,
		BatchSize:     8,
		LearnRate:     0.5,
		Temp0:         1.0,
		TempDecay:     0.93,
		TempMin:       0.05,
		AnnealedTemp:  0.2,
		WeightFloor:   0.05,
		PruneEvery:    10,
		PenaltyWeight: 1.0,
		MaxFanIn:      2,
	}
}

func (c Config) withDefaults() Config {
	d := Default()
	if c.Steps <= 0 {
		c.Steps = d.Steps
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.LearnRate <= 0 {
		c.LearnRate = d.LearnRate
	}
	if c.Temp0 <= 0 {
		c.Temp0 = d.Temp0
	}
	if c.TempDecay <= 0 || c.TempDecay >= 1 {
		c.TempDecay = d.TempDecay
	}
	if c.TempMin <= 0 {
		c.TempMin = d.TempMin
	}
	if c.AnnealedTemp <= 0 {
		c.AnnealedTemp = d.AnnealedTemp
	}
	if c.WeightFloor <= 0 {
		c.WeightFloor = d.WeightFloor
	}
	if c.PruneEvery <= 0 {
		c.PruneEvery = d.PruneEvery
	}
	if c.PenaltyWeight <= 0 {
		c.PenaltyWeight = d.PenaltyWeight
	}
	if c.MaxFanIn == 0 {
		c.MaxFanIn = d.MaxFanIn
	} else if c.MaxFanIn < 0 {
		c.MaxFanIn = 0
	}
	return c
}

// Request is one search invocation.
type Request struct {
	Input  typing.Type
	Output typing.Type

	// TaskKind selects the training objective; it is otherwise opaque.
	TaskKind string

	Train []Example
	Val   []Example

	// Budget is owned by this request and read-only during the run.
	Budget cost.Budget

	DepthBound int
	Seed       int64
	Config     Config
}

// Report summarizes a finished search run.
type Report struct {
	RunID     string
	Steps     int
	FinalTemp float64

	// Cost holds the decoded graph's aggregate for every budgeted metric.
	Cost map[string]float64

	// ValMetric is the decoded graph's final held-out score (lower is
	// better).
	ValMetric float64
}
