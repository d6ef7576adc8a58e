package search

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/cost"
	"github.com/vk/rosettago/internal/ctxlog"
	"github.com/vk/rosettago/internal/ctyutil"
	"github.com/vk/rosettago/internal/supergraph"
)

// deadPathLoss is charged when a forward pass never reaches the output type;
// it only happens transiently while weights are extreme.
const deadPathLoss = 1e6

// optimizer owns every piece of mutable search state: the per-candidate
// logits and weights, the per-candidate parameter instances, the step counter
// and the temperature. Nothing else writes them.
type optimizer struct {
	sg     *supergraph.Supergraph
	cfg    Config
	obj    objective
	train  []Example
	budget cost.Budget

	step int
	temp float64
}

// job is one forced candidate evaluation inside a step.
type job struct {
	state *supergraph.State
	cand  *supergraph.Candidate
}

func newOptimizer(sg *supergraph.Supergraph, cfg Config, obj objective, train []Example, budget cost.Budget) *optimizer {
	return &optimizer{sg: sg, cfg: cfg, obj: obj, train: train, budget: budget, temp: cfg.Temp0}
}

// run executes the optimization loop. Cancellation stops the loop between
// steps and leaves the current weights intact so a decode is always possible;
// an operator evaluation failure is fatal and propagated unchanged.
func (o *optimizer) run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	o.initMixtures()

	for o.step = 0; o.step < o.cfg.Steps; o.step++ {
		if ctx.Err() != nil {
			logger.Debug("Optimization cancelled.", "step", o.step)
			return nil
		}
		o.temp = math.Max(o.cfg.TempMin, o.cfg.Temp0*math.Pow(o.cfg.TempDecay, float64(o.step)))

		batch := o.batch()
		jobs := o.jobs()
		if len(jobs) == 0 {
			return nil
		}

		// Fan-out with a barrier: all candidate evaluations of this step
		// complete before any weight is touched.
		losses := make([]float64, len(jobs))
		eg, gctx := errgroup.WithContext(ctx)
		eg.SetLimit(o.cfg.Workers)
		for i := range jobs {
			i := i
			eg.Go(func() error {
				l, err := o.forcedLoss(gctx, jobs[i], batch)
				if err != nil {
					return err
				}
				losses[i] = l
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Debug("Optimization cancelled mid-step; weights from the last full step stand.", "step", o.step)
				return nil
			}
			return err
		}

		o.updateWeights(jobs, losses)
		o.updateParams(jobs, losses)
		if (o.step+1)%o.cfg.PruneEvery == 0 {
			o.prune(ctx)
		}
	}
	return nil
}

// initMixtures moves every state into Mixing with a uniform softmax over its
// differentiable candidates.
func (o *optimizer) initMixtures() {
	for _, st := range o.sg.States {
		if st.Terminal || len(st.Candidates) == 0 {
			continue
		}
		st.Phase = supergraph.Mixing
		active := st.Active()
		for _, c := range active {
			c.Logit = 0
			c.Weight = 1 / float64(len(active))
		}
	}
}

// batch returns the rotating training window for the current step, in data
// order.
func (o *optimizer) batch() []Example {
	n := len(o.train)
	if n <= o.cfg.BatchSize {
		return o.train
	}
	start := (o.step * o.cfg.BatchSize) % n
	out := make([]Example, 0, o.cfg.BatchSize)
	for i := 0; i < o.cfg.BatchSize; i++ {
		out = append(out, o.train[(start+i)%n])
	}
	return out
}

// jobs enumerates the forced evaluations for this step in deterministic
// state-then-candidate order.
func (o *optimizer) jobs() []job {
	var out []job
	for _, st := range o.sg.States {
		for _, c := range st.Active() {
			out = append(out, job{state: st, cand: c})
		}
	}
	return out
}

// forcedLoss scores one candidate: the mixture forward pass with the
// candidate's state routed entirely through it, averaged over the batch, plus
// the soft budget penalty for that routing.
func (o *optimizer) forcedLoss(ctx context.Context, j job, batch []Example) (float64, error) {
	var total float64
	for _, ex := range batch {
		pred, ok, err := o.forward(ctx, j, ex.Input)
		if err != nil {
			return 0, err
		}
		if !ok {
			total += deadPathLoss
			continue
		}
		total += o.obj(pred, ex.Target)
	}
	loss := total / float64(len(batch))
	return loss + o.penalty(j), nil
}

// forward runs the relaxed evaluation: every state's value is the weighted
// combination of its differentiable candidates' outputs, with the forced
// state collapsed onto one candidate. Values flowing into terminal states
// form the prediction.
func (o *optimizer) forward(ctx context.Context, j job, input cty.Value) (pred float64, ok bool, err error) {
	inVec, err := ctyutil.ListToFloats(input)
	if err != nil {
		return 0, false, err
	}

	vals := make([][]float64, len(o.sg.States))
	wsum := make([]float64, len(o.sg.States))

	root := o.sg.Root()
	vals[root.Index] = inVec
	wsum[root.Index] = 1

	var outNum, outDen float64

	for _, st := range o.sg.States {
		if vals[st.Index] == nil || wsum[st.Index] == 0 {
			continue
		}
		v := scaled(vals[st.Index], 1/wsum[st.Index])

		if st.Terminal {
			outNum += mean(v) * wsum[st.Index]
			outDen += wsum[st.Index]
			continue
		}

		for _, wc := range o.mixture(st, j) {
			out, err := o.fire(ctx, wc.cand, v)
			if err != nil {
				return 0, false, fmt.Errorf("operator %s: %w", wc.cand.Op.Name, err)
			}
			succ, found := o.sg.StateAt(st.Stage+1, wc.cand.Out)
			if !found {
				continue
			}
			if vals[succ.Index] == nil {
				vals[succ.Index] = make([]float64, len(out))
			}
			if len(vals[succ.Index]) != len(out) {
				return 0, false, fmt.Errorf("operator %s produced %d values, state %s expects %d",
					wc.cand.Op.Name, len(out), succ.Type, len(vals[succ.Index]))
			}
			w := wc.weight * wsum[st.Index]
			for i, x := range out {
				vals[succ.Index][i] += w * x
			}
			wsum[succ.Index] += w
		}
	}

	if outDen == 0 {
		return 0, false, nil
	}
	return outNum / outDen, true, nil
}

type weighted struct {
	cand   *supergraph.Candidate
	weight float64
}

// mixture returns the candidates a state routes through during the relaxed
// pass. The forced state collapses to its forced candidate; a state whose
// mixture is empty (every candidate non-differentiable or pruned) routes
// through its first unpruned candidate so the path stays evaluable.
func (o *optimizer) mixture(st *supergraph.State, j job) []weighted {
	if st == j.state {
		return []weighted{{cand: j.cand, weight: 1}}
	}
	var out []weighted
	for _, c := range st.Active() {
		if c.Weight > 0 {
			out = append(out, weighted{cand: c, weight: c.Weight})
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, c := range st.Candidates {
		if !c.Pruned {
			return []weighted{{cand: c, weight: 1}}
		}
	}
	return nil
}

// fire evaluates one candidate on the current state value. Combinator slots
// beyond the first see the same value during relaxation; the decoder wires
// them properly against the discrete chain.
func (o *optimizer) fire(ctx context.Context, c *supergraph.Candidate, v []float64) ([]float64, error) {
	encoded := ctyutil.FloatsToList(v)
	args := make([]cty.Value, c.Op.Arity())
	for i := range args {
		args[i] = encoded
	}
	out, err := c.Op.Handler.Evaluate(ctx, args, c.Params)
	if err != nil {
		return nil, err
	}
	return ctyutil.ListToFloats(out)
}

// penalty is the soft budget term: the relaxed expected cost over every
// mixture (with the forced routing applied), charged proportionally to how
// far it exceeds each budgeted metric.
func (o *optimizer) penalty(j job) float64 {
	if len(o.budget) == 0 {
		return 0
	}
	var p float64
	for _, metric := range o.budget.Metrics() {
		limit := o.budget[metric]
		var expected float64
		for _, st := range o.sg.States {
			if st.Terminal {
				continue
			}
			for _, wc := range o.mixture(st, j) {
				expected += wc.weight * wc.cand.Op.Cost[metric]
			}
		}
		if over := expected - limit; over > 0 {
			p += o.cfg.PenaltyWeight * over / math.Max(limit, 1e-9)
		}
	}
	return p
}

// updateWeights applies the exponentiated-gradient step per state and
// renormalizes through the temperature-scaled softmax.
func (o *optimizer) updateWeights(jobs []job, losses []float64) {
	byState := make(map[*supergraph.State][]int)
	for i, jb := range jobs {
		byState[jb.state] = append(byState[jb.state], i)
	}

	for _, st := range o.sg.States {
		idxs := byState[st]
		if len(idxs) == 0 {
			continue
		}
		var meanLoss float64
		for _, i := range idxs {
			meanLoss += losses[i]
		}
		meanLoss /= float64(len(idxs))

		for _, i := range idxs {
			jobs[i].cand.Logit -= o.cfg.LearnRate * (losses[i] - meanLoss)
		}
		o.softmax(st)

		if st.Phase == supergraph.Mixing && o.temp <= o.cfg.AnnealedTemp {
			st.Phase = supergraph.Annealed
		}
	}
}

// softmax renormalizes a state's active candidate weights at the current
// temperature.
func (o *optimizer) softmax(st *supergraph.State) {
	active := st.Active()
	if len(active) == 0 {
		return
	}
	maxLogit := math.Inf(-1)
	for _, c := range active {
		if c.Logit > maxLogit {
			maxLogit = c.Logit
		}
	}
	var norm float64
	for _, c := range active {
		c.Weight = math.Exp((c.Logit - maxLogit) / o.temp)
		norm += c.Weight
	}
	for _, c := range active {
		c.Weight /= norm
	}
}

// updateParams feeds the loss signal back into the current argmax candidate
// of every state, through the operator's optional gradient contract.
func (o *optimizer) updateParams(jobs []job, losses []float64) {
	type best struct {
		idx int
		set bool
	}
	bests := make(map[*supergraph.State]best)
	for i, jb := range jobs {
		b := bests[jb.state]
		if !b.set || jb.cand.Weight > jobs[b.idx].cand.Weight {
			bests[jb.state] = best{idx: i, set: true}
		}
	}
	for _, st := range o.sg.States {
		b, ok := bests[st]
		if !ok {
			continue
		}
		cand := jobs[b.idx].cand
		if trainable, ok := cand.Op.Handler.(catalog.Trainable); ok {
			cand.Params = trainable.ApplyGradient(losses[b.idx], cand.Params)
		}
	}
}

// prune permanently removes candidates whose weight fell below the floor,
// always keeping the current argmax. A state pruned to a single candidate is
// on its way to Decoded.
func (o *optimizer) prune(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for _, st := range o.sg.States {
		active := st.Active()
		if len(active) <= 1 {
			continue
		}
		var keep *supergraph.Candidate
		for _, c := range active {
			if keep == nil || c.Weight > keep.Weight {
				keep = c
			}
		}
		var pruned int
		for _, c := range active {
			if c != keep && c.Weight < o.cfg.WeightFloor {
				c.Pruned = true
				c.Weight = 0
				pruned++
			}
		}
		if pruned > 0 {
			st.Phase = supergraph.Pruned
			o.softmax(st)
			logger.Debug("Pruned candidates.", "state", st.Type.String(), "stage", st.Stage, "removed", pruned)
		}
	}
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func scaled(v []float64, f float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * f
	}
	return out
}
