package energy

import (
	"context"
	"fmt"
	"math"

	"gobrick/domain/brick"
	"gobrick/domain/core"

	"golang.org/x/sync/errgroup"
)

// DefaultMinShardSize keeps shards large enough that goroutine overhead stays negligible
const DefaultMinShardSize = 4096

// Options controls how voxels are spread over workers. Results do not depend
// on Workers except for floating point summation order of the means.
type Options struct {
	Workers      int
	MinShardSize int
}

// Evaluator aggregates per-voxel margins into ObserverRobustDiagnostics
type Evaluator struct {
	opts Options
}

// NewEvaluator creates an evaluator; Workers < 1 means serial
func NewEvaluator(opts Options) *Evaluator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MinShardSize < 1 {
		opts.MinShardSize = DefaultMinShardSize
	}
	return &Evaluator{opts: opts}
}

// Evaluate runs a serial evaluation
func Evaluate(ctx context.Context, b *brick.Brick, params Params) (*brick.ObserverRobustDiagnostics, error) {
	return NewEvaluator(Options{Workers: 1}).Evaluate(ctx, b, params)
}

// Evaluate computes the observerRobust block for b. Degenerate voxels never
// fail the evaluation; only invalid params, a malformed brick or a cancelled
// context do.
func (e *Evaluator) Evaluate(ctx context.Context, b *brick.Brick, params Params) (*brick.ObserverRobustDiagnostics, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: nil brick", core.ErrInvalidParams)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidParams, err)
	}

	k := NewKernel(params)
	n := b.Voxels()
	shards := e.plan(n)
	parts := make([]*accumulator, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for idx, sh := range shards {
		idx, sh := idx, sh
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			acc := newAccumulator()
			for i := sh.start; i < sh.end; i++ {
				v := k.VoxelAt(b, i)
				acc.add(i, &v)
			}
			parts[idx] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := newAccumulator()
	for _, part := range parts {
		total.merge(part)
	}
	return total.diagnostics(k), nil
}

type shard struct {
	start, end int
}

// plan splits [0,n) into at most Workers contiguous shards
func (e *Evaluator) plan(n int) []shard {
	size := (n + e.opts.Workers - 1) / e.opts.Workers
	if size < e.opts.MinShardSize {
		size = e.opts.MinShardSize
	}
	var shards []shard
	for start := 0; start < n; start += size {
		shards = append(shards, shard{start: start, end: min(start+size, n)})
	}
	return shards
}

// conditionAccumulator reduces one condition's margins; merge is
// associative so shards can be combined in index order.
type conditionAccumulator struct {
	count                  int
	eulerianMin, robustMin float64
	eulerianSum, robustSum float64
	gainMin, gainSum       float64
	eulerianViolations     int
	robustViolations       int
	missed                 int
	maxRobustMinusEulerian float64
	worst                  brick.WorstCase
}

func newConditionAccumulator() conditionAccumulator {
	return conditionAccumulator{
		eulerianMin:            math.Inf(1),
		robustMin:              math.Inf(1),
		gainMin:                math.Inf(1),
		maxRobustMinusEulerian: math.Inf(-1),
		worst:                  brick.WorstCase{Index: -1, Value: math.Inf(1)},
	}
}

func (c *conditionAccumulator) add(i int, eulerian, robust float64, obs Observer) {
	c.count++
	c.eulerianSum += eulerian
	c.robustSum += robust
	c.eulerianMin = math.Min(c.eulerianMin, eulerian)
	c.robustMin = math.Min(c.robustMin, robust)

	gain := eulerian - robust
	c.gainSum += gain
	c.gainMin = math.Min(c.gainMin, gain)
	c.maxRobustMinusEulerian = math.Max(c.maxRobustMinusEulerian, robust-eulerian)

	if eulerian < 0 {
		c.eulerianViolations++
	}
	if robust < 0 {
		c.robustViolations++
		if eulerian >= 0 {
			c.missed++
		}
	}
	// strict comparison keeps the lowest index on ties
	if robust < c.worst.Value {
		c.worst = worstCase(i, robust, obs)
	}
}

func (c *conditionAccumulator) merge(o *conditionAccumulator) {
	c.count += o.count
	c.eulerianSum += o.eulerianSum
	c.robustSum += o.robustSum
	c.gainSum += o.gainSum
	c.eulerianMin = math.Min(c.eulerianMin, o.eulerianMin)
	c.robustMin = math.Min(c.robustMin, o.robustMin)
	c.gainMin = math.Min(c.gainMin, o.gainMin)
	c.maxRobustMinusEulerian = math.Max(c.maxRobustMinusEulerian, o.maxRobustMinusEulerian)
	c.eulerianViolations += o.eulerianViolations
	c.robustViolations += o.robustViolations
	c.missed += o.missed
	if o.worst.Index >= 0 && (c.worst.Index < 0 || o.worst.Value < c.worst.Value ||
		(o.worst.Value == c.worst.Value && o.worst.Index < c.worst.Index)) {
		c.worst = o.worst
	}
}

func (c *conditionAccumulator) summary() brick.ConditionSummary {
	if c.count == 0 {
		return brick.ConditionSummary{WorstCase: brick.WorstCase{Index: -1}}
	}
	n := float64(c.count)
	return brick.ConditionSummary{
		EulerianMin:               c.eulerianMin,
		EulerianMean:              c.eulerianSum / n,
		RobustMin:                 c.robustMin,
		RobustMean:                c.robustSum / n,
		EulerianViolationFraction: float64(c.eulerianViolations) / n,
		RobustViolationFraction:   float64(c.robustViolations) / n,
		MissedViolationFraction:   float64(c.missed) / n,
		SeverityGainMin:           c.gainMin,
		SeverityGainMean:          c.gainSum / n,
		MaxRobustMinusEulerian:    c.maxRobustMinusEulerian,
		WorstCase:                 c.worst,
	}
}

func worstCase(i int, value float64, obs Observer) brick.WorstCase {
	wc := brick.WorstCase{
		Index:     i,
		Value:     value,
		Direction: [3]float64{obs.Direction.X, obs.Direction.Y, obs.Direction.Z},
		Source:    obs.Source,
	}
	if obs.HasRapidity {
		r := obs.Rapidity
		wc.Rapidity = &r
	}
	return wc
}

type accumulator struct {
	voxels     int
	typeI      int
	conditions [numConditions]conditionAccumulator
}

func newAccumulator() *accumulator {
	acc := &accumulator{}
	for c := range acc.conditions {
		acc.conditions[c] = newConditionAccumulator()
	}
	return acc
}

func (a *accumulator) add(i int, v *VoxelResult) {
	a.voxels++
	if v.TypeI {
		a.typeI++
	}
	for c := 0; c < numConditions; c++ {
		a.conditions[c].add(i, v.Eulerian[c], v.Robust[c], v.Observers[c])
	}
}

func (a *accumulator) merge(o *accumulator) {
	if o == nil {
		return
	}
	a.voxels += o.voxels
	a.typeI += o.typeI
	for c := range a.conditions {
		a.conditions[c].merge(&o.conditions[c])
	}
}

func (a *accumulator) diagnostics(k *Kernel) *brick.ObserverRobustDiagnostics {
	params := k.Params()
	d := &brick.ObserverRobustDiagnostics{
		PressureModel:   brick.PressureModelIsotropic,
		PressureFactor:  params.PressureFactor,
		RapidityCap:     params.RapidityCap,
		RapidityCapBeta: k.BetaCap(),
		TypeI: brick.TypeIStats{
			Count:     a.typeI,
			Tolerance: params.TypeITolerance,
		},
	}
	if a.voxels > 0 {
		d.TypeI.Fraction = float64(a.typeI) / float64(a.voxels)
	}

	maxDiff := math.Inf(-1)
	for c, cond := range brick.Conditions {
		s := a.conditions[c].summary()
		*d.Summary(cond) = s
		maxDiff = math.Max(maxDiff, s.MaxRobustMinusEulerian)
	}
	d.Consistency = brick.Consistency{
		RobustNotGreaterThanEulerian: maxDiff <= ConsistencyEpsilon,
		MaxRobustMinusEulerian:       math.Max(0, maxDiff),
	}
	return d
}
