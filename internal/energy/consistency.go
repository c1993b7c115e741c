package energy

import (
	"fmt"
	"math"

	"gobrick/domain/brick"
	"gobrick/domain/core"
)

// Attach returns a copy of b whose stats carry d. Channel slices are shared;
// b itself is left untouched.
func Attach(b *brick.Brick, d *brick.ObserverRobustDiagnostics) *brick.Brick {
	out := *b
	out.Stats.ObserverRobust = d
	return &out
}

// CheckConsistency validates an observerRobust block received from upstream
// before overlays trust its parameters and cached worst cases.
func CheckConsistency(d *brick.ObserverRobustDiagnostics) error {
	if d == nil {
		return core.ErrNoObserverBlock
	}
	if d.PressureModel != brick.PressureModelIsotropic {
		return fmt.Errorf("%w: pressureModel %q", core.ErrInconsistentBlock, d.PressureModel)
	}
	if d.RapidityCap > 0 && math.Abs(math.Tanh(d.RapidityCap)-d.RapidityCapBeta) > 1e-6 {
		return fmt.Errorf("%w: rapidityCapBeta %v != tanh(%v)", core.ErrInconsistentBlock, d.RapidityCapBeta, d.RapidityCap)
	}
	if !inUnit(d.TypeI.Fraction) {
		return fmt.Errorf("%w: typeI fraction %v", core.ErrInconsistentBlock, d.TypeI.Fraction)
	}
	for _, cond := range brick.Conditions {
		s := d.Summary(cond)
		for _, f := range []float64{s.EulerianViolationFraction, s.RobustViolationFraction, s.MissedViolationFraction} {
			if !inUnit(f) {
				return fmt.Errorf("%w: %s fraction %v outside [0,1]", core.ErrInconsistentBlock, cond, f)
			}
		}
		if s.MissedViolationFraction > s.RobustViolationFraction+1e-12 {
			return fmt.Errorf("%w: %s missed fraction exceeds robust violation fraction", core.ErrInconsistentBlock, cond)
		}
	}
	if d.Consistency.RobustNotGreaterThanEulerian != (d.Consistency.MaxRobustMinusEulerian <= ConsistencyEpsilon) {
		return fmt.Errorf("%w: consistency flag disagrees with maxRobustMinusEulerian %v",
			core.ErrInconsistentBlock, d.Consistency.MaxRobustMinusEulerian)
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
