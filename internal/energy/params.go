package energy

import (
	"fmt"
	"math"

	"gobrick/domain/brick"
	"gobrick/domain/core"
)

// Observer parameter defaults applied at the boundary
const (
	DefaultPressureFactor = -1.0
	DefaultRapidityCap    = 0.5
	DefaultTypeITolerance = 1e-9
)

// Params configures the observer-robust evaluation.
// Pressure is modelled as PressureFactor*rho; boosts are capped at RapidityCap.
type Params struct {
	PressureFactor float64 `json:"pressureFactor"`
	RapidityCap    float64 `json:"rapidityCap"`
	TypeITolerance float64 `json:"typeITolerance"`
}

// DefaultParams returns the standard tension proxy (-1), rapidity cap 0.5 and tolerance 1e-9
func DefaultParams() Params {
	return Params{
		PressureFactor: DefaultPressureFactor,
		RapidityCap:    DefaultRapidityCap,
		TypeITolerance: DefaultTypeITolerance,
	}
}

// BetaCap is the velocity fraction equivalent of the rapidity cap
func (p Params) BetaCap() float64 {
	return math.Tanh(p.RapidityCap)
}

// Validate rejects parameters the kernel cannot honour
func (p Params) Validate() error {
	if !isFinite(p.PressureFactor) {
		return fmt.Errorf("%w: pressureFactor must be finite, got %v", core.ErrInvalidParams, p.PressureFactor)
	}
	if !isFinite(p.RapidityCap) || p.RapidityCap <= 0 || p.RapidityCap >= 1 {
		return fmt.Errorf("%w: rapidityCap must be in (0,1), got %v", core.ErrInvalidParams, p.RapidityCap)
	}
	if !isFinite(p.TypeITolerance) || p.TypeITolerance < 0 {
		return fmt.Errorf("%w: typeITolerance must be a non-negative number, got %v", core.ErrInvalidParams, p.TypeITolerance)
	}
	return nil
}

// Normalize replaces every unusable field with its default
func (p Params) Normalize() Params {
	d := DefaultParams()
	if isFinite(p.PressureFactor) {
		d.PressureFactor = p.PressureFactor
	}
	if isFinite(p.RapidityCap) && p.RapidityCap > 0 && p.RapidityCap < 1 {
		d.RapidityCap = p.RapidityCap
	}
	if isFinite(p.TypeITolerance) && p.TypeITolerance >= 0 {
		d.TypeITolerance = p.TypeITolerance
	}
	return d
}

// ParamsFromDiagnostics recovers the parameters an observerRobust block was computed with.
// A block that only carries the beta form of the cap is converted back with atanh.
func ParamsFromDiagnostics(d *brick.ObserverRobustDiagnostics) Params {
	if d == nil {
		return DefaultParams()
	}
	p := Params{
		PressureFactor: d.PressureFactor,
		RapidityCap:    d.RapidityCap,
		TypeITolerance: d.TypeI.Tolerance,
	}
	if p.RapidityCap <= 0 && d.RapidityCapBeta > 0 && d.RapidityCapBeta < 1 {
		p.RapidityCap = math.Atanh(d.RapidityCapBeta)
	}
	return p.Normalize()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
