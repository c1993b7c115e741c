package energy

import (
	"math"

	"gobrick/domain/brick"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// fluxEpsilon is the |S| below which the flux direction falls back to the canonical axis
	fluxEpsilon = 1e-12
	// ConsistencyEpsilon bounds robust - eulerian before the tripwire fires
	ConsistencyEpsilon = 1e-6
	// maxBeta keeps 1-beta^2 away from zero
	maxBeta = 1 - 1e-9
)

// Condition slots inside VoxelResult arrays, in brick.Conditions order
const (
	NEC = iota
	WEC
	SEC
	DEC
	numConditions
)

var canonicalAxis = r3.Vec{X: 1}

// Observer describes the boosted observer that realised a robust margin
type Observer struct {
	Direction   r3.Vec
	Rapidity    float64
	HasRapidity bool
	Source      brick.WorstCaseSource
}

// VoxelResult holds every margin computed for one voxel
type VoxelResult struct {
	TypeI         bool
	Eulerian      [numConditions]float64
	Robust        [numConditions]float64
	Observers     [numConditions]Observer
	FluxMagnitude float64
	FluxDirection r3.Vec
	BetaHint      float64
}

// Missed reports a robust violation the Eulerian frame does not see
func (v *VoxelResult) Missed(cond int) bool {
	return v.Robust[cond] < 0 && v.Eulerian[cond] >= 0
}

// Kernel evaluates single voxels for a fixed parameter set. It holds no mutable state.
type Kernel struct {
	params  Params
	betaCap float64
	grid    DECCandidateGrid
}

// NewKernel prepares a kernel; params are normalized, never rejected
func NewKernel(params Params) *Kernel {
	params = params.Normalize()
	betaCap := math.Min(params.BetaCap(), maxBeta)
	return &Kernel{
		params:  params,
		betaCap: betaCap,
		grid:    DECGridV1,
	}
}

// Params returns the normalized parameters in use
func (k *Kernel) Params() Params {
	return k.params
}

// BetaCap returns tanh(rapidityCap), clamped below 1
func (k *Kernel) BetaCap() float64 {
	return k.betaCap
}

// EvaluateVoxel evaluates one voxel without building a reusable kernel
func EvaluateVoxel(rho float64, s r3.Vec, params Params) VoxelResult {
	return NewKernel(params).Voxel(rho, s)
}

// VoxelAt evaluates voxel i of b. Non-finite samples are read as zero.
func (k *Kernel) VoxelAt(b *brick.Brick, i int) VoxelResult {
	rho := sanitize(float64(b.T00.Data[i]))
	s := r3.Vec{
		X: sanitize(float64(b.Sx.Data[i])),
		Y: sanitize(float64(b.Sy.Data[i])),
		Z: sanitize(float64(b.Sz.Data[i])),
	}
	return k.Voxel(rho, s)
}

// Voxel evaluates Eulerian and robust margins for density rho and flux s
func (k *Kernel) Voxel(rho float64, s r3.Vec) VoxelResult {
	v := k.prepare(rho, s)
	k.optimize(&v, rho)
	k.foldEulerian(&v)
	return v
}

// optimize fills the robust margins from the algebraic Type I form or the
// capped search, before the Eulerian fold
func (k *Kernel) optimize(v *VoxelResult, rho float64) {
	p := k.params.PressureFactor * rho
	a := rho + p
	disc := a*a - 4*v.FluxMagnitude*v.FluxMagnitude
	if disc >= -k.params.TypeITolerance {
		v.TypeI = true
		k.typeI(v, rho, p, disc)
		return
	}
	k.cappedSearch(v, rho, p)
}

// prepare fills the flux geometry and Eulerian margins
func (k *Kernel) prepare(rho float64, s r3.Vec) VoxelResult {
	var v VoxelResult
	v.FluxMagnitude = r3.Norm(s)
	if v.FluxMagnitude < fluxEpsilon || !isFinite(v.FluxMagnitude) {
		v.FluxMagnitude = sanitize(v.FluxMagnitude)
		v.FluxDirection = canonicalAxis
	} else {
		v.FluxDirection = r3.Scale(1/v.FluxMagnitude, s)
	}

	p := k.params.PressureFactor * rho
	trace := -rho + 3*p
	v.Eulerian[NEC] = rho + p + 2*r3.Dot(s, canonicalAxis)
	v.Eulerian[WEC] = rho
	v.Eulerian[SEC] = rho + 0.5*trace
	v.Eulerian[DEC] = rho - v.FluxMagnitude
	for c := range v.Eulerian {
		v.Eulerian[c] = sanitize(v.Eulerian[c])
	}
	return v
}

// typeI solves the flux-plane eigenproblem in closed form. The timelike
// eigenvalue branch follows the sign of rho+p so that S=0 returns (rho, p).
func (k *Kernel) typeI(v *VoxelResult, rho, p, disc float64) {
	a := rho + p
	sqrtD := math.Sqrt(math.Max(disc, 0))
	sign := 1.0
	if a < 0 {
		sign = -1
	}

	epsilon := (rho - p + sign*sqrtD) / 2
	pParallel := (p - rho + sign*sqrtD) / 2
	pPerp := p

	nec := math.Min(epsilon+pParallel, epsilon+pPerp)
	v.Robust[NEC] = nec
	v.Robust[WEC] = math.Min(epsilon, nec)
	v.Robust[SEC] = min3(epsilon+pParallel, epsilon+pPerp, epsilon+pParallel+2*pPerp)
	v.Robust[DEC] = min3(epsilon, epsilon-math.Abs(pParallel), epsilon-math.Abs(pPerp))

	obs := Observer{
		Direction: r3.Scale(-1, v.FluxDirection),
		Source:    brick.SourceAlgebraicTypeI,
	}
	// boost into the eigenframe: the root of |S|b^2 - (rho+p)b + |S| inside (-1,1)
	if v.FluxMagnitude >= fluxEpsilon {
		beta := 2 * v.FluxMagnitude / (math.Abs(a) + sqrtD) * sign
		if math.Abs(beta) < 1 {
			obs.Rapidity = math.Atanh(beta)
			obs.HasRapidity = true
		}
	} else {
		obs.HasRapidity = true
	}
	for c := range v.Observers {
		v.Observers[c] = obs
	}
}

// cappedSearch bounds every condition over boosts up to betaCap when the
// tensor is not Type I.
func (k *Kernel) cappedSearch(v *VoxelResult, rho, p float64) {
	b := k.betaCap
	s := v.FluxMagnitude
	trace := -rho + 3*p
	anti := r3.Scale(-1, v.FluxDirection)
	capObserver := Observer{
		Direction:   anti,
		Rapidity:    math.Atanh(b),
		HasRapidity: true,
		Source:      brick.SourceCappedSearch,
	}

	// the worst null direction is always anti-parallel to the flux
	v.Robust[NEC] = rho + p - 2*s*b
	v.Observers[NEC] = capObserver

	wec, betaStar := minimizeBoostedEnergy(rho, s, p, b)
	v.BetaHint = betaStar
	v.Observers[WEC] = Observer{
		Direction:   anti,
		Rapidity:    math.Atanh(betaStar),
		HasRapidity: true,
		Source:      brick.SourceCappedSearch,
	}
	if v.Robust[NEC] < wec {
		wec = v.Robust[NEC]
		v.Observers[WEC] = capObserver
	}
	v.Robust[WEC] = wec

	v.Robust[SEC] = wec + 0.5*trace
	v.Observers[SEC] = v.Observers[WEC]

	dec, obs := k.grid.Search(rho, p, r3.Scale(-1, r3.Scale(s, v.FluxDirection)), v.FluxDirection, b, betaStar)
	v.Robust[DEC] = dec
	v.Observers[DEC] = obs
}

// foldEulerian applies min(robust, eulerian): the beta=0 observer is always
// admissible. A folded Type I voxel keeps the anti-flux axis at rest; a
// folded capped-search voxel reports the canonical axis.
func (k *Kernel) foldEulerian(v *VoxelResult) {
	for c := 0; c < numConditions; c++ {
		v.Robust[c] = sanitize(v.Robust[c])
		if v.Eulerian[c] < v.Robust[c] {
			v.Robust[c] = v.Eulerian[c]
			dir := canonicalAxis
			if v.TypeI {
				dir = r3.Scale(-1, v.FluxDirection)
			}
			v.Observers[c] = Observer{
				Direction:   dir,
				HasRapidity: true,
				Source:      v.Observers[c].Source,
			}
		}
		if !isFinite(v.Observers[c].Rapidity) {
			v.Observers[c].Rapidity = 0
			v.Observers[c].HasRapidity = false
		}
	}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}
