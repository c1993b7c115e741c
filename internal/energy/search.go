package energy

import (
	"math"

	"gobrick/domain/brick"

	"gonum.org/v1/gonum/spatial/r3"
)

// boostedEnergy is the energy density seen by an observer boosted to beta
// against a flux of magnitude s: (rho - 2 s beta + p beta^2) / (1 - beta^2).
func boostedEnergy(rho, s, p, beta float64) float64 {
	return (rho - 2*s*beta + p*beta*beta) / (1 - beta*beta)
}

// minimizeBoostedEnergy returns min boostedEnergy over beta in [0, betaCap]
// and the minimizing beta. Candidates are the endpoints and the roots of the
// derivative numerator s b^2 - (rho+p) b + s, each clamped into range.
func minimizeBoostedEnergy(rho, s, p, betaCap float64) (float64, float64) {
	best, bestBeta := boostedEnergy(rho, s, p, 0), 0.0
	consider := func(beta float64) {
		beta = clamp(beta, 0, betaCap)
		if v := boostedEnergy(rho, s, p, beta); v < best {
			best, bestBeta = v, beta
		}
	}

	consider(betaCap)
	if s >= fluxEpsilon {
		a := rho + p
		disc := a*a - 4*s*s
		if disc >= 0 {
			sq := math.Sqrt(disc)
			consider((a - sq) / (2 * s))
			consider((a + sq) / (2 * s))
		}
	}
	return best, bestBeta
}

// DECDirection names one probe direction of the DEC candidate grid
type DECDirection int

const (
	DECAntiFlux DECDirection = iota
	DECCanonicalAxis
	DECFlux
	DECOrthogonal
)

// DECBeta names one probe speed of the DEC candidate grid
type DECBeta int

const (
	DECBetaZero DECBeta = iota
	DECBetaHalfCap
	DECBetaCap
	DECBetaHint
)

// DECCandidateGrid is the fixed direction x beta set searched for the DEC
// margin of non Type I voxels. Changing it changes worst-case directions
// downstream, so any new grid gets a new Version.
type DECCandidateGrid struct {
	Version    string
	Directions []DECDirection
	Betas      []DECBeta
}

// DECGridV1 evaluates 4 directions x 4 betas = 16 observers per voxel
var DECGridV1 = DECCandidateGrid{
	Version:    "dec-grid/v1",
	Directions: []DECDirection{DECAntiFlux, DECCanonicalAxis, DECFlux, DECOrthogonal},
	Betas:      []DECBeta{DECBetaZero, DECBetaHalfCap, DECBetaCap, DECBetaHint},
}

// Size is the number of observers the grid evaluates
func (g DECCandidateGrid) Size() int {
	return len(g.Directions) * len(g.Betas)
}

// Search scores every candidate observer and returns the first minimum in
// grid order. sigma is the momentum density T^{0i} (minus the flux).
func (g DECCandidateGrid) Search(rho, p float64, sigma, fluxDir r3.Vec, betaCap, betaHint float64) (float64, Observer) {
	best := math.Inf(1)
	var obs Observer
	for _, d := range g.Directions {
		n := g.direction(d, fluxDir)
		for _, bk := range g.Betas {
			beta := g.beta(bk, betaCap, betaHint)
			m := decMargin(rho, p, sigma, n, beta)
			if m < best {
				best = m
				obs = Observer{
					Direction:   n,
					Rapidity:    math.Atanh(beta),
					HasRapidity: true,
					Source:      brick.SourceCappedSearch,
				}
			}
		}
	}
	return best, obs
}

func (g DECCandidateGrid) direction(d DECDirection, fluxDir r3.Vec) r3.Vec {
	switch d {
	case DECAntiFlux:
		return r3.Scale(-1, fluxDir)
	case DECCanonicalAxis:
		return canonicalAxis
	case DECFlux:
		return fluxDir
	default:
		return orthogonalTo(fluxDir)
	}
}

func (g DECCandidateGrid) beta(b DECBeta, betaCap, betaHint float64) float64 {
	switch b {
	case DECBetaZero:
		return 0
	case DECBetaHalfCap:
		return betaCap / 2
	case DECBetaCap:
		return betaCap
	default:
		return clamp(betaHint, 0, betaCap)
	}
}

// decMargin scores the dominant energy condition for an observer boosted to
// beta along unit n: the observer-frame energy density minus the largest of
// the energy-current magnitude and the diagonal stresses.
func decMargin(rho, p float64, sigma, n r3.Vec, beta float64) float64 {
	g2 := 1 / (1 - beta*beta)
	g := math.Sqrt(g2)

	sPar := r3.Dot(sigma, n)
	sPerp2 := math.Max(r3.Dot(sigma, sigma)-sPar*sPar, 0)

	energy := g2 * (rho - 2*beta*sPar + beta*beta*p)
	jPar := g2 * ((1+beta*beta)*sPar - beta*(rho+p))
	jPerp := g * math.Sqrt(sPerp2)
	current := math.Hypot(jPar, jPerp)
	tPar := g2 * (beta*beta*rho - 2*beta*sPar + p)

	return min3(energy-current, energy-math.Abs(tPar), energy-math.Abs(p))
}

// orthogonalTo returns a unit vector perpendicular to u, crossing with the
// basis axis least aligned with u.
func orthogonalTo(u r3.Vec) r3.Vec {
	var axis r3.Vec
	ax, ay, az := math.Abs(u.X), math.Abs(u.Y), math.Abs(u.Z)
	switch {
	case ax <= ay && ax <= az:
		axis = r3.Vec{X: 1}
	case ay <= az:
		axis = r3.Vec{Y: 1}
	default:
		axis = r3.Vec{Z: 1}
	}
	return r3.Unit(r3.Cross(u, axis))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
