package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"gobrick/domain/brick"
)

// Profile selects the synthetic field layout
type Profile string

const (
	ProfileUniform   Profile = "uniform"
	ProfilePureFlux  Profile = "pure_flux"
	ProfileMixed     Profile = "mixed"
	ProfileWarpShell Profile = "warp_shell"
)

// BrickGeneratorConfig configures the synthetic brick generator
type BrickGeneratorConfig struct {
	Dims        brick.Dims `json:"dims"`
	Profile     Profile    `json:"profile"`
	Density     float64    `json:"density"`      // peak |T00|
	FluxScale   float64    `json:"flux_scale"`   // peak |S| relative to Density
	ShellRadius float64    `json:"shell_radius"` // fraction of the half-extent
	ShellWidth  float64    `json:"shell_width"`
	NoiseLevel  float64    `json:"noise_level"`
	VoxelVolume float64    `json:"voxel_volume"`
	Seed        int64      `json:"seed"`
}

// DefaultBrickConfig returns a small warp-shell brick
func DefaultBrickConfig() BrickGeneratorConfig {
	return BrickGeneratorConfig{
		Dims:        brick.Dims{16, 16, 16},
		Profile:     ProfileWarpShell,
		Density:     1.0,
		FluxScale:   0.6,
		ShellRadius: 0.6,
		ShellWidth:  0.15,
		NoiseLevel:  0.01,
		VoxelVolume: 1.0,
		Seed:        42,
	}
}

// BrickGenerator produces deterministic bricks for tests, the CLI and demos
type BrickGenerator struct {
	config BrickGeneratorConfig
	rng    *rand.Rand
}

// NewBrickGenerator creates a new brick generator
func NewBrickGenerator(config BrickGeneratorConfig) *BrickGenerator {
	return &BrickGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds a brick for the configured profile
func (g *BrickGenerator) Generate() (*brick.Brick, error) {
	if !g.config.Dims.Valid() {
		return nil, fmt.Errorf("invalid dims %v", g.config.Dims)
	}
	n := g.config.Dims.Voxels()
	b := newEmpty(g.config.Dims)

	for i := 0; i < n; i++ {
		x, y, z := g.unitCoords(i)
		var rho, sx, sy, sz float64
		switch g.config.Profile {
		case ProfileUniform:
			rho = g.config.Density
		case ProfilePureFlux:
			sx = g.config.Density * g.config.FluxScale
		case ProfileMixed:
			// sweep density sign and flux strength across the grid
			rho = g.config.Density * x
			mag := g.config.Density * g.config.FluxScale * (1 + y) / 2
			theta := math.Pi * (z + 1)
			sx, sy = mag*math.Cos(theta), mag*math.Sin(theta)
		case ProfileWarpShell:
			rho, sx, sy, sz = g.warpShell(x, y, z)
		default:
			return nil, fmt.Errorf("unknown profile %q", g.config.Profile)
		}
		if g.config.NoiseLevel > 0 {
			rho += g.rng.NormFloat64() * g.config.NoiseLevel * g.config.Density
		}
		b.T00.Data[i] = float32(rho)
		b.Sx.Data[i] = float32(sx)
		b.Sy.Data[i] = float32(sy)
		b.Sz.Data[i] = float32(sz)
	}
	fillDivergence(b)
	finish(b, g.config.VoxelVolume)
	b.Provenance = brick.Provenance{Source: "testkit/" + string(g.config.Profile), Proxy: true}
	return b, nil
}

// warpShell places negative energy on a thin spherical shell with flux
// circulating about the z axis, the pattern a warp bubble wall produces.
func (g *BrickGenerator) warpShell(x, y, z float64) (float64, float64, float64, float64) {
	r := math.Sqrt(x*x + y*y + z*z)
	d := (r - g.config.ShellRadius) / g.config.ShellWidth
	envelope := math.Exp(-d * d)

	rho := -g.config.Density * envelope
	mag := g.config.Density * g.config.FluxScale * envelope
	rc := math.Hypot(x, y)
	if rc < 1e-9 {
		return rho, 0, 0, 0
	}
	return rho, -mag * y / rc, mag * x / rc, 0
}

// unitCoords maps voxel i onto [-1,1]^3 at voxel centres
func (g *BrickGenerator) unitCoords(i int) (float64, float64, float64) {
	d := g.config.Dims
	ix := i % d[0]
	iy := (i / d[0]) % d[1]
	iz := i / (d[0] * d[1])
	c := func(k, n int) float64 {
		return 2*(float64(k)+0.5)/float64(n) - 1
	}
	return c(ix, d[0]), c(iy, d[1]), c(iz, d[2])
}
