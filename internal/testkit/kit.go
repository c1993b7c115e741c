package testkit

import (
	"gobrick/domain/brick"
)

// Sample is one voxel's density and flux
type Sample struct {
	Rho        float64
	Sx, Sy, Sz float64
}

// FromSamples builds an n x 1 x 1 brick, one voxel per sample, in order
func FromSamples(samples ...Sample) *brick.Brick {
	b := newEmpty(brick.Dims{len(samples), 1, 1})
	for i, s := range samples {
		b.T00.Data[i] = float32(s.Rho)
		b.Sx.Data[i] = float32(s.Sx)
		b.Sy.Data[i] = float32(s.Sy)
		b.Sz.Data[i] = float32(s.Sz)
	}
	finish(b, 1)
	return b
}

// Uniform builds a brick where every voxel holds the same sample
func Uniform(dims brick.Dims, s Sample) *brick.Brick {
	b := newEmpty(dims)
	for i := range b.T00.Data {
		b.T00.Data[i] = float32(s.Rho)
		b.Sx.Data[i] = float32(s.Sx)
		b.Sy.Data[i] = float32(s.Sy)
		b.Sz.Data[i] = float32(s.Sz)
	}
	finish(b, 1)
	return b
}

// AdversarialSamples covers pure flux, pure density and mixed tensors,
// including the null-dust boundary |S| = (rho+p)/2 and negative densities.
func AdversarialSamples() []Sample {
	var out []Sample
	for _, rho := range []float64{-2, -1, -0.25, 0, 0.1, 0.5, 1, 3} {
		for _, s := range []float64{0, 0.05, 0.25, 0.5, 1, 2.5} {
			out = append(out,
				Sample{Rho: rho, Sx: s},
				Sample{Rho: rho, Sx: -s},
				Sample{Rho: rho, Sy: s, Sz: -s},
				Sample{Rho: rho, Sx: s / 3, Sy: -s / 2, Sz: s},
			)
		}
	}
	return out
}

func newEmpty(dims brick.Dims) *brick.Brick {
	n := dims.Voxels()
	return &brick.Brick{
		Dims:       dims,
		T00:        brick.Channel{Data: make([]float32, n)},
		Sx:         brick.Channel{Data: make([]float32, n)},
		Sy:         brick.Channel{Data: make([]float32, n)},
		Sz:         brick.Channel{Data: make([]float32, n)},
		DivS:       brick.Channel{Data: make([]float32, n)},
		VoxelBytes: 4,
	}
}

// fillDivergence writes a central-difference divergence of the flux
func fillDivergence(b *brick.Brick) {
	d := b.Dims
	at := func(ch []float32, x, y, z int) float64 {
		x = max(0, min(d[0]-1, x))
		y = max(0, min(d[1]-1, y))
		z = max(0, min(d[2]-1, z))
		return float64(ch[b.Index(x, y, z)])
	}
	for z := 0; z < d[2]; z++ {
		for y := 0; y < d[1]; y++ {
			for x := 0; x < d[0]; x++ {
				div := (at(b.Sx.Data, x+1, y, z)-at(b.Sx.Data, x-1, y, z))/2 +
					(at(b.Sy.Data, x, y+1, z)-at(b.Sy.Data, x, y-1, z))/2 +
					(at(b.Sz.Data, x, y, z+1)-at(b.Sz.Data, x, y, z-1))/2
				b.DivS.Data[b.Index(x, y, z)] = float32(div)
			}
		}
	}
}

func finish(b *brick.Brick, voxelVolume float64) {
	for _, name := range brick.ChannelOrder {
		ch, _ := b.Channel(name)
		ch.Min, ch.Max = brick.ChannelRange(ch.Data)
	}
	b.Stats = brick.ComputeStats(b, voxelVolume, b.Stats)
}
