// Package overlay re-derives per-voxel detail from a decoded brick for
// heatmap and arrow rendering. It shares the kernel with the aggregate
// evaluator, so overlays agree voxel for voxel with the summary block.
package overlay

import (
	"fmt"

	"gobrick/domain/brick"
	"gobrick/domain/core"
	"gobrick/internal/energy"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

// FrameOptions selects the condition and frame to render
type FrameOptions struct {
	Condition brick.Condition
	Frame     brick.Frame
}

// ScalarField holds one value per voxel plus its display range
type ScalarField struct {
	Dims      brick.Dims      `json:"dims"`
	Condition brick.Condition `json:"condition"`
	Frame     brick.Frame     `json:"frame"`
	Values    []float32       `json:"values"`
	Min       float64         `json:"min"`
	Max       float64         `json:"max"`
	P02       float64         `json:"p02"`
	P98       float64         `json:"p98"`
	Params    energy.Params   `json:"params"`
}

// BuildObserverFrameField computes the selected frame for every voxel.
// Params come from the brick's observerRobust block, defaults otherwise.
func BuildObserverFrameField(b *brick.Brick, opts FrameOptions) (*ScalarField, error) {
	cond := opts.Condition.Index()
	if cond < 0 {
		return nil, fmt.Errorf("%w: unknown condition %q", core.ErrInvalidParams, opts.Condition)
	}
	frame, err := brick.ParseFrame(string(opts.Frame))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidParams, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidParams, err)
	}

	params := energy.ParamsFromDiagnostics(b.Stats.ObserverRobust)
	k := energy.NewKernel(params)

	n := b.Voxels()
	values := make([]float32, n)
	wide := make([]float64, n)
	for i := 0; i < n; i++ {
		v := k.VoxelAt(b, i)
		var x float64
		switch frame {
		case brick.FrameEulerian:
			x = v.Eulerian[cond]
		case brick.FrameRobust:
			x = v.Robust[cond]
		case brick.FrameDelta:
			x = v.Robust[cond] - v.Eulerian[cond]
		case brick.FrameMissed:
			if v.Missed(cond) {
				x = 1
			}
		}
		values[i] = float32(x)
		wide[i] = x
	}

	field := &ScalarField{
		Dims:      b.Dims,
		Condition: opts.Condition,
		Frame:     frame,
		Values:    values,
		Min:       floats.Min(wide),
		Max:       floats.Max(wide),
		Params:    params,
	}
	field.P02, field.P98 = displayRange(wide, field.Min, field.Max)
	return field, nil
}

// displayRange clips the colour scale to the 2nd and 98th percentiles
func displayRange(values []float64, lo, hi float64) (float64, float64) {
	p02, err := stats.Percentile(values, 2)
	if err != nil {
		return lo, hi
	}
	p98, err := stats.Percentile(values, 98)
	if err != nil {
		return lo, hi
	}
	return p02, p98
}
