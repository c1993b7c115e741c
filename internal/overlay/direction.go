package overlay

import (
	"fmt"

	"gobrick/domain/brick"
	"gobrick/domain/core"
	"gobrick/internal/energy"

	"gonum.org/v1/gonum/spatial/r3"
)

// DirectionConfig controls masking and the DEC direction source
type DirectionConfig struct {
	MaskMode         brick.MaskMode
	MinMagnitude     float64
	DECDirectionMode brick.DECDirectionMode
}

// DirectionField is a per-voxel unit boost direction with a flux magnitude
// channel and a 0/1 mask. Directions are packed xyz; masked voxels are zero.
type DirectionField struct {
	Dims             brick.Dims             `json:"dims"`
	Condition        brick.Condition        `json:"condition"`
	MaskMode         brick.MaskMode         `json:"maskMode"`
	DECDirectionMode brick.DECDirectionMode `json:"decDirectionMode,omitempty"`
	Directions       []float32              `json:"directions"`
	Magnitude        []float32              `json:"magnitude"`
	Mask             []uint8                `json:"mask"`
	ActiveCount      int                    `json:"activeCount"`
}

// BuildObserverDirectionField returns nil, nil when b carries no
// observerRobust block: there is nothing evaluated to point at.
func BuildObserverDirectionField(b *brick.Brick, condition brick.Condition, cfg DirectionConfig) (*DirectionField, error) {
	cond := condition.Index()
	if cond < 0 {
		return nil, fmt.Errorf("%w: unknown condition %q", core.ErrInvalidParams, condition)
	}
	mask, err := brick.ParseMaskMode(string(cfg.MaskMode))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidParams, err)
	}
	decMode, err := brick.ParseDECDirectionMode(string(cfg.DECDirectionMode))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidParams, err)
	}
	diag := b.Stats.ObserverRobust
	if diag == nil {
		return nil, nil
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidParams, err)
	}

	// a cached worst case with no direction falls back to the local search
	var global r3.Vec
	useGlobal := condition == brick.ConditionDEC && decMode == brick.DECDirectionGlobal
	if useGlobal {
		d := diag.DEC.WorstCase.Direction
		global = r3.Vec{X: d[0], Y: d[1], Z: d[2]}
		if norm := r3.Norm(global); norm > 0 {
			global = r3.Scale(1/norm, global)
		} else {
			useGlobal = false
		}
	}

	k := energy.NewKernel(energy.ParamsFromDiagnostics(diag))
	n := b.Voxels()
	field := &DirectionField{
		Dims:       b.Dims,
		Condition:  condition,
		MaskMode:   mask,
		Directions: make([]float32, 3*n),
		Magnitude:  make([]float32, n),
		Mask:       make([]uint8, n),
	}
	if condition == brick.ConditionDEC {
		field.DECDirectionMode = decMode
	}

	for i := 0; i < n; i++ {
		v := k.VoxelAt(b, i)
		field.Magnitude[i] = float32(v.FluxMagnitude)

		if !active(&v, cond, mask) || (cfg.MinMagnitude > 0 && v.FluxMagnitude < cfg.MinMagnitude) {
			continue
		}
		dir := v.Observers[cond].Direction
		if useGlobal {
			dir = global
		}
		field.Directions[3*i] = float32(dir.X)
		field.Directions[3*i+1] = float32(dir.Y)
		field.Directions[3*i+2] = float32(dir.Z)
		field.Mask[i] = 1
		field.ActiveCount++
	}
	return field, nil
}

func active(v *energy.VoxelResult, cond int, mode brick.MaskMode) bool {
	switch mode {
	case brick.MaskViolating:
		return v.Robust[cond] < 0
	case brick.MaskMissed:
		return v.Missed(cond)
	}
	return true
}
