package overlay

import (
	"context"
	"math"
	"testing"

	"gobrick/domain/brick"
	"gobrick/domain/core"
	"gobrick/internal/energy"
	"gobrick/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluated(t *testing.T, b *brick.Brick, params energy.Params) *brick.Brick {
	t.Helper()
	d, err := energy.Evaluate(context.Background(), b, params)
	require.NoError(t, err)
	return energy.Attach(b, d)
}

func warpShell(t *testing.T) *brick.Brick {
	t.Helper()
	config := testkit.DefaultBrickConfig()
	config.Dims = brick.Dims{10, 10, 6}
	b, err := testkit.NewBrickGenerator(config).Generate()
	require.NoError(t, err)
	return evaluated(t, b, energy.DefaultParams())
}

func TestFrameField_MissedMarksBoostedViolation(t *testing.T) {
	b := evaluated(t, testkit.FromSamples(
		testkit.Sample{Rho: 0.1, Sx: 0.3},
		testkit.Sample{Rho: 1},
	), energy.DefaultParams())
	require.Equal(t, 0.5, b.Stats.ObserverRobust.WEC.MissedViolationFraction)

	field, err := BuildObserverFrameField(b, FrameOptions{Condition: brick.ConditionWEC, Frame: brick.FrameMissed})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, field.Values)
	assert.Equal(t, 0.0, field.Min)
	assert.Equal(t, 1.0, field.Max)
}

func TestFrameField_FramesAgreeWithEachOther(t *testing.T) {
	b := warpShell(t)

	get := func(frame brick.Frame) []float32 {
		field, err := BuildObserverFrameField(b, FrameOptions{Condition: brick.ConditionNEC, Frame: frame})
		require.NoError(t, err)
		require.Len(t, field.Values, b.Voxels())
		return field.Values
	}
	eulerian, robust, delta := get(brick.FrameEulerian), get(brick.FrameRobust), get(brick.FrameDelta)

	for i := range delta {
		assert.LessOrEqual(t, delta[i], float32(1e-6))
		assert.InDelta(t, float64(robust[i]-eulerian[i]), float64(delta[i]), 1e-5)
	}
}

func TestFrameField_RobustMinMatchesSummary(t *testing.T) {
	b := warpShell(t)
	field, err := BuildObserverFrameField(b, FrameOptions{Condition: brick.ConditionDEC, Frame: brick.FrameRobust})
	require.NoError(t, err)

	assert.InDelta(t, b.Stats.ObserverRobust.DEC.RobustMin, field.Min, 1e-6)
	assert.LessOrEqual(t, field.Min, field.P02)
	assert.LessOrEqual(t, field.P02, field.P98)
	assert.LessOrEqual(t, field.P98, field.Max)
}

func TestFrameField_UsesBlockParams(t *testing.T) {
	params := energy.Params{PressureFactor: 0.2, RapidityCap: 0.05, TypeITolerance: 1e-8}
	b := evaluated(t, testkit.FromSamples(testkit.Sample{Rho: 1, Sz: 0.9}), params)

	field, err := BuildObserverFrameField(b, FrameOptions{Condition: brick.ConditionWEC, Frame: brick.FrameRobust})
	require.NoError(t, err)
	assert.Equal(t, params, field.Params)

	bare := testkit.FromSamples(testkit.Sample{Rho: 1, Sz: 0.9})
	field, err = BuildObserverFrameField(bare, FrameOptions{Condition: brick.ConditionWEC, Frame: brick.FrameRobust})
	require.NoError(t, err)
	assert.Equal(t, energy.DefaultParams(), field.Params)
}

func TestFrameField_RejectsUnknownSelection(t *testing.T) {
	b := testkit.FromSamples(testkit.Sample{Rho: 1})

	_, err := BuildObserverFrameField(b, FrameOptions{Condition: "tec", Frame: brick.FrameRobust})
	assert.ErrorIs(t, err, core.ErrInvalidParams)
	_, err = BuildObserverFrameField(b, FrameOptions{Condition: brick.ConditionSEC, Frame: "lagrangian"})
	assert.ErrorIs(t, err, core.ErrInvalidParams)
}

func TestDirectionField_NilWithoutObserverBlock(t *testing.T) {
	b := testkit.FromSamples(testkit.Sample{Rho: 1, Sx: 0.2})

	field, err := BuildObserverDirectionField(b, brick.ConditionNEC, DirectionConfig{})
	assert.NoError(t, err)
	assert.Nil(t, field)
}

func TestDirectionField_ViolatingMaskCountsRobustViolations(t *testing.T) {
	b := warpShell(t)
	d := b.Stats.ObserverRobust

	for _, cond := range brick.Conditions {
		field, err := BuildObserverDirectionField(b, cond, DirectionConfig{MaskMode: brick.MaskViolating})
		require.NoError(t, err)
		require.NotNil(t, field)

		want := int(math.Round(d.Summary(cond).RobustViolationFraction * float64(b.Voxels())))
		assert.Equal(t, want, field.ActiveCount, "%s", cond)

		marked := 0
		for i, m := range field.Mask {
			if m == 0 {
				continue
			}
			marked++
			x, y, z := field.Directions[3*i], field.Directions[3*i+1], field.Directions[3*i+2]
			assert.InDelta(t, 1.0, math.Sqrt(float64(x*x+y*y+z*z)), 1e-5)
		}
		assert.Equal(t, field.ActiveCount, marked)
	}
}

func TestDirectionField_MissedMask(t *testing.T) {
	b := evaluated(t, testkit.FromSamples(
		testkit.Sample{Rho: 0.1, Sx: 0.3},
		testkit.Sample{Rho: -1},
	), energy.DefaultParams())

	field, err := BuildObserverDirectionField(b, brick.ConditionWEC, DirectionConfig{MaskMode: brick.MaskMissed})
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 0}, field.Mask)
	assert.Equal(t, 1, field.ActiveCount)
	// the boost runs against the flux
	assert.Equal(t, float32(-1), field.Directions[0])
	assert.InDelta(t, 0.3, float64(field.Magnitude[0]), 1e-7)
}

func TestDirectionField_TypeIPointsAgainstFlux(t *testing.T) {
	params := energy.Params{PressureFactor: 0.5, RapidityCap: 0.5, TypeITolerance: 1e-9}
	b := evaluated(t, testkit.FromSamples(testkit.Sample{Rho: 2, Sy: 0.5}), params)
	require.Equal(t, 1, b.Stats.ObserverRobust.TypeI.Count)

	// SEC falls back to the Eulerian margin here and must still follow the flux
	for _, cond := range brick.Conditions {
		field, err := BuildObserverDirectionField(b, cond, DirectionConfig{})
		require.NoError(t, err)
		require.Equal(t, 1, field.ActiveCount, "%s", cond)
		assert.InDelta(t, 0.0, float64(field.Directions[0]), 1e-7, "%s", cond)
		assert.InDelta(t, -1.0, float64(field.Directions[1]), 1e-7, "%s", cond)
		assert.InDelta(t, 0.0, float64(field.Directions[2]), 1e-7, "%s", cond)
	}
}

func TestDirectionField_MinMagnitudeSuppressesEverything(t *testing.T) {
	b := warpShell(t)
	field, err := BuildObserverDirectionField(b, brick.ConditionWEC, DirectionConfig{
		MaskMode:     brick.MaskAll,
		MinMagnitude: 1e6,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, field.ActiveCount)
	for _, v := range field.Directions {
		assert.Zero(t, v)
	}
}

func TestDirectionField_DECGlobalBroadcastsCachedDirection(t *testing.T) {
	b := warpShell(t)
	cached := b.Stats.ObserverRobust.DEC.WorstCase.Direction

	field, err := BuildObserverDirectionField(b, brick.ConditionDEC, DirectionConfig{DECDirectionMode: brick.DECDirectionGlobal})
	require.NoError(t, err)
	assert.Equal(t, b.Voxels(), field.ActiveCount)
	assert.Equal(t, brick.DECDirectionGlobal, field.DECDirectionMode)
	for i := 0; i < b.Voxels(); i++ {
		assert.InDelta(t, cached[0], float64(field.Directions[3*i]), 1e-6)
		assert.InDelta(t, cached[1], float64(field.Directions[3*i+1]), 1e-6)
		assert.InDelta(t, cached[2], float64(field.Directions[3*i+2]), 1e-6)
	}

	local, err := BuildObserverDirectionField(b, brick.ConditionDEC, DirectionConfig{DECDirectionMode: brick.DECDirectionLocal})
	require.NoError(t, err)
	assert.Equal(t, brick.DECDirectionLocal, local.DECDirectionMode)
	assert.Equal(t, b.Voxels(), local.ActiveCount)
}

func TestDirectionField_RejectsUnknownModes(t *testing.T) {
	b := evaluated(t, testkit.FromSamples(testkit.Sample{Rho: 1}), energy.DefaultParams())

	_, err := BuildObserverDirectionField(b, brick.ConditionWEC, DirectionConfig{MaskMode: "some"})
	assert.ErrorIs(t, err, core.ErrInvalidParams)
	_, err = BuildObserverDirectionField(b, brick.ConditionDEC, DirectionConfig{DECDirectionMode: "nearest"})
	assert.ErrorIs(t, err, core.ErrInvalidParams)
}
