package profiling

import (
	"math"
	"testing"

	"gobrick/domain/brick"
	"gobrick/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileChannel_SkipsNonFinite(t *testing.T) {
	data := []float32{1, 2, 3, 4, float32(math.NaN()), float32(math.Inf(-1))}
	p, err := ProfileChannel("t00", data)
	require.NoError(t, err)

	assert.Equal(t, 4, p.Count)
	assert.Equal(t, 2, p.NonFinite)
	assert.InDelta(t, 2.5, p.Mean, 1e-12)
	assert.Equal(t, 1.0, p.Min)
	assert.Equal(t, 4.0, p.Max)
	assert.InDelta(t, 2.5, p.Median, 1e-12)
	assert.InDelta(t, 0, p.Skewness, 1e-12)
	assert.Equal(t, 0, p.Outliers)
}

func TestProfileChannel_Outlier(t *testing.T) {
	data := []float32{1, 1, 1, 1, 1, 1, 1, 100}
	p, err := ProfileChannel("Sx", data)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Outliers)
	assert.Greater(t, p.Skewness, 0.0)
}

func TestProfileChannel_Empty(t *testing.T) {
	p, err := ProfileChannel("Sy", []float32{float32(math.NaN())})
	require.NoError(t, err)
	assert.Equal(t, 0, p.Count)
	assert.Equal(t, 1, p.NonFinite)
}

func TestProfileBrick_WireOrder(t *testing.T) {
	b := testkit.Uniform(brick.Dims{2, 2, 2}, testkit.Sample{Rho: -1, Sz: 0.5})
	profiles, err := ProfileBrick(b)
	require.NoError(t, err)
	require.Len(t, profiles, len(brick.ChannelOrder))

	for i, p := range profiles {
		assert.Equal(t, brick.ChannelOrder[i], p.Name)
		assert.Equal(t, 8, p.Count)
		assert.Equal(t, 0.0, p.StdDev)
	}
	assert.Equal(t, -1.0, profiles[0].Mean)
	assert.Equal(t, 0.5, profiles[3].Mean)
}
