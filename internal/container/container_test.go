package container

import (
	"context"
	"testing"

	"gobrick/internal"
	"gobrick/internal/config"
	"gobrick/internal/energy"
	"gobrick/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:     config.ServerConfig{Port: "0", MaxUploadBytes: 1 << 20},
		Evaluation: config.EvaluationConfig{Workers: 2, MaxConcurrent: 1, CacheSize: 2, MinShardSize: energy.DefaultMinShardSize},
		Observer:   energy.DefaultParams(),
	}
}

func TestContainer_SqliteLedger(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", URL: ":memory:"}

	c, err := New(cfg, internal.NewLogger(internal.LogLevelError))
	require.NoError(t, err)
	require.NoError(t, c.Connect(ctx))
	defer c.Shutdown(ctx)
	require.NotNil(t, c.EvaluationRepo)
	require.NoError(t, c.InitServices())

	res, err := c.EvaluationService.EvaluateBrick(ctx, testkit.FromSamples(testkit.Sample{Rho: 1}), "binary", nil)
	require.NoError(t, err)

	stored, err := c.EvaluationRepo.Get(ctx, res.Evaluation.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Evaluation.BrickHash, stored.BrickHash)
}

func TestContainer_WithoutDatabase(t *testing.T) {
	ctx := context.Background()
	c, err := New(testConfig(), internal.NewLogger(internal.LogLevelError))
	require.NoError(t, err)
	require.NoError(t, c.Connect(ctx))
	assert.Nil(t, c.DB)
	assert.Nil(t, c.EvaluationRepo)

	require.NoError(t, c.InitServices())
	assert.NotNil(t, c.EvaluationService)
	assert.NoError(t, c.Shutdown(ctx))
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}
