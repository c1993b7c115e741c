package postgres

import (
	"context"
	"testing"
	"time"

	"gobrick/domain/core"
	"gobrick/internal/energy"
	"gobrick/internal/migration"
	"gobrick/internal/testkit"
	"gobrick/models"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLedger(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.NewRunner().Run(ctx, db))
	return db
}

func newRecord(t *testing.T, s testkit.Sample) *models.Evaluation {
	t.Helper()
	b := testkit.FromSamples(s, testkit.Sample{Rho: 1})
	d, err := energy.Evaluate(context.Background(), b, energy.DefaultParams())
	require.NoError(t, err)
	return models.NewEvaluation(b, d, "binary", 3*time.Millisecond)
}

func TestEvaluationRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewEvaluationRepository(openLedger(t))

	rec := newRecord(t, testkit.Sample{Rho: 0.1, Sx: 0.3})
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.BrickHash, got.BrickHash)
	assert.Equal(t, "2x1x1", got.Dims)
	assert.Equal(t, 2, got.Voxels)
	assert.Equal(t, rec.RapidityCap, got.RapidityCap)
	assert.True(t, got.Consistent)
	assert.Equal(t, int64(3), got.DurationMs)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	require.NotNil(t, got.Diagnostics.ObserverRobustDiagnostics)
	assert.Equal(t, 0.5, got.Diagnostics.WEC.MissedViolationFraction)
	assert.Equal(t, rec.Diagnostics.WEC.WorstCase, got.Diagnostics.WEC.WorstCase)
}

func TestEvaluationRepository_GetMissing(t *testing.T) {
	repo := NewEvaluationRepository(openLedger(t))

	_, err := repo.Get(context.Background(), core.NewEvaluationID())
	assert.ErrorIs(t, err, core.ErrEvaluationNotFound)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestEvaluationRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewEvaluationRepository(openLedger(t))

	first := newRecord(t, testkit.Sample{Rho: 2})
	second := newRecord(t, testkit.Sample{Rho: 3, Sy: 0.1})
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	again := newRecord(t, testkit.Sample{Rho: 2})
	again.CreatedAt = first.CreatedAt.Add(2 * time.Second)
	for _, rec := range []*models.Evaluation{first, second, again} {
		require.NoError(t, repo.Save(ctx, rec))
	}

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, again.ID, all[0].ID)
	assert.Equal(t, first.ID, all[2].ID)

	limited, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	same, err := repo.ListByBrick(ctx, first.BrickHash)
	require.NoError(t, err)
	require.Len(t, same, 2)
	assert.Equal(t, again.ID, same[0].ID)
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "root@/bricks")
	assert.Error(t, err)
}
