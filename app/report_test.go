package app

import (
	"context"
	"strings"
	"testing"

	"gobrick/domain/core"
	"gobrick/internal/testkit"
	"gobrick/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluationService_Report(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultEvaluationServiceConfig(), nil)
	b := testkit.FromSamples(testkit.Sample{Rho: 0.1, Sx: 0.3}, testkit.Sample{Rho: 1})
	res, err := svc.EvaluateBrick(ctx, b, "binary", nil)
	require.NoError(t, err)

	report, err := svc.Report(ctx, res.Evaluation.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Evaluation.ID, report.ID)
	assert.Contains(t, report.Markdown, "| WEC |")
	assert.Contains(t, report.Markdown, "capped_search")
	assert.Contains(t, report.Markdown, "Robust margins never exceed Eulerian margins")
	for _, cond := range []string{"NEC", "WEC", "SEC", "DEC"} {
		assert.Equal(t, 1, strings.Count(report.Markdown, "| "+cond+" |"), cond)
	}

	page := string(report.HTML())
	assert.Contains(t, page, "<title>"+report.Title+"</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<td>WEC</td>")
}

func TestBuildReport_RequiresDiagnostics(t *testing.T) {
	_, err := BuildReport(&models.Evaluation{ID: core.NewEvaluationID()})
	assert.ErrorIs(t, err, core.ErrNoObserverBlock)

	svc := newTestService(t, DefaultEvaluationServiceConfig(), nil)
	_, err = svc.Report(context.Background(), core.NewEvaluationID())
	assert.True(t, IsNotFound(err))
}
