package ports

import (
	"context"

	"gobrick/domain/core"
	"gobrick/models"
)

// EvaluationRepository defines the interface for the evaluation ledger
type EvaluationRepository interface {
	// Save stores a new evaluation record
	Save(ctx context.Context, e *models.Evaluation) error

	// Get retrieves one evaluation; core.ErrEvaluationNotFound when absent
	Get(ctx context.Context, id core.EvaluationID) (*models.Evaluation, error)

	// List returns the most recent evaluations first, optionally limited
	List(ctx context.Context, limit int) ([]*models.Evaluation, error)

	// ListByBrick returns every evaluation of the brick with the given hash
	ListByBrick(ctx context.Context, hash core.BrickHash) ([]*models.Evaluation, error)
}
