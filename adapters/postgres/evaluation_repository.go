package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"

	"gobrick/domain/core"
	"gobrick/internal/errors"
	"gobrick/models"
	"gobrick/ports"

	"github.com/jmoiron/sqlx"
)

const evaluationColumns = `id, brick_hash, dims, voxels, format, source, proxy,
	pressure_factor, rapidity_cap, type_i_tolerance, consistent, diagnostics, duration_ms, created_at`

// EvaluationRepositoryImpl implements EvaluationRepository over sqlx
type EvaluationRepositoryImpl struct {
	db *sqlx.DB
}

// NewEvaluationRepository creates a new evaluation ledger repository
func NewEvaluationRepository(db *sqlx.DB) ports.EvaluationRepository {
	return &EvaluationRepositoryImpl{db: db}
}

// Save stores a new evaluation record
func (r *EvaluationRepositoryImpl) Save(ctx context.Context, e *models.Evaluation) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO brick_evaluations (`+evaluationColumns+`)
		VALUES (:id, :brick_hash, :dims, :voxels, :format, :source, :proxy,
			:pressure_factor, :rapidity_cap, :type_i_tolerance, :consistent, :diagnostics, :duration_ms, :created_at)
	`, e)
	if err != nil {
		return errors.DatabaseError("failed to save evaluation", err)
	}
	return nil
}

// Get retrieves one evaluation by ID
func (r *EvaluationRepositoryImpl) Get(ctx context.Context, id core.EvaluationID) (*models.Evaluation, error) {
	var e models.Evaluation
	err := r.db.GetContext(ctx, &e, r.db.Rebind(`
		SELECT `+evaluationColumns+`
		FROM brick_evaluations
		WHERE id = ?
	`), id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrEvaluationNotFound
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load evaluation", err)
	}
	return &e, nil
}

// List returns the most recent evaluations first, optionally limited
func (r *EvaluationRepositoryImpl) List(ctx context.Context, limit int) ([]*models.Evaluation, error) {
	query := `
		SELECT ` + evaluationColumns + `
		FROM brick_evaluations
		ORDER BY created_at DESC, id DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var out []*models.Evaluation
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...); err != nil {
		return nil, errors.DatabaseError("failed to list evaluations", err)
	}
	return out, nil
}

// ListByBrick returns every evaluation of one brick, newest first
func (r *EvaluationRepositoryImpl) ListByBrick(ctx context.Context, hash core.BrickHash) ([]*models.Evaluation, error) {
	var out []*models.Evaluation
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
		SELECT `+evaluationColumns+`
		FROM brick_evaluations
		WHERE brick_hash = ?
		ORDER BY created_at DESC, id DESC
	`), hash)
	if err != nil {
		return nil, errors.DatabaseError("failed to list brick evaluations", err)
	}
	return out, nil
}
