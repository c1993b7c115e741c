package migration

import (
	"context"
	"fmt"

	"gobrick/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order. The dialect
// follows db.DriverName(): postgres, or sqlite for local runs and tests.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createEvaluationsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create brick_evaluations table", err)
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError("failed to create indexes", err)
	}

	return nil
}

func (r *MigrationRunner) createEvaluationsTable(ctx context.Context, db *sqlx.DB) error {
	timestamp, jsonType := "TIMESTAMP WITH TIME ZONE", "JSONB"
	if db.DriverName() != "postgres" {
		timestamp, jsonType = "TIMESTAMP", "TEXT"
	}

	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS brick_evaluations (
			id TEXT PRIMARY KEY,
			brick_hash VARCHAR(64) NOT NULL,
			dims VARCHAR(64) NOT NULL,
			voxels INTEGER NOT NULL,
			format VARCHAR(16) NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			proxy BOOLEAN NOT NULL DEFAULT false,
			pressure_factor DOUBLE PRECISION NOT NULL,
			rapidity_cap DOUBLE PRECISION NOT NULL,
			type_i_tolerance DOUBLE PRECISION NOT NULL,
			consistent BOOLEAN NOT NULL,
			diagnostics %s,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at %s NOT NULL
		)
	`, jsonType, timestamp))
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_evaluations_brick_hash ON brick_evaluations(brick_hash)",
		"CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON brick_evaluations(created_at DESC)",
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			return err
		}
	}

	return nil
}
