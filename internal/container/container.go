package container

import (
	"context"
	"fmt"

	"gobrick/adapters/postgres"
	"gobrick/app"
	"gobrick/internal"
	"gobrick/internal/api"
	"gobrick/internal/config"
	"gobrick/internal/migration"
	"gobrick/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	EvaluationRepo ports.EvaluationRepository

	// Services
	EvaluationService *app.EvaluationService
	SSEHub            *api.SSEHub
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Container{
		Config: cfg,
		Logger: logger,
	}, nil
}

// InitWithDatabase migrates db and uses it as the evaluation ledger
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}

	c.DB = db
	c.EvaluationRepo = postgres.NewEvaluationRepository(db)
	c.Logger.Info("ledger ready (%s, schema %s)", db.DriverName(), runner.Version())
	return nil
}

// Connect opens the configured ledger database, if any, and initializes it
func (c *Container) Connect(ctx context.Context) error {
	if !c.Config.Database.Enabled() {
		c.Logger.Warn("DATABASE_URL not set, evaluations are kept in memory only")
		return nil
	}
	db, err := postgres.Open(ctx, c.Config.Database.Driver, c.Config.Database.URL)
	if err != nil {
		return err
	}
	if err := c.InitWithDatabase(ctx, db); err != nil {
		db.Close()
		return err
	}
	return nil
}

// InitServices builds the evaluation service from configuration
func (c *Container) InitServices() error {
	cfg := app.EvaluationServiceConfig{
		Params:        c.Config.Observer,
		Workers:       c.Config.Evaluation.Workers,
		MinShardSize:  c.Config.Evaluation.MinShardSize,
		MaxConcurrent: c.Config.Evaluation.MaxConcurrent,
		CacheSize:     c.Config.Evaluation.CacheSize,
	}

	svc, err := app.NewEvaluationService(cfg, c.EvaluationRepo, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create evaluation service: %w", err)
	}
	c.SSEHub = api.NewSSEHub()
	svc.SetPublisher(c.SSEHub)
	c.EvaluationService = svc
	return nil
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.SSEHub != nil {
		c.SSEHub.Close()
	}

	// Close database connection
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
