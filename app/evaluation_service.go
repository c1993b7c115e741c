package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"gobrick/adapters/wire"
	"gobrick/domain/brick"
	"gobrick/domain/core"
	"gobrick/internal"
	"gobrick/internal/energy"
	"gobrick/internal/errors"
	"gobrick/internal/overlay"
	"gobrick/models"
	"gobrick/ports"

	"golang.org/x/sync/semaphore"
)

// EvaluationServiceConfig sizes the evaluator and the decoded brick store
type EvaluationServiceConfig struct {
	Params        energy.Params
	Workers       int
	MinShardSize  int
	MaxConcurrent int
	CacheSize     int
}

// DefaultEvaluationServiceConfig evaluates one brick at a time over four workers
func DefaultEvaluationServiceConfig() EvaluationServiceConfig {
	return EvaluationServiceConfig{
		Params:        energy.DefaultParams(),
		Workers:       4,
		MinShardSize:  energy.DefaultMinShardSize,
		MaxConcurrent: 1,
		CacheSize:     8,
	}
}

// EvaluationResult is the outcome of one evaluation request
type EvaluationResult struct {
	Evaluation *models.Evaluation `json:"evaluation"`
	// UpstreamIssue describes an inconsistent observerRobust block that arrived with the brick
	UpstreamIssue string `json:"upstreamIssue,omitempty"`
}

// EvaluationService decodes bricks, evaluates them and serves overlays
type EvaluationService struct {
	params    energy.Params
	evaluator *energy.Evaluator
	admission *semaphore.Weighted
	store     *brickStore
	repo      ports.EvaluationRepository
	publisher ports.EvaluationPublisher
	logger    *internal.Logger
}

// NewEvaluationService creates an evaluation service. repo may be nil, in
// which case records live only as long as their brick stays cached.
func NewEvaluationService(cfg EvaluationServiceConfig, repo ports.EvaluationRepository, logger *internal.Logger) (*EvaluationService, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, &errors.AppError{Code: errors.CodeConfigInvalid, Message: "invalid default observer parameters", Cause: err}
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	logger = logger.With("Evaluator")
	store, err := newBrickStore(cfg.CacheSize, func(id core.EvaluationID) {
		logger.Debug("evicted brick for evaluation %s", id)
	})
	if err != nil {
		return nil, &errors.AppError{Code: errors.CodeConfigInvalid, Message: "invalid brick cache size", Cause: err}
	}
	return &EvaluationService{
		params:    cfg.Params,
		evaluator: energy.NewEvaluator(energy.Options{Workers: cfg.Workers, MinShardSize: cfg.MinShardSize}),
		admission: semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		store:     store,
		repo:      repo,
		logger:    logger,
	}, nil
}

// SetPublisher streams completed and failed evaluations to p
func (s *EvaluationService) SetPublisher(p ports.EvaluationPublisher) {
	s.publisher = p
}

// Params returns the default observer parameters
func (s *EvaluationService) Params() energy.Params {
	return s.params
}

// EvaluatePayload decodes payload and evaluates it. A nil params uses the
// service defaults.
func (s *EvaluationService) EvaluatePayload(ctx context.Context, payload []byte, format wire.Format, params *energy.Params) (*EvaluationResult, error) {
	b, err := wire.Decode(payload, format)
	if err != nil {
		s.publishFailure(err)
		return nil, errors.DecodeError(err)
	}
	s.logger.Debug("decoded %s brick %s (%d bytes)", format, b.Dims, len(payload))
	return s.EvaluateBrick(ctx, b, string(format), params)
}

// EvaluateBrick evaluates an already decoded brick
func (s *EvaluationService) EvaluateBrick(ctx context.Context, b *brick.Brick, format string, params *energy.Params) (*EvaluationResult, error) {
	p := s.params
	if params != nil {
		p = *params
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "evaluate brick")
	}

	if err := s.admission.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(fmt.Errorf("%w: %v", core.ErrEvaluatorSaturated, err), "evaluate brick")
	}
	defer s.admission.Release(1)

	result := &EvaluationResult{}
	if upstream := b.Stats.ObserverRobust; upstream != nil {
		if err := energy.CheckConsistency(upstream); err != nil {
			result.UpstreamIssue = err.Error()
			s.logger.Warn("upstream observerRobust block rejected: %v", err)
		}
	}

	start := time.Now()
	d, err := s.evaluator.Evaluate(ctx, b, p)
	if err != nil {
		s.publishFailure(err)
		return nil, errors.Wrap(err, "evaluate brick")
	}
	elapsed := time.Since(start)
	if !d.Consistency.RobustNotGreaterThanEulerian {
		s.logger.Error("robust margin exceeded eulerian by %g", d.Consistency.MaxRobustMinusEulerian)
	}

	evaluated := energy.Attach(b, d)
	record := models.NewEvaluation(evaluated, d, format, elapsed)
	if s.repo != nil {
		if err := s.repo.Save(ctx, record); err != nil {
			s.publishFailure(err)
			return nil, errors.Wrap(err, "persist evaluation")
		}
	}
	s.store.put(evaluated, record)
	s.logger.Info("evaluation %s: brick %s, %d voxels, %s (typeI %.3f)",
		record.ID, record.Dims, record.Voxels, elapsed.Round(time.Millisecond), d.TypeI.Fraction)

	result.Evaluation = record
	if s.publisher != nil {
		s.publisher.Publish(models.CompletedEvent(record))
	}
	return result, nil
}

func (s *EvaluationService) publishFailure(err error) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(models.EvaluationEvent{
		Type:      models.EventEvaluationFailed,
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	})
}

// Get returns an evaluation record from the cache or the ledger
func (s *EvaluationService) Get(ctx context.Context, id core.EvaluationID) (*models.Evaluation, error) {
	if entry, ok := s.store.get(id); ok {
		return entry.record, nil
	}
	if s.repo == nil {
		return nil, core.ErrEvaluationNotFound
	}
	return s.repo.Get(ctx, id)
}

// List returns recent evaluations, newest first
func (s *EvaluationService) List(ctx context.Context, limit int) ([]*models.Evaluation, error) {
	if s.repo != nil {
		return s.repo.List(ctx, limit)
	}
	records := s.store.records()
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Brick returns the evaluated brick of a cached evaluation
func (s *EvaluationService) Brick(ctx context.Context, id core.EvaluationID) (*brick.Brick, error) {
	entry, ok := s.store.get(id)
	if ok {
		return entry.brick, nil
	}
	// the record may still exist in the ledger after its brick was evicted
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w for evaluation %s", core.ErrBrickNotCached, id)
}

// FrameField builds a scalar overlay for a cached evaluation
func (s *EvaluationService) FrameField(ctx context.Context, id core.EvaluationID, opts overlay.FrameOptions) (*overlay.ScalarField, error) {
	b, err := s.Brick(ctx, id)
	if err != nil {
		return nil, err
	}
	return overlay.BuildObserverFrameField(b, opts)
}

// DirectionField builds a direction overlay for a cached evaluation
func (s *EvaluationService) DirectionField(ctx context.Context, id core.EvaluationID, condition brick.Condition, cfg overlay.DirectionConfig) (*overlay.DirectionField, error) {
	b, err := s.Brick(ctx, id)
	if err != nil {
		return nil, err
	}
	field, err := overlay.BuildObserverDirectionField(b, condition, cfg)
	if err != nil {
		return nil, err
	}
	if field == nil {
		return nil, core.ErrNoObserverBlock
	}
	return field, nil
}

// IsNotFound reports whether err means the evaluation or its brick is unknown
func IsNotFound(err error) bool {
	return stderrors.Is(err, core.ErrNotFound)
}
