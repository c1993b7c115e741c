package app

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"gobrick/adapters/wire"
	"gobrick/domain/brick"
	"gobrick/domain/core"
	"gobrick/internal"
	"gobrick/internal/energy"
	"gobrick/internal/errors"
	"gobrick/internal/overlay"
	"gobrick/internal/testkit"
	"gobrick/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryLedger is an in-process EvaluationRepository
type memoryLedger struct {
	mu      sync.Mutex
	records map[core.EvaluationID]*models.Evaluation
	saveErr error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{records: make(map[core.EvaluationID]*models.Evaluation)}
}

func (m *memoryLedger) Save(_ context.Context, e *models.Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[e.ID] = e
	return nil
}

func (m *memoryLedger) Get(_ context.Context, id core.EvaluationID) (*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.records[id]
	if !ok {
		return nil, core.ErrEvaluationNotFound
	}
	return e, nil
}

func (m *memoryLedger) List(_ context.Context, limit int) ([]*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Evaluation, 0, len(m.records))
	for _, e := range m.records {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryLedger) ListByBrick(ctx context.Context, hash core.BrickHash) ([]*models.Evaluation, error) {
	all, _ := m.List(ctx, 0)
	var out []*models.Evaluation
	for _, e := range all {
		if e.BrickHash == hash {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestService(t *testing.T, cfg EvaluationServiceConfig, repo *memoryLedger) *EvaluationService {
	t.Helper()
	var svc *EvaluationService
	var err error
	if repo == nil {
		svc, err = NewEvaluationService(cfg, nil, internal.NewLogger(internal.LogLevelError))
	} else {
		svc, err = NewEvaluationService(cfg, repo, internal.NewLogger(internal.LogLevelError))
	}
	require.NoError(t, err)
	return svc
}

func missedViolationPayload(t *testing.T, format wire.Format) []byte {
	t.Helper()
	b := testkit.FromSamples(testkit.Sample{Rho: 0.1, Sx: 0.3}, testkit.Sample{Rho: 1})
	payload, err := wire.Encode(b, format)
	require.NoError(t, err)
	return payload
}

func TestEvaluationService_EvaluatePayload(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultEvaluationServiceConfig(), nil)

	for _, format := range []wire.Format{wire.FormatBinary, wire.FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			res, err := svc.EvaluatePayload(ctx, missedViolationPayload(t, format), format, nil)
			require.NoError(t, err)
			require.NotNil(t, res.Evaluation)
			assert.Empty(t, res.UpstreamIssue)

			rec := res.Evaluation
			assert.Equal(t, "2x1x1", rec.Dims)
			assert.Equal(t, string(format), rec.Format)
			assert.True(t, rec.Consistent)
			assert.Equal(t, energy.DefaultRapidityCap, rec.RapidityCap)
			assert.Equal(t, 0.5, rec.Diagnostics.WEC.MissedViolationFraction)

			got, err := svc.Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.Same(t, rec, got)
		})
	}
}

func TestEvaluationService_ParamOverrides(t *testing.T) {
	svc := newTestService(t, DefaultEvaluationServiceConfig(), nil)
	params := energy.Params{PressureFactor: 0, RapidityCap: 0.25, TypeITolerance: 1e-6}

	res, err := svc.EvaluatePayload(context.Background(), missedViolationPayload(t, wire.FormatBinary), wire.FormatBinary, &params)
	require.NoError(t, err)
	assert.Equal(t, 0.25, res.Evaluation.RapidityCap)
	assert.Equal(t, 0.0, res.Evaluation.PressureFactor)
	assert.Equal(t, energy.DefaultParams(), svc.Params())
}

func TestEvaluationService_Errors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultEvaluationServiceConfig(), nil)

	_, err := svc.EvaluatePayload(ctx, []byte{1, 2}, wire.FormatBinary, nil)
	assert.Equal(t, errors.CodeDecodeError, errors.GetCode(err))
	assert.ErrorIs(t, err, core.ErrHeaderLength)

	bad := energy.Params{PressureFactor: -1, RapidityCap: 1.5}
	_, err = svc.EvaluatePayload(ctx, missedViolationPayload(t, wire.FormatBinary), wire.FormatBinary, &bad)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = svc.Get(ctx, core.NewEvaluationID())
	assert.True(t, IsNotFound(err))

	_, err = NewEvaluationService(EvaluationServiceConfig{Params: bad}, nil, nil)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestEvaluationService_Saturated(t *testing.T) {
	svc := newTestService(t, DefaultEvaluationServiceConfig(), nil)
	require.NoError(t, svc.admission.Acquire(context.Background(), 1))
	defer svc.admission.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.EvaluateBrick(ctx, testkit.FromSamples(testkit.Sample{Rho: 1}), "binary", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEvaluatorSaturated)
	assert.Equal(t, errors.CodeUnavailable, errors.GetCode(err))
}

func TestEvaluationService_UpstreamBlockChecked(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultEvaluationServiceConfig(), nil)

	b := testkit.FromSamples(testkit.Sample{Rho: 0.1, Sx: 0.3}, testkit.Sample{Rho: 1})
	d, err := energy.Evaluate(ctx, b, energy.DefaultParams())
	require.NoError(t, err)
	d.WEC.MissedViolationFraction = 1.5

	res, err := svc.EvaluateBrick(ctx, energy.Attach(b, d), "binary", nil)
	require.NoError(t, err)
	assert.Contains(t, res.UpstreamIssue, "outside [0,1]")
	// the fresh evaluation replaces the tampered block
	assert.Equal(t, 0.5, res.Evaluation.Diagnostics.WEC.MissedViolationFraction)
}

func TestEvaluationService_Overlays(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultEvaluationServiceConfig(), nil)
	res, err := svc.EvaluatePayload(ctx, missedViolationPayload(t, wire.FormatBinary), wire.FormatBinary, nil)
	require.NoError(t, err)
	id := res.Evaluation.ID

	frame, err := svc.FrameField(ctx, id, overlay.FrameOptions{Condition: brick.ConditionWEC, Frame: brick.FrameMissed})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, frame.Values)

	dir, err := svc.DirectionField(ctx, id, brick.ConditionWEC, overlay.DirectionConfig{MaskMode: brick.MaskMissed})
	require.NoError(t, err)
	assert.Equal(t, 1, dir.ActiveCount)
	assert.Equal(t, []uint8{1, 0}, dir.Mask)

	_, err = svc.FrameField(ctx, core.NewEvaluationID(), overlay.FrameOptions{Condition: brick.ConditionWEC, Frame: brick.FrameRobust})
	assert.ErrorIs(t, err, core.ErrEvaluationNotFound)
}

func TestEvaluationService_EvictedBrickKeepsRecord(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultEvaluationServiceConfig()
	cfg.CacheSize = 1
	ledger := newMemoryLedger()
	svc := newTestService(t, cfg, ledger)

	first, err := svc.EvaluateBrick(ctx, testkit.FromSamples(testkit.Sample{Rho: 1}), "binary", nil)
	require.NoError(t, err)
	second, err := svc.EvaluateBrick(ctx, testkit.FromSamples(testkit.Sample{Rho: 2}), "binary", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.store.size())

	rec, err := svc.Get(ctx, first.Evaluation.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Evaluation.ID, rec.ID)

	_, err = svc.Brick(ctx, first.Evaluation.ID)
	assert.ErrorIs(t, err, core.ErrBrickNotCached)
	assert.True(t, IsNotFound(err))

	b, err := svc.Brick(ctx, second.Evaluation.ID)
	require.NoError(t, err)
	assert.NotNil(t, b.Stats.ObserverRobust)

	all, err := svc.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEvaluationService_ListWithoutLedger(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultEvaluationServiceConfig(), nil)

	var ids []core.EvaluationID
	for _, rho := range []float64{1, 2, 3} {
		res, err := svc.EvaluateBrick(ctx, testkit.FromSamples(testkit.Sample{Rho: rho}), "binary", nil)
		require.NoError(t, err)
		ids = append(ids, res.Evaluation.ID)
	}

	all, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)

	limited, err := svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestBrickStore_LRU(t *testing.T) {
	var evicted []core.EvaluationID
	store, err := newBrickStore(2, func(id core.EvaluationID) {
		evicted = append(evicted, id)
	})
	require.NoError(t, err)
	recs := make([]*models.Evaluation, 3)
	for i := range recs {
		recs[i] = &models.Evaluation{ID: core.NewEvaluationID()}
	}

	assert.False(t, store.put(nil, recs[0]))
	store.put(nil, recs[1])
	_, ok := store.get(recs[0].ID)
	require.True(t, ok)

	assert.True(t, store.put(nil, recs[2]))
	assert.Equal(t, []core.EvaluationID{recs[1].ID}, evicted)
	assert.Equal(t, 2, store.size())

	_, ok = store.get(recs[1].ID)
	assert.False(t, ok)

	// refreshing an existing entry evicts nothing
	assert.False(t, store.put(nil, recs[0]))
	records := store.records()
	require.Len(t, records, 2)
	assert.Equal(t, recs[0].ID, records[0].ID)
	assert.Equal(t, recs[2].ID, records[1].ID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.EvaluationEvent
}

func (r *recordingPublisher) Publish(event models.EvaluationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func TestEvaluationService_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultEvaluationServiceConfig(), nil)
	pub := &recordingPublisher{}
	svc.SetPublisher(pub)

	res, err := svc.EvaluatePayload(ctx, missedViolationPayload(t, wire.FormatBinary), wire.FormatBinary, nil)
	require.NoError(t, err)
	_, err = svc.EvaluatePayload(ctx, []byte("{}"), wire.FormatJSON, nil)
	require.Error(t, err)

	require.Len(t, pub.events, 2)
	assert.Equal(t, models.EventEvaluationCompleted, pub.events[0].Type)
	assert.Equal(t, res.Evaluation.ID, pub.events[0].EvaluationID)
	assert.True(t, pub.events[0].Consistent)
	assert.Equal(t, models.EventEvaluationFailed, pub.events[1].Type)
	assert.NotEmpty(t, pub.events[1].Error)
}

func TestEvaluationService_FailedSaveIsNotCached(t *testing.T) {
	ctx := context.Background()
	ledger := newMemoryLedger()
	ledger.saveErr = errors.DatabaseError("ledger offline", nil)
	svc := newTestService(t, DefaultEvaluationServiceConfig(), ledger)
	pub := &recordingPublisher{}
	svc.SetPublisher(pub)

	_, err := svc.EvaluatePayload(ctx, missedViolationPayload(t, wire.FormatBinary), wire.FormatBinary, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))

	assert.Equal(t, 0, svc.store.size())
	list, err := svc.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.Len(t, pub.events, 1)
	assert.Equal(t, models.EventEvaluationFailed, pub.events[0].Type)
	assert.Contains(t, pub.events[0].Error, "ledger offline")
}
