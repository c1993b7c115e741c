package models

import (
	"time"

	"gobrick/domain/core"
)

// Evaluation event types
const (
	EventEvaluationCompleted = "evaluation.completed"
	EventEvaluationFailed    = "evaluation.failed"
)

// EvaluationEvent is streamed to live subscribers when an evaluation finishes
type EvaluationEvent struct {
	Type         string            `json:"type"`
	EvaluationID core.EvaluationID `json:"evaluationId,omitempty"`
	BrickHash    core.BrickHash    `json:"brickHash,omitempty"`
	Dims         string            `json:"dims,omitempty"`
	Voxels       int               `json:"voxels,omitempty"`
	Consistent   bool              `json:"consistent"`
	DurationMs   int64             `json:"durationMs,omitempty"`
	Error        string            `json:"error,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// CompletedEvent describes a recorded evaluation
func CompletedEvent(e *Evaluation) EvaluationEvent {
	return EvaluationEvent{
		Type:         EventEvaluationCompleted,
		EvaluationID: e.ID,
		BrickHash:    e.BrickHash,
		Dims:         e.Dims,
		Voxels:       e.Voxels,
		Consistent:   e.Consistent,
		DurationMs:   e.DurationMs,
		Timestamp:    time.Now().UTC(),
	}
}
