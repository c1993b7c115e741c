package ports

import "gobrick/models"

// EvaluationPublisher fans evaluation events out to live subscribers.
// Publish must not block the evaluator.
type EvaluationPublisher interface {
	Publish(event models.EvaluationEvent)
}
