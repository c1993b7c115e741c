package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// EvaluationID identifies one evaluator run over one brick
type EvaluationID ID

// NewEvaluationID returns a fresh time-ordered evaluation ID
func NewEvaluationID() EvaluationID { return EvaluationID(NewID()) }

func (id EvaluationID) String() string { return ID(id).String() }

// ParseEvaluationID validates an evaluation ID taken from a URL or a CLI argument
func ParseEvaluationID(s string) (EvaluationID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("evaluation ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("evaluation ID %q is not a UUID: %w", s, err)
	}
	return EvaluationID(s), nil
}
