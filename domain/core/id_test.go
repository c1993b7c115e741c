package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

func TestParseEvaluationID(t *testing.T) {
	id := NewEvaluationID()
	parsed, err := ParseEvaluationID("  " + id.String() + " ")
	if err != nil {
		t.Fatalf("Expected valid ID, got error: %v", err)
	}
	if parsed != id {
		t.Errorf("Expected %s, got %s", id, parsed)
	}

	if _, err := ParseEvaluationID(""); err == nil {
		t.Error("Expected error for empty ID")
	}
	if _, err := ParseEvaluationID("not-a-uuid"); err == nil {
		t.Error("Expected error for non-UUID ID")
	}
}

func TestComputeBrickHash_Deterministic(t *testing.T) {
	dims := [3]int{2, 1, 1}
	a := ComputeBrickHash(dims, []float32{1, 2}, []float32{0, 0})
	b := ComputeBrickHash(dims, []float32{1, 2}, []float32{0, 0})
	if a != b {
		t.Errorf("Hashes not identical: %s vs %s", a, b)
	}

	// Moving a sample between channels must change the fingerprint
	c := ComputeBrickHash(dims, []float32{1}, []float32{2, 0, 0})
	if a == c {
		t.Error("Expected different hash when channel boundaries move")
	}

	if len(Hash(a).Short()) != 12 {
		t.Errorf("Expected 12-char short hash, got %q", Hash(a).Short())
	}
}
