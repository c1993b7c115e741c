package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"gobrick/domain/brick"
	"gobrick/domain/core"

	"github.com/goccy/go-json"
)

// JSONDiagnostics stores an observerRobust block in a JSON/JSONB column
type JSONDiagnostics struct {
	*brick.ObserverRobustDiagnostics
}

// Value implements driver.Valuer interface
func (j JSONDiagnostics) Value() (driver.Value, error) {
	if j.ObserverRobustDiagnostics == nil {
		return nil, nil
	}
	b, err := json.Marshal(j.ObserverRobustDiagnostics)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface
func (j *JSONDiagnostics) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		j.ObserverRobustDiagnostics = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into diagnostics", value)
	}
	if len(raw) == 0 {
		j.ObserverRobustDiagnostics = nil
		return nil
	}
	d := &brick.ObserverRobustDiagnostics{}
	if err := json.Unmarshal(raw, d); err != nil {
		return err
	}
	j.ObserverRobustDiagnostics = d
	return nil
}

// MarshalJSON renders the wrapped block, or null
func (j JSONDiagnostics) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.ObserverRobustDiagnostics)
}

// Evaluation is the ledger record of one evaluator run over one brick
type Evaluation struct {
	ID             core.EvaluationID `json:"id" db:"id"`
	BrickHash      core.BrickHash    `json:"brickHash" db:"brick_hash"`
	Dims           string            `json:"dims" db:"dims"`
	Voxels         int               `json:"voxels" db:"voxels"`
	Format         string            `json:"format" db:"format"`
	Source         string            `json:"source,omitempty" db:"source"`
	Proxy          bool              `json:"proxy" db:"proxy"`
	PressureFactor float64           `json:"pressureFactor" db:"pressure_factor"`
	RapidityCap    float64           `json:"rapidityCap" db:"rapidity_cap"`
	TypeITolerance float64           `json:"typeITolerance" db:"type_i_tolerance"`
	Consistent     bool              `json:"consistent" db:"consistent"`
	Diagnostics    JSONDiagnostics   `json:"diagnostics" db:"diagnostics"`
	DurationMs     int64             `json:"durationMs" db:"duration_ms"`
	CreatedAt      time.Time         `json:"createdAt" db:"created_at"`
}

// NewEvaluation records diagnostics d computed for b
func NewEvaluation(b *brick.Brick, d *brick.ObserverRobustDiagnostics, format string, elapsed time.Duration) *Evaluation {
	e := &Evaluation{
		ID:          core.NewEvaluationID(),
		BrickHash:   core.ComputeBrickHash(b.Dims, b.T00.Data, b.Sx.Data, b.Sy.Data, b.Sz.Data, b.DivS.Data),
		Dims:        b.Dims.String(),
		Voxels:      b.Voxels(),
		Format:      format,
		Source:      b.Provenance.Source,
		Proxy:       b.Provenance.Proxy,
		Diagnostics: JSONDiagnostics{d},
		DurationMs:  elapsed.Milliseconds(),
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	if d != nil {
		e.PressureFactor = d.PressureFactor
		e.RapidityCap = d.RapidityCap
		e.TypeITolerance = d.TypeI.Tolerance
		e.Consistent = d.Consistency.RobustNotGreaterThanEulerian
	}
	return e
}
