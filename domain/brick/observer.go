package brick

import (
	"fmt"
	"strings"
)

// PressureModelIsotropic is the only pressure model: p = pressureFactor * rho
const PressureModelIsotropic = "isotropic_pressure"

// Condition identifies one of the classical energy conditions
type Condition string

const (
	ConditionNEC Condition = "nec"
	ConditionWEC Condition = "wec"
	ConditionSEC Condition = "sec"
	ConditionDEC Condition = "dec"
)

// Conditions lists every condition in reporting order
var Conditions = []Condition{ConditionNEC, ConditionWEC, ConditionSEC, ConditionDEC}

// Index returns the position of c in Conditions, or -1
func (c Condition) Index() int {
	for i, cond := range Conditions {
		if cond == c {
			return i
		}
	}
	return -1
}

// ParseCondition accepts upper or lower case names
func ParseCondition(s string) (Condition, error) {
	c := Condition(strings.ToLower(strings.TrimSpace(s)))
	if c.Index() < 0 {
		return "", fmt.Errorf("unknown energy condition %q", s)
	}
	return c, nil
}

// Frame selects which per-voxel quantity an overlay renders
type Frame string

const (
	FrameEulerian Frame = "eulerian"
	FrameRobust   Frame = "robust"
	FrameDelta    Frame = "delta"
	FrameMissed   Frame = "missed"
)

// ParseFrame accepts any casing of the frame names
func ParseFrame(s string) (Frame, error) {
	switch f := Frame(strings.ToLower(strings.TrimSpace(s))); f {
	case FrameEulerian, FrameRobust, FrameDelta, FrameMissed:
		return f, nil
	}
	return "", fmt.Errorf("unknown observer frame %q", s)
}

// WorstCaseSource names the computation path that produced a worst case
type WorstCaseSource string

const (
	SourceAlgebraicTypeI WorstCaseSource = "algebraic_type_i"
	SourceCappedSearch   WorstCaseSource = "capped_search"
)

// WorstCase is the single most negative robust voxel for a condition
type WorstCase struct {
	Index     int             `json:"index"`
	Value     float64         `json:"value"`
	Direction [3]float64      `json:"direction"`
	Rapidity  *float64        `json:"rapidity"`
	Source    WorstCaseSource `json:"source"`
}

// ConditionSummary aggregates Eulerian and robust margins for one condition
type ConditionSummary struct {
	EulerianMin               float64   `json:"eulerianMin"`
	EulerianMean              float64   `json:"eulerianMean"`
	RobustMin                 float64   `json:"robustMin"`
	RobustMean                float64   `json:"robustMean"`
	EulerianViolationFraction float64   `json:"eulerianViolationFraction"`
	RobustViolationFraction   float64   `json:"robustViolationFraction"`
	MissedViolationFraction   float64   `json:"missedViolationFraction"`
	SeverityGainMin           float64   `json:"severityGainMin"`
	SeverityGainMean          float64   `json:"severityGainMean"`
	MaxRobustMinusEulerian    float64   `json:"maxRobustMinusEulerian"`
	WorstCase                 WorstCase `json:"worstCase"`
}

// TypeIStats counts voxels classified as Hawking-Ellis Type I
type TypeIStats struct {
	Count     int     `json:"count"`
	Fraction  float64 `json:"fraction"`
	Tolerance float64 `json:"tolerance"`
}

// Consistency is the robust <= eulerian tripwire
type Consistency struct {
	RobustNotGreaterThanEulerian bool    `json:"robustNotGreaterThanEulerian"`
	MaxRobustMinusEulerian       float64 `json:"maxRobustMinusEulerian"`
}

// ObserverRobustDiagnostics is the observerRobust stats block
type ObserverRobustDiagnostics struct {
	PressureModel   string           `json:"pressureModel"`
	PressureFactor  float64          `json:"pressureFactor"`
	RapidityCap     float64          `json:"rapidityCap"`
	RapidityCapBeta float64          `json:"rapidityCapBeta"`
	TypeI           TypeIStats       `json:"typeI"`
	NEC             ConditionSummary `json:"nec"`
	WEC             ConditionSummary `json:"wec"`
	SEC             ConditionSummary `json:"sec"`
	DEC             ConditionSummary `json:"dec"`
	Consistency     Consistency      `json:"consistency"`
}

// Summary returns the summary block for c
func (d *ObserverRobustDiagnostics) Summary(c Condition) *ConditionSummary {
	switch c {
	case ConditionNEC:
		return &d.NEC
	case ConditionWEC:
		return &d.WEC
	case ConditionSEC:
		return &d.SEC
	case ConditionDEC:
		return &d.DEC
	}
	return nil
}

// MaskMode selects which voxels a direction overlay marks active
type MaskMode string

const (
	MaskAll       MaskMode = "all"
	MaskViolating MaskMode = "violating"
	MaskMissed    MaskMode = "missed"
)

// ParseMaskMode accepts any casing; empty means all
func ParseMaskMode(s string) (MaskMode, error) {
	switch m := MaskMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MaskAll, nil
	case MaskAll, MaskViolating, MaskMissed:
		return m, nil
	}
	return "", fmt.Errorf("unknown mask mode %q", s)
}

// DECDirectionMode selects how DEC direction overlays pick a boost direction
type DECDirectionMode string

const (
	// DECDirectionGlobal broadcasts the cached dec.worstCase direction
	DECDirectionGlobal DECDirectionMode = "global"
	// DECDirectionLocal runs the per-voxel candidate search
	DECDirectionLocal DECDirectionMode = "local"
)

// ParseDECDirectionMode accepts any casing; empty means global
func ParseDECDirectionMode(s string) (DECDirectionMode, error) {
	switch m := DECDirectionMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return DECDirectionGlobal, nil
	case DECDirectionGlobal, DECDirectionLocal:
		return m, nil
	}
	return "", fmt.Errorf("unknown DEC direction mode %q", s)
}
