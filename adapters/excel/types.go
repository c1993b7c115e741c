package excel

// Sheet names used by the evaluation workbook
const (
	SheetSummary    = "Summary"
	SheetConditions = "Conditions"
)

var summaryHeaders = []string{
	"Evaluation", "Created", "Brick hash", "Dims", "Voxels", "Format", "Source", "Proxy",
	"Pressure factor", "Rapidity cap", "Type I tolerance", "Type I fraction", "Consistent", "Duration (ms)",
}

var conditionHeaders = []string{
	"Evaluation", "Condition", "Eulerian min", "Eulerian mean", "Robust min", "Robust mean",
	"Eulerian violation fraction", "Robust violation fraction", "Missed violation fraction",
	"Severity gain min", "Severity gain mean", "Worst voxel", "Worst value", "Worst source",
}

// ConditionRow is one evaluation/condition row of the Conditions sheet
type ConditionRow struct {
	Evaluation       string
	Condition        string
	EulerianMin      float64
	EulerianMean     float64
	RobustMin        float64
	RobustMean       float64
	EulerianFraction float64
	RobustFraction   float64
	MissedFraction   float64
	SeverityGainMin  float64
	SeverityGainMean float64
	WorstIndex       int
	WorstValue       float64
	WorstSource      string
}
