package app

import (
	"context"
	"fmt"
	"strings"

	"gobrick/domain/brick"
	"gobrick/domain/core"
	"gobrick/models"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Report is a human readable summary of one evaluation
type Report struct {
	ID       core.EvaluationID
	Title    string
	Markdown string
}

// BuildReport renders the markdown summary of an evaluation record
func BuildReport(rec *models.Evaluation) (*Report, error) {
	d := rec.Diagnostics.ObserverRobustDiagnostics
	if d == nil {
		return nil, core.ErrNoObserverBlock
	}

	var sb strings.Builder
	title := fmt.Sprintf("Observer-robust energy conditions: %s", rec.Dims)
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "- **Evaluation:** `%s`\n", rec.ID)
	fmt.Fprintf(&sb, "- **Brick:** %s (%d voxels), hash `%s`\n", rec.Dims, rec.Voxels, core.Hash(rec.BrickHash).Short())
	if rec.Source != "" {
		fmt.Fprintf(&sb, "- **Source:** %s (proxy: %t)\n", rec.Source, rec.Proxy)
	}
	fmt.Fprintf(&sb, "- **Pressure model:** %s, factor %g\n", d.PressureModel, d.PressureFactor)
	fmt.Fprintf(&sb, "- **Rapidity cap:** %g (beta %.4f)\n", d.RapidityCap, d.RapidityCapBeta)
	fmt.Fprintf(&sb, "- **Type I voxels:** %d (%s), tolerance %g\n", d.TypeI.Count, percent(d.TypeI.Fraction), d.TypeI.Tolerance)
	fmt.Fprintf(&sb, "- **Evaluated:** %s in %d ms\n\n", rec.CreatedAt.Format("2006-01-02 15:04:05 MST"), rec.DurationMs)

	sb.WriteString("## Conditions\n\n")
	sb.WriteString("| Condition | Eulerian min | Robust min | Eulerian violations | Robust violations | Missed | Mean severity gain | Worst voxel | Worst value | Path |\n")
	sb.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")
	for _, cond := range brick.Conditions {
		s := d.Summary(cond)
		fmt.Fprintf(&sb, "| %s | %.4g | %.4g | %s | %s | %s | %.4g | %d | %.4g | %s |\n",
			strings.ToUpper(string(cond)), s.EulerianMin, s.RobustMin,
			percent(s.EulerianViolationFraction), percent(s.RobustViolationFraction), percent(s.MissedViolationFraction),
			s.SeverityGainMean, s.WorstCase.Index, s.WorstCase.Value, s.WorstCase.Source)
	}

	sb.WriteString("\n## Consistency\n\n")
	if d.Consistency.RobustNotGreaterThanEulerian {
		fmt.Fprintf(&sb, "Robust margins never exceed Eulerian margins (max excess %.3g).\n", d.Consistency.MaxRobustMinusEulerian)
	} else {
		fmt.Fprintf(&sb, "**Robust margins exceed Eulerian margins by up to %.3g.** The evaluation is suspect.\n", d.Consistency.MaxRobustMinusEulerian)
	}

	return &Report{ID: rec.ID, Title: title, Markdown: sb.String()}, nil
}

// HTML renders the report as a standalone page
func (r *Report) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(r.Markdown))
	renderer := html.NewRenderer(html.RendererOptions{
		Title: r.Title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.Render(doc, renderer)
}

// Report builds the summary report for an evaluation
func (s *EvaluationService) Report(ctx context.Context, id core.EvaluationID) (*Report, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildReport(rec)
}

func percent(f float64) string {
	return fmt.Sprintf("%.2f%%", 100*f)
}
