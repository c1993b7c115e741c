package excel

import (
	"fmt"
	"io"
	"strings"

	"gobrick/domain/brick"
	"gobrick/models"

	"github.com/xuri/excelize/v2"
)

// WriteEvaluations writes a Summary sheet with one row per evaluation and a
// Conditions sheet with one row per evaluation and energy condition.
func WriteEvaluations(w io.Writer, records []*models.Evaluation) error {
	f, err := buildWorkbook(records)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveEvaluations writes the workbook to an .xlsx file
func SaveEvaluations(path string, records []*models.Evaluation) error {
	f, err := buildWorkbook(records)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func buildWorkbook(records []*models.Evaluation) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fill(f, records); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func fill(f *excelize.File, records []*models.Evaluation) error {
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetConditions); err != nil {
		return fmt.Errorf("failed to create conditions sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRow(f, SheetSummary, 1, toRow(summaryHeaders)); err != nil {
		return err
	}
	if err := writeRow(f, SheetConditions, 1, toRow(conditionHeaders)); err != nil {
		return err
	}
	for _, sheet := range []string{SheetSummary, SheetConditions} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return fmt.Errorf("failed to style %s header: %w", sheet, err)
		}
	}

	condRow := 2
	for i, rec := range records {
		d := rec.Diagnostics.ObserverRobustDiagnostics
		typeI := 0.0
		if d != nil {
			typeI = d.TypeI.Fraction
		}
		summary := []interface{}{
			rec.ID.String(), rec.CreatedAt.UTC().Format("2006-01-02 15:04:05"), rec.BrickHash.String(),
			rec.Dims, rec.Voxels, rec.Format, rec.Source, rec.Proxy,
			rec.PressureFactor, rec.RapidityCap, rec.TypeITolerance, typeI, rec.Consistent, rec.DurationMs,
		}
		if err := writeRow(f, SheetSummary, i+2, summary); err != nil {
			return err
		}
		if d == nil {
			continue
		}
		for _, cond := range brick.Conditions {
			s := d.Summary(cond)
			row := []interface{}{
				rec.ID.String(), strings.ToUpper(string(cond)),
				s.EulerianMin, s.EulerianMean, s.RobustMin, s.RobustMean,
				s.EulerianViolationFraction, s.RobustViolationFraction, s.MissedViolationFraction,
				s.SeverityGainMin, s.SeverityGainMean,
				s.WorstCase.Index, s.WorstCase.Value, string(s.WorstCase.Source),
			}
			if err := writeRow(f, SheetConditions, condRow, row); err != nil {
				return err
			}
			condRow++
		}
	}

	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toRow(headers []string) []interface{} {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return row
}
