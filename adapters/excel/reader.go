package excel

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReadConditionRows loads the Conditions sheet of a workbook written by
// WriteEvaluations, so exported results can be compared across runs
func ReadConditionRows(r io.Reader) ([]ConditionRow, error) {
	startTime := time.Now()
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetConditions)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", SheetConditions, err)
	}
	log.Printf("[WorkbookReader] %s read in %.2fms (%d rows)", SheetConditions, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook has no %s header", SheetConditions)
	}
	if len(rows[0]) < len(conditionHeaders) || rows[0][0] != conditionHeaders[0] {
		return nil, fmt.Errorf("unexpected %s header %v", SheetConditions, rows[0])
	}

	out := make([]ConditionRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		row, err := parseConditionRow(cells)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetConditions, i+2, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func parseConditionRow(cells []string) (ConditionRow, error) {
	if len(cells) < len(conditionHeaders) {
		return ConditionRow{}, fmt.Errorf("expected %d cells, got %d", len(conditionHeaders), len(cells))
	}
	var firstErr error
	num := func(col int) float64 {
		v, err := strconv.ParseFloat(cells[col], 64)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("column %q: %w", conditionHeaders[col], err)
		}
		return v
	}
	worst, err := strconv.Atoi(cells[11])
	if err != nil {
		return ConditionRow{}, fmt.Errorf("column %q: %w", conditionHeaders[11], err)
	}
	row := ConditionRow{
		Evaluation:       cells[0],
		Condition:        cells[1],
		EulerianMin:      num(2),
		EulerianMean:     num(3),
		RobustMin:        num(4),
		RobustMean:       num(5),
		EulerianFraction: num(6),
		RobustFraction:   num(7),
		MissedFraction:   num(8),
		SeverityGainMin:  num(9),
		SeverityGainMean: num(10),
		WorstIndex:       worst,
		WorstValue:       num(12),
		WorstSource:      cells[13],
	}
	return row, firstErr
}
