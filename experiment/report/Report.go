// Package report exports policy evaluations to spreadsheets
package report

import (
	"fmt"

	"github.com/cropgym/cropgym-go/experiment"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/stat"
)

// SummarySheet is the name of the sheet comparing all evaluations
const SummarySheet = "Summary"

// maxSheetName is the longest sheet name a workbook accepts
const maxSheetName = 31

// SheetName returns the name of the sheet holding an evaluation
func SheetName(e experiment.Evaluation) string {
	name := e.Policy
	if e.Iteration > 0 {
		name = fmt.Sprintf("%v-%d", e.Policy, e.Iteration)
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

// Write writes evaluations to the xlsx file filename. The first sheet
// summarizes each evaluation on one row, and every evaluation gets a
// sheet with one row per season. Channels names the cost channels.
func Write(filename string, evals []experiment.Evaluation,
	channels []string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	header := []interface{}{"Policy", "Iteration", "Seasons", "Return",
		"Yield (kg/ha)", "N applied (kg/ha)", "N surplus (kg/ha)", "NUE"}
	for _, c := range channels {
		header = append(header, "Cost "+c)
	}
	if err := f.SetSheetRow(SummarySheet, "A1", &header); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	seen := make(map[string]bool)
	for i, e := range evals {
		row := summary(e)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write: %w", err)
		}

		name := SheetName(e)
		if seen[name] {
			return fmt.Errorf("write: duplicate evaluation %v", name)
		}
		seen[name] = true
		if err := seasons(f, name, e, channels); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// summary returns the summary row of an evaluation
func summary(e experiment.Evaluation) []interface{} {
	n := len(e.Episodes)
	applied := make([]float64, n)
	surplus := make([]float64, n)
	nue := make([]float64, n)
	for i, ep := range e.Episodes {
		applied[i] = ep.Napplied
		surplus[i] = ep.Surplus
		nue[i] = ep.NUE
	}

	row := []interface{}{e.Policy, e.Iteration, n, e.MeanReturn(),
		e.MeanYield(), stat.Mean(applied, nil), stat.Mean(surplus, nil),
		stat.Mean(nue, nil)}
	for _, c := range e.MeanCost() {
		row = append(row, c)
	}
	return row
}

// seasons writes the per season sheet of an evaluation
func seasons(f *excelize.File, name string, e experiment.Evaluation,
	channels []string) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	weeks := 0
	for _, ep := range e.Episodes {
		if len(ep.Amounts) > weeks {
			weeks = len(ep.Amounts)
		}
	}

	header := []interface{}{"Year", "Length", "End", "Return",
		"Yield (kg/ha)", "N applied (kg/ha)", "N surplus (kg/ha)", "NUE"}
	for _, c := range channels {
		header = append(header, "Cost "+c)
	}
	for w := 0; w < weeks; w++ {
		header = append(header, fmt.Sprintf("N step %d", w+1))
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}

	for i, ep := range e.Episodes {
		row := []interface{}{ep.Year, ep.Length, ep.End.String(), ep.Return,
			ep.Yield, ep.Napplied, ep.Surplus, ep.NUE}
		for _, c := range ep.Cost {
			row = append(row, c)
		}
		for _, a := range ep.Amounts {
			row = append(row, a)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
