package report

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/cropgym/cropgym-go/experiment"
	"github.com/cropgym/cropgym-go/timestep"
	"github.com/xuri/excelize/v2"
)

func testEvaluations() []experiment.Evaluation {
	return []experiment.Evaluation{
		{
			Policy:    "agent",
			Iteration: 20,
			Episodes: []experiment.Episode{
				{Year: 1990, Length: 3, End: timestep.Harvest, Return: 1,
					Cost: []float64{30}, Amounts: []float64{0, 40, 20},
					Yield: 7000, Napplied: 60, Surplus: 30, NUE: 0.7},
				{Year: 1992, Length: 2, End: timestep.Horizon, Return: 3,
					Cost: []float64{50}, Amounts: []float64{40, 40},
					Yield: 8000, Napplied: 80, Surplus: 50, NUE: 0.6},
			},
		},
		{
			Policy: "zero",
			Episodes: []experiment.Episode{
				{Year: 1990, Length: 3, End: timestep.Harvest,
					Cost: []float64{-10}, Amounts: []float64{0, 0, 0},
					Yield: 5000},
			},
		},
	}
}

func TestWrite(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "report.xlsx")
	evals := testEvaluations()
	if err := Write(filename, evals, []string{"surplus"}); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows(SummarySheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("summary has %v rows, want 3", len(rows))
	}
	if rows[0][len(rows[0])-1] != "Cost surplus" {
		t.Errorf("summary header %v", rows[0])
	}
	if rows[1][0] != "agent" || rows[1][3] != "2" || rows[1][4] != "7500" {
		t.Errorf("agent summary %v", rows[1])
	}
	if rows[1][8] != "40" {
		t.Errorf("agent mean cost = %v, want 40", rows[1][8])
	}

	rows, err = f.GetRows(SheetName(evals[0]))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("season sheet has %v rows, want 3", len(rows))
	}
	if rows[0][len(rows[0])-1] != "N step 3" {
		t.Errorf("season header %v", rows[0])
	}
	if rows[2][0] != "1992" || rows[2][2] != "Horizon" {
		t.Errorf("season row %v", rows[2])
	}

	if _, err := f.GetRows("zero"); err != nil {
		t.Errorf("missing baseline sheet: %v", err)
	}
}

func TestSheetName(t *testing.T) {
	e := experiment.Evaluation{Policy: strings.Repeat("x", 40), Iteration: 3}
	if got := SheetName(e); len(got) > 31 {
		t.Errorf("sheet name %q is too long", got)
	}
	if got := SheetName(experiment.Evaluation{Policy: "agent",
		Iteration: 7}); got != "agent-7" {
		t.Errorf("sheet name = %q, want agent-7", got)
	}
}

func TestDuplicateSheets(t *testing.T) {
	evals := testEvaluations()
	evals = append(evals, evals[1])
	filename := filepath.Join(t.TempDir(), "report.xlsx")
	if err := Write(filename, evals, []string{"surplus"}); err == nil {
		t.Errorf("duplicate evaluations should fail")
	}
}
