package gae

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func TestDiscountCumSum(t *testing.T) {
	tests := []struct {
		x        []float64
		discount float64
		want     []float64
	}{
		{[]float64{1, 1, 1}, 1, []float64{3, 2, 1}},
		{[]float64{1, 2, 3}, 0.5, []float64{2.75, 3.5, 3}},
		{[]float64{5}, 0.9, []float64{5}},
		{nil, 0.9, []float64{}},
	}
	for _, test := range tests {
		got := discountCumSum(test.x, test.discount)
		if !floats.EqualApprox(got, test.want, 1e-12) {
			t.Errorf("discountCumSum(%v, %v) = %v, want %v", test.x,
				test.discount, got, test.want)
		}
	}
}

func TestFinishPath(t *testing.T) {
	const gamma, lambda = 0.9, 0.95
	b := New(1, 2, 4, lambda, gamma)

	// A terminated episode of two steps and a truncated one of two steps
	steps := []struct {
		rew, val float64
		cost     []float64
	}{
		{1, 0.5, []float64{2, 0}},
		{2, 0.25, []float64{0, 1}},
		{3, 1, []float64{1, 1}},
		{4, 2, []float64{0, 0}},
	}
	zeros := []float64{0, 0}
	for i, s := range steps[:2] {
		if err := b.Store([]float64{float64(i)}, 0, 0, s.rew, s.val, s.cost,
			zeros); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.FinishPath(0, zeros); err != nil {
		t.Fatal(err)
	}
	for i, s := range steps[2:] {
		if err := b.Store([]float64{float64(i)}, 0, 0, s.rew, s.val, s.cost,
			zeros); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.FinishPath(10, []float64{5, 0}); err != nil {
		t.Fatal(err)
	}
	if !b.Full() {
		t.Fatalf("buffer should be full")
	}

	batch, err := b.Batch()
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != 0 {
		t.Errorf("buffer should be empty after batch")
	}

	wantRet := []float64{1 + gamma*2, 2, 3 + gamma*4 + gamma*gamma*10,
		4 + gamma*10}
	if !floats.EqualApprox(batch.RewardReturns, wantRet, 1e-12) {
		t.Errorf("reward returns = %v, want %v", batch.RewardReturns, wantRet)
	}

	d0 := 1 + gamma*0.25 - 0.5
	d1 := 2 - 0.25
	wantAdv0 := d0 + gamma*lambda*d1
	if math.Abs(batch.RewardAdvantages[0]-wantAdv0) > 1e-12 {
		t.Errorf("advantage = %v, want %v", batch.RewardAdvantages[0],
			wantAdv0)
	}

	wantCost := []float64{2, 0, 1 + gamma*gamma*5, gamma * 5}
	if !floats.EqualApprox(batch.CostReturns[0], wantCost, 1e-12) {
		t.Errorf("cost returns = %v, want %v", batch.CostReturns[0], wantCost)
	}
}

func TestBatchUnfinished(t *testing.T) {
	b := New(1, 0, 2, 1, 1)
	if err := b.Store([]float64{1}, 0, 0, 1, 0, nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Batch(); err == nil {
		t.Errorf("batch should fail with an unfinished trajectory")
	}
	if err := b.Store([]float64{1, 2}, 0, 0, 1, 0, nil, nil); err == nil {
		t.Errorf("store should reject observations of the wrong size")
	}
}

func TestAdvantages(t *testing.T) {
	batch := &Batch{
		Features:         1,
		Actions:          []float64{0, 0, 0},
		RewardAdvantages: []float64{1, 2, 3},
		CostAdvantages:   [][]float64{{3, 0, 0}},
	}

	// With a zero multiplier the result is the standardized reward
	// advantage
	adv, err := batch.Advantages([]float64{0})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{-1, 0, 1}
	if !floats.EqualApprox(adv, want, 1e-6) {
		t.Errorf("advantages = %v, want %v", adv, want)
	}

	// A large multiplier makes the costly first transition the worst
	adv, _ = batch.Advantages([]float64{10})
	if floats.MinIdx(adv) != 0 {
		t.Errorf("costly transition should have the lowest advantage, "+
			"got %v", adv)
	}
	mean, std := stat.MeanStdDev(adv, nil)
	if math.Abs(mean) > 1e-9 || math.Abs(std-1) > 1e-6 {
		t.Errorf("advantages not standardized: mean %v, std %v", mean, std)
	}

	if _, err := batch.Advantages(nil); err == nil {
		t.Errorf("expected an error for missing multipliers")
	}
}

func TestMerge(t *testing.T) {
	a := &Batch{Features: 2, Observations: []float64{1, 2},
		Actions: []float64{1}, LogProbs: []float64{-1},
		RewardAdvantages: []float64{1}, RewardReturns: []float64{1},
		CostAdvantages: [][]float64{{1}}, CostReturns: [][]float64{{1}}}
	b := &Batch{Features: 2, Observations: []float64{3, 4},
		Actions: []float64{2}, LogProbs: []float64{-2},
		RewardAdvantages: []float64{2}, RewardReturns: []float64{2},
		CostAdvantages: [][]float64{{2}}, CostReturns: [][]float64{{2}}}

	m, err := Merge(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 2 || !floats.Equal(m.Observation(1), []float64{3, 4}) {
		t.Errorf("merged batch = %+v", m)
	}
	if !floats.Equal(m.CostReturns[0], []float64{1, 2}) {
		t.Errorf("merged cost returns = %v", m.CostReturns[0])
	}

	c := &Batch{Features: 3, CostAdvantages: [][]float64{{}}}
	if _, err := Merge(a, c); err == nil {
		t.Errorf("merge should reject batches of different shapes")
	}
}
