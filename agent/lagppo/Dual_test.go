package lagppo

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

func TestDualNonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d, err := NewDual([]float64{40, 20}, 0.5, 0, false)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10000; i++ {
		// Costs far on either side of the budget, including extreme
		// values
		costs := []float64{
			(rng.Float64() - 0.5) * 1000,
			(rng.Float64() - 0.5) * math.Pow(10, float64(rng.Intn(12))),
		}
		if err := d.Update(costs); err != nil {
			t.Fatal(err)
		}
		for j, m := range d.Multipliers() {
			if m < 0 || math.IsNaN(m) {
				t.Fatalf("update %v: multiplier %v is %v", i, j, m)
			}
		}
	}
}

func TestDualAscent(t *testing.T) {
	tests := []struct {
		name    string
		initial float64
		cost    float64
		want    float64
	}{
		{"over budget", 0, 50, 1},
		{"under budget", 2, 30, 1},
		{"clipped at zero", 0.5, 0, 0},
		{"at budget", 3, 40, 3},
		{"non-finite cost", 3, math.NaN(), 3},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			d, err := NewDual([]float64{40}, 0.1, test.initial, false)
			if err != nil {
				t.Fatal(err)
			}
			if err := d.Update([]float64{test.cost}); err != nil {
				t.Fatal(err)
			}
			if got := d.Multipliers()[0]; math.Abs(got-test.want) > 1e-12 {
				t.Errorf("multiplier = %v, want %v", got, test.want)
			}
		})
	}
}

func TestDualFixed(t *testing.T) {
	d, _ := NewDual([]float64{1}, 1, 0, true)
	d.Update([]float64{100})
	if m := d.Multipliers()[0]; m != 0 {
		t.Errorf("fixed multiplier changed to %v", m)
	}
}

func TestDualErrors(t *testing.T) {
	if _, err := NewDual([]float64{1}, -1, 0, false); err == nil {
		t.Errorf("expected an error for a negative step size")
	}
	if _, err := NewDual([]float64{1}, 1, -1, false); err == nil {
		t.Errorf("expected an error for a negative multiplier")
	}
	d, _ := NewDual([]float64{1, 2}, 1, 0, false)
	if err := d.Update([]float64{1}); err == nil {
		t.Errorf("expected an error for missing costs")
	}
	if err := d.SetMultipliers([]float64{1, -1}); err == nil {
		t.Errorf("expected an error for a negative multiplier")
	}
}
