package environment

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestSpecContains(t *testing.T) {
	spec := NewSpec(
		mat.NewVecDense(1, nil),
		Action,
		mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{8}),
		Discrete,
	)

	var typedNil *mat.VecDense
	tests := []struct {
		name string
		v    mat.Vector
		want bool
	}{
		{"lower", mat.NewVecDense(1, []float64{0}), true},
		{"upper", mat.NewVecDense(1, []float64{8}), true},
		{"below", mat.NewVecDense(1, []float64{-1}), false},
		{"above", mat.NewVecDense(1, []float64{9}), false},
		{"fractional", mat.NewVecDense(1, []float64{1.5}), false},
		{"nan", mat.NewVecDense(1, []float64{math.NaN()}), false},
		{"length", mat.NewVecDense(2, []float64{1, 1}), false},
		{"nil", nil, false},
		{"typed nil", typedNil, false},
	}

	for _, test := range tests {
		if got := spec.Contains(test.v); got != test.want {
			t.Errorf("%v: Contains = %v, want %v", test.name, got, test.want)
		}
	}
}
