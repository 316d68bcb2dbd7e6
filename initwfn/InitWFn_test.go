package initwfn

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gorgonia.org/tensor"
)

func TestSeededInitializers(t *testing.T) {
	for _, typ := range []Type{GlorotU, GlorotN, HeU, HeN} {
		c := Config{Type: typ, Gain: 1}
		a, err := c.Create(rand.NewSource(7))
		if err != nil {
			t.Fatal(err)
		}
		b, err := c.Create(rand.NewSource(7))
		if err != nil {
			t.Fatal(err)
		}

		wa := a(tensor.Float64, 10, 20).([]float64)
		wb := b(tensor.Float64, 10, 20).([]float64)
		if len(wa) != 200 {
			t.Fatalf("%v: got %v weights, want 200", typ, len(wa))
		}
		for i := range wa {
			if wa[i] != wb[i] {
				t.Fatalf("%v: same seed gave different weights", typ)
			}
		}
	}
}

func TestGlorotUBounds(t *testing.T) {
	init, err := Config{Type: GlorotU, Gain: 1}.Create(rand.NewSource(1))
	if err != nil {
		t.Fatal(err)
	}
	limit := math.Sqrt(6.0 / 30)
	for _, w := range init(tensor.Float64, 10, 20).([]float64) {
		if math.Abs(w) > limit {
			t.Errorf("weight %v outside of [-%v, %v]", w, limit, limit)
		}
	}
}

func TestConstant(t *testing.T) {
	for typ, want := range map[Type]float64{Zeroes: 0, Ones: 1} {
		init, err := Config{Type: typ}.Create(nil)
		if err != nil {
			t.Fatal(err)
		}
		for _, w := range init(tensor.Float64, 3, 4).([]float64) {
			if w != want {
				t.Errorf("%v: weight %v, want %v", typ, w, want)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	if err := (Config{Type: "Orthogonal"}).Validate(); err == nil {
		t.Errorf("unknown types should be rejected")
	}
	if err := (Config{Type: HeN}).Validate(); err == nil {
		t.Errorf("zero gain should be rejected")
	}
}
