package intrinsic

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

const (
	testFeatures = 4
	testLevels   = 3
)

func smallConfig(k Kind) Config {
	c := DefaultConfig(k)
	c.EmbeddingSize = 6
	c.Hidden = []int{12}
	c.BatchSize = 8
	c.Epochs = 3
	return c
}

// testBatch returns transitions in which the action taken determines the
// change in the first feature
func testBatch(n int, rng *rand.Rand) Batch {
	b := Batch{Features: testFeatures}
	for i := 0; i < n; i++ {
		obs := make([]float64, testFeatures)
		for j := range obs {
			obs[j] = rng.Float64()
		}
		a := float64(rng.Intn(testLevels))
		next := append([]float64(nil), obs...)
		next[0] += a
		b.Append(obs, a, next)
	}
	return b
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		name string
		want Kind
		ok   bool
	}{
		{"", None, true},
		{"none", None, true},
		{"E3B", E3B, true},
		{"e3b", E3B, true},
		{"ICM", ICM, true},
		{"RIDE", None, false},
	}
	for _, test := range tests {
		got, err := ParseKind(test.name)
		if (err == nil) != test.ok || got != test.want {
			t.Errorf("parseKind(%q) = %v, %v", test.name, got, err)
		}
	}
}

func TestSchedule(t *testing.T) {
	s := Schedule{Beta: 2, Decay: 0.5}
	for iter, want := range []float64{2, 1, 0.5, 0.25} {
		if got := s.At(iter); math.Abs(got-want) > 1e-12 {
			t.Errorf("at(%v) = %v, want %v", iter, got, want)
		}
	}
	if b := DefaultConfig(None).Schedule().At(0); b != 0 {
		t.Errorf("disabled module has coefficient %v", b)
	}
}

func TestNoneBonus(t *testing.T) {
	m, err := New(DefaultConfig(None), testFeatures, testLevels,
		rand.NewSource(1))
	if err != nil {
		t.Fatal(err)
	}
	ep := m.NewEpisode()
	rng := rand.New(rand.NewSource(1))
	b := testBatch(10, rng)
	for i := 0; i < b.Len(); i++ {
		obs := b.Observations[i*testFeatures : (i+1)*testFeatures]
		if bonus := ep.Bonus(obs, b.Actions[i:i+1], obs); bonus != 0 {
			t.Errorf("bonus = %v, want 0", bonus)
		}
	}
	if err := m.Update(b, rng); err != nil {
		t.Error(err)
	}
}

func TestE3BBonusDecreases(t *testing.T) {
	c := smallConfig(E3B)
	m, err := New(c, testFeatures, testLevels, rand.NewSource(1))
	if err != nil {
		t.Fatal(err)
	}
	e := m.(*e3b)

	obs := []float64{0.1, 0.2, 0.3, 0.4}
	phi := e.encoder.Forward(obs)
	want := floats.Dot(phi, phi) / c.Ridge

	ep := m.NewEpisode()
	prev := math.Inf(1)
	for i := 0; i < 5; i++ {
		bonus := ep.Bonus(obs, []float64{0}, obs)
		if i == 0 && math.Abs(bonus-want) > 1e-9*want {
			t.Errorf("first bonus = %v, want %v", bonus, want)
		}
		if bonus < 0 || bonus >= prev {
			t.Errorf("visit %v: bonus %v should be positive and below %v",
				i, bonus, prev)
		}
		prev = bonus
	}

	// A new episode forgets the visits of the last
	if bonus := m.NewEpisode().Bonus(obs, []float64{0}, obs); math.Abs(
		bonus-want) > 1e-9*want {
		t.Errorf("bonus of new episode = %v, want %v", bonus, want)
	}
}

func TestUpdate(t *testing.T) {
	for _, k := range []Kind{E3B, ICM} {
		m, err := New(smallConfig(k), testFeatures, testLevels,
			rand.NewSource(3))
		if err != nil {
			t.Fatal(err)
		}
		before := m.State()

		rng := rand.New(rand.NewSource(5))
		b := testBatch(40, rng)
		if err := m.Update(b, rng); err != nil {
			t.Fatalf("%v: %v", k, err)
		}
		after := m.State()
		if before.Encoder.Equal(after.Encoder) {
			t.Errorf("%v: update did not change the encoder", k)
		}
		if !after.Encoder.Finite() {
			t.Errorf("%v: encoder weights diverged", k)
		}
		if after.Solver.Step == 0 {
			t.Errorf("%v: solver did not step", k)
		}

		ep := m.NewEpisode()
		for i := 0; i < b.Len(); i++ {
			obs := b.Observations[i*testFeatures : (i+1)*testFeatures]
			next := b.Next[i*testFeatures : (i+1)*testFeatures]
			bonus := ep.Bonus(obs, b.Actions[i:i+1], next)
			if bonus < 0 || math.IsNaN(bonus) || math.IsInf(bonus, 0) {
				t.Fatalf("%v: bonus %v", k, bonus)
			}
		}
	}
}

func TestStateRestore(t *testing.T) {
	for _, k := range []Kind{E3B, ICM} {
		trained, _ := New(smallConfig(k), testFeatures, testLevels,
			rand.NewSource(1))
		rng := rand.New(rand.NewSource(2))
		b := testBatch(20, rng)
		if err := trained.Update(b, rng); err != nil {
			t.Fatal(err)
		}

		restored, _ := New(smallConfig(k), testFeatures, testLevels,
			rand.NewSource(9))
		if err := restored.SetState(trained.State()); err != nil {
			t.Fatal(err)
		}

		epA, epB := trained.NewEpisode(), restored.NewEpisode()
		for i := 0; i < b.Len(); i++ {
			obs := b.Observations[i*testFeatures : (i+1)*testFeatures]
			next := b.Next[i*testFeatures : (i+1)*testFeatures]
			a := epA.Bonus(obs, b.Actions[i:i+1], next)
			bb := epB.Bonus(obs, b.Actions[i:i+1], next)
			if a != bb {
				t.Fatalf("%v: restored bonus %v, want %v", k, bb, a)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	c := smallConfig(E3B)
	c.UpdateEvery = 0
	if err := c.Validate(); err == nil {
		t.Errorf("expected an error for update-every 0")
	}
	c = smallConfig(ICM)
	c.Ridge = 0
	if err := c.Validate(); err == nil {
		t.Errorf("expected an error for ridge 0")
	}
	if err := (Config{Kind: None}).Validate(); err != nil {
		t.Errorf("disabled module should not need parameters: %v", err)
	}
}
