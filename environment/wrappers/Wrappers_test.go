package wrappers

import (
	"errors"
	"testing"

	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/environment/crop"
	"github.com/cropgym/cropgym-go/environment/weather"
	"github.com/cropgym/cropgym-go/intrinsic"
	"github.com/cropgym/cropgym-go/reward"
	"github.com/cropgym/cropgym-go/timestep"
	"github.com/cropgym/cropgym-go/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func testPool(t *testing.T) *weather.Pool {
	pool, err := weather.NewPool(weather.Nominal(3002),
		weather.Nominal(3003), weather.Nominal(3004), weather.Nominal(3005))
	if err != nil {
		t.Fatal(err)
	}
	return pool
}

func newEnv(t *testing.T) *crop.WinterWheat {
	env, err := crop.NewDefault(crop.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func newSelector(t *testing.T) *reward.Selector {
	sel, err := reward.New(reward.DefaultConfig(reward.NUE))
	if err != nil {
		t.Fatal(err)
	}
	return sel
}

// draws resets a randomized environment n times and returns the draws
func draws(t *testing.T, c RandomizationConfig, seed uint64, n int) []Sample {
	r, err := NewRandomization(c, rand.NewSource(seed))
	if err != nil {
		t.Fatal(err)
	}
	p := NewPipeline(newEnv(t), r)
	for i := 0; i < n; i++ {
		if _, err := p.Reset(); err != nil {
			t.Fatal(err)
		}
	}
	return r.Samples()
}

func TestRandomizationDeterministic(t *testing.T) {
	c := DefaultRandomizationConfig()
	c.RandomWeather = true
	c.Pool = testPool(t)
	c.RandomInit = true

	a := draws(t, c, 4, 20)
	b := draws(t, c, 4, 20)
	if len(a) != 20 {
		t.Fatalf("got %v draws, want 20", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("draw %v differs between runs: %+v != %+v", i, a[i],
				b[i])
		}
	}

	// Different seeds give different sequences
	other := draws(t, c, 5, 20)
	same := true
	for i := range a {
		same = same && a[i] == other[i]
	}
	if same {
		t.Errorf("seeds 4 and 5 gave identical draws")
	}
}

func TestRandomizationBounds(t *testing.T) {
	c := DefaultRandomizationConfig()
	c.RandomInit = true
	c.Years = []int{1991, 1993}

	for _, s := range draws(t, c, 1, 50) {
		if s.Year != 1991 && s.Year != 1993 {
			t.Errorf("year %v not in configured years", s.Year)
		}
		if !floatutils.InInterval(s.Init.NAVAILI, c.NAVAILI) ||
			!floatutils.InInterval(s.Init.SMI, c.SMI) {
			t.Errorf("initial conditions %+v outside of bounds", s.Init)
		}
		if s.Init.SowOffset < 0 || s.Init.SowOffset > 14 {
			t.Errorf("sowing offset %v outside of [0, 14]", s.Init.SowOffset)
		}
	}
}

func TestRandomizationDisabled(t *testing.T) {
	for _, s := range draws(t, DefaultRandomizationConfig(), 1, 3) {
		if s.Init != crop.NominalConditions() || s.Year != 0 {
			t.Errorf("disabled randomization drew %+v", s)
		}
	}
}

func TestRandomizationMissingPool(t *testing.T) {
	c := DefaultRandomizationConfig()
	c.RandomWeather = true
	_, err := NewRandomization(c, rand.NewSource(1))

	var confErr *environment.ConfigurationError
	if !errors.As(err, &confErr) || confErr.Field != "weather-dir" {
		t.Errorf("expected a weather-dir ConfigurationError, got %v", err)
	}
}

// rewards runs an episode with a fixed action sequence and returns the
// reward and extrinsic reward of each step
func rewards(t *testing.T, p *Pipeline) (rew, ext []float64) {
	if _, err := p.Reset(); err != nil {
		t.Fatal(err)
	}
	for i := 0; ; i++ {
		action := mat.NewVecDense(1, []float64{float64(i % 5)})
		step, done, err := p.Step(action)
		if err != nil {
			t.Fatal(err)
		}
		rew = append(rew, step.Reward)
		ext = append(ext, step.Extrinsic)
		if done {
			return rew, ext
		}
	}
}

func TestDisabledIntrinsicIsNoOp(t *testing.T) {
	sel := newSelector(t)
	base := NewPipeline(newEnv(t), NewRewardCost(sel))

	module, err := intrinsic.New(intrinsic.DefaultConfig(intrinsic.None),
		1, 9, rand.NewSource(1))
	if err != nil {
		t.Fatal(err)
	}
	stage := NewIntrinsic(module, 1)
	withNone := NewPipeline(newEnv(t), NewRewardCost(sel), stage)

	want, _ := rewards(t, base)
	got, ext := rewards(t, withNone)
	if len(got) != len(want) {
		t.Fatalf("episode lengths differ: %v != %v", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] || got[i] != ext[i] {
			t.Errorf("step %v: reward %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIntrinsicAddsBonus(t *testing.T) {
	sel := newSelector(t)
	env := newEnv(t)
	c := intrinsic.DefaultConfig(intrinsic.E3B)
	c.EmbeddingSize, c.Hidden, c.BatchSize = 4, []int{8}, 4
	module, err := intrinsic.New(c, env.ObservationSpec().Len(), 9,
		rand.NewSource(1))
	if err != nil {
		t.Fatal(err)
	}

	stage := NewIntrinsic(module, 0.5)
	p := NewPipeline(env, NewRewardCost(sel), stage)
	if _, err := p.Reset(); err != nil {
		t.Fatal(err)
	}
	step, _, err := p.Step(mat.NewVecDense(1, []float64{1}))
	if err != nil {
		t.Fatal(err)
	}
	if step.Intrinsic <= 0 {
		t.Errorf("e3b bonus of the first step = %v, want > 0",
			step.Intrinsic)
	}
	if step.Reward != step.Extrinsic+0.5*step.Intrinsic {
		t.Errorf("reward %v != %v + 0.5 * %v", step.Reward, step.Extrinsic,
			step.Intrinsic)
	}

	stage.SetBeta(0)
	step, _, _ = p.Step(mat.NewVecDense(1, []float64{0}))
	if step.Reward != step.Extrinsic {
		t.Errorf("reward with β = 0 is %v, want %v", step.Reward,
			step.Extrinsic)
	}
}

func TestPipelineCostSpec(t *testing.T) {
	p := NewPipeline(newEnv(t), NewRewardCost(newSelector(t)))
	spec := p.CostSpec()
	if spec.Len() != 1 || spec.Labels[0] != "surplus" {
		t.Errorf("cost spec = %v labels %v, want [surplus]", spec.Len(),
			spec.Labels)
	}

	step, err := p.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if len(step.Cost) != 1 || step.Reward != 0 {
		t.Errorf("first step has cost %v and reward %v", step.Cost,
			step.Reward)
	}
}

func TestFailedSeasonEarnsNoSeasonScore(t *testing.T) {
	stage := NewRewardCost(newSelector(t))
	prev := &timestep.TimeStep{
		StepType: timestep.Mid,
		Info: timestep.Info{State: timestep.State{
			crop.Week: 30, crop.Napplied: 100, crop.Ndepo: 9,
			crop.NamountSO: 70, crop.TWSO: 7000,
		}},
	}
	final := timestep.State{
		crop.Week: 31, crop.Napplied: 100, crop.Ndepo: 10,
		crop.NamountSO: 80, crop.TWSO: 8000,
	}
	scale := reward.DefaultConfig(reward.NUE).NUEScale
	score := scale * reward.SeasonScore(final)
	if score <= 0 {
		t.Fatalf("season score = %v, want a positive score", score)
	}

	tests := []struct {
		name   string
		failed bool
		want   float64
	}{
		{"harvest", false, score},
		{"simulation failure", true, 0},
	}

	action := mat.NewVecDense(1, []float64{0})
	for _, test := range tests {
		step := &timestep.TimeStep{
			StepType: timestep.Last,
			Info: timestep.Info{
				State:            final.Clone(),
				SimulationFailed: test.failed,
			},
		}
		if err := stage.AfterStep(prev, action, step); err != nil {
			t.Fatal(err)
		}
		if step.Extrinsic != test.want {
			t.Errorf("%v: reward = %v, want %v", test.name, step.Extrinsic,
				test.want)
		}
	}
}
