package reward

import (
	"math"
	"testing"

	"github.com/cropgym/cropgym-go/environment/crop"
	"github.com/cropgym/cropgym-go/nitrogen"
	"github.com/cropgym/cropgym-go/timestep"
	"gonum.org/v1/gonum/mat"
)

// episode runs a full season with a fixed schedule of fertilizer levels
// and returns the raw state after every step, starting with the reset
// state
func episode(t *testing.T, schedule []float64) ([]timestep.State,
	[]float64) {
	t.Helper()
	env, err := crop.NewDefault(crop.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	step, err := env.Reset()
	if err != nil {
		t.Fatal(err)
	}

	states := []timestep.State{step.Info.State}
	var levels []float64
	for i := 0; !step.Last(); i++ {
		level := 0.0
		if i < len(schedule) {
			level = schedule[i]
		}
		step, _, err = env.Step(mat.NewVecDense(1, []float64{level}))
		if err != nil {
			t.Fatal(err)
		}
		states = append(states, step.Info.State)
		levels = append(levels, level)
	}
	return states, levels
}

func TestSeasonRoundTrip(t *testing.T) {
	states, levels := episode(t, []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 6, 0, 0, 0, 0, 0, 4, 0, 0, 0, 3})
	first, final := states[0], states[len(states)-1]

	var amount, applications float64
	for _, l := range levels {
		amount += l
		if l > 0 {
			applications++
		}
	}

	tests := []struct {
		kind Kind
		want float64
	}{
		{GRO, final[crop.TWSO] - first[crop.TWSO] - 10*amount},
		{DEP, final[crop.TWSO] - first[crop.TWSO] - 10*amount -
			10*applications},
		{NUP, final[crop.NuptakeTotal] - first[crop.NuptakeTotal] -
			10*amount},
		{HAR, -10*amount - final[crop.NLOSSCUM]},
		{FIN, final[crop.TWSO]*GrainPrice - amount*10*NitrogenPrice},
		{END, final[crop.TWSO] - 10*amount},
		{NUE, 100*SeasonScore(final) - 10*applications},
	}

	channels := []Channel{Surplus, Loss, Applied, Applications}
	for _, test := range tests {
		c := DefaultConfig(test.kind)
		c.Channels = channels
		s, err := New(c)
		if err != nil {
			t.Fatal(err)
		}

		var total float64
		costs := make([]float64, len(channels))
		for i := range levels {
			last := i == len(levels)-1
			r, cost := s.Compute(states[i], levels[i], states[i+1], last)
			if len(cost) != len(channels) {
				t.Fatalf("%v: got %v costs, want %v", test.kind, len(cost),
					len(channels))
			}
			total += r
			for j := range cost {
				costs[j] += cost[j]
			}
		}

		if math.Abs(total-test.want) > 1e-6 {
			t.Errorf("%v: episode reward = %v, want %v", test.kind, total,
				test.want)
		}

		surplus := nitrogen.Surplus(final[crop.Napplied], final[crop.Ndepo],
			final[crop.NamountSO])
		want := []float64{surplus, final[crop.NLOSSCUM], amount * 10,
			applications}
		for j := range want {
			if math.Abs(costs[j]-want[j]) > 1e-6 {
				t.Errorf("%v: episode %v cost = %v, want %v", test.kind,
					channels[j], costs[j], want[j])
			}
		}
	}
}

func TestRewardCostSeparate(t *testing.T) {
	// Changing the cost channels must not change the reward
	states, levels := episode(t, []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 8, 8, 8})

	bare := DefaultConfig(NUE)
	bare.Channels = nil
	withCosts := DefaultConfig(NUE)

	a, err := New(bare)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(withCosts)
	if err != nil {
		t.Fatal(err)
	}
	for i := range levels {
		last := i == len(levels)-1
		ra, ca := a.Compute(states[i], levels[i], states[i+1], last)
		rb, cb := b.Compute(states[i], levels[i], states[i+1], last)
		if ra != rb {
			t.Fatalf("step %v: rewards %v and %v differ", i, ra, rb)
		}
		if len(ca) != 0 || len(cb) != 1 {
			t.Fatalf("step %v: unexpected cost lengths %v, %v", i, len(ca),
				len(cb))
		}
	}
}

func TestParse(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("parseKind(%v) = %v, %v", k, got, err)
		}
	}
	if k, err := ParseKind("nue"); err != nil || k != NUE {
		t.Errorf("parseKind should ignore case")
	}
	if _, err := ParseKind("ANE"); err == nil {
		t.Errorf("parseKind should reject unknown rewards")
	}

	channels, err := ParseChannels([]string{"surplus", "Loss"})
	if err != nil || len(channels) != 2 || channels[0] != Surplus ||
		channels[1] != Loss {
		t.Errorf("parseChannels = %v, %v", channels, err)
	}
	if _, err := ParseChannels([]string{"loss", "loss"}); err == nil {
		t.Errorf("parseChannels should reject duplicates")
	}
}

func TestValidate(t *testing.T) {
	c := DefaultConfig(GRO)
	c.CostsNitrogen = -1
	if _, err := New(c); err == nil {
		t.Errorf("negative nitrogen costs should be rejected")
	}
	c = DefaultConfig(GRO)
	c.Kind = Kind(100)
	if _, err := New(c); err == nil {
		t.Errorf("unknown kinds should be rejected")
	}
}
