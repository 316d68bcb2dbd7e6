package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cropgym/cropgym-go/agent"
	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/environment/weather"
	"github.com/cropgym/cropgym-go/intrinsic"
	"github.com/cropgym/cropgym-go/reward"
)

// small returns a configuration of a short run
func small() Config {
	c := Default()
	c.Steps = 48
	c.Crop.Horizon = 6
	c.LagPPO.StepsPerUpdate = 24
	c.LagPPO.NumWorkers = 2
	c.LagPPO.MinibatchSize = 8
	c.LagPPO.Epochs = 1
	c.LagPPO.Hidden = []int{8}
	c.Intrinsic.EmbeddingSize = 4
	c.Intrinsic.Hidden = []int{8}
	c.Intrinsic.BatchSize = 8
	return c
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
	k, err := Default().Kinds()
	if err != nil {
		t.Fatal(err)
	}
	if k.Reward != reward.NUE || k.Agent != agent.LagPPO ||
		k.Intrinsic != intrinsic.None {
		t.Errorf("default kinds = %+v", k)
	}
	if len(k.Channels) != 1 || k.Channels[0] != reward.Surplus {
		t.Errorf("default channels = %v, want [surplus]", k.Channels)
	}
	budgets := Default().AgentConfig(k).Budgets
	if len(budgets) != 1 || budgets[0] != 40 {
		t.Errorf("default budgets = %v, want [40]", budgets)
	}
}

func TestDecode(t *testing.T) {
	doc := `
reward: GRO
agent: ppo
irs: E3B
nsteps: 1000
max-iteration-time: 2m
cost-channels: [loss, applied]
budgets: [10, 100]
lagppo:
  epochs: 3
  hidden: [32, 32]
  solver:
    step-size: 0.0003
randomization:
  navaili: {min: 5, max: 15}
`
	c := Default()
	if err := c.Decode(strings.NewReader(doc)); err != nil {
		t.Fatal(err)
	}
	if c.Reward != "GRO" || c.Steps != 1000 || c.IRS != "E3B" {
		t.Errorf("decoded %+v", c)
	}
	if c.MaxIterationTime != 2*time.Minute {
		t.Errorf("max iteration time = %v, want 2m", c.MaxIterationTime)
	}
	if c.LagPPO.Epochs != 3 || len(c.LagPPO.Hidden) != 2 {
		t.Errorf("decoded agent config %+v", c.LagPPO)
	}
	if c.LagPPO.Solver.StepSize != 0.0003 || c.LagPPO.Solver.Beta1 != 0.9 {
		t.Errorf("solver config %+v should override only the step size",
			c.LagPPO.Solver)
	}
	if c.Randomization.NAVAILI.Min != 5 || c.Randomization.NAVAILI.Max != 15 {
		t.Errorf("navaili bounds %v", c.Randomization.NAVAILI)
	}
	if c.LagPPO.StepsPerUpdate != Default().LagPPO.StepsPerUpdate {
		t.Errorf("unset fields should keep their defaults")
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}

	// Round trip through YAML
	var buf bytes.Buffer
	if err := c.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	other := Default()
	if err := other.Decode(&buf); err != nil {
		t.Fatal(err)
	}
	if other.MaxIterationTime != c.MaxIterationTime ||
		other.LagPPO.Epochs != c.LagPPO.Epochs {
		t.Errorf("config changed in a YAML round trip")
	}
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"reward", func(c *Config) { c.Reward = "YIELD" }, "reward"},
		{"agent", func(c *Config) { c.Agent = "SAC" }, "agent"},
		{"irs", func(c *Config) { c.IRS = "RND" }, "irs"},
		{"environment", func(c *Config) { c.Environment = "3" },
			"environment"},
		{"steps", func(c *Config) { c.Steps = 0 }, "nsteps"},
		{"weather", func(c *Config) { c.RandomWeather = true }, "weather-dir"},
		{"budgets", func(c *Config) { c.Budgets = []float64{1, 2} }, "budget"},
		{"channel", func(c *Config) { c.CostChannels = []string{"water"} },
			"cost-channels"},
		{"workers", func(c *Config) { c.LagPPO.NumWorkers = 5 }, "workers"},
	}

	for _, test := range tests {
		c := Default()
		test.modify(&c)
		err := c.Validate()

		var configErr *environment.ConfigurationError
		if !errors.As(err, &configErr) {
			t.Errorf("%v: expected ConfigurationError, got %v", test.name, err)
			continue
		}
		if configErr.Field != test.field {
			t.Errorf("%v: error field = %v, want %v", test.name,
				configErr.Field, test.field)
		}
	}
}

func TestUnknownField(t *testing.T) {
	c := Default()
	err := c.Decode(strings.NewReader("learning-rate: 0.1\n"))
	var configErr *environment.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(WeatherDirEnv, "/data/weather")
	t.Setenv(OutputDirEnv, "/data/out")

	c := Default()
	c.ApplyEnv()
	if c.WeatherDir != "/data/weather" || c.Output != "/data/out" {
		t.Errorf("directories = %v, %v", c.WeatherDir, c.Output)
	}

	c = Default()
	c.WeatherDir = "/mine"
	c.ApplyEnv()
	if c.WeatherDir != "/mine" {
		t.Errorf("a configured weather directory should be kept")
	}
}

func TestBuildMissingWeather(t *testing.T) {
	c := small()
	c.RandomWeather = true
	c.WeatherDir = filepath.Join(t.TempDir(), "missing")

	_, err := Build(c)
	var configErr *environment.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestBuildWithWeather(t *testing.T) {
	dir := t.TempDir()
	for _, year := range []int{3002, 3003} {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("%d.csv", year)))
		if err != nil {
			t.Fatal(err)
		}
		if err := weather.WriteCSV(f, weather.Nominal(year)); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}

	c := small()
	c.RandomWeather = true
	c.RandomInit = true
	c.WeatherDir = dir
	c.IRS = "E3B"
	run, err := Build(c)
	if err != nil {
		t.Fatal(err)
	}
	if run.Pool.Len() != 2 {
		t.Errorf("pool has %v seasons, want 2", run.Pool.Len())
	}
	stats, err := run.Learner.Iterate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range stats.Episodes {
		if e.Year != 3002 && e.Year != 3003 {
			t.Errorf("episode in year %v outside of the pool", e.Year)
		}
	}
}

func TestResume(t *testing.T) {
	c := small()
	run, err := Build(c)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := run.Learner.Iterate(context.Background()); err != nil {
		t.Fatal(err)
	}
	filename := filepath.Join(t.TempDir(), "checkpoint.bin")
	if err := run.Save(filename); err != nil {
		t.Fatal(err)
	}

	chk, err := LoadCheckpoint(filename)
	if err != nil {
		t.Fatal(err)
	}
	resumed, err := chk.Resume(chk.Config)
	if err != nil {
		t.Fatal(err)
	}
	if resumed.Learner.Iteration() != 1 {
		t.Errorf("resumed at iteration %v, want 1", resumed.Learner.Iteration())
	}
	if !resumed.Learner.PolicyWeights().Equal(run.Learner.PolicyWeights()) {
		t.Errorf("resumed policy weights differ")
	}

	other := chk.Config
	other.Seed++
	if _, err := chk.Resume(other); err == nil {
		t.Errorf("resuming with another seed should fail")
	}
}
