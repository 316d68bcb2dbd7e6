// Package config holds the configuration of a training run. A run is
// configured from (highest to lowest priority):
//  1. Command-line flags
//  2. A YAML configuration file
//  3. Environment variables (CROPGYM_*), which may come from a .env file
//  4. Defaults
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cropgym/cropgym-go/agent"
	"github.com/cropgym/cropgym-go/agent/lagppo"
	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/environment/crop"
	"github.com/cropgym/cropgym-go/environment/wrappers"
	"github.com/cropgym/cropgym-go/experiment"
	"github.com/cropgym/cropgym-go/intrinsic"
	"github.com/cropgym/cropgym-go/reward"
	"gonum.org/v1/gonum/spatial/r1"
	"gopkg.in/yaml.v3"
)

// Environment variables providing defaults for directories
const (
	WeatherDirEnv = "CROPGYM_WEATHER_DIR"
	OutputDirEnv  = "CROPGYM_OUTPUT_DIR"
)

// Config holds the configuration of a training run
type Config struct {
	// Reward is the name of the reward function, e.g. NUE
	Reward string `yaml:"reward"`

	// Environment selects the crop model variant: 0, 1 or 2
	Environment string `yaml:"environment"`

	// Agent is the name of the learning algorithm, PPO or LagPPO
	Agent string `yaml:"agent"`

	Seed  uint64 `yaml:"seed"`
	Steps int    `yaml:"nsteps"`

	RandomWeather bool `yaml:"random-weather"`
	RandomInit    bool `yaml:"random-init"`

	// IRS is the name of the intrinsic reward, none, E3B or ICM
	IRS string `yaml:"irs"`

	WeatherDir string `yaml:"weather-dir"`
	Output     string `yaml:"output"`

	// CostsNitrogen is the reward penalty per fertilizer level
	CostsNitrogen float64 `yaml:"costs-nitrogen"`

	// CostChannels and Budgets configure the constraints. When empty,
	// the defaults of the reward function are used.
	CostChannels []string  `yaml:"cost-channels"`
	Budgets      []float64 `yaml:"budgets"`

	EvalFreq         int           `yaml:"eval-freq"`
	CheckpointEvery  int           `yaml:"checkpoint-every"`
	MaxIterationTime time.Duration `yaml:"max-iteration-time"`

	Crop          CropConfig          `yaml:"crop"`
	Randomization RandomizationConfig `yaml:"randomization"`
	LagPPO        lagppo.Config       `yaml:"lagppo"`
	Intrinsic     intrinsic.Config    `yaml:"intrinsic"`
}

// CropConfig configures the crop environment
type CropConfig struct {
	TimeStep   int     `yaml:"timestep"`
	Horizon    int     `yaml:"horizon"`
	Levels     int     `yaml:"levels"`
	KgPerLevel float64 `yaml:"kg-per-level"`
}

// RandomizationConfig holds the bounds of the initial condition
// perturbations
type RandomizationConfig struct {
	NAVAILI   r1.Interval `yaml:"navaili"`
	SMI       r1.Interval `yaml:"smi"`
	SowOffset r1.Interval `yaml:"sow-offset"`
}

// Default returns the default configuration: LagPPO on the NUE reward
// with the SNOMIN crop model and no randomization or intrinsic reward
func Default() Config {
	c := crop.DefaultConfig()
	r := wrappers.DefaultRandomizationConfig()
	return Config{
		Reward:          reward.NUE.String(),
		Environment:     "2",
		Agent:           agent.LagPPO.String(),
		Seed:            0,
		Steps:           3_000_000,
		IRS:             intrinsic.None.String(),
		Output:          "results",
		CostsNitrogen:   10,
		EvalFreq:        10,
		CheckpointEvery: 10,
		Crop: CropConfig{
			TimeStep:   c.TimeStep,
			Horizon:    c.Horizon,
			Levels:     c.Levels,
			KgPerLevel: c.KgPerLevel,
		},
		Randomization: RandomizationConfig{
			NAVAILI:   r.NAVAILI,
			SMI:       r.SMI,
			SowOffset: r.SowOffset,
		},
		LagPPO:    lagppo.DefaultConfig(agent.LagPPO),
		Intrinsic: intrinsic.DefaultConfig(intrinsic.E3B),
	}
}

// ApplyEnv fills empty directories from the environment
func (c *Config) ApplyEnv() {
	if dir := os.Getenv(WeatherDirEnv); dir != "" && c.WeatherDir == "" {
		c.WeatherDir = dir
	}
	if dir := os.Getenv(OutputDirEnv); dir != "" {
		c.Output = dir
	}
}

// Decode overrides the fields of c present in a YAML document. Unknown
// fields are a configuration error.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return &environment.ConfigurationError{Field: "config", Err: err}
	}
	return nil
}

// Load reads the YAML file filename over c
func (c *Config) Load(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return &environment.ConfigurationError{Field: "config", Err: err}
	}
	return c.Decode(bytes.NewReader(data))
}

// Encode writes c as YAML
func (c Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return enc.Close()
}

// Kinds holds the typed variants a Config resolves to
type Kinds struct {
	Reward    reward.Kind
	Agent     agent.Kind
	Intrinsic intrinsic.Kind
	Variant   crop.Variant
	Channels  []reward.Channel
}

// Kinds parses the names of the Config's variants
func (c Config) Kinds() (Kinds, error) {
	var (
		k   Kinds
		err error
	)
	if k.Reward, err = reward.ParseKind(c.Reward); err != nil {
		return Kinds{}, &environment.ConfigurationError{Field: "reward",
			Err: err}
	}
	if k.Agent, err = agent.ParseKind(c.Agent); err != nil {
		return Kinds{}, &environment.ConfigurationError{Field: "agent",
			Err: err}
	}
	if k.Intrinsic, err = intrinsic.ParseKind(c.IRS); err != nil {
		return Kinds{}, &environment.ConfigurationError{Field: "irs", Err: err}
	}
	if k.Variant, err = crop.ParseVariant(c.Environment); err != nil {
		return Kinds{}, &environment.ConfigurationError{Field: "environment",
			Err: err}
	}

	k.Channels = reward.DefaultChannels(k.Reward)
	if len(c.CostChannels) > 0 {
		if k.Channels, err = reward.ParseChannels(c.CostChannels); err != nil {
			return Kinds{}, &environment.ConfigurationError{
				Field: "cost-channels", Err: err}
		}
	}
	return k, nil
}

// Validate validates a Config. Every error is a
// *environment.ConfigurationError.
func (c Config) Validate() error {
	k, err := c.Kinds()
	if err != nil {
		return err
	}
	if c.Steps <= 0 {
		return environment.NewConfigurationError("nsteps",
			"must be positive, got %v", c.Steps)
	}
	if c.RandomWeather && c.WeatherDir == "" {
		return environment.NewConfigurationError("weather-dir",
			"random weather requires a weather directory (flag or %v)",
			WeatherDirEnv)
	}
	if c.EvalFreq < 0 || c.CheckpointEvery < 0 || c.MaxIterationTime < 0 {
		return environment.NewConfigurationError("eval-freq",
			"evaluation and checkpoint frequencies and the iteration time "+
				"limit must be non-negative")
	}
	if len(c.Budgets) > 0 && len(c.Budgets) != len(k.Channels) {
		return environment.NewConfigurationError("budget",
			"have %v budgets for %v cost channels", len(c.Budgets),
			len(k.Channels))
	}

	if err := c.CropConfig(k).Validate(); err != nil {
		return err
	}
	if err := c.RewardConfig(k).Validate(); err != nil {
		return err
	}
	if err := c.AgentConfig(k).Validate(); err != nil {
		return err
	}
	return c.IntrinsicConfig(k).Validate()
}

// CropConfig returns the configuration of the crop environment
func (c Config) CropConfig(k Kinds) crop.Config {
	cc := crop.DefaultConfig()
	cc.Variant = k.Variant
	cc.TimeStep = c.Crop.TimeStep
	cc.Horizon = c.Crop.Horizon
	cc.Levels = c.Crop.Levels
	cc.KgPerLevel = c.Crop.KgPerLevel
	return cc
}

// RewardConfig returns the configuration of the reward selector
func (c Config) RewardConfig(k Kinds) reward.Config {
	rc := reward.DefaultConfig(k.Reward)
	rc.CostsNitrogen = c.CostsNitrogen
	rc.KgPerLevel = c.Crop.KgPerLevel
	rc.Channels = k.Channels
	return rc
}

// AgentConfig returns the configuration of the agent, with the default
// budgets of the cost channels if none are configured
func (c Config) AgentConfig(k Kinds) lagppo.Config {
	ac := c.LagPPO
	ac.Kind = k.Agent
	ac.Budgets = c.Budgets
	if len(ac.Budgets) == 0 {
		ac.Budgets = reward.DefaultBudgets(k.Channels)
	}
	return ac
}

// IntrinsicConfig returns the configuration of the intrinsic reward
func (c Config) IntrinsicConfig(k Kinds) intrinsic.Config {
	ic := c.Intrinsic
	ic.Kind = k.Intrinsic
	return ic
}

// ExperimentConfig returns the configuration of the training loop
func (c Config) ExperimentConfig() experiment.Config {
	return experiment.Config{
		MaxSteps:         c.Steps,
		MaxIterationTime: c.MaxIterationTime,
		MaxDivergences:   c.LagPPO.MaxDivergences,
		EvalFreq:         c.EvalFreq,
	}
}
