// Package lagppo implements proximal policy optimization with a
// Lagrangian relaxation of constraint cost budgets.
//
// Each iteration collects a rollout with several parallel workers,
// estimates advantages of the reward and of each cost channel with
// GAE(λ), performs epochs of minibatch updates of a clipped surrogate
// objective on the Lagrangian advantage, regresses the value and cost
// critics, and finally updates the Lagrange multipliers by dual ascent.
package lagppo

import (
	"github.com/cropgym/cropgym-go/agent"
	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/initwfn"
	"github.com/cropgym/cropgym-go/network"
	"github.com/cropgym/cropgym-go/solver"
)

// Config implements a configuration of a LagPPO agent
type Config struct {
	Kind agent.Kind `yaml:"-"`

	// StepsPerUpdate is the number of environment steps collected per
	// iteration, split evenly between NumWorkers workers
	StepsPerUpdate int `yaml:"n-steps"`
	NumWorkers     int `yaml:"workers"`

	MinibatchSize int `yaml:"batch-size"`
	Epochs        int `yaml:"epochs"`

	// Generalized advantage estimation
	Gamma  float64 `yaml:"gamma"`
	Lambda float64 `yaml:"gae-lambda"`

	Clip        float64 `yaml:"clip"`
	EntropyCoef float64 `yaml:"ent-coef"`

	// Policy and critic architecture
	Hidden     []int          `yaml:"hidden"`
	Activation string         `yaml:"activation"`
	InitWFn    initwfn.Config `yaml:"init"`
	Solver     solver.Config  `yaml:"solver"`

	// Dual ascent
	DualStepSize      float64   `yaml:"dual-step-size"`
	InitialMultiplier float64   `yaml:"initial-multiplier"`
	Budgets           []float64 `yaml:"budgets"`

	// MaxDivergences is the number of consecutive iterations with a
	// numerical divergence tolerated before training aborts
	MaxDivergences int `yaml:"max-divergences"`
}

// DefaultConfig returns the default configuration of an agent kind
func DefaultConfig(k agent.Kind) Config {
	return Config{
		Kind:              k,
		StepsPerUpdate:    2208,
		NumWorkers:        4,
		MinibatchSize:     276,
		Epochs:            10,
		Gamma:             1,
		Lambda:            0.95,
		Clip:              0.2,
		EntropyCoef:       0.01,
		Hidden:            []int{256, 256},
		Activation:        "tanh",
		InitWFn:           initwfn.DefaultConfig(),
		Solver:            solver.DefaultConfig(1e-3),
		DualStepSize:      0.01,
		InitialMultiplier: 0,
		MaxDivergences:    3,
	}
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if c.Kind != agent.PPO && c.Kind != agent.LagPPO {
		return environment.NewConfigurationError("agent",
			"unsupported agent %v", c.Kind)
	}
	if c.StepsPerUpdate <= 0 || c.NumWorkers <= 0 {
		return environment.NewConfigurationError("n-steps",
			"steps per update and workers must be positive")
	}
	if c.StepsPerUpdate%c.NumWorkers != 0 {
		return environment.NewConfigurationError("workers",
			"%v steps per update cannot be split between %v workers",
			c.StepsPerUpdate, c.NumWorkers)
	}
	if c.MinibatchSize <= 0 || c.StepsPerUpdate%c.MinibatchSize != 0 {
		return environment.NewConfigurationError("batch-size",
			"batch size %v must divide the %v steps per update",
			c.MinibatchSize, c.StepsPerUpdate)
	}
	if c.Epochs <= 0 {
		return environment.NewConfigurationError("epochs",
			"must be positive, got %v", c.Epochs)
	}
	if c.Gamma < 0 || c.Gamma > 1 || c.Lambda < 0 || c.Lambda > 1 {
		return environment.NewConfigurationError("gamma",
			"discount %v and GAE λ %v must be in [0, 1]", c.Gamma, c.Lambda)
	}
	if c.Clip <= 0 || c.Clip >= 1 {
		return environment.NewConfigurationError("clip",
			"must be in (0, 1), got %v", c.Clip)
	}
	if c.EntropyCoef < 0 {
		return environment.NewConfigurationError("ent-coef",
			"must be non-negative, got %v", c.EntropyCoef)
	}
	if _, err := network.Activations(c.Activation, len(c.Hidden)); err != nil {
		return &environment.ConfigurationError{Field: "activation", Err: err}
	}
	if err := c.InitWFn.Validate(); err != nil {
		return &environment.ConfigurationError{Field: "init", Err: err}
	}
	if err := c.Solver.Validate(); err != nil {
		return &environment.ConfigurationError{Field: "solver", Err: err}
	}
	if c.DualStepSize < 0 || c.InitialMultiplier < 0 {
		return environment.NewConfigurationError("dual-step-size",
			"dual step size and initial multiplier must be non-negative")
	}
	for i, b := range c.Budgets {
		if b < 0 {
			return environment.NewConfigurationError("budget",
				"budget %v is negative: %v", i, b)
		}
	}
	if c.MaxDivergences < 0 {
		return environment.NewConfigurationError("max-divergences",
			"must be non-negative, got %v", c.MaxDivergences)
	}
	return nil
}

// StepsPerWorker returns the number of steps each worker collects per
// iteration
func (c Config) StepsPerWorker() int {
	return c.StepsPerUpdate / c.NumWorkers
}
