// Package solver implements gradient descent solvers for Gorgonia
// networks. Solvers can be described in configuration files and their
// state can be saved to and restored from checkpoints.
package solver

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
)

// Solver is a Gorgonia Solver whose internal state can be checkpointed.
// Before each step, the gradients of the model are scaled so that their
// global L2 norm is at most the configured maximum. After each step the
// gradients of the model are zero, so that the next pass of the tape
// machine starts accumulating from scratch.
type Solver interface {
	G.Solver

	// State returns a deep copy of the solver's internal state
	State() State

	// SetState restores the solver's internal state
	SetState(State) error
}

// State is the internal state of a Solver. M and V hold the first and
// second moment estimates of each learnable for solvers that use them.
type State struct {
	Type Type
	Step int
	M    [][]float64
	V    [][]float64
}

// Clone returns a deep copy of the State
func (s State) Clone() State {
	return State{Type: s.Type, Step: s.Step, M: clone2D(s.M), V: clone2D(s.V)}
}

// Config describes a Solver
type Config struct {
	Type     Type    `yaml:"type"`
	StepSize float64 `yaml:"step-size"`

	// Adam hyperparameters
	Epsilon float64 `yaml:"epsilon"`
	Beta1   float64 `yaml:"beta1"`
	Beta2   float64 `yaml:"beta2"`

	// MaxGradNorm bounds the global L2 norm of the gradients, <= 0 if
	// no clipping
	MaxGradNorm float64 `yaml:"max-grad-norm"`

	// Clip clamps each gradient element to [-Clip, Clip] after the norm
	// is bounded, 0 if no clipping
	Clip float64 `yaml:"clip"`
}

// DefaultConfig returns the configuration of an Adam solver with the
// given step size
func DefaultConfig(stepSize float64) Config {
	return Config{
		Type:        Adam,
		StepSize:    stepSize,
		Epsilon:     1e-8,
		Beta1:       0.9,
		Beta2:       0.999,
		MaxGradNorm: 0.5,
	}
}

// Validate validates a Config
func (c Config) Validate() error {
	if c.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive, got %v",
			c.StepSize)
	}
	if c.Clip < 0 {
		return fmt.Errorf("validate: clip must be non-negative, got %v",
			c.Clip)
	}
	switch c.Type {
	case Adam:
		if c.Beta1 < 0 || c.Beta1 >= 1 || c.Beta2 < 0 || c.Beta2 >= 1 {
			return fmt.Errorf("validate: betas must be in [0, 1), got %v "+
				"and %v", c.Beta1, c.Beta2)
		}
		if c.Epsilon <= 0 {
			return fmt.Errorf("validate: epsilon must be positive, got %v",
				c.Epsilon)
		}
	case Vanilla:
	default:
		return fmt.Errorf("validate: unknown solver type %q", c.Type)
	}
	return nil
}

// Create returns a new Solver as described by the Config
func (c Config) Create() (Solver, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	if c.Clip < 0 {
		return nil, fmt.Errorf("validate: clip must be non-negative, got %v",
			c.Clip)
	}
	switch c.Type {
	case Adam:
		return newAdam(c), nil
	default:
		return newVanilla(c), nil
	}
}

// GradNorm returns the global L2 norm of the gradients of model. The
// norm is non-finite if any gradient is.
func GradNorm(model []G.ValueGrad) (float64, error) {
	var sq float64
	for i, vg := range model {
		grad, err := gradData(vg)
		if err != nil {
			return 0, fmt.Errorf("gradNorm: learnable %v: %w", i, err)
		}
		for _, g := range grad {
			sq += g * g
		}
	}
	return math.Sqrt(sq), nil
}

// clipGlobal scales the gradients of model in place so that their
// global L2 norm is at most maxNorm
func clipGlobal(model []G.ValueGrad, maxNorm float64) error {
	if maxNorm <= 0 {
		return nil
	}
	norm, err := GradNorm(model)
	if err != nil {
		return fmt.Errorf("clipGlobal: %w", err)
	}
	if norm <= maxNorm {
		return nil
	}

	scale := maxNorm / norm
	for _, vg := range model {
		grad, _ := gradData(vg)
		for i := range grad {
			grad[i] *= scale
		}
	}
	return nil
}

// gradData returns the backing data of a learnable's gradient
func gradData(vg G.ValueGrad) ([]float64, error) {
	grad, err := vg.Grad()
	if err != nil {
		return nil, err
	}
	data, ok := grad.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("gradData: unsupported gradient type %T",
			grad.Data())
	}
	return data, nil
}

// valueData returns the backing data of a learnable's value
func valueData(vg G.ValueGrad) ([]float64, error) {
	data, ok := vg.Value().Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("valueData: unsupported value type %T",
			vg.Value().Data())
	}
	return data, nil
}

func clone2D(x [][]float64) [][]float64 {
	if x == nil {
		return nil
	}
	c := make([][]float64, len(x))
	for i := range x {
		c[i] = append([]float64(nil), x[i]...)
	}
	return c
}
