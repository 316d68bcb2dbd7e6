// Package wrappers implements environment wrappers as an ordered
// pipeline of stages applied around a single inner environment.
package wrappers

import (
	"fmt"

	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/timestep"
	"gonum.org/v1/gonum/mat"
)

// Stage transforms the resets and steps of an inner environment. Stages
// are applied in order: on reset, every stage's BeforeReset is called
// before the inner environment is reset and every AfterReset afterwards;
// on a step, every AfterStep is called on the inner environment's
// timestep. A stage sees the timestep as modified by the stages before
// it.
type Stage interface {
	// BeforeReset prepares the inner environment for a reset
	BeforeReset(inner environment.Environment) error

	// AfterReset may modify the first timestep of an episode
	AfterReset(step *timestep.TimeStep) error

	// AfterStep may modify the timestep reached by taking action in
	// the previous timestep prev
	AfterStep(prev *timestep.TimeStep, action *mat.VecDense,
		step *timestep.TimeStep) error

	// CostSpec returns the cost specification after the stage given the
	// cost specification before it
	CostSpec(environment.Spec) environment.Spec
}

// Pipeline wraps an environment with an explicit ordered list of stages.
// Pipeline itself implements the environment.Environment interface.
type Pipeline struct {
	inner  environment.Environment
	stages []Stage
	last   timestep.TimeStep
}

// NewPipeline returns a new Pipeline applying stages around inner
func NewPipeline(inner environment.Environment, stages ...Stage) *Pipeline {
	return &Pipeline{inner: inner, stages: stages}
}

// Reset implements the environment.Environment interface
func (p *Pipeline) Reset() (timestep.TimeStep, error) {
	for i, stage := range p.stages {
		if err := stage.BeforeReset(p.inner); err != nil {
			return timestep.TimeStep{}, fmt.Errorf("reset: stage %d: %w", i,
				err)
		}
	}

	step, err := p.inner.Reset()
	if err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %w", err)
	}

	for i, stage := range p.stages {
		if err := stage.AfterReset(&step); err != nil {
			return timestep.TimeStep{}, fmt.Errorf("reset: stage %d: %w", i,
				err)
		}
	}

	p.last = step
	return step, nil
}

// Step implements the environment.Environment interface. Errors of the
// inner environment are returned unwrapped so that callers can inspect
// their type.
func (p *Pipeline) Step(action *mat.VecDense) (timestep.TimeStep, bool,
	error) {
	step, _, err := p.inner.Step(action)
	if err != nil {
		return step, step.Last(), err
	}

	for i, stage := range p.stages {
		if err := stage.AfterStep(&p.last, action, &step); err != nil {
			return step, step.Last(), fmt.Errorf("step: stage %d: %w", i,
				err)
		}
	}

	p.last = step
	return step, step.Last(), nil
}

// Inner returns the wrapped environment
func (p *Pipeline) Inner() environment.Environment {
	return p.inner
}

// Stages returns the stages of the pipeline in order
func (p *Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// ObservationSpec implements the environment.Environment interface
func (p *Pipeline) ObservationSpec() environment.Spec {
	return p.inner.ObservationSpec()
}

// ActionSpec implements the environment.Environment interface
func (p *Pipeline) ActionSpec() environment.Spec {
	return p.inner.ActionSpec()
}

// CostSpec implements the environment.Environment interface
func (p *Pipeline) CostSpec() environment.Spec {
	spec := p.inner.CostSpec()
	for _, stage := range p.stages {
		spec = stage.CostSpec(spec)
	}
	return spec
}

// DiscountSpec implements the environment.Environment interface
func (p *Pipeline) DiscountSpec() environment.Spec {
	return p.inner.DiscountSpec()
}
