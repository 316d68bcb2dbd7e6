// Package environment outlines the interfaces and structs needed to
// implement concrete crop environments and the errors they report
package environment

import (
	"github.com/cropgym/cropgym-go/timestep"
	"gonum.org/v1/gonum/mat"
)

// Starter implements a distribution of starting conditions and samples
// starting conditions for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when an episode should end. If End returns true, it
// must also set the StepType of the argument timestep to timestep.Last.
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Environment implements a simulated environment.
//
// Reset reinitialises all internal state and returns the first
// timestep of a new episode. Step takes a single action and returns the
// next timestep and whether the episode has ended. A Step that cannot
// be completed because the action was invalid returns a non-nil error
// and leaves the environment untouched.
type Environment interface {
	Reset() (timestep.TimeStep, error)
	Step(action *mat.VecDense) (timestep.TimeStep, bool, error)
	ObservationSpec() Spec
	ActionSpec() Spec
	CostSpec() Spec
	DiscountSpec() Spec
}
