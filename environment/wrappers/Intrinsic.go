package wrappers

import (
	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/intrinsic"
	"github.com/cropgym/cropgym-go/timestep"
	"gonum.org/v1/gonum/mat"
)

// Intrinsic is a Stage which adds an exploration bonus to the reward of
// each timestep:
//
//	Reward = Extrinsic + β·Intrinsic
//
// The bonus itself is recorded as the timestep's Intrinsic reward. The
// stage must come after the stage which sets the extrinsic reward.
type Intrinsic struct {
	module  intrinsic.Module
	episode intrinsic.Episode
	beta    float64
}

// NewIntrinsic returns a new Intrinsic stage with coefficient beta
func NewIntrinsic(module intrinsic.Module, beta float64) *Intrinsic {
	return &Intrinsic{module: module, beta: beta}
}

// SetBeta sets the coefficient of the bonus
func (i *Intrinsic) SetBeta(beta float64) {
	i.beta = beta
}

// Beta returns the coefficient of the bonus
func (i *Intrinsic) Beta() float64 {
	return i.beta
}

// BeforeReset implements the Stage interface
func (i *Intrinsic) BeforeReset(environment.Environment) error {
	return nil
}

// AfterReset implements the Stage interface. Each episode starts with
// fresh episodic state taken from the module's current parameters.
func (i *Intrinsic) AfterReset(step *timestep.TimeStep) error {
	i.episode = i.module.NewEpisode()
	step.Intrinsic = 0
	return nil
}

// AfterStep implements the Stage interface
func (i *Intrinsic) AfterStep(prev *timestep.TimeStep, action *mat.VecDense,
	step *timestep.TimeStep) error {
	bonus := i.episode.Bonus(prev.Observation.RawVector().Data,
		action.RawVector().Data, step.Observation.RawVector().Data)
	step.Intrinsic = bonus
	step.Reward = step.Extrinsic + i.beta*bonus
	return nil
}

// CostSpec implements the Stage interface
func (i *Intrinsic) CostSpec(spec environment.Spec) environment.Spec {
	return spec
}
