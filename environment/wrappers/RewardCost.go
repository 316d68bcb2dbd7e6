package wrappers

import (
	"math"

	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/reward"
	"github.com/cropgym/cropgym-go/timestep"
	"gonum.org/v1/gonum/mat"
)

// RewardCost is a Stage which sets the reward and the constraint costs
// of each timestep from the raw simulator states before and after the
// step. The reward is also recorded as the timestep's extrinsic reward.
type RewardCost struct {
	selector *reward.Selector
}

// NewRewardCost returns a new RewardCost stage using selector
func NewRewardCost(selector *reward.Selector) *RewardCost {
	return &RewardCost{selector}
}

// BeforeReset implements the Stage interface
func (r *RewardCost) BeforeReset(environment.Environment) error {
	return nil
}

// AfterReset implements the Stage interface
func (r *RewardCost) AfterReset(step *timestep.TimeStep) error {
	step.Reward = 0
	step.Extrinsic = 0
	step.Cost = make([]float64, len(r.selector.Channels()))
	return nil
}

// AfterStep implements the Stage interface. A season cut short by a
// simulator failure earns no end-of-season reward.
func (r *RewardCost) AfterStep(prev *timestep.TimeStep, action *mat.VecDense,
	step *timestep.TimeStep) error {
	completed := step.Last() && !step.Info.SimulationFailed
	rew, cost := r.selector.Compute(prev.Info.State, action.AtVec(0),
		step.Info.State, completed)
	step.Reward = rew
	step.Extrinsic = rew
	step.Cost = cost
	return nil
}

// CostSpec implements the Stage interface. The returned spec has one
// dimension per cost channel, labelled with the channel's name.
func (r *RewardCost) CostSpec(environment.Spec) environment.Spec {
	channels := r.selector.Channels()
	n := len(channels)
	if n == 0 {
		return environment.Spec{Type: environment.Cost,
			Cardinality: environment.Continuous}
	}

	lower := make([]float64, n)
	upper := make([]float64, n)
	labels := make([]string, n)
	for i, c := range channels {
		lower[i] = math.Inf(-1)
		upper[i] = math.Inf(1)
		labels[i] = c.String()
	}
	return environment.NewSpec(mat.NewVecDense(n, nil), environment.Cost,
		mat.NewVecDense(n, lower), mat.NewVecDense(n, upper),
		environment.Continuous).WithLabels(labels...)
}

// Selector returns the reward and cost selector of the stage
func (r *RewardCost) Selector() *reward.Selector {
	return r.selector
}
