// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either  first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType denotes the way in which an episode ended
type EndType int

const (
	// Unknown is the end type of any episode that has not ended
	Unknown EndType = iota

	// Harvest denotes that the simulator declared the crop harvested
	Harvest

	// Horizon denotes that the season horizon was reached
	Horizon

	// SimulationFailure denotes that the simulator could not advance
	// and the episode was forcibly terminated
	SimulationFailure
)

func (e EndType) String() string {
	switch e {
	case Harvest:
		return "Harvest"
	case Horizon:
		return "Horizon"
	case SimulationFailure:
		return "SimulationFailure"
	default:
		return "Unknown"
	}
}

// Info holds auxiliary data about a timestep that the learner does not
// observe directly
type Info struct {
	// Date is the simulated calendar date at the end of the step
	Date time.Time

	// State is a snapshot of the raw simulator state at the end of the
	// step. It is never shared between timesteps.
	State State

	// Amount is the nitrogen applied on the step, in kg N/ha
	Amount float64

	// SimulationFailed is true if the simulator could not advance and
	// Err holds the reason
	SimulationFailed bool
	Err              error
}

// TimeStep packages together a single timestep in an environment.
//
// Reward is the reward the learner consumes. When an intrinsic bonus is
// added to the reward, Extrinsic and Intrinsic hold the two parts so that
// Reward = Extrinsic + β·Intrinsic. Cost holds one constraint cost per
// cost channel and is never folded into Reward.
type TimeStep struct {
	StepType    StepType
	Reward      float64
	Extrinsic   float64
	Intrinsic   float64
	Cost        []float64
	Discount    float64
	Observation *mat.VecDense
	Number      int
	Info        Info

	endType EndType
}

// New constructs a new TimeStep
func New(t StepType, r, d float64, o *mat.VecDense, n int) TimeStep {
	return TimeStep{
		StepType:    t,
		Reward:      r,
		Extrinsic:   r,
		Discount:    d,
		Observation: o,
		Number:      n,
	}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

// SetEnd sets the way in which the episode ended
func (t *TimeStep) SetEnd(e EndType) {
	t.endType = e
}

// EndType returns how the episode ended. If the TimeStep is not the last
// in the episode, Unknown is returned.
func (t *TimeStep) EndType() EndType {
	if !t.Last() {
		return Unknown
	}
	return t.endType
}

// TotalCost returns the sum of all cost channels on the timestep
func (t *TimeStep) TotalCost() float64 {
	var total float64
	for _, c := range t.Cost {
		total += c
	}
	return total
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Cost: %v  |  " +
		"Discount: %.2f  |  Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Cost, t.Discount,
		t.Number)
}
