package timestep

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// State maps simulator variable names to their raw (unscaled) values
type State map[string]float64

// Clone returns a deep copy of the State
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	c := make(State, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Keys returns the variable names of the State in sorted order
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Transition is the unit exchanged between an environment and a learner:
// (state, action, reward, cost, next state, done, info). Construct with
// NewTransition, which copies its inputs so that a Transition never
// aliases a buffer owned by an environment.
type Transition struct {
	State     *mat.VecDense
	Action    *mat.VecDense
	Reward    float64
	Cost      []float64
	NextState *mat.VecDense
	Done      bool
	Info      Info
}

// NewTransition creates a Transition from the timestep in which an
// action was taken and the timestep that the action lead to
func NewTransition(step TimeStep, action *mat.VecDense,
	next TimeStep) Transition {
	var cost []float64
	if next.Cost != nil {
		cost = append([]float64(nil), next.Cost...)
	}

	info := next.Info
	info.State = next.Info.State.Clone()

	return Transition{
		State:     cloneVec(step.Observation),
		Action:    cloneVec(action),
		Reward:    next.Reward,
		Cost:      cost,
		NextState: cloneVec(next.Observation),
		Done:      next.Last(),
		Info:      info,
	}
}

func cloneVec(v *mat.VecDense) *mat.VecDense {
	if v == nil {
		return nil
	}
	return mat.VecDenseCopyOf(v)
}
