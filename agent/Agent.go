// Package agent defines the policies and learners that act in crop
// environments and the statistics they report
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cropgym/cropgym-go/timestep"
	"gonum.org/v1/gonum/mat"
)

// Kind selects a learning algorithm
type Kind int

const (
	// PPO is proximal policy optimization, which ignores constraint
	// costs
	PPO Kind = iota

	// LagPPO is PPO with a Lagrangian relaxation of the cost budgets
	LagPPO
)

var kindNames = map[Kind]string{
	PPO:    "PPO",
	LagPPO: "LagPPO",
}

// ParseKind parses the name of an agent, ignoring case
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("parseKind: unknown agent %q", name)
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Constrained returns whether the agent adapts its Lagrange multipliers
func (k Kind) Constrained() bool {
	return k == LagPPO
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. A Policy must not be
// shared between goroutines unless it documents otherwise.
type Policy interface {
	SelectAction(t timestep.TimeStep) *mat.VecDense
}

// Learner implements an iterative learning algorithm. Each iteration
// collects experience with the current policy and updates it.
type Learner interface {
	// Iterate performs a single iteration
	Iterate(ctx context.Context) (Stats, error)

	// Iteration returns the number of completed iterations
	Iteration() int

	// Steps returns the number of environment steps taken so far
	Steps() int

	// Greedy returns a deterministic policy acting with a snapshot of
	// the learner's current weights
	Greedy() Policy
}

// EpisodeStats summarizes a single episode
type EpisodeStats struct {
	Worker int
	Year   int
	Length int
	End    timestep.EndType

	// Return is the undiscounted sum of the rewards used for learning,
	// which is the sum of the extrinsic and scaled intrinsic rewards
	Return    float64
	Extrinsic float64
	Intrinsic float64

	// Cost is the undiscounted sum of each cost channel
	Cost []float64

	// Final is the raw simulator state at the end of the episode
	Final timestep.State
}

// Stats summarizes a single learning iteration
type Stats struct {
	Iteration int
	Steps     int

	// Episodes are the episodes completed during the iteration
	Episodes []EpisodeStats

	PolicyLoss float64
	ValueLoss  float64
	CostLoss   []float64
	Entropy    float64

	// Multipliers are the Lagrange multipliers after the iteration
	Multipliers []float64

	// MeanCost is the mean episode cost of each channel over the
	// completed episodes
	MeanCost []float64

	// Beta is the intrinsic bonus coefficient used during collection
	Beta float64

	// SimulationFailures counts episodes ended by simulator failures
	SimulationFailures int
}

// MeanExtrinsic returns the mean extrinsic return of the completed
// episodes, and false if there were none
func (s Stats) MeanExtrinsic() (float64, bool) {
	if len(s.Episodes) == 0 {
		return 0, false
	}
	var total float64
	for _, e := range s.Episodes {
		total += e.Extrinsic
	}
	return total / float64(len(s.Episodes)), true
}
