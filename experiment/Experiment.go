// Package experiment implements functionality for running training
// experiments and evaluating the resulting policies
package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/cropgym/cropgym-go/experiment/tracker"
)

// Interface Experiment outlines structs that can run experiments.
// Experiments send the statistics of each training iteration to
// Trackers, which cache the data to be later saved to disk by Save.
// Run runs iterations until the step budget is exhausted or the
// context is cancelled. RunIteration runs a single iteration.
type Experiment interface {
	Run(ctx context.Context) error
	RunIteration(ctx context.Context) (bool, error)

	// Save all tracked data to disk
	Save() error

	// Adds a new tracker.Tracker to the (possibly already running)
	// experiment
	Register(t tracker.Tracker)
}

// Config represents a configuration of an experiment
type Config struct {
	// MaxSteps is the environment step budget of the run
	MaxSteps int

	// MaxIterationTime bounds the wall time of a single iteration. Zero
	// disables the limit.
	MaxIterationTime time.Duration

	// MaxDivergences is the number of consecutive numerically divergent
	// iterations tolerated before the run aborts
	MaxDivergences int

	// EvalFreq is the number of iterations between evaluations of the
	// greedy policy. Zero disables periodic evaluation.
	EvalFreq int
}

// TimeoutError denotes an iteration that exceeded its wall time limit.
// It is fatal.
type TimeoutError struct {
	Iteration int
	Limit     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("iteration %d exceeded the time limit of %v",
		e.Iteration, e.Limit)
}
