package experiment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cropgym/cropgym-go/agent"
	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/experiment/checkpointer"
	"github.com/cropgym/cropgym-go/experiment/tracker"
	"github.com/cropgym/cropgym-go/utils/progressbar"
)

// Online is an Experiment that trains a learner online, iteration by
// iteration, optionally evaluating its greedy policy every few
// iterations.
type Online struct {
	learner       agent.Learner
	config        Config
	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer

	evaluator   *Evaluator
	evaluations []Evaluation

	progress    *progressbar.ManualProgressBar
	divergences int
	timedOut    *TimeoutError
}

// NewOnline creates and returns a new online experiment training the
// learner l. The t parameter is a slice of tracker.Tracker which
// determine what data is saved, and checkpointers are called after
// every successful iteration.
func NewOnline(l agent.Learner, c Config, t []tracker.Tracker,
	checkpointers []checkpointer.Checkpointer) *Online {
	return &Online{
		learner:       l,
		config:        c,
		trackers:      t,
		checkpointers: checkpointers,
	}
}

// Register registers a tracker.Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// SetEvaluator sets the Evaluator used for periodic evaluation
func (o *Online) SetEvaluator(e *Evaluator) {
	o.evaluator = e
}

// SetProgressBar sets a progress bar displaying the steps taken
func (o *Online) SetProgressBar(p *progressbar.ManualProgressBar) {
	o.progress = p
}

// Evaluations returns the periodic evaluations performed so far
func (o *Online) Evaluations() []Evaluation {
	return append([]Evaluation(nil), o.evaluations...)
}

// result is the outcome of a single iteration
type result struct {
	stats agent.Stats
	err   error
}

// RunIteration runs a single iteration of the experiment and returns
// whether the step budget has been exhausted.
//
// A numerically divergent iteration is logged and skipped unless more
// than MaxDivergences consecutive iterations diverged, in which case the
// divergence error is returned. An iteration running longer than
// MaxIterationTime returns a *TimeoutError.
//
// A timed out iteration is abandoned, not stopped: it keeps running on
// the learner in the background, so the learner must not be reused.
// Every later call to RunIteration returns the same *TimeoutError.
func (o *Online) RunIteration(ctx context.Context) (bool, error) {
	if o.timedOut != nil {
		return false, o.timedOut
	}

	iteration := o.learner.Iteration()
	done := make(chan result, 1)
	go func() {
		stats, err := o.learner.Iterate(ctx)
		done <- result{stats, err}
	}()

	var timeout <-chan time.Time
	if o.config.MaxIterationTime > 0 {
		timeout = time.After(o.config.MaxIterationTime)
	}

	var r result
	select {
	case r = <-done:
	case <-timeout:
		o.timedOut = &TimeoutError{
			Iteration: iteration,
			Limit:     o.config.MaxIterationTime,
		}
		return false, o.timedOut
	}

	var div *environment.NumericalDivergenceError
	switch {
	case errors.As(r.err, &div):
		o.divergences++
		if o.divergences > o.config.MaxDivergences {
			return false, fmt.Errorf("runIteration: %v consecutive "+
				"divergent iterations: %w", o.divergences, r.err)
		}
		log.Printf("iteration %v diverged, update discarded: %v", iteration,
			r.err)
		return o.learner.Steps() >= o.config.MaxSteps, nil

	case r.err != nil:
		return false, fmt.Errorf("runIteration: %w", r.err)
	}
	o.divergences = 0

	o.track(r.stats)
	o.log(r.stats)
	if o.progress != nil {
		o.progress.Set(o.learner.Steps())
		o.progress.Display()
	}

	completed := o.learner.Iteration()
	for _, c := range o.checkpointers {
		if err := c.Checkpoint(completed); err != nil {
			return false, fmt.Errorf("runIteration: %w", err)
		}
	}

	if o.evaluator != nil && o.config.EvalFreq > 0 &&
		completed%o.config.EvalFreq == 0 {
		eval, err := o.evaluator.Evaluate("agent", o.learner.Greedy())
		if err != nil {
			return false, fmt.Errorf("runIteration: %w", err)
		}
		eval.Iteration = completed
		o.evaluations = append(o.evaluations, eval)
		log.Printf("evaluation after iteration %v: mean return %.3f, mean "+
			"yield %.1f kg/ha", completed, eval.MeanReturn(), eval.MeanYield())
	}

	return o.learner.Steps() >= o.config.MaxSteps, nil
}

// Run runs the experiment until the step budget is exhausted. The
// context is checked between iterations; if it is cancelled, Run
// returns the context's error.
func (o *Online) Run(ctx context.Context) error {
	ended := o.learner.Steps() >= o.config.MaxSteps
	for !ended {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		if ended, err = o.RunIteration(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	return nil
}

// track tracks the statistics of an iteration in each tracker
func (o *Online) track(s agent.Stats) {
	for _, t := range o.trackers {
		t.Track(s)
	}
}

// log logs a one line summary of an iteration
func (o *Online) log(s agent.Stats) {
	extrinsic, ok := s.MeanExtrinsic()
	if !ok {
		log.Printf("iteration %v | steps %v | no episode completed",
			s.Iteration, s.Steps)
		return
	}
	log.Printf("iteration %v | steps %v | episodes %v | return %.3f | "+
		"cost %.2f | λ %.4f | entropy %.3f | failures %v", s.Iteration,
		s.Steps, len(s.Episodes), extrinsic, s.MeanCost, s.Multipliers,
		s.Entropy, s.SimulationFailures)
}
