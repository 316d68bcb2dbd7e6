package lagppo

import (
	"errors"
	"fmt"

	"github.com/cropgym/cropgym-go/agent"
	"github.com/cropgym/cropgym-go/agent/policy"
	"github.com/cropgym/cropgym-go/buffer/gae"
	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/environment/weather"
	"github.com/cropgym/cropgym-go/environment/wrappers"
	"github.com/cropgym/cropgym-go/intrinsic"
	"github.com/cropgym/cropgym-go/network"
	"github.com/cropgym/cropgym-go/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// seasonal is an environment which reports the weather of its current
// episode
type seasonal interface {
	Series() *weather.Series
}

// worker collects experience in its own environment. All randomness of
// a worker, both in acting and in the environment's randomization
// stages, comes from its source.
type worker struct {
	id       int
	env      *wrappers.Pipeline
	src      *rand.PCGSource
	bonus    *wrappers.Intrinsic
	channels int
	episodes int
}

func newWorker(id int, env *wrappers.Pipeline, src *rand.PCGSource) *worker {
	w := &worker{
		id:       id,
		env:      env,
		src:      src,
		channels: env.CostSpec().Len(),
	}
	for _, stage := range env.Stages() {
		if b, ok := stage.(*wrappers.Intrinsic); ok {
			w.bonus = b
		}
	}
	return w
}

// rollout is the experience collected by a worker in one iteration
type rollout struct {
	batch     *gae.Batch
	intrinsic intrinsic.Batch
	episodes  []agent.EpisodeStats
}

// weights are the network snapshots a worker acts and evaluates with
type weights struct {
	policy *network.Weights
	value  *network.Weights
	costs  []*network.Weights
}

// values returns the value and cost value estimates of an observation
func (w weights) values(obs []float64) (float64, []float64) {
	costs := make([]float64, len(w.costs))
	for i, c := range w.costs {
		costs[i] = c.Forward(obs)[0]
	}
	return w.value.Forward(obs)[0], costs
}

// collect takes steps steps in the worker's environment starting from a
// new episode. Every episode end is treated as terminal and the episode
// in progress when the step budget runs out is bootstrapped with the
// critics.
func (w *worker) collect(iteration, steps int, nets weights, c Config,
	features int) (*rollout, error) {
	pi := policy.NewCategorical(nets.policy, w.src)
	buf := gae.New(features, w.channels, steps, c.Lambda, c.Gamma)
	out := &rollout{intrinsic: intrinsic.Batch{Features: features}}

	ctx := func(step int) environment.Context {
		return environment.Context{
			Iteration: iteration,
			Worker:    w.id,
			Episode:   w.episodes,
			Step:      step,
		}
	}

	step, err := w.reset(ctx(0))
	if err != nil {
		return nil, err
	}
	ep := w.newEpisode()

	for t := 0; t < steps; t++ {
		obs := step.Observation.RawVector().Data
		action, logp := pi.Act(obs)
		val, costVals := nets.values(obs)

		act := mat.NewVecDense(1, []float64{float64(action)})
		next, done, err := w.env.Step(act)
		if err != nil {
			var invalid *environment.InvalidActionError
			if errors.As(err, &invalid) {
				invalid.Context = ctx(step.Number + 1)
				return nil, invalid
			}
			return nil, fmt.Errorf("collect: worker %v: %w", w.id, err)
		}

		tr := timestep.NewTransition(step, act, next)
		cost := tr.Cost
		if cost == nil {
			cost = make([]float64, w.channels)
		}
		if err := buf.Store(obs, float64(action), logp, tr.Reward, val,
			cost, costVals); err != nil {
			return nil, fmt.Errorf("collect: %w", err)
		}
		out.intrinsic.Append(obs, float64(action), tr.NextState.RawVector().Data)
		ep.add(next)

		switch {
		case done:
			if err := buf.FinishPath(0, make([]float64, w.channels)); err != nil {
				return nil, fmt.Errorf("collect: %w", err)
			}
			out.episodes = append(out.episodes, ep.finish(next))
			w.episodes++

			if t+1 < steps {
				if step, err = w.reset(ctx(0)); err != nil {
					return nil, err
				}
				ep = w.newEpisode()
			}

		case t+1 == steps:
			lastVal, lastCostVals := nets.values(
				next.Observation.RawVector().Data)
			if err := buf.FinishPath(lastVal, lastCostVals); err != nil {
				return nil, fmt.Errorf("collect: %w", err)
			}

		default:
			step = next
		}
	}

	if out.batch, err = buf.Batch(); err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	return out, nil
}

// reset starts a new episode, attaching ctx to simulation errors
func (w *worker) reset(ctx environment.Context) (timestep.TimeStep, error) {
	step, err := w.env.Reset()
	if err != nil {
		var simErr *environment.SimulationError
		if errors.As(err, &simErr) {
			simErr.Context = ctx
		}
		return step, fmt.Errorf("collect: worker %v: %w", w.id, err)
	}
	return step, nil
}

// newEpisode returns the accumulator of the episode just started
func (w *worker) newEpisode() *episode {
	e := &episode{
		stats: agent.EpisodeStats{
			Worker: w.id,
			Cost:   make([]float64, w.channels),
		},
	}
	if s, ok := w.env.Inner().(seasonal); ok && s.Series() != nil {
		e.stats.Year = s.Series().Year
	}
	return e
}

// setBeta sets the coefficient of the worker's intrinsic bonus, if any
func (w *worker) setBeta(beta float64) {
	if w.bonus != nil {
		w.bonus.SetBeta(beta)
	}
}

// episode accumulates the statistics of an episode in progress
type episode struct {
	stats agent.EpisodeStats
}

func (e *episode) add(t timestep.TimeStep) {
	e.stats.Length++
	e.stats.Return += t.Reward
	e.stats.Extrinsic += t.Extrinsic
	e.stats.Intrinsic += t.Intrinsic
	for i := range e.stats.Cost {
		if i < len(t.Cost) {
			e.stats.Cost[i] += t.Cost[i]
		}
	}
}

func (e *episode) finish(last timestep.TimeStep) agent.EpisodeStats {
	e.stats.End = last.EndType()
	e.stats.Final = last.Info.State.Clone()
	return e.stats
}
