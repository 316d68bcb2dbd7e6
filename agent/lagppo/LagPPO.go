package lagppo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/cropgym/cropgym-go/agent"
	"github.com/cropgym/cropgym-go/agent/policy"
	"github.com/cropgym/cropgym-go/buffer/gae"
	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/environment/wrappers"
	"github.com/cropgym/cropgym-go/intrinsic"
	"github.com/cropgym/cropgym-go/network"
	"github.com/cropgym/cropgym-go/solver"
	"github.com/cropgym/cropgym-go/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// EnvFactory creates the environment of a worker. Every randomization
// stage of the environment should draw from src, which is the worker's
// own random source.
type EnvFactory func(worker int, src rand.Source) (*wrappers.Pipeline, error)

// LagPPO implements Lagrangian PPO over discrete fertilization levels.
// With the PPO kind, the Lagrange multipliers are fixed at 0 and the
// policy ignores the constraint costs, which are still tracked.
//
// A LagPPO is not safe for concurrent use. Iterate itself runs the
// workers concurrently.
type LagPPO struct {
	config   Config
	features int
	levels   int
	channels int

	policy *policyLearner
	value  *critic
	costs  []*critic
	dual   *Dual

	module   intrinsic.Module
	schedule intrinsic.Schedule
	workers  []*worker

	updateSrc *rand.PCGSource
	rng       *rand.Rand

	iteration int
	steps     int
}

// New returns a new LagPPO agent. Worker sources, the source of the
// minibatch shuffles, and the initial network weights are all drawn
// from master. The module computes intrinsic bonuses and must be the
// module of every Intrinsic stage the factory creates.
func New(c Config, factory EnvFactory, module intrinsic.Module,
	master *rand.PCGSource) (*LagPPO, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	workers := make([]*worker, c.NumWorkers)
	for i := range workers {
		src := &rand.PCGSource{}
		src.Seed(master.Uint64())
		env, err := factory(i, src)
		if err != nil {
			return nil, fmt.Errorf("new: could not create environment of "+
				"worker %v: %w", i, err)
		}
		workers[i] = newWorker(i, env, src)
	}

	env := workers[0].env
	features := env.ObservationSpec().Len()
	levels := env.ActionSpec().Levels()
	channels := env.CostSpec().Len()

	budgets := c.Budgets
	if len(budgets) != channels {
		return nil, environment.NewConfigurationError("budget",
			"have %v budgets for %v cost channels", len(budgets), channels)
	}
	initial := c.InitialMultiplier
	if !c.Kind.Constrained() {
		initial = 0
	}
	dual, err := NewDual(budgets, c.DualStepSize, initial,
		!c.Kind.Constrained())
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	initSrc := &rand.PCGSource{}
	initSrc.Seed(master.Uint64())
	init, err := c.InitWFn.Create(initSrc)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	pl, err := newPolicyLearner(c, features, levels, init)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	value, err := newCritic("value", c, features, init)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	costs := make([]*critic, channels)
	for i := range costs {
		costs[i], err = newCritic(fmt.Sprintf("cost%d", i), c, features, init)
		if err != nil {
			return nil, fmt.Errorf("new: %w", err)
		}
	}

	updateSrc := &rand.PCGSource{}
	updateSrc.Seed(master.Uint64())

	return &LagPPO{
		config:    c,
		features:  features,
		levels:    levels,
		channels:  channels,
		policy:    pl,
		value:     value,
		costs:     costs,
		dual:      dual,
		module:    module,
		schedule:  module.Config().Schedule(),
		workers:   workers,
		updateSrc: updateSrc,
		rng:       rand.New(updateSrc),
	}, nil
}

// Iterate implements the agent.Learner interface. The context is only
// checked before collection starts.
//
// If an update diverges, every network, solver, and the intrinsic
// module are restored to their state before the update, the iteration
// counter is not advanced, and an *environment.NumericalDivergenceError
// is returned together with the collection statistics.
func (l *LagPPO) Iterate(ctx context.Context) (agent.Stats, error) {
	if err := ctx.Err(); err != nil {
		return agent.Stats{}, err
	}

	beta := l.schedule.At(l.iteration)
	for _, w := range l.workers {
		w.setBeta(beta)
	}

	rollouts, err := l.collect()
	if err != nil {
		return agent.Stats{}, fmt.Errorf("iterate: %w", err)
	}

	batches := make([]*gae.Batch, len(rollouts))
	var bonus intrinsic.Batch
	bonus.Features = l.features
	stats := agent.Stats{Iteration: l.iteration, Beta: beta}
	for i, r := range rollouts {
		batches[i] = r.batch
		bonus.Observations = append(bonus.Observations,
			r.intrinsic.Observations...)
		bonus.Actions = append(bonus.Actions, r.intrinsic.Actions...)
		bonus.Next = append(bonus.Next, r.intrinsic.Next...)
		stats.Episodes = append(stats.Episodes, r.episodes...)
	}
	batch, err := gae.Merge(batches...)
	if err != nil {
		return agent.Stats{}, fmt.Errorf("iterate: %w", err)
	}
	l.steps += batch.Len()
	stats.Steps = l.steps

	stats.MeanCost = make([]float64, l.channels)
	for _, e := range stats.Episodes {
		floats.Add(stats.MeanCost, e.Cost)
		if e.End == timestep.SimulationFailure {
			stats.SimulationFailures++
		}
	}
	if n := len(stats.Episodes); n > 0 {
		floats.Scale(1/float64(n), stats.MeanCost)
	}

	snap := l.snapshot()
	if err := l.update(batch, bonus, &stats); err != nil {
		l.restore(snap)
		return stats, fmt.Errorf("iterate: %w", err)
	}

	if len(stats.Episodes) == 0 {
		log.Printf("iteration %v: no episode completed, skipping dual "+
			"update", l.iteration)
	} else if err := l.dual.Update(stats.MeanCost); err != nil {
		return stats, fmt.Errorf("iterate: %w", err)
	}
	stats.Multipliers = l.dual.Multipliers()

	l.iteration++
	return stats, nil
}

// collect runs every worker concurrently and returns their rollouts in
// worker order
func (l *LagPPO) collect() ([]*rollout, error) {
	nets := weights{
		policy: l.policy.net.Snapshot(),
		value:  l.value.net.Snapshot(),
		costs:  make([]*network.Weights, len(l.costs)),
	}
	for i, c := range l.costs {
		nets.costs[i] = c.net.Snapshot()
	}

	rollouts := make([]*rollout, len(l.workers))
	errs := make([]error, len(l.workers))
	var wg sync.WaitGroup
	for i, w := range l.workers {
		wg.Add(1)
		go func(i int, w *worker) {
			defer wg.Done()
			rollouts[i], errs[i] = w.collect(l.iteration,
				l.config.StepsPerWorker(), nets, l.config, l.features)
		}(i, w)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return rollouts, nil
}

// update trains the intrinsic module, the policy, and the critics on a
// rollout
func (l *LagPPO) update(batch *gae.Batch, bonus intrinsic.Batch,
	stats *agent.Stats) error {
	ic := l.module.Config()
	if ic.Kind != intrinsic.None && l.iteration%ic.UpdateEvery == 0 {
		if err := l.module.Update(bonus, l.rng); err != nil {
			var div *environment.NumericalDivergenceError
			if errors.As(err, &div) {
				div.Iteration = l.iteration
			}
			return err
		}
	}

	adv, err := batch.Advantages(l.dual.Multipliers())
	if err != nil {
		return err
	}

	m := l.config.MinibatchSize
	n := batch.Len()
	obs := make([]float64, m*l.features)
	actions := make([]float64, m)
	logps := make([]float64, m)
	advs := make([]float64, m)
	targets := make([]float64, m)
	stats.CostLoss = make([]float64, l.channels)

	var updates int
	for epoch := 0; epoch < l.config.Epochs; epoch++ {
		perm := l.rng.Perm(n)
		for start := 0; start+m <= n; start += m {
			idx := perm[start : start+m]
			for j, k := range idx {
				copy(obs[j*l.features:(j+1)*l.features], batch.Observation(k))
				actions[j] = batch.Actions[k]
				logps[j] = batch.LogProbs[k]
				advs[j] = adv[k]
			}

			loss, entropy, err := l.policy.step(obs, actions, logps, advs)
			if err != nil {
				return l.stepError(err, updates)
			}
			stats.PolicyLoss += loss
			stats.Entropy += entropy

			for j, k := range idx {
				targets[j] = batch.RewardReturns[k]
			}
			loss, err = l.value.step(obs, targets)
			if err != nil {
				return l.stepError(err, updates)
			}
			stats.ValueLoss += loss

			for c, cr := range l.costs {
				for j, k := range idx {
					targets[j] = batch.CostReturns[c][k]
				}
				loss, err = cr.step(obs, targets)
				if err != nil {
					return l.stepError(err, updates)
				}
				stats.CostLoss[c] += loss
			}
			updates++
		}
	}

	if updates > 0 {
		scale := 1 / float64(updates)
		stats.PolicyLoss *= scale
		stats.Entropy *= scale
		stats.ValueLoss *= scale
		floats.Scale(scale, stats.CostLoss)
	}
	return nil
}

// stepError converts the error of a minibatch step into the error of
// the iteration
func (l *LagPPO) stepError(err error, minibatch int) error {
	var d *divergence
	if errors.As(err, &d) {
		return divergenceError(d, l.iteration, minibatch)
	}
	return err
}

// snapshot records every parameter an update can change
func (l *LagPPO) snapshot() rollback {
	u := rollback{
		snapshot: snapshot{
			policy:       l.policy.net.Snapshot(),
			policySolver: l.policy.solver.State(),
			critics:      []*network.Weights{l.value.net.Snapshot()},
			solvers:      []solver.State{l.value.solver.State()},
		},
		module: l.module.State(),
	}
	for _, c := range l.costs {
		u.critics = append(u.critics, c.net.Snapshot())
		u.solvers = append(u.solvers, c.solver.State())
	}
	return u
}

// restore rolls back every parameter to a snapshot
func (l *LagPPO) restore(u rollback) {
	must := func(err error) {
		if err != nil {
			panic(fmt.Sprintf("restore: %v", err))
		}
	}
	must(l.policy.net.SetWeights(u.policy))
	must(l.policy.solver.SetState(u.policySolver))
	critics := append([]*critic{l.value}, l.costs...)
	for i, c := range critics {
		must(c.net.SetWeights(u.critics[i]))
		must(c.solver.SetState(u.solvers[i]))
	}
	must(l.module.SetState(u.module))
}

// rollback is a snapshot of the agent's networks together with the
// parameters of its intrinsic module
type rollback struct {
	snapshot
	module intrinsic.State
}

// Iteration implements the agent.Learner interface
func (l *LagPPO) Iteration() int {
	return l.iteration
}

// Steps implements the agent.Learner interface
func (l *LagPPO) Steps() int {
	return l.steps
}

// Greedy implements the agent.Learner interface
func (l *LagPPO) Greedy() agent.Policy {
	return policy.NewGreedy(l.policy.net.Snapshot())
}

// PolicyWeights returns a snapshot of the policy network's weights
func (l *LagPPO) PolicyWeights() *network.Weights {
	return l.policy.net.Snapshot()
}

// Multipliers returns the current Lagrange multipliers
func (l *LagPPO) Multipliers() []float64 {
	return l.dual.Multipliers()
}

// Budgets returns the cost budgets
func (l *LagPPO) Budgets() []float64 {
	return l.dual.Budgets()
}

// Config returns the configuration of the agent
func (l *LagPPO) Config() Config {
	return l.config
}
