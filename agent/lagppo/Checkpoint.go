package lagppo

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/cropgym/cropgym-go/intrinsic"
	"github.com/cropgym/cropgym-go/network"
	"github.com/cropgym/cropgym-go/solver"
)

// Checkpoint holds everything needed to resume training exactly where
// it stopped: network weights, solver moments, Lagrange multipliers, the
// intrinsic module's parameters, and the states of every random source.
//
// Checkpoints are taken between iterations. Since every iteration starts
// each worker's environment from a fresh reset, no in-flight episode
// state needs to be stored.
type Checkpoint struct {
	Config    Config
	Iteration int
	Steps     int

	Policy       *network.Weights
	PolicySolver solver.State
	Value        *network.Weights
	ValueSolver  solver.State
	Costs        []*network.Weights
	CostSolvers  []solver.State

	Multipliers []float64
	Intrinsic   intrinsic.State

	// Marshalled random source states
	Workers  [][]byte
	Episodes []int
	Update   []byte
}

// Checkpoint returns a checkpoint of the agent
func (l *LagPPO) Checkpoint() (*Checkpoint, error) {
	c := &Checkpoint{
		Config:       l.config,
		Iteration:    l.iteration,
		Steps:        l.steps,
		Policy:       l.policy.net.Snapshot(),
		PolicySolver: l.policy.solver.State(),
		Value:        l.value.net.Snapshot(),
		ValueSolver:  l.value.solver.State(),
		Multipliers:  l.dual.Multipliers(),
		Intrinsic:    l.module.State(),
	}
	for _, cr := range l.costs {
		c.Costs = append(c.Costs, cr.net.Snapshot())
		c.CostSolvers = append(c.CostSolvers, cr.solver.State())
	}

	for _, w := range l.workers {
		state, err := w.src.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("checkpoint: worker %v: %w", w.id, err)
		}
		c.Workers = append(c.Workers, state)
		c.Episodes = append(c.Episodes, w.episodes)
	}
	state, err := l.updateSrc.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	c.Update = state
	return c, nil
}

// Restore resumes the agent from a checkpoint. The agent must have been
// created with the checkpoint's configuration and environments of the
// same shape.
func (l *LagPPO) Restore(c *Checkpoint) error {
	if len(c.Workers) != len(l.workers) {
		return fmt.Errorf("restore: checkpoint has %v workers, agent has %v",
			len(c.Workers), len(l.workers))
	}
	if len(c.Costs) != len(l.costs) || len(c.CostSolvers) != len(l.costs) {
		return fmt.Errorf("restore: checkpoint has %v cost critics, agent "+
			"has %v", len(c.Costs), len(l.costs))
	}

	if err := l.policy.net.SetWeights(c.Policy); err != nil {
		return fmt.Errorf("restore: policy: %w", err)
	}
	if err := l.policy.solver.SetState(c.PolicySolver); err != nil {
		return fmt.Errorf("restore: policy: %w", err)
	}
	if err := l.value.net.SetWeights(c.Value); err != nil {
		return fmt.Errorf("restore: value: %w", err)
	}
	if err := l.value.solver.SetState(c.ValueSolver); err != nil {
		return fmt.Errorf("restore: value: %w", err)
	}
	for i, cr := range l.costs {
		if err := cr.net.SetWeights(c.Costs[i]); err != nil {
			return fmt.Errorf("restore: %v: %w", cr.name, err)
		}
		if err := cr.solver.SetState(c.CostSolvers[i]); err != nil {
			return fmt.Errorf("restore: %v: %w", cr.name, err)
		}
	}
	if err := l.dual.SetMultipliers(c.Multipliers); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if err := l.module.SetState(c.Intrinsic); err != nil {
		return fmt.Errorf("restore: intrinsic: %w", err)
	}

	for i, w := range l.workers {
		if err := w.src.UnmarshalBinary(c.Workers[i]); err != nil {
			return fmt.Errorf("restore: worker %v: %w", i, err)
		}
		if i < len(c.Episodes) {
			w.episodes = c.Episodes[i]
		}
	}
	if err := l.updateSrc.UnmarshalBinary(c.Update); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	l.iteration = c.Iteration
	l.steps = c.Steps
	return nil
}

// Save writes a checkpoint of the agent to a file
func (l *LagPPO) Save(filename string) error {
	c, err := l.Checkpoint()
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return c.Save(filename)
}

// Save gob encodes the checkpoint to a file
func (c *Checkpoint) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := gob.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("save: could not encode checkpoint: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return file.Close()
}

// Load reads a checkpoint from a file written by Save
func Load(filename string) (*Checkpoint, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("load: could not open file: %w", err)
	}
	defer file.Close()

	var c Checkpoint
	if err := gob.NewDecoder(bufio.NewReader(file)).Decode(&c); err != nil {
		return nil, fmt.Errorf("load: could not decode checkpoint: %w", err)
	}
	return &c, nil
}
