package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// vanilla implements stochastic gradient descent with Gorgonia's vanilla
// solver
type vanilla struct {
	config Config
	solver G.Solver
	step   int
}

func newVanilla(c Config) *vanilla {
	opts := []G.SolverOpt{G.WithLearnRate(c.StepSize)}
	if c.Clip > 0 {
		opts = append(opts, G.WithClip(c.Clip))
	}
	return &vanilla{
		config: c,
		solver: G.NewVanillaSolver(opts...),
	}
}

// Step implements the G.Solver interface
func (v *vanilla) Step(model []G.ValueGrad) error {
	if err := clipGlobal(model, v.config.MaxGradNorm); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	if err := v.solver.Step(model); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	v.step++
	return nil
}

// State implements the Solver interface
func (v *vanilla) State() State {
	return State{Type: Vanilla, Step: v.step}
}

// SetState implements the Solver interface
func (v *vanilla) SetState(s State) error {
	if s.Type != Vanilla {
		return fmt.Errorf("setState: cannot restore %v state into Vanilla",
			s.Type)
	}
	v.step = s.Step
	return nil
}
