package solver

import (
	"fmt"
	"math"

	"github.com/cropgym/cropgym-go/utils/floatutils"
	G "gorgonia.org/gorgonia"
)

// adam implements the Adam solver with bias-corrected moment estimates.
// Each step follows G.AdamSolver: gradients are clamped to [-Clip, Clip]
// when Clip > 0, the update is -StepSize * mHat / (sqrt(vHat) + Epsilon),
// and gradients are zeroed afterwards. The moments are held here rather
// than in a G.AdamSolver so that they can be checkpointed and restored.
type adam struct {
	config Config
	step   int
	m, v   [][]float64
}

func newAdam(c Config) *adam {
	return &adam{config: c}
}

// Step implements the G.Solver interface
func (a *adam) Step(model []G.ValueGrad) error {
	if a.m == nil {
		a.m = make([][]float64, len(model))
		a.v = make([][]float64, len(model))
	}
	if len(a.m) != len(model) {
		return fmt.Errorf("step: solver holds state for %v learnables, "+
			"model has %v", len(a.m), len(model))
	}

	if err := clipGlobal(model, a.config.MaxGradNorm); err != nil {
		return fmt.Errorf("step: %w", err)
	}

	a.step++
	b1, b2 := a.config.Beta1, a.config.Beta2
	t := float64(a.step)
	correction1 := 1 - math.Pow(b1, t)
	correction2 := 1 - math.Pow(b2, t)
	clip := a.config.Clip

	for i, vg := range model {
		grad, err := gradData(vg)
		if err != nil {
			return fmt.Errorf("step: learnable %v: %w", i, err)
		}
		weights, err := valueData(vg)
		if err != nil {
			return fmt.Errorf("step: learnable %v: %w", i, err)
		}

		if a.m[i] == nil {
			a.m[i] = make([]float64, len(weights))
			a.v[i] = make([]float64, len(weights))
		}
		m, v := a.m[i], a.v[i]
		for j, g := range grad {
			if clip > 0 {
				g = floatutils.Clip(g, -clip, clip)
			}
			m[j] = b1*m[j] + (1-b1)*g
			v[j] = b2*v[j] + (1-b2)*g*g

			mHat := m[j] / correction1
			vHat := v[j] / correction2
			weights[j] -= a.config.StepSize * mHat /
				(math.Sqrt(vHat) + a.config.Epsilon)
			grad[j] = 0
		}
	}
	return nil
}

// State implements the Solver interface
func (a *adam) State() State {
	return State{Type: Adam, Step: a.step, M: clone2D(a.m), V: clone2D(a.v)}
}

// SetState implements the Solver interface
func (a *adam) SetState(s State) error {
	if s.Type != Adam {
		return fmt.Errorf("setState: cannot restore %v state into Adam",
			s.Type)
	}
	if len(s.M) != len(s.V) {
		return fmt.Errorf("setState: have %v first moments and %v second "+
			"moments", len(s.M), len(s.V))
	}
	a.step = s.Step
	a.m, a.v = clone2D(s.M), clone2D(s.V)
	return nil
}
