// Package policy implements fertilization policies: softmax policies
// over discrete fertilizer levels and fixed baseline policies
package policy

import (
	"fmt"
	"math"

	"github.com/cropgym/cropgym-go/network"
	"github.com/cropgym/cropgym-go/timestep"
	"github.com/cropgym/cropgym-go/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Categorical is a softmax policy over discrete actions whose logits
// are predicted by a snapshot of a neural network. A Categorical with a
// random source samples actions, and one without selects the most
// probable action.
//
// The weights of a Categorical are immutable, so Categoricals with
// different sources acting with the same weights may be used
// concurrently.
type Categorical struct {
	weights *network.Weights
	src     rand.Source
}

// NewCategorical returns a new stochastic Categorical policy drawing
// from src
func NewCategorical(weights *network.Weights, src rand.Source) *Categorical {
	return &Categorical{weights: weights, src: src}
}

// NewGreedy returns a new deterministic Categorical policy
func NewGreedy(weights *network.Weights) *Categorical {
	return &Categorical{weights: weights}
}

// Weights returns the weights of the policy
func (c *Categorical) Weights() *network.Weights {
	return c.weights
}

// Levels returns the number of discrete actions
func (c *Categorical) Levels() int {
	return c.weights.Outputs()
}

// LogProbs returns the log probability of each action in the state
// observed as obs
func (c *Categorical) LogProbs(obs []float64) []float64 {
	return network.LogSoftmaxOf(c.weights.Forward(obs))
}

// Act returns an action in the state observed as obs together with its
// log probability
func (c *Categorical) Act(obs []float64) (int, float64) {
	logp := c.LogProbs(obs)
	if c.src == nil {
		// Ties are broken by the lowest action
		_, indices := floatutils.MaxSlice(logp)
		return indices[0], logp[indices[0]]
	}

	probs := make([]float64, len(logp))
	for i, l := range logp {
		probs[i] = math.Exp(l)
	}
	action := int(distuv.NewCategorical(probs, c.src).Rand())
	return action, logp[action]
}

// SelectAction implements the agent.Policy interface
func (c *Categorical) SelectAction(t timestep.TimeStep) *mat.VecDense {
	action, _ := c.Act(t.Observation.RawVector().Data)
	return mat.NewVecDense(1, []float64{float64(action)})
}

// Entropy returns the entropy of the action distribution in the state
// observed as obs
func (c *Categorical) Entropy(obs []float64) float64 {
	var entropy float64
	for _, l := range c.LogProbs(obs) {
		if !math.IsInf(l, -1) {
			entropy -= math.Exp(l) * l
		}
	}
	return entropy
}

func (c *Categorical) String() string {
	mode := "greedy"
	if c.src != nil {
		mode = "stochastic"
	}
	return fmt.Sprintf("Categorical(%v levels, %v)", c.Levels(), mode)
}
