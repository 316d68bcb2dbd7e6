package intrinsic

import (
	"fmt"

	"github.com/cropgym/cropgym-go/network"
	"github.com/cropgym/cropgym-go/solver"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Module is an intrinsic reward module
type Module interface {
	Kind() Kind
	Config() Config

	// NewEpisode returns the episodic state of a new episode. Episodes
	// are not safe for concurrent use but different Episodes are.
	NewEpisode() Episode

	// Update trains the module's parameters on a batch of transitions.
	// It must not be called concurrently with NewEpisode.
	Update(batch Batch, rng *rand.Rand) error

	// State returns the module's parameters for checkpointing
	State() State

	// SetState restores the module's parameters
	SetState(State) error
}

// Episode computes the intrinsic bonuses of a single episode
type Episode interface {
	// Bonus returns the non-negative bonus of taking action in the
	// state observed as obs and observing next
	Bonus(obs, action, next []float64) float64
}

// Batch holds transitions used to update a Module, stored in row major
// order
type Batch struct {
	Features     int
	Observations []float64
	Actions      []float64
	Next         []float64
}

// Len returns the number of transitions in the batch
func (b Batch) Len() int {
	return len(b.Actions)
}

// Append adds a single transition to the batch
func (b *Batch) Append(obs []float64, action float64, next []float64) {
	b.Observations = append(b.Observations, obs...)
	b.Actions = append(b.Actions, action)
	b.Next = append(b.Next, next...)
}

// State holds the parameters of a Module
type State struct {
	Encoder *network.Weights
	Head    *network.Weights
	Solver  solver.State

	// Forward is the ICM forward model
	Forward *mat.Dense
}

// New returns a new Module. Observations have features features and
// actions are discrete levels in [0, levels). Random encoder weights are
// drawn from src.
func New(c Config, features, levels int, src rand.Source) (Module, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	switch c.Kind {
	case None:
		return none{c}, nil
	case E3B:
		return newE3B(c, features, levels, src)
	default:
		return newICM(c, features, levels, src)
	}
}

// none is a Module whose bonus is always 0
type none struct {
	config Config
}

func (n none) Kind() Kind                     { return None }
func (n none) Config() Config                 { return n.config }
func (n none) NewEpisode() Episode            { return zero{} }
func (n none) Update(Batch, *rand.Rand) error { return nil }
func (n none) State() State                   { return State{} }
func (n none) SetState(State) error           { return nil }

type zero struct{}

func (zero) Bonus(obs, action, next []float64) float64 { return 0 }
