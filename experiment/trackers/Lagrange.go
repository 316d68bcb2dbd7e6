package trackers

import (
	"github.com/cropgym/cropgym-go/agent"
	"github.com/cropgym/cropgym-go/experiment/tracker"
)

// LagrangeData is the data saved by a Lagrange Tracker, one element per
// iteration
type LagrangeData struct {
	Iteration   []int
	Multipliers [][]float64
	MeanCost    [][]float64
	PolicyLoss  []float64
	ValueLoss   []float64
	Entropy     []float64
	Beta        []float64
}

// Lagrange tracks and saves the Lagrange multipliers and the training
// losses of every iteration
type Lagrange struct {
	data     LagrangeData
	filename string
}

// NewLagrange returns a new Lagrange tracker
func NewLagrange(filename string) *Lagrange {
	return &Lagrange{filename: filename}
}

// Track implements the tracker.Tracker interface
func (l *Lagrange) Track(s agent.Stats) {
	l.data.Iteration = append(l.data.Iteration, s.Iteration)
	l.data.Multipliers = append(l.data.Multipliers,
		append([]float64(nil), s.Multipliers...))
	l.data.MeanCost = append(l.data.MeanCost,
		append([]float64(nil), s.MeanCost...))
	l.data.PolicyLoss = append(l.data.PolicyLoss, s.PolicyLoss)
	l.data.ValueLoss = append(l.data.ValueLoss, s.ValueLoss)
	l.data.Entropy = append(l.data.Entropy, s.Entropy)
	l.data.Beta = append(l.data.Beta, s.Beta)
}

// Data returns the data tracked so far
func (l *Lagrange) Data() LagrangeData {
	return l.data
}

// Save implements the tracker.Tracker interface
func (l *Lagrange) Save() error {
	return tracker.Save(l.filename, l.data)
}
