// Package network implements feed forward neural networks as Gorgonia
// computational graphs, together with immutable gonum snapshots of
// their weights for fast concurrent inference.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network on a Gorgonia computational graph
type NeuralNet interface {
	Graph() *G.ExprGraph
	BatchSize() int
	Features() int
	Outputs() int
	SetInput([]float64) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node

	// Snapshot returns a copy of the network's current weights
	Snapshot() *Weights

	// SetWeights sets the network's weights from a snapshot
	SetWeights(*Weights) error
}
