package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MLP implements a multi-layered perceptron. The final layer is always
// linear with one output per prediction.
type MLP struct {
	name     string
	g        *G.ExprGraph
	layers   []*fcLayer
	input    *G.Node
	ownInput bool

	features  int
	outputs   int
	batchSize int

	hiddenSizes []int
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMLP creates and returns a new multi-layered perceptron with
// outputs outputs on the graph g. The input node has shape
// (batch, features) and is set with SetInput.
//
// The MLP has len(hiddenSizes) + 1 layers. For index i, hiddenSizes[i]
// is the number of units in hidden layer i and activations[i] is its
// activation. The final layer has no activation. Every layer has a bias
// unit. Weights are initialized with init and biases with zeroes. The
// name prefixes the names of every node added to g.
func NewMLP(name string, features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, activations []*Activation,
	init G.InitWFn) (*MLP, error) {
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName(name+"Input"), G.WithInit(G.Zeroes()))

	net, err := NewMLPFromInput(name, input, outputs, hiddenSizes,
		activations, init)
	if err != nil {
		return nil, fmt.Errorf("newMLP: %w", err)
	}
	net.ownInput = true
	return net, nil
}

// NewMLPFromInput returns a new MLP whose input is an existing matrix
// node of its graph, for example the output of another network. Such an
// MLP cannot have its input set with SetInput.
func NewMLPFromInput(name string, input *G.Node, outputs int,
	hiddenSizes []int, activations []*Activation,
	init G.InitWFn) (*MLP, error) {
	// Ensure we have one activation per layer
	if len(hiddenSizes) != len(activations) {
		msg := "newMLPFromInput: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}
	if !input.IsMatrix() {
		return nil, fmt.Errorf("newMLPFromInput: input must be a matrix")
	}
	if outputs <= 0 {
		return nil, fmt.Errorf("newMLPFromInput: need at least one output")
	}

	g := input.Graph()
	batch, features := input.Shape()[0], input.Shape()[1]

	sizes := append(append([]int(nil), hiddenSizes...), outputs)
	acts := append(append([]*Activation(nil), activations...), Identity())

	layers := make([]*fcLayer, len(sizes))
	in := features
	for i, out := range sizes {
		weights := G.NewMatrix(g, tensor.Float64, G.WithShape(in, out),
			G.WithName(fmt.Sprintf("%vW%d", name, i)), G.WithInit(init))
		bias := G.NewMatrix(g, tensor.Float64, G.WithShape(1, out),
			G.WithName(fmt.Sprintf("%vB%d", name, i)),
			G.WithInit(G.Zeroes()))
		layers[i] = &fcLayer{weights: weights, bias: bias, act: acts[i]}
		in = out
	}

	net := &MLP{
		name:        name,
		g:           g,
		layers:      layers,
		input:       input,
		features:    features,
		outputs:     outputs,
		batchSize:   batch,
		hiddenSizes: append([]int(nil), hiddenSizes...),
		activations: acts,
	}

	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("newMLPFromInput: could not compute "+
			"forward pass: %w", err)
	}
	return net, nil
}

// NewSingleHeadMLP returns an MLP with a single output node, such as a
// state value function
func NewSingleHeadMLP(name string, features, batch int, g *G.ExprGraph,
	hiddenSizes []int, activations []*Activation,
	init G.InitWFn) (*MLP, error) {
	return NewMLP(name, features, batch, 1, g, hiddenSizes, activations,
		init)
}

// fwd performs the forward pass of the MLP on the input node
func (m *MLP) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	m.prediction = pred
	G.Read(m.prediction, &m.predVal)
	return pred, nil
}

// Graph returns the computational graph of the MLP
func (m *MLP) Graph() *G.ExprGraph {
	return m.g
}

// Input returns the input node of the MLP
func (m *MLP) Input() *G.Node {
	return m.input
}

// BatchSize returns the batch size of inputs to the MLP
func (m *MLP) BatchSize() int {
	return m.batchSize
}

// Features returns the number of features in a single input
func (m *MLP) Features() int {
	return m.features
}

// Outputs returns the number of outputs of the MLP
func (m *MLP) Outputs() int {
	return m.outputs
}

// SetInput sets the value of the input node before running the forward
// pass. Inputs are in row major order.
func (m *MLP) SetInput(input []float64) error {
	if !m.ownInput {
		return fmt.Errorf("setInput: input of %v is computed by the graph",
			m.name)
	}
	if len(input) != m.features*m.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", m.features*m.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(append([]float64(nil), input...)),
		tensor.WithShape(m.input.Shape()...),
	)
	return G.Let(m.input, inputTensor)
}

// Learnables returns the learnable nodes of the MLP, the weights and
// bias of each layer in order
func (m *MLP) Learnables() G.Nodes {
	// Lazy instantiation
	if m.learnables == nil {
		learnables := make(G.Nodes, 0, 2*len(m.layers))
		for _, l := range m.layers {
			learnables = append(learnables, l.weights, l.bias)
		}
		m.learnables = learnables
	}
	return m.learnables
}

// Model returns the learnable nodes with their gradients
func (m *MLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if m.model == nil {
		model := make([]G.ValueGrad, 0, 2*len(m.layers))
		for _, node := range m.Learnables() {
			model = append(model, node)
		}
		m.model = model
	}
	return m.model
}

// Output returns the value of the prediction after the graph has run
func (m *MLP) Output() G.Value {
	return m.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the MLP
func (m *MLP) Prediction() *G.Node {
	return m.prediction
}

// Snapshot implements the NeuralNet interface
func (m *MLP) Snapshot() *Weights {
	layers := make([]Layer, len(m.layers))
	for i, l := range m.layers {
		shape := l.weights.Shape()
		layers[i] = Layer{
			W:          denseOf(shape[0], shape[1], nodeData(l.weights)),
			B:          append([]float64(nil), nodeData(l.bias)...),
			Activation: l.act.String(),
		}
	}
	return &Weights{Layers: layers}
}

// SetWeights implements the NeuralNet interface. The weights are copied
// into the existing node values so that any gradients bound to them
// stay valid.
func (m *MLP) SetWeights(w *Weights) error {
	if len(w.Layers) != len(m.layers) {
		return fmt.Errorf("setWeights: %v has %v layers, snapshot has %v",
			m.name, len(m.layers), len(w.Layers))
	}
	for i, l := range m.layers {
		shape := l.weights.Shape()
		r, c := w.Layers[i].W.Dims()
		if r != shape[0] || c != shape[1] || len(w.Layers[i].B) != c {
			return fmt.Errorf("setWeights: layer %v shape (%v, %v) does not "+
				"match snapshot (%v, %v)", i, shape[0], shape[1], r, c)
		}
	}

	for i, l := range m.layers {
		dst := nodeData(l.weights)
		r, c := w.Layers[i].W.Dims()
		for j := 0; j < r; j++ {
			for k := 0; k < c; k++ {
				dst[j*c+k] = w.Layers[i].W.At(j, k)
			}
		}
		copy(nodeData(l.bias), w.Layers[i].B)
	}
	return nil
}

// nodeData returns the backing data of a node's value
func nodeData(n *G.Node) []float64 {
	return n.Value().Data().([]float64)
}
