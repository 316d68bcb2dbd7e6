package network

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// applies maps activation names to their scalar functions
var applies = map[string]func(float64) float64{
	string(identity): Identity().apply,
	string(relu):     ReLU().apply,
	string(tanh):     TanH().apply,
}

// Layer is a snapshot of one fully connected layer. W has one row per
// input and one column per output.
type Layer struct {
	W          *mat.Dense
	B          []float64
	Activation string
}

// Weights is an immutable snapshot of the weights of an MLP. A Weights
// can compute the MLP's forward pass without a computational graph and
// is safe for concurrent use.
type Weights struct {
	Layers []Layer
}

// denseOf returns an r x c matrix holding a copy of data
func denseOf(r, c int, data []float64) *mat.Dense {
	return mat.NewDense(r, c, append([]float64(nil), data...))
}

// Features returns the number of inputs of the network
func (w *Weights) Features() int {
	r, _ := w.Layers[0].W.Dims()
	return r
}

// Outputs returns the number of outputs of the network
func (w *Weights) Outputs() int {
	_, c := w.Layers[len(w.Layers)-1].W.Dims()
	return c
}

// Forward returns the network's prediction for a single input
func (w *Weights) Forward(x []float64) []float64 {
	if len(x) != w.Features() {
		panic(fmt.Sprintf("forward: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", w.Features(), len(x)))
	}

	h := mat.NewVecDense(len(x), append([]float64(nil), x...))
	for _, l := range w.Layers {
		_, c := l.W.Dims()
		next := mat.NewVecDense(c, nil)
		next.MulVec(l.W.T(), h)
		next.AddVec(next, mat.NewVecDense(c, l.B))

		apply, ok := applies[l.Activation]
		if !ok {
			panic(fmt.Sprintf("forward: unknown activation %q", l.Activation))
		}
		raw := next.RawVector().Data
		for i := range raw {
			raw[i] = apply(raw[i])
		}
		h = next
	}
	return h.RawVector().Data
}

// Clone returns a deep copy of the weights
func (w *Weights) Clone() *Weights {
	layers := make([]Layer, len(w.Layers))
	for i, l := range w.Layers {
		layers[i] = Layer{
			W:          mat.DenseCopyOf(l.W),
			B:          append([]float64(nil), l.B...),
			Activation: l.Activation,
		}
	}
	return &Weights{Layers: layers}
}

// Norm returns the L2 norm of all weights and biases
func (w *Weights) Norm() float64 {
	var sq float64
	for _, l := range w.Layers {
		n := mat.Norm(l.W, 2)
		sq += n*n + math.Pow(floats.Norm(l.B, 2), 2)
	}
	return math.Sqrt(sq)
}

// Finite returns whether every weight and bias is finite
func (w *Weights) Finite() bool {
	for _, l := range w.Layers {
		r, c := l.W.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if v := l.W.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
					return false
				}
			}
		}
		for _, v := range l.B {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Equal returns whether two snapshots hold identical weights
func (w *Weights) Equal(o *Weights) bool {
	if len(w.Layers) != len(o.Layers) {
		return false
	}
	for i := range w.Layers {
		if w.Layers[i].Activation != o.Layers[i].Activation ||
			!mat.Equal(w.Layers[i].W, o.Layers[i].W) ||
			!floats.Equal(w.Layers[i].B, o.Layers[i].B) {
			return false
		}
	}
	return true
}
