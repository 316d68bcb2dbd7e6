package network

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
)

// LogSoftmax adds the row-wise log softmax of a (batch, classes) matrix
// of logits to the graph
func LogSoftmax(logits *G.Node) (*G.Node, error) {
	if !logits.IsMatrix() {
		return nil, fmt.Errorf("logSoftmax: logits must be a matrix")
	}
	batch := logits.Shape()[0]

	exp, err := G.Exp(logits)
	if err != nil {
		return nil, fmt.Errorf("logSoftmax: %w", err)
	}
	sum, err := G.Sum(exp, 1)
	if err != nil {
		return nil, fmt.Errorf("logSoftmax: %w", err)
	}
	lse, err := G.Log(sum)
	if err != nil {
		return nil, fmt.Errorf("logSoftmax: %w", err)
	}
	lse, err = G.Reshape(lse, []int{batch, 1})
	if err != nil {
		return nil, fmt.Errorf("logSoftmax: %w", err)
	}

	// Broadcast the log normalizer along the class dimension
	logp, err := G.BroadcastSub(logits, lse, nil, []byte{1})
	if err != nil {
		return nil, fmt.Errorf("logSoftmax: %w", err)
	}
	return logp, nil
}

// SelectLogProb returns a (batch) vector holding the log probability of
// the class selected by each row of the one-hot matrix oneHot
func SelectLogProb(logp, oneHot *G.Node) (*G.Node, error) {
	selected, err := G.HadamardProd(oneHot, logp)
	if err != nil {
		return nil, fmt.Errorf("selectLogProb: %w", err)
	}
	return G.Sum(selected, 1)
}

// Entropy returns a (batch) vector holding the entropy of each row of a
// matrix of log probabilities
func Entropy(logp *G.Node) (*G.Node, error) {
	p, err := G.Exp(logp)
	if err != nil {
		return nil, fmt.Errorf("entropy: %w", err)
	}
	plogp, err := G.HadamardProd(p, logp)
	if err != nil {
		return nil, fmt.Errorf("entropy: %w", err)
	}
	sum, err := G.Sum(plogp, 1)
	if err != nil {
		return nil, fmt.Errorf("entropy: %w", err)
	}
	return G.Neg(sum)
}

// LogSoftmaxOf returns the log softmax of a single vector of logits
func LogSoftmaxOf(logits []float64) []float64 {
	lse := floats.LogSumExp(logits)
	logp := make([]float64, len(logits))
	for i, l := range logits {
		logp[i] = l - lse
	}
	return logp
}

// SoftmaxOf returns the softmax of a single vector of logits
func SoftmaxOf(logits []float64) []float64 {
	p := LogSoftmaxOf(logits)
	for i := range p {
		p[i] = math.Exp(p[i])
	}
	return p
}

// OneHot returns the row major (len(classes), n) one-hot encoding of
// classes
func OneHot(classes []float64, n int) []float64 {
	oneHot := make([]float64, len(classes)*n)
	for i, c := range classes {
		oneHot[i*n+int(c)] = 1
	}
	return oneHot
}

// Scalar returns the value of a scalar node's Value
func Scalar(v G.Value) float64 {
	switch data := v.Data().(type) {
	case float64:
		return data
	case []float64:
		return data[0]
	default:
		panic(fmt.Sprintf("scalar: unsupported value type %T", data))
	}
}
