package network

import (
	"fmt"
	"math"
	"strings"

	G "gorgonia.org/gorgonia"
)

type activationType string

const (
	relu     activationType = "relu"
	identity activationType = "identity"
	tanh     activationType = "tanh"
)

// Activation represents an activation function type. Each Activation
// can be added to a computational graph or applied to plain floats.
type Activation struct {
	activationType
	f     func(x *G.Node) (*G.Node, error)
	apply func(float64) float64
}

// fwd performs the forward pass of an Activation on the graph
func (a *Activation) fwd(x *G.Node) (*G.Node, error) {
	return a.f(x)
}

// Apply applies the Activation to a single value
func (a *Activation) Apply(x float64) float64 {
	return a.apply(x)
}

// String implements the Stringer interface
func (a *Activation) String() string {
	return string(a.activationType)
}

// IsIdentity returns whether or not the Activation is the identity
// function.
func (a *Activation) IsIdentity() bool {
	return a.activationType == identity
}

// GobEncode implements the GobEncoder interface
func (a *Activation) GobEncode() ([]byte, error) {
	return []byte(a.activationType), nil
}

// GobDecode implements the GobDecoder interface
func (a *Activation) GobDecode(encoded []byte) error {
	decoded, err := ParseActivation(string(encoded))
	if err != nil {
		return fmt.Errorf("gobDecode: %w", err)
	}
	*a = *decoded
	return nil
}

// ParseActivation returns the Activation with the given name
func ParseActivation(name string) (*Activation, error) {
	switch activationType(strings.ToLower(name)) {
	case relu:
		return ReLU(), nil
	case identity:
		return Identity(), nil
	case tanh:
		return TanH(), nil
	}
	return nil, fmt.Errorf("parseActivation: illegal activation %q", name)
}

// Identity returns an identity *Activation
func Identity() *Activation {
	return &Activation{
		activationType: identity,
		f: func(x *G.Node) (*G.Node, error) {
			return x, nil
		},
		apply: func(x float64) float64 {
			return x
		},
	}
}

// ReLU returns a ReLU *Activation
func ReLU() *Activation {
	return &Activation{
		activationType: relu,
		f:              G.Rectify,
		apply: func(x float64) float64 {
			return math.Max(0, x)
		},
	}
}

// TanH returns a tanh *Activation
func TanH() *Activation {
	return &Activation{
		activationType: tanh,
		f:              G.Tanh,
		apply:          math.Tanh,
	}
}

// Activations returns n copies of the named activation
func Activations(name string, n int) ([]*Activation, error) {
	acts := make([]*Activation, n)
	for i := range acts {
		a, err := ParseActivation(name)
		if err != nil {
			return nil, fmt.Errorf("activations: %w", err)
		}
		acts[i] = a
	}
	return acts, nil
}
