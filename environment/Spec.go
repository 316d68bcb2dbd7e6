package environment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an acion, an observation, a discount, or a cost
type SpecType int

const (
	Action SpecType = iota
	Observation
	Discount
	Reward
	Cost
)

// Cardinality determines the cardinality of a number (discrete or continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type,
// shape, and bounds of an action, observation, discount, or cost
// in an environment. Labels optionally name each dimension.
type Spec struct {
	Shape      mat.Vector
	Type       SpecType
	LowerBound mat.Vector
	UpperBound mat.Vector
	Cardinality
	Labels []string
}

// NewSpec constructs a new environment specification
// The shape argument outlines the shape of the data described by the
// specification. The argument t outlines what the specification is
// describing (e.g. actions, observations, etc.). The cardinality
// arguments describes whether the values that the spec describes are
// continuous or discrete.
func NewSpec(shape mat.Vector, t SpecType, lowerBound,
	upperBound mat.Vector, cardinality Cardinality) Spec {
	if shape.Len() != lowerBound.Len() {
		panic(fmt.Sprintf("shape length %v must match lower bounds length %v",
			shape.Len(), lowerBound.Len()))
	}
	if shape.Len() != upperBound.Len() {
		panic(fmt.Sprintf("shape length %v must match upper bounds length %v",
			shape.Len(), upperBound.Len()))
	}
	return Spec{
		Shape:       shape,
		Type:        t,
		LowerBound:  lowerBound,
		UpperBound:  upperBound,
		Cardinality: cardinality,
	}
}

// Len returns the number of dimensions described by the Spec. A Spec
// without a shape describes zero dimensions.
func (s Spec) Len() int {
	if s.Shape == nil {
		return 0
	}
	return s.Shape.Len()
}

// WithLabels returns a copy of the Spec with dimensions labelled
func (s Spec) WithLabels(labels ...string) Spec {
	if len(labels) != s.Len() {
		panic(fmt.Sprintf("withLabels: expected %v labels, got %v",
			s.Len(), len(labels)))
	}
	s.Labels = append([]string(nil), labels...)
	return s
}

// Contains returns whether v lies inside the Spec's bounds. For
// discrete specs, each element of v must also be integral.
func (s Spec) Contains(v mat.Vector) bool {
	if v == nil {
		return false
	}
	if vec, ok := v.(*mat.VecDense); ok && vec == nil {
		return false
	}
	if v.Len() != s.Shape.Len() {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		x := v.AtVec(i)
		if math.IsNaN(x) || x < s.LowerBound.AtVec(i) ||
			x > s.UpperBound.AtVec(i) {
			return false
		}
		if s.Cardinality == Discrete && x != math.Trunc(x) {
			return false
		}
	}
	return true
}

// Levels returns the number of discrete values of a one-dimensional
// discrete spec
func (s Spec) Levels() int {
	if s.Cardinality != Discrete || s.Shape.Len() != 1 {
		panic("levels: spec is not one-dimensional and discrete")
	}
	return int(s.UpperBound.AtVec(0)-s.LowerBound.AtVec(0)) + 1
}
