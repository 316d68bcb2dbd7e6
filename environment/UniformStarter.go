package environment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// UniformStarter samples starting conditions uniformly from a box. The
// random source is injected so that the caller controls its lifecycle.
type UniformStarter struct {
	features int
	rand     *distmv.Uniform
}

// NewUniformStarter returns a new UniformStarter sampling each feature
// from its interval in bounds using the random source src
func NewUniformStarter(bounds []r1.Interval, src rand.Source) *UniformStarter {
	rand := distmv.NewUniform(bounds, src)

	return &UniformStarter{len(bounds), rand}
}

// Start samples a new starting condition
func (u *UniformStarter) Start() *mat.VecDense {
	return mat.NewVecDense(u.features, u.rand.Rand(nil))
}
