// Package initwfn implements seeded weight initializers for Gorgonia
// networks that can be described in configuration files.
package initwfn

import (
	"fmt"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Type describes different types of InitWFn that are available.
// Type is used to implement a basic type system of InitWFn's.
type Type string

// Available InitWFn types
const (
	GlorotU Type = "GlorotU"
	GlorotN Type = "GlorotN"
	HeU     Type = "HeU"
	HeN     Type = "HeN"
	Zeroes  Type = "Zeroes"
	Ones    Type = "Ones"
)

// Config describes a weight initializer
type Config struct {
	Type Type    `yaml:"type"`
	Gain float64 `yaml:"gain"`
}

// DefaultConfig returns a Glorot uniform initializer with unit gain
func DefaultConfig() Config {
	return Config{Type: GlorotU, Gain: 1}
}

// Validate validates a Config
func (c Config) Validate() error {
	switch c.Type {
	case GlorotU, GlorotN, HeU, HeN:
		if c.Gain <= 0 {
			return fmt.Errorf("validate: %v initializer needs a positive "+
				"gain, got %v", c.Type, c.Gain)
		}
	case Zeroes, Ones:
	default:
		return fmt.Errorf("validate: unknown initializer type %q", c.Type)
	}
	return nil
}

// Create returns the Gorgonia InitWFn described by the Config. Random
// initializers draw from src, so networks created with the same source
// state have identical weights.
func (c Config) Create(src rand.Source) (G.InitWFn, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	switch c.Type {
	case GlorotU:
		return glorotU(c.Gain, src), nil
	case GlorotN:
		return glorotN(c.Gain, src), nil
	case HeU:
		return heU(c.Gain, src), nil
	case HeN:
		return heN(c.Gain, src), nil
	case Zeroes:
		return constant(0), nil
	default:
		return constant(1), nil
	}
}

// fans returns the number of inputs and outputs of a weight matrix
func fans(s ...int) (in, out float64) {
	switch len(s) {
	case 0:
		return 1, 1
	case 1:
		return float64(s[0]), float64(s[0])
	default:
		return float64(s[0]), float64(s[len(s)-1])
	}
}

// sample returns a backing slice for a tensor of shape s filled by
// draw. Only float64 tensors are supported.
func sample(dt tensor.Dtype, s []int, draw func() float64) interface{} {
	if dt != tensor.Float64 {
		panic(fmt.Sprintf("initwfn: unsupported dtype %v", dt))
	}
	size := 1
	for _, d := range s {
		size *= d
	}
	backing := make([]float64, size)
	for i := range backing {
		backing[i] = draw()
	}
	return backing
}
