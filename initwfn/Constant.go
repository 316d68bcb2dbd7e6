package initwfn

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// constant returns an initializer setting every weight to value
func constant(value float64) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		return sample(dt, s, func() float64 { return value })
	}
}
