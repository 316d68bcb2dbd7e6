package initwfn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// heU returns the He uniform initializer, which samples weights from
// U[-a, a] with a = gain * sqrt(6 / fanIn)
func heU(gain float64, src rand.Source) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		in, _ := fans(s...)
		limit := gain * math.Sqrt(6/in)
		dist := distuv.Uniform{Min: -limit, Max: limit, Src: src}
		return sample(dt, s, dist.Rand)
	}
}

// heN returns the He normal initializer, which samples weights from
// N(0, σ²) with σ = gain * sqrt(2 / fanIn)
func heN(gain float64, src rand.Source) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		in, _ := fans(s...)
		dist := distuv.Normal{Mu: 0, Sigma: gain * math.Sqrt(2/in), Src: src}
		return sample(dt, s, dist.Rand)
	}
}
