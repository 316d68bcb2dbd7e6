package initwfn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// glorotU returns the Glorot uniform initializer, which samples weights
// from U[-a, a] with a = gain * sqrt(6 / (fanIn + fanOut))
func glorotU(gain float64, src rand.Source) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		in, out := fans(s...)
		limit := gain * math.Sqrt(6/(in+out))
		dist := distuv.Uniform{Min: -limit, Max: limit, Src: src}
		return sample(dt, s, dist.Rand)
	}
}

// glorotN returns the Glorot normal initializer, which samples weights
// from N(0, σ²) with σ = gain * sqrt(2 / (fanIn + fanOut))
func glorotN(gain float64, src rand.Source) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		in, out := fans(s...)
		dist := distuv.Normal{Mu: 0, Sigma: gain * math.Sqrt(2/(in+out)),
			Src: src}
		return sample(dt, s, dist.Rand)
	}
}
