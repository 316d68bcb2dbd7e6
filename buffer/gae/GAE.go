// Package gae implements a generalized advantage estimate buffer with
// one reward channel and any number of constraint cost channels
package gae

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Buffer implements a forward view generalized advantage estimate -
// GAE(λ) - buffer following https://arxiv.org/abs/1506.02438. Advantages
// and returns are computed separately for the reward and for each cost
// channel, each against its own value baseline.
type Buffer struct {
	obsSize  int // Size of state observations
	channels int // Number of cost channels
	maxSize  int // Max buffer size

	currentPos   int // Current position in the buffer
	pathStartIdx int // Position in the buffer where current trajectory starts

	lambda float64 // λ for GAE(λ) calculation
	gamma  float64 // Discount factor ℽ; overwrites env discount factor

	// Buffers for storing data
	obsBuffer  []float64
	actBuffer  []float64
	logpBuffer []float64
	rewBuffer  []float64
	valBuffer  []float64
	advBuffer  []float64
	retBuffer  []float64

	// Cost buffers, indexed by channel then position
	costBuffer    [][]float64
	costValBuffer [][]float64
	costAdvBuffer [][]float64
	costRetBuffer [][]float64
}

// New creates and returns a new GAE(λ) buffer holding size transitions
// with obsDim features and channels cost channels
func New(obsDim, channels, size int, lambda, gamma float64) *Buffer {
	newChannels := func() [][]float64 {
		c := make([][]float64, channels)
		for i := range c {
			c[i] = make([]float64, size)
		}
		return c
	}

	return &Buffer{
		obsSize:       obsDim,
		channels:      channels,
		maxSize:       size,
		lambda:        lambda,
		gamma:         gamma,
		obsBuffer:     make([]float64, size*obsDim),
		actBuffer:     make([]float64, size),
		logpBuffer:    make([]float64, size),
		rewBuffer:     make([]float64, size),
		valBuffer:     make([]float64, size),
		advBuffer:     make([]float64, size),
		retBuffer:     make([]float64, size),
		costBuffer:    newChannels(),
		costValBuffer: newChannels(),
		costAdvBuffer: newChannels(),
		costRetBuffer: newChannels(),
	}
}

// Len returns the number of transitions stored in the buffer
func (b *Buffer) Len() int {
	return b.currentPos
}

// Full returns whether the buffer is at capacity
func (b *Buffer) Full() bool {
	return b.currentPos >= b.maxSize
}

// Store stores a single timestep: the state observation, the discrete
// action taken with its log probability under the behaviour policy, the
// reward and cost received, and the value estimates of the state.
func (b *Buffer) Store(obs []float64, act, logp, rew, val float64,
	cost, costVal []float64) error {
	if b.currentPos >= b.maxSize {
		return fmt.Errorf("store: cannot add new transition, buffer at " +
			"maximum capacity")
	}
	if len(obs) != b.obsSize {
		return fmt.Errorf("store: illegal obs length \n\twant(%v)\n\thave(%v)",
			b.obsSize, len(obs))
	}
	if len(cost) != b.channels || len(costVal) != b.channels {
		return fmt.Errorf("store: illegal cost length \n\twant(%v)"+
			"\n\thave(%v, %v)", b.channels, len(cost), len(costVal))
	}

	// Add observations
	start := b.currentPos * b.obsSize
	copy(b.obsBuffer[start:start+b.obsSize], obs)

	b.actBuffer[b.currentPos] = act
	b.logpBuffer[b.currentPos] = logp
	b.rewBuffer[b.currentPos] = rew
	b.valBuffer[b.currentPos] = val
	for i := 0; i < b.channels; i++ {
		b.costBuffer[i][b.currentPos] = cost[i]
		b.costValBuffer[i][b.currentPos] = costVal[i]
	}
	b.currentPos++
	return nil
}

// FinishPath computes advatange estimates using GAE(λ) and
// returns-to-go for each state of the current trajectory, for the reward
// and every cost channel. This should be called at the end of a
// trajectory or when one gets cut off by the buffer filling up.
//
// The lastVal and lastCostVal arguments should be 0 if the trajectory
// ended in a terminal state, and otherwise the value estimates of the
// state the trajectory was cut off in. This bootstraps returns beyond
// the cutoff.
func (b *Buffer) FinishPath(lastVal float64, lastCostVal []float64) error {
	if len(lastCostVal) != b.channels {
		return fmt.Errorf("finishPath: illegal cost value length "+
			"\n\twant(%v)\n\thave(%v)", b.channels, len(lastCostVal))
	}
	start, stop := b.pathStartIdx, b.currentPos

	b.finish(b.rewBuffer[start:stop], b.valBuffer[start:stop], lastVal,
		b.advBuffer[start:stop], b.retBuffer[start:stop])
	for i := 0; i < b.channels; i++ {
		b.finish(b.costBuffer[i][start:stop], b.costValBuffer[i][start:stop],
			lastCostVal[i], b.costAdvBuffer[i][start:stop],
			b.costRetBuffer[i][start:stop])
	}

	b.pathStartIdx = b.currentPos
	return nil
}

// finish computes advantages and returns-to-go of a single signal into
// adv and ret
func (b *Buffer) finish(rews, vals []float64, lastVal float64, adv,
	ret []float64) {
	n := len(rews)
	deltas := make([]float64, n)
	for t := 0; t < n; t++ {
		next := lastVal
		if t+1 < n {
			next = vals[t+1]
		}
		deltas[t] = rews[t] + b.gamma*next - vals[t]
	}
	copy(adv, discountCumSum(deltas, b.gamma*b.lambda))

	extended := append(append(make([]float64, 0, n+1), rews...), lastVal)
	copy(ret, discountCumSum(extended, b.gamma)[:n])
}

// Batch returns the contents of the buffer and resets it. Every
// trajectory in the buffer must have been finished.
func (b *Buffer) Batch() (*Batch, error) {
	if b.pathStartIdx != b.currentPos {
		return nil, fmt.Errorf("batch: current trajectory has not been " +
			"finished")
	}
	n := b.currentPos

	copyChannels := func(src [][]float64) [][]float64 {
		dst := make([][]float64, len(src))
		for i := range src {
			dst[i] = append([]float64(nil), src[i][:n]...)
		}
		return dst
	}

	batch := &Batch{
		Features:         b.obsSize,
		Observations:     append([]float64(nil), b.obsBuffer[:n*b.obsSize]...),
		Actions:          append([]float64(nil), b.actBuffer[:n]...),
		LogProbs:         append([]float64(nil), b.logpBuffer[:n]...),
		RewardAdvantages: append([]float64(nil), b.advBuffer[:n]...),
		RewardReturns:    append([]float64(nil), b.retBuffer[:n]...),
		CostAdvantages:   copyChannels(b.costAdvBuffer),
		CostReturns:      copyChannels(b.costRetBuffer),
	}

	b.currentPos = 0
	b.pathStartIdx = 0
	return batch, nil
}

// Batch is a rollout of transitions with their advantage estimates and
// returns, stored in row major order
type Batch struct {
	Features         int
	Observations     []float64
	Actions          []float64
	LogProbs         []float64
	RewardAdvantages []float64
	RewardReturns    []float64

	// Cost advantages and returns, indexed by channel then transition
	CostAdvantages [][]float64
	CostReturns    [][]float64
}

// Len returns the number of transitions in the batch
func (b *Batch) Len() int {
	return len(b.Actions)
}

// Channels returns the number of cost channels in the batch
func (b *Batch) Channels() int {
	return len(b.CostAdvantages)
}

// Observation returns the observation of transition i
func (b *Batch) Observation(i int) []float64 {
	return b.Observations[i*b.Features : (i+1)*b.Features]
}

// Merge concatenates batches in order. All batches must have the same
// number of features and cost channels.
func Merge(batches ...*Batch) (*Batch, error) {
	if len(batches) == 0 {
		return nil, fmt.Errorf("merge: no batches to merge")
	}
	features, channels := batches[0].Features, batches[0].Channels()

	merged := &Batch{
		Features:       features,
		CostAdvantages: make([][]float64, channels),
		CostReturns:    make([][]float64, channels),
	}
	for i, b := range batches {
		if b.Features != features || b.Channels() != channels {
			return nil, fmt.Errorf("merge: batch %v has shape (%v, %v), "+
				"want (%v, %v)", i, b.Features, b.Channels(), features,
				channels)
		}
		merged.Observations = append(merged.Observations, b.Observations...)
		merged.Actions = append(merged.Actions, b.Actions...)
		merged.LogProbs = append(merged.LogProbs, b.LogProbs...)
		merged.RewardAdvantages = append(merged.RewardAdvantages,
			b.RewardAdvantages...)
		merged.RewardReturns = append(merged.RewardReturns, b.RewardReturns...)
		for c := 0; c < channels; c++ {
			merged.CostAdvantages[c] = append(merged.CostAdvantages[c],
				b.CostAdvantages[c]...)
			merged.CostReturns[c] = append(merged.CostReturns[c],
				b.CostReturns[c]...)
		}
	}
	return merged, nil
}

// Advantages returns the Lagrangian advantage of each transition,
//
//	A = (A_r - Σᵢ λᵢ A_cᵢ) / (1 + Σᵢ λᵢ),
//
// standardized to mean 0 and standard deviation 1
func (b *Batch) Advantages(multipliers []float64) ([]float64, error) {
	if len(multipliers) != b.Channels() {
		return nil, fmt.Errorf("advantages: have %v multipliers for %v "+
			"cost channels", len(multipliers), b.Channels())
	}

	adv := append([]float64(nil), b.RewardAdvantages...)
	for c, lambda := range multipliers {
		floats.AddScaled(adv, -lambda, b.CostAdvantages[c])
	}
	floats.Scale(1/(1+floats.Sum(multipliers)), adv)

	Standardize(adv)
	return adv, nil
}

// Standardize shifts and scales x in place to mean 0 and standard
// deviation 1
func Standardize(x []float64) {
	if len(x) == 0 {
		return
	}
	mean, std := stat.MeanStdDev(x, nil)
	if len(x) == 1 {
		std = 0
	}
	floats.AddConst(-mean, x)
	floats.Scale(1/(std+1e-8), x)
}

// discountCumSum computes and returns the discounted cumulative sum
// of all elements of x. Given x = [x0 x1 x2 ... xN] and discount ℽ,
// element i of the result is
//
//	xi + ℽ x(i+1) + ℽ^2 x(i+2) + ... + ℽ^(N-i) xN
func discountCumSum(x []float64, discount float64) []float64 {
	cumSums := make([]float64, len(x))
	var running float64
	for i := len(x) - 1; i >= 0; i-- {
		running = x[i] + discount*running
		cumSums[i] = running
	}
	return cumSums
}
