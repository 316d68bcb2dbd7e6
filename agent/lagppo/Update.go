package lagppo

import (
	"fmt"
	"math"

	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/network"
	"github.com/cropgym/cropgym-go/solver"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// divergence is returned by a minibatch step whose loss or gradient is
// not finite
type divergence struct {
	quantity string
	value    float64
}

func (d *divergence) Error() string {
	return fmt.Sprintf("%v = %v", d.quantity, d.value)
}

// checkFinite returns a *divergence if the loss or the gradient norm of
// model is not finite
func checkFinite(name string, loss float64, model []G.ValueGrad) error {
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return &divergence{name + " loss", loss}
	}
	norm, err := solver.GradNorm(model)
	if err != nil {
		return err
	}
	if math.IsNaN(norm) || math.IsInf(norm, 0) {
		return &divergence{name + " gradient norm", norm}
	}
	return nil
}

// constVec returns a constant vector node of size n filled with value
func constVec(g *G.ExprGraph, name string, n int, value float64) *G.Node {
	backing := make([]float64, n)
	for i := range backing {
		backing[i] = value
	}
	return G.NewVector(g, tensor.Float64, G.WithShape(n), G.WithName(name),
		G.WithValue(tensor.New(tensor.WithBacking(backing),
			tensor.WithShape(n))))
}

// minimum returns the elementwise minimum of a and b using
// min(a, b) = (a + b - |a - b|) / 2
func minimum(a, b, half *G.Node) (*G.Node, error) {
	sum, err := G.Add(a, b)
	if err != nil {
		return nil, err
	}
	diff, err := G.Sub(a, b)
	if err != nil {
		return nil, err
	}
	abs, err := G.Abs(diff)
	if err != nil {
		return nil, err
	}
	min, err := G.Sub(sum, abs)
	if err != nil {
		return nil, err
	}
	return G.HadamardProd(min, half)
}

// maximum returns the elementwise maximum of a and b using
// max(a, b) = (a + b + |a - b|) / 2
func maximum(a, b, half *G.Node) (*G.Node, error) {
	sum, err := G.Add(a, b)
	if err != nil {
		return nil, err
	}
	diff, err := G.Sub(a, b)
	if err != nil {
		return nil, err
	}
	abs, err := G.Abs(diff)
	if err != nil {
		return nil, err
	}
	max, err := G.Add(sum, abs)
	if err != nil {
		return nil, err
	}
	return G.HadamardProd(max, half)
}

// policyLearner trains the policy network on the clipped surrogate
// objective
//
//	L = -mean(min(r·A, clip(r, 1-ε, 1+ε)·A)) - c·mean(H)
//
// where r is the probability ratio of the current and behaviour
// policies and H the entropy of the current policy.
type policyLearner struct {
	net *network.MLP

	actions    *G.Node
	oldLogProb *G.Node
	advantages *G.Node

	loss       *G.Node
	lossVal    G.Value
	entropyVal G.Value

	vm     G.VM
	solver solver.Solver
	levels int
}

func newPolicyLearner(c Config, features, levels int,
	init G.InitWFn) (*policyLearner, error) {
	acts, err := network.Activations(c.Activation, len(c.Hidden))
	if err != nil {
		return nil, fmt.Errorf("newPolicyLearner: %w", err)
	}
	m := c.MinibatchSize

	g := G.NewGraph()
	net, err := network.NewMLP("policy", features, m, levels, g, c.Hidden,
		acts, init)
	if err != nil {
		return nil, fmt.Errorf("newPolicyLearner: could not create "+
			"policy network: %w", err)
	}

	actions := G.NewMatrix(g, tensor.Float64, G.WithShape(m, levels),
		G.WithName("actions"), G.WithInit(G.Zeroes()))
	oldLogProb := G.NewVector(g, tensor.Float64, G.WithShape(m),
		G.WithName("oldLogProb"), G.WithInit(G.Zeroes()))
	advantages := G.NewVector(g, tensor.Float64, G.WithShape(m),
		G.WithName("advantages"), G.WithInit(G.Zeroes()))
	half := constVec(g, "half", m, 0.5)
	low := constVec(g, "clipLow", m, 1-c.Clip)
	high := constVec(g, "clipHigh", m, 1+c.Clip)

	logp, err := network.LogSoftmax(net.Prediction())
	if err != nil {
		return nil, fmt.Errorf("newPolicyLearner: %w", err)
	}
	logProb := G.Must(network.SelectLogProb(logp, actions))
	ratio := G.Must(G.Exp(G.Must(G.Sub(logProb, oldLogProb))))
	clipped := G.Must(maximum(ratio, low, half))
	clipped = G.Must(minimum(clipped, high, half))

	surr1 := G.Must(G.HadamardProd(ratio, advantages))
	surr2 := G.Must(G.HadamardProd(clipped, advantages))
	surr := G.Must(minimum(surr1, surr2, half))

	entropy := G.Must(G.Mean(G.Must(network.Entropy(logp))))
	loss := G.Must(G.Neg(G.Must(G.Mean(surr))))
	loss = G.Must(G.Sub(loss, G.Must(G.Mul(entropy,
		G.NewConstant(c.EntropyCoef)))))

	if _, err := G.Grad(loss, net.Learnables()...); err != nil {
		return nil, fmt.Errorf("newPolicyLearner: could not compute "+
			"gradient: %w", err)
	}

	s, err := c.Solver.Create()
	if err != nil {
		return nil, fmt.Errorf("newPolicyLearner: %w", err)
	}

	p := &policyLearner{
		net:        net,
		actions:    actions,
		oldLogProb: oldLogProb,
		advantages: advantages,
		loss:       loss,
		solver:     s,
		levels:     levels,
	}
	G.Read(loss, &p.lossVal)
	G.Read(entropy, &p.entropyVal)
	p.vm = G.NewTapeMachine(g, G.BindDualValues(net.Learnables()...))
	return p, nil
}

// step performs a single gradient step on a minibatch and returns the
// loss and mean entropy before the step
func (p *policyLearner) step(obs, actions, oldLogProb,
	advantages []float64) (float64, float64, error) {
	if err := p.net.SetInput(obs); err != nil {
		return 0, 0, fmt.Errorf("step: %w", err)
	}
	m := len(actions)
	inputs := []struct {
		node *G.Node
		data []float64
	}{
		{p.actions, network.OneHot(actions, p.levels)},
		{p.oldLogProb, oldLogProb},
		{p.advantages, advantages},
	}
	for _, in := range inputs {
		t := tensor.New(tensor.WithBacking(append([]float64(nil),
			in.data...)), tensor.WithShape(in.node.Shape()...))
		if err := G.Let(in.node, t); err != nil {
			return 0, 0, fmt.Errorf("step: %w", err)
		}
	}
	if m != p.net.BatchSize() {
		return 0, 0, fmt.Errorf("step: minibatch of %v, want %v", m,
			p.net.BatchSize())
	}

	defer p.vm.Reset()
	if err := p.vm.RunAll(); err != nil {
		return 0, 0, fmt.Errorf("step: %w", err)
	}
	loss := network.Scalar(p.lossVal)
	if err := checkFinite("policy", loss, p.net.Model()); err != nil {
		return 0, 0, err
	}
	if err := p.solver.Step(p.net.Model()); err != nil {
		return 0, 0, fmt.Errorf("step: %w", err)
	}
	return loss, network.Scalar(p.entropyVal), nil
}

// critic regresses a state value network on returns
type critic struct {
	name    string
	net     *network.MLP
	targets *G.Node
	lossVal G.Value
	vm      G.VM
	solver  solver.Solver
}

func newCritic(name string, c Config, features int,
	init G.InitWFn) (*critic, error) {
	acts, err := network.Activations(c.Activation, len(c.Hidden))
	if err != nil {
		return nil, fmt.Errorf("newCritic: %w", err)
	}

	g := G.NewGraph()
	net, err := network.NewSingleHeadMLP(name, features, c.MinibatchSize, g,
		c.Hidden, acts, init)
	if err != nil {
		return nil, fmt.Errorf("newCritic: could not create %v network: %w",
			name, err)
	}

	targets := G.NewMatrix(g, tensor.Float64,
		G.WithShape(net.Prediction().Shape()...), G.WithName("targets"),
		G.WithInit(G.Zeroes()))
	loss := G.Must(G.Sub(net.Prediction(), targets))
	loss = G.Must(G.Square(loss))
	loss = G.Must(G.Mean(loss))

	if _, err := G.Grad(loss, net.Learnables()...); err != nil {
		return nil, fmt.Errorf("newCritic: could not compute gradient: %w",
			err)
	}

	s, err := c.Solver.Create()
	if err != nil {
		return nil, fmt.Errorf("newCritic: %w", err)
	}

	cr := &critic{name: name, net: net, targets: targets, solver: s}
	G.Read(loss, &cr.lossVal)
	cr.vm = G.NewTapeMachine(g, G.BindDualValues(net.Learnables()...))
	return cr, nil
}

// step performs a single gradient step on a minibatch and returns the
// loss before the step
func (c *critic) step(obs, targets []float64) (float64, error) {
	if err := c.net.SetInput(obs); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	t := tensor.New(tensor.WithBacking(append([]float64(nil), targets...)),
		tensor.WithShape(c.targets.Shape()...))
	if err := G.Let(c.targets, t); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}

	defer c.vm.Reset()
	if err := c.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	loss := network.Scalar(c.lossVal)
	if err := checkFinite(c.name, loss, c.net.Model()); err != nil {
		return 0, err
	}
	if err := c.solver.Step(c.net.Model()); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	return loss, nil
}

// snapshot holds the parameters of every network and solver at the
// start of an update
type snapshot struct {
	policy       *network.Weights
	policySolver solver.State
	critics      []*network.Weights
	solvers      []solver.State
}

// divergenceError converts a *divergence into the
// *environment.NumericalDivergenceError of an iteration
func divergenceError(d *divergence, iteration, minibatch int) error {
	ctx := environment.NoContext()
	ctx.Iteration = iteration
	ctx.Step = minibatch
	return &environment.NumericalDivergenceError{
		Context:  ctx,
		Quantity: d.quantity,
		Value:    d.value,
	}
}
