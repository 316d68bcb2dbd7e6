package intrinsic

import (
	"fmt"
	"math"

	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/network"
	"github.com/cropgym/cropgym-go/solver"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// inverseDynamics trains an encoder φ by predicting the action taken
// between two consecutive observations from their embeddings
// (φ(s), φ(s')). The encoder embeds a stacked (2·batch, features)
// input: the first batch rows hold states and the last batch rows their
// successors.
type inverseDynamics struct {
	encoder *network.MLP
	head    *network.MLP
	actions *G.Node

	loss    *G.Node
	lossVal G.Value

	vm     G.VM
	solver solver.Solver
	model  []G.ValueGrad

	batch    int
	features int
	levels   int
}

func newInverseDynamics(c Config, features, levels int,
	src rand.Source) (*inverseDynamics, error) {
	init, err := c.InitWFn.Create(src)
	if err != nil {
		return nil, fmt.Errorf("newInverseDynamics: %w", err)
	}
	acts, err := network.Activations(c.Activation, len(c.Hidden))
	if err != nil {
		return nil, fmt.Errorf("newInverseDynamics: %w", err)
	}

	g := G.NewGraph()
	b := c.BatchSize
	encoder, err := network.NewMLP("encoder", features, 2*b,
		c.EmbeddingSize, g, c.Hidden, acts, init)
	if err != nil {
		return nil, fmt.Errorf("newInverseDynamics: could not create "+
			"encoder: %w", err)
	}

	embedded := encoder.Prediction()
	phi, err := G.Slice(embedded, G.S(0, b))
	if err != nil {
		return nil, fmt.Errorf("newInverseDynamics: %w", err)
	}
	phiNext, err := G.Slice(embedded, G.S(b, 2*b))
	if err != nil {
		return nil, fmt.Errorf("newInverseDynamics: %w", err)
	}
	joint, err := G.Concat(1, phi, phiNext)
	if err != nil {
		return nil, fmt.Errorf("newInverseDynamics: %w", err)
	}

	headActs, _ := network.Activations(c.Activation, len(c.Hidden))
	head, err := network.NewMLPFromInput("inverse", joint, levels, c.Hidden,
		headActs, init)
	if err != nil {
		return nil, fmt.Errorf("newInverseDynamics: could not create "+
			"inverse model: %w", err)
	}

	actions := G.NewMatrix(g, tensor.Float64, G.WithShape(b, levels),
		G.WithName("actions"), G.WithInit(G.Zeroes()))

	logp, err := network.LogSoftmax(head.Prediction())
	if err != nil {
		return nil, fmt.Errorf("newInverseDynamics: %w", err)
	}
	taken, err := network.SelectLogProb(logp, actions)
	if err != nil {
		return nil, fmt.Errorf("newInverseDynamics: %w", err)
	}
	loss, err := G.Mean(taken)
	if err != nil {
		return nil, fmt.Errorf("newInverseDynamics: %w", err)
	}
	if loss, err = G.Neg(loss); err != nil {
		return nil, fmt.Errorf("newInverseDynamics: %w", err)
	}

	learnables := append(encoder.Learnables(), head.Learnables()...)
	if _, err := G.Grad(loss, learnables...); err != nil {
		return nil, fmt.Errorf("newInverseDynamics: could not compute "+
			"gradient: %w", err)
	}

	s, err := solver.DefaultConfig(c.StepSize).Create()
	if err != nil {
		return nil, fmt.Errorf("newInverseDynamics: %w", err)
	}

	d := &inverseDynamics{
		encoder:  encoder,
		head:     head,
		actions:  actions,
		loss:     loss,
		solver:   s,
		model:    append(encoder.Model(), head.Model()...),
		batch:    b,
		features: features,
		levels:   levels,
	}
	G.Read(d.loss, &d.lossVal)
	d.vm = G.NewTapeMachine(g, G.BindDualValues(learnables...))
	return d, nil
}

// train performs epochs passes over a batch of transitions in random
// minibatches and returns the mean loss. If the loss or gradient
// diverges, the parameters are restored to their values before
// training and a *environment.NumericalDivergenceError is returned.
func (d *inverseDynamics) train(b Batch, epochs int,
	rng *rand.Rand) (float64, error) {
	n := b.Len()
	if n == 0 {
		return 0, nil
	}
	if b.Features != d.features {
		return 0, fmt.Errorf("train: batch has %v features, encoder "+
			"expects %v", b.Features, d.features)
	}

	encoder, head, opt := d.encoder.Snapshot(), d.head.Snapshot(),
		d.solver.State()
	restore := func() {
		d.encoder.SetWeights(encoder)
		d.head.SetWeights(head)
		d.solver.SetState(opt)
	}

	rounds := epochs * ceilDiv(n, d.batch)
	input := make([]float64, 2*d.batch*d.features)
	actions := make([]float64, d.batch)
	var total float64
	for r := 0; r < rounds; r++ {
		for i := 0; i < d.batch; i++ {
			j := rng.Intn(n)
			copy(input[i*d.features:(i+1)*d.features],
				b.Observations[j*b.Features:(j+1)*b.Features])
			copy(input[(d.batch+i)*d.features:(d.batch+i+1)*d.features],
				b.Next[j*b.Features:(j+1)*b.Features])
			actions[i] = b.Actions[j]
		}

		if err := d.encoder.SetInput(input); err != nil {
			return 0, fmt.Errorf("train: %w", err)
		}
		oneHot := tensor.New(
			tensor.WithBacking(network.OneHot(actions, d.levels)),
			tensor.WithShape(d.batch, d.levels),
		)
		if err := G.Let(d.actions, oneHot); err != nil {
			return 0, fmt.Errorf("train: %w", err)
		}

		if err := d.vm.RunAll(); err != nil {
			d.vm.Reset()
			return 0, fmt.Errorf("train: %w", err)
		}

		loss := network.Scalar(d.lossVal)
		norm, err := solver.GradNorm(d.model)
		if err != nil {
			d.vm.Reset()
			return 0, fmt.Errorf("train: %w", err)
		}
		if diverged(loss) || diverged(norm) {
			d.vm.Reset()
			restore()
			quantity, value := "inverse dynamics loss", loss
			if !diverged(loss) {
				quantity, value = "inverse dynamics gradient norm", norm
			}
			ctx := environment.NoContext()
			ctx.Step = r
			return 0, &environment.NumericalDivergenceError{
				Context:  ctx,
				Quantity: quantity,
				Value:    value,
			}
		}

		if err := d.solver.Step(d.model); err != nil {
			d.vm.Reset()
			return 0, fmt.Errorf("train: %w", err)
		}
		d.vm.Reset()
		total += loss
	}
	return total / float64(rounds), nil
}

// state returns the parameters of the encoder and inverse model
func (d *inverseDynamics) state() State {
	return State{
		Encoder: d.encoder.Snapshot(),
		Head:    d.head.Snapshot(),
		Solver:  d.solver.State(),
	}
}

// setState restores the parameters of the encoder and inverse model
func (d *inverseDynamics) setState(s State) error {
	if s.Encoder == nil || s.Head == nil {
		return fmt.Errorf("setState: missing encoder weights")
	}
	if err := d.encoder.SetWeights(s.Encoder); err != nil {
		return fmt.Errorf("setState: %w", err)
	}
	if err := d.head.SetWeights(s.Head); err != nil {
		return fmt.Errorf("setState: %w", err)
	}
	return d.solver.SetState(s.Solver)
}

func diverged(x float64) bool {
	return math.IsNaN(x) || math.IsInf(x, 0)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
