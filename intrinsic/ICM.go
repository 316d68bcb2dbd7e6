package intrinsic

import (
	"fmt"

	"github.com/cropgym/cropgym-go/network"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// icm implements a curiosity bonus in the spirit of
// https://arxiv.org/abs/1705.05363: the squared error of a forward
// model predicting φ(s') from φ(s) and the action. The encoder φ is
// trained by inverse dynamics and the forward model is a ridge
// regression refit after every encoder update.
type icm struct {
	config   Config
	dynamics *inverseDynamics
	levels   int

	// Immutable snapshots read by episodes
	encoder *network.Weights
	forward *mat.Dense
}

func newICM(c Config, features, levels int, src rand.Source) (*icm, error) {
	d, err := newInverseDynamics(c, features, levels, src)
	if err != nil {
		return nil, fmt.Errorf("newICM: %w", err)
	}

	// Until the first update the forward model predicts φ(s') = 0
	forward := mat.NewDense(c.EmbeddingSize+levels, c.EmbeddingSize, nil)
	return &icm{
		config:   c,
		dynamics: d,
		levels:   levels,
		encoder:  d.encoder.Snapshot(),
		forward:  forward,
	}, nil
}

// Kind implements the Module interface
func (m *icm) Kind() Kind {
	return ICM
}

// Config implements the Module interface
func (m *icm) Config() Config {
	return m.config
}

// NewEpisode implements the Module interface
func (m *icm) NewEpisode() Episode {
	return &icmEpisode{encoder: m.encoder, forward: m.forward,
		levels: m.levels}
}

// Update implements the Module interface
func (m *icm) Update(b Batch, rng *rand.Rand) error {
	if b.Len() == 0 {
		return nil
	}
	if _, err := m.dynamics.train(b, m.config.Epochs, rng); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	encoder := m.dynamics.encoder.Snapshot()

	forward, err := fitForward(encoder, b, m.levels, m.config.Ridge)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	m.encoder, m.forward = encoder, forward
	return nil
}

// fitForward fits W = (XᵀX + λI)⁻¹ XᵀY, where each row of X is
// [φ(s), onehot(a)] and each row of Y is φ(s')
func fitForward(encoder *network.Weights, b Batch, levels int,
	ridge float64) (*mat.Dense, error) {
	n := b.Len()
	embedding := encoder.Outputs()
	x := mat.NewDense(n, embedding+levels, nil)
	y := mat.NewDense(n, embedding, nil)
	for i := 0; i < n; i++ {
		row := append(encoder.Forward(b.Observations[i*b.Features:(i+1)*b.Features]),
			network.OneHot(b.Actions[i:i+1], levels)...)
		x.SetRow(i, row)
		y.SetRow(i, encoder.Forward(b.Next[i*b.Features:(i+1)*b.Features]))
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	for i := 0; i < embedding+levels; i++ {
		xtx.SetSym(i, i, xtx.At(i, i)+ridge)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, fmt.Errorf("fitForward: regularized design matrix is " +
			"not positive definite")
	}

	var xty, w mat.Dense
	xty.Mul(x.T(), y)
	if err := chol.SolveTo(&w, &xty); err != nil {
		return nil, fmt.Errorf("fitForward: %w", err)
	}
	return &w, nil
}

// State implements the Module interface
func (m *icm) State() State {
	s := m.dynamics.state()
	s.Forward = mat.DenseCopyOf(m.forward)
	return s
}

// SetState implements the Module interface
func (m *icm) SetState(s State) error {
	if s.Forward == nil {
		return fmt.Errorf("setState: missing forward model")
	}
	if err := m.dynamics.setState(s); err != nil {
		return fmt.Errorf("setState: %w", err)
	}
	m.encoder = m.dynamics.encoder.Snapshot()
	m.forward = mat.DenseCopyOf(s.Forward)
	return nil
}

type icmEpisode struct {
	encoder *network.Weights
	forward *mat.Dense
	levels  int
}

// Bonus implements the Episode interface
func (e *icmEpisode) Bonus(obs, action, next []float64) float64 {
	phi := e.encoder.Forward(obs)
	in := mat.NewVecDense(len(phi)+e.levels,
		append(phi, network.OneHot(action[:1], e.levels)...))

	var pred mat.VecDense
	pred.MulVec(e.forward.T(), in)
	pred.SubVec(&pred, mat.NewVecDense(len(phi), e.encoder.Forward(next)))
	return 0.5 * mat.Dot(&pred, &pred)
}
