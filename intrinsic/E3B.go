package intrinsic

import (
	"fmt"
	"math"

	"github.com/cropgym/cropgym-go/network"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// e3b implements the episodic elliptical exploration bonus of
// https://arxiv.org/abs/2210.05805. The bonus of reaching s' is
// φ(s')ᵀ C⁻¹ φ(s'), where C = λI + Σ φφᵀ sums the embeddings seen so
// far in the episode.
type e3b struct {
	config   Config
	dynamics *inverseDynamics

	// encoder is an immutable snapshot read by episodes
	encoder *network.Weights
}

func newE3B(c Config, features, levels int, src rand.Source) (*e3b, error) {
	d, err := newInverseDynamics(c, features, levels, src)
	if err != nil {
		return nil, fmt.Errorf("newE3B: %w", err)
	}
	return &e3b{config: c, dynamics: d, encoder: d.encoder.Snapshot()}, nil
}

// Kind implements the Module interface
func (e *e3b) Kind() Kind {
	return E3B
}

// Config implements the Module interface
func (e *e3b) Config() Config {
	return e.config
}

// NewEpisode implements the Module interface
func (e *e3b) NewEpisode() Episode {
	n := e.config.EmbeddingSize
	cinv := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		cinv.SetSym(i, i, 1/e.config.Ridge)
	}
	return &e3bEpisode{
		encoder: e.encoder,
		cinv:    cinv,
		u:       mat.NewVecDense(n, nil),
	}
}

// Update implements the Module interface
func (e *e3b) Update(b Batch, rng *rand.Rand) error {
	if _, err := e.dynamics.train(b, e.config.Epochs, rng); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	e.encoder = e.dynamics.encoder.Snapshot()
	return nil
}

// State implements the Module interface
func (e *e3b) State() State {
	return e.dynamics.state()
}

// SetState implements the Module interface
func (e *e3b) SetState(s State) error {
	if err := e.dynamics.setState(s); err != nil {
		return fmt.Errorf("setState: %w", err)
	}
	e.encoder = e.dynamics.encoder.Snapshot()
	return nil
}

// e3bEpisode tracks the inverse embedding covariance C⁻¹ of an episode
type e3bEpisode struct {
	encoder *network.Weights
	cinv    *mat.SymDense
	u       *mat.VecDense
}

// Bonus implements the Episode interface. C⁻¹ is updated with the
// Sherman-Morrison formula after the bonus is computed.
func (e *e3bEpisode) Bonus(obs, action, next []float64) float64 {
	phi := mat.NewVecDense(e.u.Len(), e.encoder.Forward(next))
	e.u.MulVec(e.cinv, phi)
	bonus := mat.Dot(phi, e.u)

	e.cinv.SymRankOne(e.cinv, -1/(1+bonus), e.u)
	if math.IsNaN(bonus) || bonus < 0 {
		return 0
	}
	return bonus
}
