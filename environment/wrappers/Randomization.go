package wrappers

import (
	"fmt"
	"math"

	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/environment/crop"
	"github.com/cropgym/cropgym-go/environment/weather"
	"github.com/cropgym/cropgym-go/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// Overrider is an environment whose next episode can be run on injected
// weather and initial conditions
type Overrider interface {
	Override(series *weather.Series, init *crop.InitialConditions)
}

// RandomizationConfig configures a Randomization stage
type RandomizationConfig struct {
	// RandomWeather samples the weather of each episode from Pool
	RandomWeather bool
	Pool          *weather.Pool

	// Years are the harvest years cycled through with nominal weather
	// when RandomWeather is false. If empty, the inner environment's own
	// nominal season is used.
	Years []int

	// RandomInit perturbs the initial conditions of each episode
	// uniformly inside the bounds below
	RandomInit bool
	NAVAILI    r1.Interval
	SMI        r1.Interval
	SowOffset  r1.Interval
}

// DefaultRandomizationConfig returns the default perturbation bounds
// with both randomizations disabled
func DefaultRandomizationConfig() RandomizationConfig {
	return RandomizationConfig{
		NAVAILI:   r1.Interval{Min: 10, Max: 60},
		SMI:       r1.Interval{Min: 0.2, Max: 0.35},
		SowOffset: r1.Interval{Min: 0, Max: 14},
	}
}

// Validate validates a RandomizationConfig. A random weather
// configuration without a non-empty pool is a configuration error.
func (c RandomizationConfig) Validate() error {
	if c.RandomWeather && (c.Pool == nil || c.Pool.Len() == 0) {
		return environment.NewConfigurationError("weather-dir",
			"random weather requires a non-empty weather pool")
	}
	if c.RandomInit {
		for name, i := range map[string]r1.Interval{
			"navaili":    c.NAVAILI,
			"smi":        c.SMI,
			"sow-offset": c.SowOffset,
		} {
			if i.Min > i.Max || math.IsNaN(i.Min) || math.IsNaN(i.Max) {
				return environment.NewConfigurationError(name,
					"invalid perturbation interval [%v, %v]", i.Min, i.Max)
			}
		}
		if c.SowOffset.Min < 0 {
			return environment.NewConfigurationError("sow-offset",
				"sowing offset must be non-negative, got %v", c.SowOffset.Min)
		}
	}
	return nil
}

// Sample records the weather and initial conditions drawn for an
// episode
type Sample struct {
	Year int
	Init crop.InitialConditions
}

// Randomization is a Stage which, at every reset, injects a weather
// series and initial conditions into a crop environment. Every draw
// comes from the stage's random source, so a fixed seed gives an
// identical sequence of episodes.
type Randomization struct {
	config  RandomizationConfig
	rng     *rand.Rand
	starter *environment.UniformStarter

	nominal map[int]*weather.Series
	samples []Sample
}

// NewRandomization returns a new Randomization stage drawing from src
func NewRandomization(c RandomizationConfig,
	src rand.Source) (*Randomization, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newRandomization: %w", err)
	}

	r := &Randomization{
		config:  c,
		rng:     rand.New(src),
		nominal: make(map[int]*weather.Series),
	}
	if c.RandomInit {
		r.starter = environment.NewUniformStarter([]r1.Interval{
			c.NAVAILI, c.SMI, c.SowOffset,
		}, src)
	}
	return r, nil
}

// BeforeReset implements the Stage interface
func (r *Randomization) BeforeReset(inner environment.Environment) error {
	target, ok := inner.(Overrider)
	if !ok {
		return fmt.Errorf("beforeReset: environment %T cannot be randomized",
			inner)
	}

	var series *weather.Series
	switch {
	case r.config.RandomWeather:
		series = r.config.Pool.Sample(r.rng)

	case len(r.config.Years) > 0:
		year := r.config.Years[r.rng.Intn(len(r.config.Years))]
		if _, ok := r.nominal[year]; !ok {
			r.nominal[year] = weather.Nominal(year)
		}
		series = r.nominal[year]
	}

	var init *crop.InitialConditions
	if r.starter != nil {
		v := r.starter.Start()
		init = &crop.InitialConditions{
			NAVAILI:   v.AtVec(0),
			SMI:       v.AtVec(1),
			SowOffset: int(math.Floor(v.AtVec(2))),
		}
	}

	sample := Sample{Init: crop.NominalConditions()}
	if series != nil {
		sample.Year = series.Year
	}
	if init != nil {
		sample.Init = *init
	}
	r.samples = append(r.samples, sample)

	target.Override(series, init)
	return nil
}

// AfterReset implements the Stage interface
func (r *Randomization) AfterReset(*timestep.TimeStep) error {
	return nil
}

// AfterStep implements the Stage interface
func (r *Randomization) AfterStep(*timestep.TimeStep, *mat.VecDense,
	*timestep.TimeStep) error {
	return nil
}

// CostSpec implements the Stage interface
func (r *Randomization) CostSpec(spec environment.Spec) environment.Spec {
	return spec
}

// Samples returns the draws made so far, one per reset
func (r *Randomization) Samples() []Sample {
	return append([]Sample(nil), r.samples...)
}

// Last returns the draw of the current episode
func (r *Randomization) Last() (Sample, bool) {
	if len(r.samples) == 0 {
		return Sample{}, false
	}
	return r.samples[len(r.samples)-1], true
}
