package crop

import (
	"fmt"
	"math"
	"time"

	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/environment/weather"
	"github.com/cropgym/cropgym-go/timestep"
	"gonum.org/v1/gonum/mat"
)

// Config configures a WinterWheat environment
type Config struct {
	Variant Variant

	// TimeStep is the number of simulated days per decision
	TimeStep int

	// Horizon is the maximum number of decisions in a season
	Horizon int

	// Levels is the number of discrete fertilization levels; level i
	// applies i*KgPerLevel kg N/ha
	Levels     int
	KgPerLevel float64

	// Year is the harvest year of the nominal season, used when no
	// weather override is injected
	Year int

	Parameters Parameters
}

// DefaultConfig returns the default winter wheat configuration: weekly
// decisions, 9 levels of 10 kg N/ha each and the SNOMIN variant
func DefaultConfig() Config {
	return Config{
		Variant:    WofostSNOMIN,
		TimeStep:   7,
		Horizon:    48,
		Levels:     9,
		KgPerLevel: 10,
		Year:       1991,
		Parameters: DefaultParameters(),
	}
}

// Validate validates a Config
func (c Config) Validate() error {
	if c.TimeStep <= 0 {
		return environment.NewConfigurationError("timestep",
			"must be positive, got %v", c.TimeStep)
	}
	if c.Horizon <= 0 {
		return environment.NewConfigurationError("horizon",
			"must be positive, got %v", c.Horizon)
	}
	if c.Levels < 2 {
		return environment.NewConfigurationError("levels",
			"need at least 2 action levels, got %v", c.Levels)
	}
	if c.KgPerLevel <= 0 {
		return environment.NewConfigurationError("kg-per-level",
			"must be positive, got %v", c.KgPerLevel)
	}
	return nil
}

// WinterWheat is an environment in which an agent decides, once every
// TimeStep days, how much nitrogen fertilizer to apply to a winter wheat
// crop. Episodes run from sowing until harvest or until the season
// horizon is reached, whichever comes first.
//
// Actions are one-dimensional discrete levels in [0, Levels-1].
// Observations hold scaled crop features, the cumulative nitrogen
// applied, and the weather of the last TimeStep days. The raw simulator
// state is returned on each timestep's Info.
//
// WinterWheat does not compute rewards or costs: its timesteps have zero
// reward and no cost channels. Those are added by wrapper stages.
type WinterWheat struct {
	sim     Simulator
	config  Config
	nominal *weather.Series

	series *weather.Series
	init   InitialConditions

	pendingSeries *weather.Series
	pendingInit   *InitialConditions

	enders  []environment.Ender
	state   timestep.State
	last    timestep.TimeStep
	week    int
	naction int
	started bool

	obsSpec  environment.Spec
	actSpec  environment.Spec
	discSpec environment.Spec
}

// New returns a new WinterWheat environment driven by sim
func New(sim Simulator, c Config) (*WinterWheat, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	w := &WinterWheat{
		sim:     sim,
		config:  c,
		nominal: weather.Nominal(c.Year),
	}

	w.enders = []environment.Ender{
		environment.NewFunctionEnder(w.harvested, timestep.Harvest),
		environment.NewStepLimit(c.Horizon),
		environment.NewFunctionEnder(w.seasonOver, timestep.Horizon),
	}

	labels := ObservationLabels(c.TimeStep)
	n := len(labels)
	inf := make([]float64, n)
	negInf := make([]float64, n)
	for i := range inf {
		inf[i] = math.Inf(1)
		negInf[i] = math.Inf(-1)
	}
	w.obsSpec = environment.NewSpec(mat.NewVecDense(n, nil),
		environment.Observation, mat.NewVecDense(n, negInf),
		mat.NewVecDense(n, inf), environment.Continuous).WithLabels(labels...)

	w.actSpec = environment.NewSpec(mat.NewVecDense(1, nil),
		environment.Action, mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{float64(c.Levels - 1)}),
		environment.Discrete)

	w.discSpec = environment.NewSpec(mat.NewVecDense(1, nil),
		environment.Discount, mat.NewVecDense(1, []float64{1}),
		mat.NewVecDense(1, []float64{1}), environment.Continuous)

	return w, nil
}

// NewDefault returns a WinterWheat environment driven by the surrogate
// Model
func NewDefault(c Config) (*WinterWheat, error) {
	return New(NewModel(c.Variant, c.Parameters), c)
}

// Override injects a weather series and initial conditions to be used
// at the next Reset only. A nil series keeps the nominal weather.
func (w *WinterWheat) Override(series *weather.Series,
	init *InitialConditions) {
	w.pendingSeries = series
	w.pendingInit = init
}

// Reset implements the environment.Environment interface
func (w *WinterWheat) Reset() (timestep.TimeStep, error) {
	w.series = w.nominal
	if w.pendingSeries != nil {
		w.series = w.pendingSeries
	}
	w.init = NominalConditions()
	if w.pendingInit != nil {
		w.init = *w.pendingInit
	}
	w.pendingSeries, w.pendingInit = nil, nil

	if err := w.sim.Reset(w.series, w.init); err != nil {
		w.started = false
		return timestep.TimeStep{}, &environment.SimulationError{
			Context: environment.NoContext(),
			Day:     w.init.SowOffset,
			Err:     err,
		}
	}

	w.week, w.naction = 0, 0
	w.started = true
	w.state = w.snapshot()

	step := timestep.New(timestep.First, 0, 1, w.observe(), 0)
	step.Info = timestep.Info{
		Date:  w.date(),
		State: w.state.Clone(),
	}
	w.last = step
	return step, nil
}

// Step implements the environment.Environment interface. An action
// outside of the action spec returns an *environment.InvalidActionError
// without changing the environment. A simulator failure terminates the
// episode: the returned timestep is the last of the episode and carries
// the *environment.SimulationError in its Info.
func (w *WinterWheat) Step(action *mat.VecDense) (timestep.TimeStep,
	bool, error) {
	if !w.started {
		return timestep.TimeStep{}, true,
			fmt.Errorf("step: environment must be reset before stepping")
	}
	if w.last.Last() {
		return w.last, true,
			fmt.Errorf("step: episode has ended, environment must be reset")
	}

	number := w.last.Number + 1
	if action == nil || !w.actSpec.Contains(action) {
		ctx := environment.NoContext()
		ctx.Step = number
		var data []float64
		if action != nil {
			data = mat.Col(nil, 0, action)
		}
		return w.last, false, &environment.InvalidActionError{
			Context: ctx,
			Action:  data,
			Spec:    w.actSpec,
		}
	}

	level := action.AtVec(0)
	amount := level * w.config.KgPerLevel

	err := w.sim.Advance(w.config.TimeStep, amount)
	w.week++
	if level > 0 {
		w.naction++
	}

	if err != nil {
		ctx := environment.NoContext()
		ctx.Step = number
		step := timestep.New(timestep.Last, 0, 1,
			mat.VecDenseCopyOf(w.last.Observation), number)
		step.Info = timestep.Info{
			Date:             w.date(),
			State:            w.state.Clone(),
			Amount:           amount,
			SimulationFailed: true,
			Err: &environment.SimulationError{
				Context: ctx,
				Day:     w.sim.Day(),
				Err:     err,
			},
		}
		step.SetEnd(timestep.SimulationFailure)
		w.last = step
		return step, true, nil
	}

	w.state = w.snapshot()
	step := timestep.New(timestep.Mid, 0, 1, w.observe(), number)
	step.Info = timestep.Info{
		Date:   w.date(),
		State:  w.state.Clone(),
		Amount: amount,
	}

	for _, ender := range w.enders {
		if ender.End(&step) {
			break
		}
	}

	w.last = step
	return step, step.Last(), nil
}

// harvested returns whether the crop has matured
func (w *WinterWheat) harvested(s timestep.State) bool {
	return s[DVS] >= 2
}

// seasonOver returns whether the weather series cannot support another
// decision
func (w *WinterWheat) seasonOver(s timestep.State) bool {
	return int(s[Day])+w.config.TimeStep > w.series.Len()
}

// snapshot returns the simulator state extended with the decision
// counters of the episode
func (w *WinterWheat) snapshot() timestep.State {
	state := w.sim.State()
	state[Week] = float64(w.week)
	state[Naction] = float64(w.naction)
	return state
}

// date returns the current simulated date
func (w *WinterWheat) date() time.Time {
	return weather.CampaignStart(w.series.Year).AddDate(0, 0, w.sim.Day())
}

// observe constructs the scaled observation vector of the current state
func (w *WinterWheat) observe() *mat.VecDense {
	window := w.series.Window(w.sim.Day(), w.config.TimeStep)
	return mat.NewVecDense(w.obsSpec.Len(), Observe(w.state, window))
}

// Series returns the weather series of the current episode
func (w *WinterWheat) Series() *weather.Series {
	return w.series
}

// InitialConditions returns the initial conditions of the current
// episode
func (w *WinterWheat) InitialConditions() InitialConditions {
	return w.init
}

// Config returns the configuration of the environment
func (w *WinterWheat) Config() Config {
	return w.config
}

// ObservationSpec implements the environment.Environment interface
func (w *WinterWheat) ObservationSpec() environment.Spec {
	return w.obsSpec
}

// ActionSpec implements the environment.Environment interface
func (w *WinterWheat) ActionSpec() environment.Spec {
	return w.actSpec
}

// CostSpec implements the environment.Environment interface. The crop
// environment itself has no cost channels.
func (w *WinterWheat) CostSpec() environment.Spec {
	return environment.Spec{Type: environment.Cost,
		Cardinality: environment.Continuous}
}

// DiscountSpec implements the environment.Environment interface
func (w *WinterWheat) DiscountSpec() environment.Spec {
	return w.discSpec
}
