package experiment

import (
	"fmt"

	"github.com/cropgym/cropgym-go/agent"
	"github.com/cropgym/cropgym-go/environment/crop"
	"github.com/cropgym/cropgym-go/environment/weather"
	"github.com/cropgym/cropgym-go/environment/wrappers"
	"github.com/cropgym/cropgym-go/nitrogen"
	"github.com/cropgym/cropgym-go/timestep"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Episode summarizes a single evaluation season
type Episode struct {
	Year   int
	Length int
	End    timestep.EndType
	Return float64
	Cost   []float64

	// Amounts holds the nitrogen applied on each decision, in kg N/ha
	Amounts []float64

	// Season outcomes computed from the final simulator state
	Yield    float64
	Napplied float64
	Surplus  float64
	NUE      float64
}

// Evaluation holds the evaluation of a policy over a set of seasons
type Evaluation struct {
	Policy    string
	Iteration int
	Episodes  []Episode
}

// MeanReturn returns the mean return over the evaluated seasons
func (e Evaluation) MeanReturn() float64 {
	returns := make([]float64, len(e.Episodes))
	for i, ep := range e.Episodes {
		returns[i] = ep.Return
	}
	return stat.Mean(returns, nil)
}

// MeanYield returns the mean yield over the evaluated seasons
func (e Evaluation) MeanYield() float64 {
	yields := make([]float64, len(e.Episodes))
	for i, ep := range e.Episodes {
		yields[i] = ep.Yield
	}
	return stat.Mean(yields, nil)
}

// MeanCost returns the mean episodic cost of each cost channel
func (e Evaluation) MeanCost() []float64 {
	if len(e.Episodes) == 0 {
		return nil
	}
	mean := make([]float64, len(e.Episodes[0].Cost))
	for _, ep := range e.Episodes {
		floats.Add(mean, ep.Cost)
	}
	floats.Scale(1/float64(len(e.Episodes)), mean)
	return mean
}

// Evaluator runs policies deterministically on the nominal weather of a
// fixed set of years, starting every season from the nominal initial
// conditions
type Evaluator struct {
	env    *wrappers.Pipeline
	target wrappers.Overrider
	series []*weather.Series
}

// NewEvaluator returns a new Evaluator on the seasons of years. The
// environment must not randomize its resets.
func NewEvaluator(env *wrappers.Pipeline, years []int) (*Evaluator, error) {
	target, ok := env.Inner().(wrappers.Overrider)
	if !ok {
		return nil, fmt.Errorf("newEvaluator: cannot choose the weather of "+
			"environment %T", env.Inner())
	}
	for _, stage := range env.Stages() {
		if _, ok := stage.(*wrappers.Randomization); ok {
			return nil, fmt.Errorf("newEvaluator: evaluation environment " +
				"must not be randomized")
		}
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("newEvaluator: no evaluation years")
	}

	series := make([]*weather.Series, len(years))
	for i, y := range years {
		series[i] = weather.Nominal(y)
	}
	return &Evaluator{env: env, target: target, series: series}, nil
}

// Evaluate runs policy for one season on each evaluation year
func (e *Evaluator) Evaluate(name string, policy agent.Policy) (Evaluation,
	error) {
	eval := Evaluation{Policy: name}
	for _, s := range e.series {
		ep, err := e.season(s, policy)
		if err != nil {
			return Evaluation{}, fmt.Errorf("evaluate: %v in %v: %w", name,
				s.Year, err)
		}
		eval.Episodes = append(eval.Episodes, ep)
	}
	return eval, nil
}

// season runs a single season with the weather series s
func (e *Evaluator) season(s *weather.Series, policy agent.Policy) (Episode,
	error) {
	nominal := crop.NominalConditions()
	e.target.Override(s, &nominal)

	step, err := e.env.Reset()
	if err != nil {
		return Episode{}, err
	}
	ep := Episode{
		Year: s.Year,
		Cost: make([]float64, e.env.CostSpec().Len()),
	}

	for !step.Last() {
		action := policy.SelectAction(step)
		step, _, err = e.env.Step(action)
		if err != nil {
			return Episode{}, err
		}

		ep.Length++
		ep.Return += step.Reward
		ep.Amounts = append(ep.Amounts, step.Info.Amount)
		if step.Cost != nil {
			floats.Add(ep.Cost, step.Cost)
		}
	}

	final := step.Info.State
	ep.End = step.EndType()
	ep.Yield = final[crop.TWSO]
	ep.Napplied = final[crop.Napplied]
	ep.Surplus = nitrogen.Surplus(final[crop.Napplied], final[crop.Ndepo],
		final[crop.NamountSO])
	ep.NUE = nitrogen.UseEfficiency(final[crop.Napplied], final[crop.Ndepo],
		final[crop.NamountSO])
	return ep, nil
}

// TestYears returns the nominal evaluation years: the even years from
// 1990 to 2021. Training on nominal weather uses the odd years.
func TestYears() []int {
	var years []int
	for y := 1990; y <= 2021; y += 2 {
		years = append(years, y)
	}
	return years
}

// TrainYears returns the nominal training years, the odd years from
// 1990 to 2021
func TrainYears() []int {
	var years []int
	for y := 1991; y <= 2021; y += 2 {
		years = append(years, y)
	}
	return years
}
