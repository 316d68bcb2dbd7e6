package policy

import (
	"math"

	"github.com/cropgym/cropgym-go/nitrogen"
	"github.com/cropgym/cropgym-go/timestep"
	"gonum.org/v1/gonum/mat"
)

// Zero is a policy which never fertilizes
type Zero struct{}

// SelectAction implements the agent.Policy interface
func (Zero) SelectAction(timestep.TimeStep) *mat.VecDense {
	return mat.NewVecDense(1, []float64{0})
}

// StandardPractice is a policy which follows a standard-practice
// fertilization treatment. On each decision it applies the treatment's
// amounts that fall within the next TimeStep days, rounded to the
// nearest fertilizer level.
type StandardPractice struct {
	Treatment  nitrogen.Treatment
	TimeStep   int
	Levels     int
	KgPerLevel float64
}

// SelectAction implements the agent.Policy interface
func (s StandardPractice) SelectAction(t timestep.TimeStep) *mat.VecDense {
	start := t.Info.Date
	end := start.AddDate(0, 0, s.TimeStep)

	dates, amounts := s.Treatment.Schedule(start.Year())
	var amount float64
	for i, d := range dates {
		if !d.Before(start) && d.Before(end) {
			amount += amounts[i]
		}
	}

	level := math.Round(amount / s.KgPerLevel)
	level = math.Min(level, float64(s.Levels-1))
	return mat.NewVecDense(1, []float64{level})
}
