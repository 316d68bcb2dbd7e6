package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Context locates an error in a training run so that it can be
// reproduced with the same seed. Fields that are unknown where the error
// is raised are -1 and are filled in by callers higher up the stack.
type Context struct {
	Iteration int
	Worker    int
	Episode   int
	Step      int
}

// NoContext returns a Context with every field unknown
func NoContext() Context {
	return Context{-1, -1, -1, -1}
}

func (c Context) String() string {
	return fmt.Sprintf("iteration %d, worker %d, episode %d, step %d",
		c.Iteration, c.Worker, c.Episode, c.Step)
}

// ConfigurationError denotes a bad flag combination or a missing
// resource. It is fatal and surfaced before training starts.
type ConfigurationError struct {
	Field string
	Err   error
}

// NewConfigurationError returns a ConfigurationError for the
// configuration field field
func NewConfigurationError(field string, format string,
	args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Err: fmt.Errorf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// InvalidActionError denotes an action outside of an environment's
// declared action bounds. It signals a contract violation between the
// policy and the environment.
type InvalidActionError struct {
	Context
	Action []float64
	Spec   Spec
}

func (e *InvalidActionError) Error() string {
	var low, high []float64
	if e.Spec.LowerBound != nil {
		low = vecData(e.Spec.LowerBound)
		high = vecData(e.Spec.UpperBound)
	}
	return fmt.Sprintf("invalid action %v outside of bounds [%v, %v] (%v)",
		e.Action, low, high, e.Context)
}

// SimulationError denotes that the underlying crop model could not
// advance. Environments recover from it by terminating the episode.
type SimulationError struct {
	Context
	Day int
	Err error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation failed on day %d (%v): %v", e.Day,
		e.Context, e.Err)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}

// NumericalDivergenceError denotes a non-finite loss or gradient
// during an update. The update that produced it is discarded.
type NumericalDivergenceError struct {
	Context
	Quantity string
	Value    float64
}

func (e *NumericalDivergenceError) Error() string {
	return fmt.Sprintf("numerical divergence: %v = %v (%v)", e.Quantity,
		e.Value, e.Context)
}

func vecData(v mat.Vector) []float64 {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}
