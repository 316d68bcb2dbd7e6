// Package trackers implements the Trackers of a training run
package trackers

import (
	"github.com/cropgym/cropgym-go/agent"
	"github.com/cropgym/cropgym-go/experiment/tracker"
)

// ReturnData is the data saved by a Return Tracker, one element per
// completed episode in the order the episodes completed
type ReturnData struct {
	Iteration []int
	Return    []float64
	Extrinsic []float64
	Intrinsic []float64
}

// Return tracks and saves the episodic returns of a training run. The
// return used for learning includes the scaled intrinsic bonus, so the
// extrinsic and intrinsic parts are saved separately as well.
//
// Note: An episode must finish for this Tracker to save its data. The
// episode cut off at the end of an iteration is not saved.
type Return struct {
	data     ReturnData
	filename string
}

// NewReturn creates and returns a new *Return Tracker
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Track implements the tracker.Tracker interface
func (r *Return) Track(s agent.Stats) {
	for _, e := range s.Episodes {
		r.data.Iteration = append(r.data.Iteration, s.Iteration)
		r.data.Return = append(r.data.Return, e.Return)
		r.data.Extrinsic = append(r.data.Extrinsic, e.Extrinsic)
		r.data.Intrinsic = append(r.data.Intrinsic, e.Intrinsic)
	}
}

// Data returns the data tracked so far
func (r *Return) Data() ReturnData {
	return r.data
}

// Save implements the tracker.Tracker interface
func (r *Return) Save() error {
	return tracker.Save(r.filename, r.data)
}
