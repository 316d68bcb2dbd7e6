package trackers

import (
	"github.com/cropgym/cropgym-go/agent"
	"github.com/cropgym/cropgym-go/experiment/tracker"
)

// Cost tracks and saves the episodic cost of each cost channel. Saved
// data is indexed by channel, then by episode.
type Cost struct {
	costs    [][]float64
	filename string
}

// NewCost returns a new Cost tracker of channels cost channels
func NewCost(channels int, filename string) *Cost {
	return &Cost{costs: make([][]float64, channels), filename: filename}
}

// Track implements the tracker.Tracker interface
func (c *Cost) Track(s agent.Stats) {
	for _, e := range s.Episodes {
		for i := range c.costs {
			c.costs[i] = append(c.costs[i], e.Cost[i])
		}
	}
}

// Costs returns the episodic costs of channel i tracked so far
func (c *Cost) Costs(i int) []float64 {
	return append([]float64(nil), c.costs[i]...)
}

// Save implements the tracker.Tracker interface
func (c *Cost) Save() error {
	return tracker.Save(c.filename, c.costs)
}
