package trackers

import (
	"github.com/cropgym/cropgym-go/agent"
	"github.com/cropgym/cropgym-go/experiment/tracker"
)

// EpisodeLengthData is the data saved by an EpisodeLength Tracker
type EpisodeLengthData struct {
	Lengths []int
	Ends    []string
}

// EpisodeLength tracks and saves the lengths of episodes in an
// experiment, together with how each episode ended.
// Note that an episode must finish for this Tracker to save its data.
type EpisodeLength struct {
	data     EpisodeLengthData
	filename string
}

// NewEpisodeLength returns a new EpisodeLength tracker which will save
// its data at the specified location filename
func NewEpisodeLength(filename string) *EpisodeLength {
	return &EpisodeLength{filename: filename}
}

// Track implements the tracker.Tracker interface
func (e *EpisodeLength) Track(s agent.Stats) {
	for _, ep := range s.Episodes {
		e.data.Lengths = append(e.data.Lengths, ep.Length)
		e.data.Ends = append(e.data.Ends, ep.End.String())
	}
}

// Data returns the data tracked so far
func (e *EpisodeLength) Data() EpisodeLengthData {
	return e.data
}

// Save implements the tracker.Tracker interface
func (e *EpisodeLength) Save() error {
	return tracker.Save(e.filename, e.data)
}
