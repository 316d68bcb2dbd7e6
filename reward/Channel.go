package reward

import (
	"fmt"
	"strings"
)

// Channel selects a constraint cost signal. Costs are reported
// separately from the reward so that a constrained learner can bound
// their expected sum.
type Channel int

const (
	// Surplus is the per-step change of the nitrogen surplus, kg N/ha.
	// The seed nitrogen is charged on the first step so that the sum
	// over an episode equals the season's surplus.
	Surplus Channel = iota

	// Loss is the nitrogen lost from the soil during the step, kg N/ha
	Loss

	// Applied is the fertilizer applied on the step, kg N/ha
	Applied

	// Applications is 1 when fertilizer is applied on the step
	Applications
)

var channelNames = map[Channel]string{
	Surplus:      "surplus",
	Loss:         "loss",
	Applied:      "applied",
	Applications: "applications",
}

// ParseChannel parses a cost channel name, ignoring case
func ParseChannel(name string) (Channel, error) {
	for c, n := range channelNames {
		if strings.EqualFold(n, name) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("parseChannel: unknown cost channel %q", name)
}

// ParseChannels parses a list of cost channel names
func ParseChannels(names []string) ([]Channel, error) {
	channels := make([]Channel, len(names))
	seen := make(map[Channel]bool, len(names))
	for i, name := range names {
		c, err := ParseChannel(name)
		if err != nil {
			return nil, fmt.Errorf("parseChannels: %w", err)
		}
		if seen[c] {
			return nil, fmt.Errorf("parseChannels: duplicate cost channel "+
				"%q", name)
		}
		seen[c] = true
		channels[i] = c
	}
	return channels, nil
}

func (c Channel) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Channel(%d)", int(c))
}

// DefaultChannels returns the cost channels used with a reward kind when
// none are configured. Only NUE is constrained by default, on the
// nitrogen surplus.
func DefaultChannels(k Kind) []Channel {
	if k == NUE {
		return []Channel{Surplus}
	}
	return nil
}

// DefaultBudgets returns the default per-episode budgets of channels
func DefaultBudgets(channels []Channel) []float64 {
	budgets := make([]float64, len(channels))
	for i, c := range channels {
		switch c {
		case Surplus:
			budgets[i] = 40
		case Loss:
			budgets[i] = 20
		case Applied:
			budgets[i] = 150
		case Applications:
			budgets[i] = 4
		}
	}
	return budgets
}
