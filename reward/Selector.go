package reward

import (
	"fmt"

	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/environment/crop"
	"github.com/cropgym/cropgym-go/nitrogen"
	"github.com/cropgym/cropgym-go/timestep"
)

// Prices used by the FIN reward, in euro per kg of grain and per kg N
const (
	GrainPrice    = 0.15775
	NitrogenPrice = 0.20928
)

// Config configures a Selector
type Config struct {
	Kind Kind

	// CostsNitrogen is the reward penalty per fertilizer level applied
	CostsNitrogen float64

	// KgPerLevel converts action levels to kg N/ha
	KgPerLevel float64

	// NUEScale scales the end-of-season score of the NUE reward
	NUEScale float64

	// Channels are the cost channels reported on each step
	Channels []Channel
}

// DefaultConfig returns the default configuration of a reward kind
func DefaultConfig(k Kind) Config {
	return Config{
		Kind:          k,
		CostsNitrogen: 10,
		KgPerLevel:    10,
		NUEScale:      100,
		Channels:      DefaultChannels(k),
	}
}

// Validate validates a Config
func (c Config) Validate() error {
	if _, ok := kindNames[c.Kind]; !ok {
		return environment.NewConfigurationError("reward",
			"unknown reward kind %v", c.Kind)
	}
	if c.CostsNitrogen < 0 {
		return environment.NewConfigurationError("costs-nitrogen",
			"must be non-negative, got %v", c.CostsNitrogen)
	}
	if c.KgPerLevel <= 0 {
		return environment.NewConfigurationError("kg-per-level",
			"must be positive, got %v", c.KgPerLevel)
	}
	for _, ch := range c.Channels {
		if _, ok := channelNames[ch]; !ok {
			return environment.NewConfigurationError("cost-channels",
				"unknown cost channel %v", ch)
		}
	}
	return nil
}

// rewardFunc computes the reward of a step given the fertilizer level
// applied
type rewardFunc func(c *Config, prev, next timestep.State, level float64,
	last bool) float64

// Selector computes rewards and costs. A Selector holds no state between
// calls and may be shared between goroutines.
type Selector struct {
	config Config
	reward rewardFunc
}

// New returns a new Selector
func New(c Config) (*Selector, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	c.Channels = append([]Channel(nil), c.Channels...)

	return &Selector{config: c, reward: rewardFuncs[c.Kind]}, nil
}

// Compute returns the reward and the costs of taking the fertilizer
// level action in the simulator state state, arriving in state next.
// The last argument indicates whether next ends a completed season, and
// gates the end-of-season terms of the END and NUE rewards.
func (s *Selector) Compute(state timestep.State, action float64,
	next timestep.State, last bool) (float64, []float64) {
	r := s.reward(&s.config, state, next, action, last)

	costs := make([]float64, len(s.config.Channels))
	for i, ch := range s.config.Channels {
		costs[i] = s.cost(ch, state, next, action)
	}
	return r, costs
}

// cost computes the cost of a single channel
func (s *Selector) cost(ch Channel, prev, next timestep.State,
	level float64) float64 {
	switch ch {
	case Surplus:
		c := balance(next) - balance(prev)
		if prev[crop.Week] == 0 {
			c += nitrogen.SeedN
		}
		return c

	case Loss:
		return delta(prev, next, crop.NLOSSCUM)

	case Applied:
		return level * s.config.KgPerLevel

	case Applications:
		if level > 0 {
			return 1
		}
		return 0
	}
	panic(fmt.Sprintf("cost: unknown channel %v", ch))
}

// Kind returns the reward kind
func (s *Selector) Kind() Kind {
	return s.config.Kind
}

// Channels returns the cost channels reported by the Selector
func (s *Selector) Channels() []Channel {
	return append([]Channel(nil), s.config.Channels...)
}

// Config returns the configuration of the Selector
func (s *Selector) Config() Config {
	c := s.config
	c.Channels = s.Channels()
	return c
}

// balance returns the nitrogen input minus the nitrogen removed with the
// storage organs, excluding the seed nitrogen
func balance(s timestep.State) float64 {
	return s[crop.Napplied] + s[crop.Ndepo] - s[crop.NamountSO]
}

// delta returns the change of a state variable
func delta(prev, next timestep.State, key string) float64 {
	return next[key] - prev[key]
}

func indicator(level float64) float64 {
	if level > 0 {
		return 1
	}
	return 0
}

var rewardFuncs = map[Kind]rewardFunc{
	GRO: func(c *Config, prev, next timestep.State, level float64,
		_ bool) float64 {
		return delta(prev, next, crop.TWSO) - c.CostsNitrogen*level
	},

	DEP: func(c *Config, prev, next timestep.State, level float64,
		_ bool) float64 {
		return delta(prev, next, crop.TWSO) - c.CostsNitrogen*level -
			10*indicator(level)
	},

	LOS: func(c *Config, prev, next timestep.State, level float64,
		_ bool) float64 {
		return delta(prev, next, crop.TWSO) - c.CostsNitrogen*level -
			0.1*delta(prev, next, crop.NLOSSCUM)
	},

	NUP: func(c *Config, prev, next timestep.State, level float64,
		_ bool) float64 {
		return delta(prev, next, crop.NuptakeTotal) - c.CostsNitrogen*level
	},

	HAR: func(c *Config, prev, next timestep.State, level float64,
		_ bool) float64 {
		return -c.CostsNitrogen*level - delta(prev, next, crop.NLOSSCUM)
	},

	DNU: func(c *Config, prev, next timestep.State, level float64,
		_ bool) float64 {
		const deposition = 25
		return 5*delta(prev, next, crop.NamountSO) - 2*level - deposition -
			5*delta(prev, next, crop.NLOSSCUM)
	},

	DSO: func(c *Config, prev, next timestep.State, level float64,
		_ bool) float64 {
		const weight = 20
		return weight*delta(prev, next, crop.NamountSO) -
			c.CostsNitrogen*level
	},

	FIN: func(c *Config, prev, next timestep.State, level float64,
		_ bool) float64 {
		return delta(prev, next, crop.TWSO)*GrainPrice -
			level*c.KgPerLevel*NitrogenPrice
	},

	END: func(c *Config, prev, next timestep.State, level float64,
		last bool) float64 {
		r := -c.CostsNitrogen * level
		if last {
			r += next[crop.TWSO]
		}
		return r
	},

	NUE: func(c *Config, prev, next timestep.State, level float64,
		last bool) float64 {
		r := -c.CostsNitrogen * indicator(level)
		if last {
			r += c.NUEScale * SeasonScore(next)
		}
		return r
	},
}

// SeasonScore returns the end-of-season NUE score of a final simulator
// state
func SeasonScore(final timestep.State) float64 {
	applied, depo, so := final[crop.Napplied], final[crop.Ndepo],
		final[crop.NamountSO]
	return nitrogen.Score(nitrogen.Surplus(applied, depo, so),
		nitrogen.UseEfficiency(applied, depo, so), final[crop.TWSO])
}
