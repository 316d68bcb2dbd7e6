// Package intrinsic implements exploration bonuses which are added to
// the extrinsic reward of an environment during training.
//
// A Module owns auxiliary learned parameters that are updated on their
// own schedule from collected transitions. Bonuses are computed by
// Episodes, which hold the episodic state of a single environment and
// read an immutable snapshot of the module's parameters. Episodes of
// different workers can therefore compute bonuses concurrently.
package intrinsic

import (
	"fmt"
	"math"
	"strings"

	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/initwfn"
)

// Kind selects an intrinsic reward module
type Kind int

const (
	// None disables the intrinsic reward: every bonus is 0
	None Kind = iota

	// E3B computes an episodic elliptical bonus in the embedding space
	// of an inverse dynamics encoder
	E3B

	// ICM computes the prediction error of a forward model in the
	// embedding space of an inverse dynamics encoder
	ICM
)

var kindNames = map[Kind]string{
	None: "none",
	E3B:  "E3B",
	ICM:  "ICM",
}

// ParseKind parses the name of an intrinsic reward module, ignoring
// case. The empty string selects None.
func ParseKind(name string) (Kind, error) {
	if name == "" {
		return None, nil
	}
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return None, fmt.Errorf("parseKind: unknown intrinsic reward %q", name)
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Config configures an intrinsic reward module
type Config struct {
	Kind Kind `yaml:"-"`

	// Beta is the initial coefficient of the bonus, annealed as
	// Beta·(1-Decay)^iteration
	Beta  float64 `yaml:"beta"`
	Decay float64 `yaml:"decay"`

	// UpdateEvery is the number of optimizer iterations between updates
	// of the module's parameters
	UpdateEvery int `yaml:"update-every"`

	// Encoder architecture
	EmbeddingSize int            `yaml:"embedding-size"`
	Hidden        []int          `yaml:"hidden"`
	Activation    string         `yaml:"activation"`
	InitWFn       initwfn.Config `yaml:"init"`

	// Ridge is the regularizer of the E3B covariance and of the ICM
	// forward model
	Ridge float64 `yaml:"ridge"`

	// Encoder training
	StepSize  float64 `yaml:"step-size"`
	Epochs    int     `yaml:"epochs"`
	BatchSize int     `yaml:"batch-size"`
}

// DefaultConfig returns the default configuration of an intrinsic
// reward module
func DefaultConfig(k Kind) Config {
	embedding := 128
	if k == ICM {
		embedding = 256
	}
	return Config{
		Kind:          k,
		Beta:          1,
		Decay:         2.5e-5,
		UpdateEvery:   1,
		EmbeddingSize: embedding,
		Hidden:        []int{256},
		Activation:    "relu",
		InitWFn:       initwfn.DefaultConfig(),
		Ridge:         0.1,
		StepSize:      1e-3,
		Epochs:        1,
		BatchSize:     256,
	}
}

// Validate validates a Config
func (c Config) Validate() error {
	if _, ok := kindNames[c.Kind]; !ok {
		return environment.NewConfigurationError("irs",
			"unknown intrinsic reward %v", c.Kind)
	}
	if c.Kind == None {
		return nil
	}
	if c.Beta < 0 {
		return environment.NewConfigurationError("intrinsic.beta",
			"must be non-negative, got %v", c.Beta)
	}
	if c.Decay < 0 || c.Decay >= 1 {
		return environment.NewConfigurationError("intrinsic.decay",
			"must be in [0, 1), got %v", c.Decay)
	}
	if c.UpdateEvery <= 0 {
		return environment.NewConfigurationError("intrinsic.update-every",
			"must be positive, got %v", c.UpdateEvery)
	}
	if c.EmbeddingSize <= 0 || c.BatchSize <= 0 || c.Epochs <= 0 {
		return environment.NewConfigurationError("intrinsic",
			"embedding size, batch size and epochs must be positive")
	}
	if c.Ridge <= 0 || c.StepSize <= 0 {
		return environment.NewConfigurationError("intrinsic",
			"ridge and step size must be positive")
	}
	if err := c.InitWFn.Validate(); err != nil {
		return &environment.ConfigurationError{Field: "intrinsic.init",
			Err: err}
	}
	return nil
}

// Schedule anneals the coefficient of the intrinsic bonus
type Schedule struct {
	Beta  float64
	Decay float64
}

// At returns the bonus coefficient of an optimizer iteration
func (s Schedule) At(iteration int) float64 {
	return s.Beta * math.Pow(1-s.Decay, float64(iteration))
}

// Schedule returns the annealing schedule of the Config
func (c Config) Schedule() Schedule {
	if c.Kind == None {
		return Schedule{}
	}
	return Schedule{Beta: c.Beta, Decay: c.Decay}
}
