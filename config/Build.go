package config

import (
	"fmt"

	"github.com/cropgym/cropgym-go/agent/lagppo"
	"github.com/cropgym/cropgym-go/environment/crop"
	"github.com/cropgym/cropgym-go/environment/weather"
	"github.com/cropgym/cropgym-go/environment/wrappers"
	"github.com/cropgym/cropgym-go/experiment"
	"github.com/cropgym/cropgym-go/intrinsic"
	"github.com/cropgym/cropgym-go/reward"
	"golang.org/x/exp/rand"
)

// Run holds the components of a training run built from a Config
type Run struct {
	Config  Config
	Kinds   Kinds
	Pool    *weather.Pool
	Module  intrinsic.Module
	Learner *lagppo.LagPPO
}

// Build validates c and builds the components of a training run. All
// randomness is drawn from a single PCG source seeded with c.Seed: first
// the intrinsic module's weights, then the agent's worker sources,
// initial weights, and update source.
func Build(c Config) (*Run, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	k, err := c.Kinds()
	if err != nil {
		return nil, err
	}

	var pool *weather.Pool
	if c.RandomWeather {
		if pool, err = weather.LoadPool(c.WeatherDir); err != nil {
			return nil, err
		}
	}

	master := &rand.PCGSource{}
	master.Seed(c.Seed)

	cc := c.CropConfig(k)
	features := len(crop.ObservationLabels(cc.TimeStep))
	moduleSrc := &rand.PCGSource{}
	moduleSrc.Seed(master.Uint64())
	module, err := intrinsic.New(c.IntrinsicConfig(k), features, cc.Levels,
		moduleSrc)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	run := &Run{Config: c, Kinds: k, Pool: pool, Module: module}
	learner, err := lagppo.New(c.AgentConfig(k), run.EnvFactory(), module,
		master)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	run.Learner = learner
	return run, nil
}

// EnvFactory returns the factory of the training environments: the crop
// environment wrapped with the Randomization, RewardCost and Intrinsic
// stages, in that order
func (r *Run) EnvFactory() lagppo.EnvFactory {
	return func(worker int, src rand.Source) (*wrappers.Pipeline, error) {
		env, err := crop.NewDefault(r.Config.CropConfig(r.Kinds))
		if err != nil {
			return nil, err
		}

		rc := wrappers.DefaultRandomizationConfig()
		rc.RandomWeather = r.Config.RandomWeather
		rc.Pool = r.Pool
		rc.Years = experiment.TrainYears()
		rc.RandomInit = r.Config.RandomInit
		rc.NAVAILI = r.Config.Randomization.NAVAILI
		rc.SMI = r.Config.Randomization.SMI
		rc.SowOffset = r.Config.Randomization.SowOffset
		random, err := wrappers.NewRandomization(rc, src)
		if err != nil {
			return nil, err
		}

		sel, err := reward.New(r.Config.RewardConfig(r.Kinds))
		if err != nil {
			return nil, err
		}

		bonus := wrappers.NewIntrinsic(r.Module,
			r.Module.Config().Schedule().At(0))
		return wrappers.NewPipeline(env, random, wrappers.NewRewardCost(sel),
			bonus), nil
	}
}

// EvalEnv returns the evaluation environment: the crop environment with
// only the RewardCost stage, so that seasons are chosen by the
// Evaluator and rewards carry no intrinsic bonus
func EvalEnv(c Config) (*wrappers.Pipeline, error) {
	k, err := c.Kinds()
	if err != nil {
		return nil, err
	}
	env, err := crop.NewDefault(c.CropConfig(k))
	if err != nil {
		return nil, fmt.Errorf("evalEnv: %w", err)
	}
	sel, err := reward.New(c.RewardConfig(k))
	if err != nil {
		return nil, fmt.Errorf("evalEnv: %w", err)
	}
	return wrappers.NewPipeline(env, wrappers.NewRewardCost(sel)), nil
}
