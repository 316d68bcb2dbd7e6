package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/cropgym/cropgym-go/config"
	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/experiment"
	"github.com/cropgym/cropgym-go/experiment/checkpointer"
	"github.com/cropgym/cropgym-go/experiment/report"
	"github.com/cropgym/cropgym-go/experiment/tracker"
	"github.com/cropgym/cropgym-go/experiment/trackers"
	"github.com/cropgym/cropgym-go/utils/progressbar"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// trainOptions holds the flags of the train command. Configuration
// flags are bound to flags and only override the loaded configuration
// when set explicitly.
type trainOptions struct {
	config   string
	resume   string
	progress bool
	flags    config.Config
}

func newTrainCmd() *cobra.Command {
	o := &trainOptions{flags: config.Default()}
	return o.command()
}

// command returns the train command with its flags bound to o
func (o *trainOptions) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train an agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, o)
		},
	}

	f := &o.flags
	flags := cmd.Flags()
	flags.StringVar(&o.config, "config", "", "YAML configuration file")
	flags.StringVar(&o.resume, "resume", "", "checkpoint to resume training from")
	flags.BoolVar(&o.progress, "progress", false, "display a progress bar")

	flags.StringVar(&f.Reward, "reward", f.Reward, "reward function")
	flags.StringVar(&f.Environment, "environment", f.Environment,
		"crop model: 0 (Lintul), 1 (WofostCN) or 2 (WofostSNOMIN)")
	flags.StringVar(&f.Agent, "agent", f.Agent, "agent: PPO or LagPPO")
	flags.Uint64Var(&f.Seed, "seed", f.Seed, "random seed")
	flags.IntVar(&f.Steps, "nsteps", f.Steps, "environment step budget")
	flags.BoolVar(&f.RandomWeather, "random-weather", f.RandomWeather,
		"sample the weather of each season from the weather directory")
	flags.BoolVar(&f.RandomInit, "random-init", f.RandomInit,
		"perturb the initial conditions of each season")
	flags.StringVar(&f.IRS, "irs", f.IRS, "intrinsic reward: none, E3B or ICM")
	flags.StringVar(&f.WeatherDir, "weather-dir", f.WeatherDir,
		"directory of <year>.csv weather files")
	flags.StringVar(&f.Output, "output", f.Output, "output directory")
	flags.IntVar(&f.LagPPO.NumWorkers, "nenvs", f.LagPPO.NumWorkers,
		"number of parallel environments")
	flags.Float64Var(&f.CostsNitrogen, "costs-nitrogen", f.CostsNitrogen,
		"reward penalty per fertilizer level")
	flags.Float64SliceVar(&f.Budgets, "budget", f.Budgets,
		"budget of each cost channel")
	flags.StringSliceVar(&f.CostChannels, "cost-channels", f.CostChannels,
		"cost channels to constrain")
	flags.IntVar(&f.EvalFreq, "eval-freq", f.EvalFreq,
		"iterations between evaluations, 0 to disable")
	flags.IntVar(&f.CheckpointEvery, "checkpoint-every", f.CheckpointEvery,
		"iterations between checkpoints, 0 to disable")
	flags.DurationVar(&f.MaxIterationTime, "max-iteration-time",
		f.MaxIterationTime, "wall time limit of an iteration, 0 to disable")

	return cmd
}

// overrides returns, for each configuration flag, the function copying
// its value into a Config
func (o *trainOptions) overrides() map[string]func(*config.Config) {
	f := &o.flags
	return map[string]func(*config.Config){
		"reward":         func(c *config.Config) { c.Reward = f.Reward },
		"environment":    func(c *config.Config) { c.Environment = f.Environment },
		"agent":          func(c *config.Config) { c.Agent = f.Agent },
		"seed":           func(c *config.Config) { c.Seed = f.Seed },
		"nsteps":         func(c *config.Config) { c.Steps = f.Steps },
		"random-weather": func(c *config.Config) { c.RandomWeather = f.RandomWeather },
		"random-init":    func(c *config.Config) { c.RandomInit = f.RandomInit },
		"irs":            func(c *config.Config) { c.IRS = f.IRS },
		"weather-dir":    func(c *config.Config) { c.WeatherDir = f.WeatherDir },
		"output":         func(c *config.Config) { c.Output = f.Output },
		"nenvs":          func(c *config.Config) { c.LagPPO.NumWorkers = f.LagPPO.NumWorkers },
		"costs-nitrogen": func(c *config.Config) { c.CostsNitrogen = f.CostsNitrogen },
		"budget":         func(c *config.Config) { c.Budgets = f.Budgets },
		"cost-channels":  func(c *config.Config) { c.CostChannels = f.CostChannels },
		"eval-freq":      func(c *config.Config) { c.EvalFreq = f.EvalFreq },
		"checkpoint-every": func(c *config.Config) {
			c.CheckpointEvery = f.CheckpointEvery
		},
		"max-iteration-time": func(c *config.Config) {
			c.MaxIterationTime = f.MaxIterationTime
		},
	}
}

// load returns the configuration of the run and the checkpoint to
// resume, if any. When resuming, the checkpoint's configuration replaces
// the defaults, the environment and the configuration file.
func (o *trainOptions) load(cmd *cobra.Command) (config.Config,
	*config.Checkpoint, error) {
	var (
		c   config.Config
		chk *config.Checkpoint
	)
	if o.resume != "" {
		var err error
		if chk, err = config.LoadCheckpoint(o.resume); err != nil {
			return config.Config{}, nil,
				&environment.ConfigurationError{Field: "resume", Err: err}
		}
		c = chk.Config
	} else {
		c = config.Default()
		c.ApplyEnv()
		if o.config != "" {
			if err := c.Load(o.config); err != nil {
				return config.Config{}, nil, err
			}
		}
	}

	for name, apply := range o.overrides() {
		if cmd.Flags().Changed(name) {
			apply(&c)
		}
	}
	return c, chk, c.Validate()
}

func runTrain(cmd *cobra.Command, o *trainOptions) error {
	c, chk, err := o.load(cmd)
	if err != nil {
		return err
	}

	var run *config.Run
	if chk != nil {
		run, err = chk.Resume(c)
	} else {
		run, err = config.Build(c)
	}
	if err != nil {
		return err
	}

	id := uuid.NewString()
	dir := filepath.Join(c.Output, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("train: could not create output directory: %w", err)
	}
	if err := writeConfig(filepath.Join(dir, "config.yaml"), c); err != nil {
		return err
	}
	log.Printf("run %v: %v with %v reward, intrinsic reward %v, seed %v, "+
		"writing to %v", id, run.Kinds.Agent, run.Kinds.Reward,
		run.Kinds.Intrinsic, c.Seed, dir)

	t := []tracker.Tracker{
		trackers.NewReturn(filepath.Join(dir, "return.bin")),
		trackers.NewEpisodeLength(filepath.Join(dir, "episode-length.bin")),
		trackers.NewCost(len(run.Kinds.Channels),
			filepath.Join(dir, "cost.bin")),
		trackers.NewLagrange(filepath.Join(dir, "lagrange.bin")),
	}
	var checkpointers []checkpointer.Checkpointer
	if c.CheckpointEvery > 0 {
		checkpointers = append(checkpointers, checkpointer.NewNIteration(
			c.CheckpointEvery, run, checkpointer.FilenameEnumerator(
				filepath.Join(dir, "checkpoint"), ".bin")))
	}

	evaluator, err := newEvaluator(c)
	if err != nil {
		return err
	}
	e := experiment.NewOnline(run.Learner, c.ExperimentConfig(), t,
		checkpointers)
	if c.EvalFreq > 0 {
		e.SetEvaluator(evaluator)
	}
	if o.progress {
		bar := progressbar.NewManualProgressBar(os.Stderr, 50, c.Steps)
		bar.Set(run.Learner.Steps())
		e.SetProgressBar(bar)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	start := time.Now()
	runErr := e.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		log.Printf("interrupted after iteration %v, saving",
			run.Learner.Iteration())
		runErr = nil
	}

	var timeout *experiment.TimeoutError
	if errors.As(runErr, &timeout) {
		// The timed out iteration may still be running
		return runErr
	}
	if err := e.Save(); err != nil {
		return err
	}
	if err := run.Save(filepath.Join(dir, "final.bin")); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	log.Printf("trained for %v iterations and %v steps in %v",
		run.Learner.Iteration(), run.Learner.Steps(),
		time.Since(start).Round(time.Second))

	final, err := evaluator.Evaluate("agent", run.Learner.Greedy())
	if err != nil {
		return err
	}
	final.Iteration = run.Learner.Iteration()
	evals := append(e.Evaluations(), final)
	base, err := evaluateBaselines(evaluator, c)
	if err != nil {
		return err
	}
	evals = append(evals, base...)
	return report.Write(filepath.Join(dir, "report.xlsx"), evals,
		channelNames(run.Kinds))
}

// writeConfig writes the configuration of a run to filename
func writeConfig(filename string, c config.Config) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("writeConfig: %w", err)
	}
	defer f.Close()
	if err := c.Encode(f); err != nil {
		return fmt.Errorf("writeConfig: %w", err)
	}
	return f.Close()
}
