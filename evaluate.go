package main

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/cropgym/cropgym-go/agent"
	"github.com/cropgym/cropgym-go/agent/policy"
	"github.com/cropgym/cropgym-go/config"
	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/experiment"
	"github.com/cropgym/cropgym-go/experiment/report"
	"github.com/cropgym/cropgym-go/nitrogen"
	"github.com/spf13/cobra"
)

// baselineTreatments are the standard practices compared against
var baselineTreatments = []nitrogen.Treatment{
	nitrogen.N1PA,
	nitrogen.N2PA,
	nitrogen.N3PA,
}

func newEvaluateCmd() *cobra.Command {
	var checkpoint, out string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a checkpointed agent and the baselines on the test years",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(checkpoint, out)
		},
	}
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "checkpoint to evaluate")
	cmd.Flags().StringVar(&out, "out", "",
		"report file (default report.xlsx next to the checkpoint)")
	cmd.MarkFlagRequired("checkpoint")
	return cmd
}

func runEvaluate(checkpoint, out string) error {
	chk, err := config.LoadCheckpoint(checkpoint)
	if err != nil {
		return &environment.ConfigurationError{Field: "checkpoint", Err: err}
	}

	// Evaluation seasons use the nominal weather only
	c := chk.Config
	c.RandomWeather = false
	run, err := chk.Resume(c)
	if err != nil {
		return err
	}

	evaluator, err := newEvaluator(c)
	if err != nil {
		return err
	}
	eval, err := evaluator.Evaluate("agent", run.Learner.Greedy())
	if err != nil {
		return err
	}
	eval.Iteration = run.Learner.Iteration()
	log.Printf("agent after %v iterations: mean return %.3f, mean yield "+
		"%.1f kg/ha", eval.Iteration, eval.MeanReturn(), eval.MeanYield())

	base, err := evaluateBaselines(evaluator, c)
	if err != nil {
		return err
	}

	if out == "" {
		out = filepath.Join(filepath.Dir(checkpoint), "report.xlsx")
	}
	return report.Write(out, append([]experiment.Evaluation{eval}, base...),
		channelNames(run.Kinds))
}

// newEvaluator returns an Evaluator on the test years
func newEvaluator(c config.Config) (*experiment.Evaluator, error) {
	env, err := config.EvalEnv(c)
	if err != nil {
		return nil, err
	}
	return experiment.NewEvaluator(env, experiment.TestYears())
}

// baselines returns the named baseline policies: no fertilization and
// the standard practices
func baselines(c config.Config) ([]string, []agent.Policy) {
	names := []string{"zero"}
	policies := []agent.Policy{policy.Zero{}}
	for _, t := range baselineTreatments {
		names = append(names, string(t))
		policies = append(policies, policy.StandardPractice{
			Treatment:  t,
			TimeStep:   c.Crop.TimeStep,
			Levels:     c.Crop.Levels,
			KgPerLevel: c.Crop.KgPerLevel,
		})
	}
	return names, policies
}

// evaluateBaselines evaluates each baseline policy
func evaluateBaselines(e *experiment.Evaluator,
	c config.Config) ([]experiment.Evaluation, error) {
	names, policies := baselines(c)
	evals := make([]experiment.Evaluation, 0, len(names))
	for i, name := range names {
		eval, err := e.Evaluate(name, policies[i])
		if err != nil {
			return nil, fmt.Errorf("evaluateBaselines: %w", err)
		}
		log.Printf("%v: mean return %.3f, mean yield %.1f kg/ha", name,
			eval.MeanReturn(), eval.MeanYield())
		evals = append(evals, eval)
	}
	return evals, nil
}

// channelNames returns the names of the cost channels of a run
func channelNames(k config.Kinds) []string {
	names := make([]string, len(k.Channels))
	for i, ch := range k.Channels {
		names[i] = ch.String()
	}
	return names
}
