package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cropgym/cropgym-go/config"
	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/experiment"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{errors.New("failed"), exitFailure},
		{environment.NewConfigurationError("seed", "bad"), exitConfiguration},
		{fmt.Errorf("build: %w", environment.NewConfigurationError("irs",
			"unknown")), exitConfiguration},
		{fmt.Errorf("runIteration: %w", &environment.NumericalDivergenceError{
			Context: environment.NoContext(), Quantity: "value loss"}),
			exitDivergence},
		{&experiment.TimeoutError{Iteration: 3, Limit: time.Second},
			exitTimeout},
		{&environment.InvalidActionError{Context: environment.NoContext()},
			exitInvalidAction},
	}

	for _, test := range tests {
		if got := exitCode(test.err); got != test.want {
			t.Errorf("exitCode(%v) = %v, want %v", test.err, got, test.want)
		}
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "seed: 3\nnsteps: 1000\nirs: ICM\n"
	if err := os.WriteFile(filename, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	o := &trainOptions{flags: config.Default()}
	cmd := o.command()
	err := cmd.ParseFlags([]string{"--config", filename, "--seed", "7",
		"--budget", "30"})
	if err != nil {
		t.Fatal(err)
	}

	c, chk, err := o.load(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if chk != nil {
		t.Errorf("no checkpoint should be loaded")
	}
	if c.Seed != 7 {
		t.Errorf("seed = %v, want flag value 7", c.Seed)
	}
	if c.Steps != 1000 || c.IRS != "ICM" {
		t.Errorf("nsteps = %v and irs = %v, want file values", c.Steps, c.IRS)
	}
	if len(c.Budgets) != 1 || c.Budgets[0] != 30 {
		t.Errorf("budgets = %v, want [30]", c.Budgets)
	}
	if c.Reward != config.Default().Reward {
		t.Errorf("reward = %v, want default", c.Reward)
	}
}

func TestInvalidFlagIsConfigurationError(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"train", "--irs", "RND"})
	if got := execute(cmd); got != exitConfiguration {
		t.Errorf("exit code = %v, want %v", got, exitConfiguration)
	}

	cmd = newRootCmd()
	cmd.SetArgs([]string{"train", "--nsteps", "many"})
	if got := execute(cmd); got != exitConfiguration {
		t.Errorf("exit code = %v, want %v", got, exitConfiguration)
	}
}

func TestExportWeather(t *testing.T) {
	dir := t.TempDir()
	if err := exportWeather(dir, 2000, 2002); err != nil {
		t.Fatal(err)
	}
	for year := 2000; year <= 2002; year++ {
		name := filepath.Join(dir, fmt.Sprintf("%d.csv", year))
		if _, err := os.Stat(name); err != nil {
			t.Errorf("missing weather file: %v", err)
		}
	}

	if err := exportWeather(dir, 2003, 2002); exitCode(err) !=
		exitConfiguration {
		t.Errorf("reversed years should be a configuration error, got %v",
			err)
	}
}
