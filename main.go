// Command cropgym trains and evaluates constrained reinforcement
// learning agents that fertilize winter wheat
package main

import (
	"errors"
	"log"
	"os"

	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/experiment"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Exit codes of the command
const (
	exitOK = iota
	exitFailure
	exitConfiguration
	exitDivergence
	exitTimeout
	exitInvalidAction
)

func main() {
	for _, envFile := range []string{
		".env",
		"../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	os.Exit(execute(newRootCmd()))
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cropgym",
		Short:         "Train fertilization policies for winter wheat under nitrogen constraints",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &environment.ConfigurationError{Field: "flags", Err: err}
	})

	rootCmd.AddCommand(newTrainCmd(), newEvaluateCmd(), newWeatherCmd())
	return rootCmd
}

// execute runs the command and returns its exit code
func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		log.Printf("error: %v", err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode returns the exit code of the error ending a command
func exitCode(err error) int {
	var (
		configErr  *environment.ConfigurationError
		divergence *environment.NumericalDivergenceError
		timeout    *experiment.TimeoutError
		invalid    *environment.InvalidActionError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &configErr):
		return exitConfiguration
	case errors.As(err, &divergence):
		return exitDivergence
	case errors.As(err, &timeout):
		return exitTimeout
	case errors.As(err, &invalid):
		return exitInvalidAction
	default:
		return exitFailure
	}
}
