package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/environment/weather"
	"github.com/spf13/cobra"
)

func newWeatherCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Manage weather files",
	}

	var from, to int
	export := &cobra.Command{
		Use:   "export DIR",
		Short: "Write the nominal weather of a range of years as <year>.csv files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportWeather(args[0], from, to)
		},
	}
	export.Flags().IntVar(&from, "from", 1990, "first harvest year")
	export.Flags().IntVar(&to, "to", 2021, "last harvest year")

	cmd.AddCommand(export)
	return cmd
}

// exportWeather writes the nominal series of the years in [from, to] to
// dir
func exportWeather(dir string, from, to int) error {
	if from > to {
		return environment.NewConfigurationError("from",
			"first year %v is after last year %v", from, to)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("exportWeather: %w", err)
	}

	for year := from; year <= to; year++ {
		filename := filepath.Join(dir, fmt.Sprintf("%d.csv", year))
		if err := writeSeries(filename, weather.Nominal(year)); err != nil {
			return fmt.Errorf("exportWeather: %w", err)
		}
	}
	log.Printf("wrote %v weather files to %v", to-from+1, dir)
	return nil
}

func writeSeries(filename string, s *weather.Series) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := weather.WriteCSV(f, s); err != nil {
		return err
	}
	return f.Close()
}
