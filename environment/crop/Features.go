package crop

import (
	"fmt"

	"github.com/cropgym/cropgym-go/environment/weather"
	"github.com/cropgym/cropgym-go/timestep"
)

// CumulativeN labels the observation feature holding the cumulative
// nitrogen applied in the episode
const CumulativeN = "cumN"

// cropFeatures are the simulator state variables observed by the agent,
// in order, with the constant each one is scaled by
var cropFeatures = []struct {
	name  string
	scale float64
}{
	{DVS, 1},
	{TAGP, 1e-4},
	{LAI, 0.2},
	{NuptakeTotal, 0.005},
	{TRA, 0.2},
	{NAVAIL, 0.01},
	{SM, 1},
	{RFTRA, 1},
	{TWSO, 1e-4},
	{Week, 1.0 / 52},
	{Naction, 0.1},
}

const (
	cumNScale  = 0.005
	irradScale = 1e-4
	tminScale  = 0.1
	rainScale  = 0.1
)

// weatherFeatures are the daily weather variables observed for each day
// of the decision window
var weatherFeatures = []string{"IRRAD", "TMIN", "RAIN"}

// ObservationLabels returns the names of the observation features when
// each decision spans timeStep days. Weather features are suffixed with
// the day of the window, 0 being the oldest.
func ObservationLabels(timeStep int) []string {
	labels := make([]string, 0, len(cropFeatures)+1+
		len(weatherFeatures)*timeStep)
	for _, f := range cropFeatures {
		labels = append(labels, f.name)
	}
	labels = append(labels, CumulativeN)
	for _, name := range weatherFeatures {
		for d := 0; d < timeStep; d++ {
			labels = append(labels, fmt.Sprintf("%v_%d", name, d))
		}
	}
	return labels
}

// Observe returns the scaled observation of a simulator state and the
// weather over the decision window that led to it. The layout matches
// ObservationLabels(len(window)).
func Observe(state timestep.State, window []weather.Day) []float64 {
	obs := make([]float64, 0, len(cropFeatures)+1+
		len(weatherFeatures)*len(window))
	for _, f := range cropFeatures {
		obs = append(obs, state[f.name]*f.scale)
	}
	obs = append(obs, state[Napplied]*cumNScale)

	for _, d := range window {
		obs = append(obs, d.IRRAD*irradScale)
	}
	for _, d := range window {
		obs = append(obs, d.TMIN*tminScale)
	}
	for _, d := range window {
		obs = append(obs, d.RAIN*rainScale)
	}
	return obs
}
