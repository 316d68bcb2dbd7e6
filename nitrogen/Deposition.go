// Package nitrogen implements the nitrogen balance bookkeeping used by
// the reward functions and the crop simulator: atmospheric deposition,
// nitrogen use efficiency and nitrogen surplus.
package nitrogen

import (
	"time"
)

// Unit conversions
const (
	MgToKg = 1e-6
	M2ToHa = 1e-4
)

// SeedN is the nitrogen contained in the seed, in kg N/ha
const SeedN = 3.5

// Deposition returns the annual NH4 and NO3 deposition in the
// Netherlands for year, in kg N/ha. Linear fits of CLO (2022) data are
// used inside [1900, 2030]; outside that range fixed defaults are
// returned.
func Deposition(year int) (nh4, no3 float64) {
	if year < 1900 || year > 2030 {
		return 9, 3
	}
	y := float64(year)
	return 697 - 0.339*y, 538.868 - 0.264*y
}

// DaysInYear returns the number of days in year
func DaysInYear(year int) int {
	if time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay() == 366 {
		return 366
	}
	return 365
}

// DisaggregatedDeposition linearly disaggregates the annual deposition
// over the days in [start, end), splitting at year boundaries
func DisaggregatedDeposition(start, end time.Time) (nh4, no3 float64) {
	for start.Before(end) {
		year := start.Year()
		stop := time.Date(year+1, time.January, 1, 0, 0, 0, 0, start.Location())
		if end.Before(stop) {
			stop = end
		}

		days := stop.Sub(start).Hours() / 24
		annualNH4, annualNO3 := Deposition(year)
		n := float64(DaysInYear(year))
		nh4 += annualNH4 / n * days
		no3 += annualNO3 / n * days

		start = stop
	}
	return nh4, no3
}

// RainConcentration returns the NH4 and NO3 concentrations in rain water
// (mg/L) that deposit the annual deposition of year given the annual
// rainfall in mm
func RainConcentration(year int, annualRain float64) (nh4, no3 float64) {
	if annualRain <= 0 {
		return 0, 0
	}
	nh4Year, no3Year := Deposition(year)
	conv := (1 / MgToKg) / (1 / M2ToHa)
	return nh4Year * conv / annualRain, no3Year * conv / annualRain
}

// DayDeposition returns the NH4 and NO3 deposited by day of rain rainfall
// (mm) with the given concentrations (mg/L), in kg N/ha
func DayDeposition(rain, nh4Conc, no3Conc float64) (nh4, no3 float64) {
	return rain * nh4Conc * MgToKg / M2ToHa, rain * no3Conc * MgToKg / M2ToHa
}

// RealYear maps a synthetic weather year onto a real year by a linear
// mapping of the synthetic training range onto the test range
func RealYear(year int) int {
	const (
		testStart  = 1990
		testEnd    = 2022
		trainStart = 4000
		trainEnd   = 5999
	)
	if year < trainStart-1 || year > trainEnd {
		return year
	}
	mapped := testStart + float64(year-trainStart)*float64(testEnd-testStart)/
		float64(trainEnd-trainStart)
	return int(mapped)
}
