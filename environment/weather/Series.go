// Package weather implements daily weather series that drive the crop
// simulator, and pools of pre-generated series to sample seasons from
package weather

import (
	"fmt"
	"math"
	"time"
)

// Day holds the weather of a single day
type Day struct {
	Date  time.Time
	IRRAD float64 // Global radiation, kJ/m²/day
	TMIN  float64 // Minimum temperature, °C
	TMAX  float64 // Maximum temperature, °C
	RAIN  float64 // Precipitation, mm/day
}

// TEMP returns the mean daily temperature
func (d Day) TEMP() float64 {
	return (d.TMIN + d.TMAX) / 2
}

// Validate returns an error if the day holds non-physical values
func (d Day) Validate() error {
	for _, v := range []float64{d.IRRAD, d.TMIN, d.TMAX, d.RAIN} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("validate: non-finite weather on %v",
				d.Date.Format(DateLayout))
		}
	}
	if d.IRRAD < 0 || d.RAIN < 0 {
		return fmt.Errorf("validate: negative radiation or rain on %v",
			d.Date.Format(DateLayout))
	}
	if d.TMIN > d.TMAX {
		return fmt.Errorf("validate: TMIN > TMAX on %v",
			d.Date.Format(DateLayout))
	}
	return nil
}

// Series is the weather of one growing season. Year is the harvest year
// of the season; the series starts at the campaign start date, which is
// the 1st of October of the previous year for winter wheat.
type Series struct {
	Year int
	Days []Day
}

// Len returns the number of days in the series
func (s *Series) Len() int {
	return len(s.Days)
}

// At returns the weather on day i of the series
func (s *Series) At(i int) (Day, error) {
	if i < 0 || i >= len(s.Days) {
		return Day{}, fmt.Errorf("at: day %v outside of series of %v days "+
			"(year %v)", i, len(s.Days), s.Year)
	}
	return s.Days[i], nil
}

// Window returns the n days ending just before day end. Days before the
// start of the series are clamped to the first day.
func (s *Series) Window(end, n int) []Day {
	window := make([]Day, n)
	for i := 0; i < n; i++ {
		j := end - n + i
		if j < 0 {
			j = 0
		}
		if j >= len(s.Days) {
			j = len(s.Days) - 1
		}
		window[i] = s.Days[j]
	}
	return window
}

// TotalRain returns the total precipitation over the series in mm
func (s *Series) TotalRain() float64 {
	var total float64
	for _, d := range s.Days {
		total += d.RAIN
	}
	return total
}

// Validate validates every day of the series and checks that the days
// are consecutive
func (s *Series) Validate() error {
	if len(s.Days) == 0 {
		return fmt.Errorf("validate: empty weather series for year %v",
			s.Year)
	}
	for i, d := range s.Days {
		if err := d.Validate(); err != nil {
			return err
		}
		if i > 0 && !d.Date.Equal(s.Days[i-1].Date.AddDate(0, 0, 1)) {
			return fmt.Errorf("validate: days %v and %v are not consecutive",
				s.Days[i-1].Date.Format(DateLayout), d.Date.Format(DateLayout))
		}
	}
	return nil
}

// CampaignStart returns the start of the winter wheat campaign that is
// harvested in year
func CampaignStart(year int) time.Time {
	return time.Date(year-1, time.October, 1, 0, 0, 0, 0, time.UTC)
}
