package weather

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SeasonDays is the number of days in a nominal season
const SeasonDays = 365

// Nominal returns the nominal weather of the season harvested in year.
// The series follows a temperate maritime climatology with day-to-day
// noise drawn from a source seeded by the year, so that the same year
// always yields the same series and different years differ.
func Nominal(year int) *Series {
	src := rand.NewSource(uint64(year))
	noise := distuv.Normal{Mu: 0, Sigma: 1.5, Src: src}
	wet := distuv.Bernoulli{P: 0.5, Src: src}
	amount := distuv.Exponential{Rate: 0.25, Src: src}
	cloud := distuv.Uniform{Min: 0.6, Max: 1.0, Src: src}

	start := CampaignStart(year)
	series := &Series{Year: year, Days: make([]Day, SeasonDays)}
	for i := range series.Days {
		date := start.AddDate(0, 0, i)
		doy := float64(date.YearDay())

		temp := 10 + 8*math.Sin(2*math.Pi*(doy-105)/365) + noise.Rand()
		spread := 4 + 0.5*math.Abs(noise.Rand())
		irrad := (9000 + 8000*math.Sin(2*math.Pi*(doy-80)/365)) * cloud.Rand()

		var rain float64
		if wet.Rand() == 1 {
			rain = amount.Rand()
		}

		series.Days[i] = Day{
			Date:  date,
			IRRAD: math.Max(irrad, 500),
			TMIN:  temp - spread,
			TMAX:  temp + spread,
			RAIN:  rain,
		}
	}
	return series
}
