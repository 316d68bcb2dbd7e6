package nitrogen

import (
	"fmt"
	"time"
)

// Treatment is a standard-practice fertilization schedule from field
// trials in the Netherlands
type Treatment string

// Available treatments: three rates (N1..N3) at four sites
const (
	N1PA Treatment = "N1-PA"
	N2PA Treatment = "N2-PA"
	N3PA Treatment = "N3-PA"
	N1DE Treatment = "N1-DE"
	N2DE Treatment = "N2-DE"
	N3DE Treatment = "N3-DE"
	N1DB Treatment = "N1-DB"
	N2DB Treatment = "N2-DB"
	N3DB Treatment = "N3-DB"
	N1WA Treatment = "N1-WA"
	N2WA Treatment = "N2-WA"
	N3WA Treatment = "N3-WA"
)

// Treatments returns all available treatments
func Treatments() []Treatment {
	return []Treatment{
		N1PA, N2PA, N3PA,
		N1DE, N2DE, N3DE,
		N1DB, N2DB, N3DB,
		N1WA, N2WA, N3WA,
	}
}

// ParseTreatment parses a treatment name
func ParseTreatment(name string) (Treatment, error) {
	for _, t := range Treatments() {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("parseTreatment: unknown treatment %q", name)
}

func (t Treatment) site() string {
	return string(t)[3:]
}

func (t Treatment) rate() string {
	return string(t)[:2]
}

// Schedule returns the fertilization dates and amounts (kg N/ha) of the
// treatment in year
func (t Treatment) Schedule(year int) ([]time.Time, []float64) {
	date := func(m time.Month, d int) time.Time {
		return time.Date(year, m, d, 0, 0, 0, 0, time.UTC)
	}

	var dates []time.Time
	switch t.site() {
	case "PA":
		dates = []time.Time{date(2, 17), date(5, 11), date(6, 21)}
	case "DE":
		dates = []time.Time{date(2, 17), date(5, 14), date(6, 8)}
	case "DB":
		dates = []time.Time{date(2, 17), date(5, 9), date(6, 6)}
	case "WA":
		dates = []time.Time{date(3, 12), date(4, 10), date(4, 22), date(5, 26)}
	}

	amounts := map[string]map[string][]float64{
		"PA": {"N1": {80, 0, 0}, "N2": {60, 80, 80}, "N3": {60, 140, 40}},
		"DB": {"N1": {70, 0, 0}, "N2": {70, 60, 40}, "N3": {70, 120, 40}},
		"DE": {"N1": {50, 60, 0}, "N2": {50, 60, 40}, "N3": {50, 60, 40}},
		"WA": {
			"N1": {110, 0, 0, 40},
			"N2": {110, 0, 60, 40},
			"N3": {110, 80, 60, 40},
		},
	}[t.site()][t.rate()]

	return dates, append([]float64(nil), amounts...)
}
