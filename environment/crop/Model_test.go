package crop

import (
	"math"
	"testing"

	"github.com/cropgym/cropgym-go/environment/weather"
	"github.com/cropgym/cropgym-go/nitrogen"
)

func TestDrySeasonDeposition(t *testing.T) {
	series := weather.Nominal(2000)
	for i := range series.Days {
		series.Days[i].RAIN = 0
	}

	m := NewModel(WofostCN, DefaultParameters())
	if err := m.Reset(series, NominalConditions()); err != nil {
		t.Fatal(err)
	}

	// Crosses the turn of the year
	if err := m.Advance(100, 0); err != nil {
		t.Fatal(err)
	}

	start := weather.CampaignStart(2000)
	nh4, no3 := nitrogen.DisaggregatedDeposition(start,
		start.AddDate(0, 0, m.Day()))
	want := nh4 + no3
	got := m.State()[Ndepo]
	if want <= 0 {
		t.Fatalf("expected positive deposition over %v days", m.Day())
	}
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("deposition = %v, want %v", got, want)
	}
}
