package weather

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cropgym/cropgym-go/environment"
	"golang.org/x/exp/rand"
)

func TestCSVRoundTrip(t *testing.T) {
	want := Nominal(1995)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCSV(&buf, want.Year)
	if err != nil {
		t.Fatal(err)
	}

	if got.Len() != want.Len() {
		t.Fatalf("read %v days, want %v", got.Len(), want.Len())
	}
	for i := range want.Days {
		if !got.Days[i].Date.Equal(want.Days[i].Date) ||
			got.Days[i].IRRAD != want.Days[i].IRRAD ||
			got.Days[i].TMIN != want.Days[i].TMIN ||
			got.Days[i].TMAX != want.Days[i].TMAX ||
			got.Days[i].RAIN != want.Days[i].RAIN {
			t.Fatalf("day %v: got %v, want %v", i, got.Days[i],
				want.Days[i])
		}
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := map[string]string{
		"missing column": "DAY,IRRAD,TMIN,TMAX\n2000-10-01,1,2,3\n",
		"bad date":       "DAY,IRRAD,TMIN,TMAX,RAIN\n01/10/2000,1,2,3,4\n",
		"bad value":      "DAY,IRRAD,TMIN,TMAX,RAIN\n2000-10-01,x,2,3,4\n",
		"gap": "DAY,IRRAD,TMIN,TMAX,RAIN\n2000-10-01,1,2,3,4\n" +
			"2000-10-03,1,2,3,4\n",
		"tmin above tmax": "DAY,IRRAD,TMIN,TMAX,RAIN\n2000-10-01,1,5,3,4\n",
		"empty":           "",
	}
	for name, data := range tests {
		if _, err := ReadCSV(strings.NewReader(data), 2001); err == nil {
			t.Errorf("%v: expected an error", name)
		}
	}
}

func TestLoadPool(t *testing.T) {
	dir := t.TempDir()
	for _, year := range []int{3004, 3002, 3003} {
		writeSeries(t, dir, Nominal(year))
	}

	pool, err := LoadPool(dir)
	if err != nil {
		t.Fatal(err)
	}
	if pool.Len() != 3 {
		t.Fatalf("pool has %v series, want 3", pool.Len())
	}
	years := pool.Years()
	for i, want := range []int{3002, 3003, 3004} {
		if years[i] != want {
			t.Errorf("years = %v, want sorted", years)
			break
		}
	}
	if _, err := pool.Year(3003); err != nil {
		t.Error(err)
	}
	if _, err := pool.Year(1999); err == nil {
		t.Errorf("year 1999 should not be in the pool")
	}
}

func TestLoadPoolConfigurationError(t *testing.T) {
	bad := t.TempDir()
	if err := os.WriteFile(filepath.Join(bad, "weather.csv"), nil,
		0o644); err != nil {
		t.Fatal(err)
	}

	dirs := map[string]string{
		"missing":  filepath.Join(t.TempDir(), "missing"),
		"empty":    t.TempDir(),
		"bad name": bad,
	}
	for name, dir := range dirs {
		_, err := LoadPool(dir)
		var configErr *environment.ConfigurationError
		if !errors.As(err, &configErr) {
			t.Errorf("%v: expected ConfigurationError, got %v", name, err)
			continue
		}
		if configErr.Field != "weather-dir" {
			t.Errorf("%v: field = %v, want weather-dir", name,
				configErr.Field)
		}
	}

	if _, err := NewPool(); err == nil {
		t.Errorf("newPool: expected an error for an empty pool")
	}
}

func TestSampleDeterministic(t *testing.T) {
	var series []*Series
	for year := 3002; year < 3012; year++ {
		series = append(series, Nominal(year))
	}
	pool, err := NewPool(series...)
	if err != nil {
		t.Fatal(err)
	}

	rng1 := rand.New(rand.NewSource(4))
	rng2 := rand.New(rand.NewSource(4))
	for i := 0; i < 50; i++ {
		a, b := pool.Sample(rng1), pool.Sample(rng2)
		if a.Year != b.Year {
			t.Fatalf("sample %v: years %v and %v differ", i, a.Year, b.Year)
		}
	}
}

func TestNominal(t *testing.T) {
	a, b := Nominal(2001), Nominal(2001)
	if err := a.Validate(); err != nil {
		t.Fatal(err)
	}
	if a.Len() != SeasonDays {
		t.Errorf("nominal season has %v days, want %v", a.Len(), SeasonDays)
	}
	if !a.Days[0].Date.Equal(CampaignStart(2001)) {
		t.Errorf("season starts on %v, want %v", a.Days[0].Date,
			CampaignStart(2001))
	}
	for i := range a.Days {
		if a.Days[i] != b.Days[i] {
			t.Fatalf("nominal weather is not deterministic on day %v", i)
		}
	}

	c := Nominal(2002)
	if c.TotalRain() == a.TotalRain() {
		t.Errorf("different years should have different weather")
	}
}

func TestWindow(t *testing.T) {
	s := Nominal(2001)
	w := s.Window(3, 7)
	if len(w) != 7 {
		t.Fatalf("window has %v days, want 7", len(w))
	}
	for i := 0; i < 4; i++ {
		if w[i] != s.Days[0] {
			t.Errorf("day %v of window should be clamped to the first day", i)
		}
	}
	if w[6] != s.Days[2] {
		t.Errorf("window should end before day 3")
	}
}

func writeSeries(t *testing.T, dir string, s *Series) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, strconv.Itoa(s.Year)+".csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := WriteCSV(f, s); err != nil {
		t.Fatal(err)
	}
}
