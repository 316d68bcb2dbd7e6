package weather

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cropgym/cropgym-go/environment"
	"golang.org/x/exp/rand"
)

// Pool is a fixed pool of pre-generated weather series. A Pool is
// read-only after construction and may be shared between goroutines.
type Pool struct {
	dir    string
	series []*Series
}

// LoadPool loads every file named <year>.csv in dir into a Pool. A
// missing directory, an empty pool or a malformed file is reported as an
// *environment.ConfigurationError.
func LoadPool(dir string) (*Pool, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, environment.NewConfigurationError("weather-dir",
			"cannot open weather pool: %w", err)
	}
	if !info.IsDir() {
		return nil, environment.NewConfigurationError("weather-dir",
			"weather pool %v is not a directory", dir)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, environment.NewConfigurationError("weather-dir",
			"cannot list weather pool: %w", err)
	}
	sort.Strings(paths)

	pool := &Pool{dir: dir}
	for _, path := range paths {
		base := strings.TrimSuffix(filepath.Base(path), ".csv")
		year, err := strconv.Atoi(base)
		if err != nil {
			return nil, environment.NewConfigurationError("weather-dir",
				"weather file %v is not named <year>.csv", path)
		}

		series, err := LoadCSV(path, year)
		if err != nil {
			return nil, environment.NewConfigurationError("weather-dir",
				"%v: %w", path, err)
		}
		pool.series = append(pool.series, series)
	}

	if len(pool.series) == 0 {
		return nil, environment.NewConfigurationError("weather-dir",
			"weather pool %v is empty", dir)
	}

	sort.SliceStable(pool.series, func(i, j int) bool {
		return pool.series[i].Year < pool.series[j].Year
	})
	return pool, nil
}

// NewPool returns a Pool over already loaded series
func NewPool(series ...*Series) (*Pool, error) {
	if len(series) == 0 {
		return nil, environment.NewConfigurationError("weather-dir",
			"weather pool is empty")
	}
	for _, s := range series {
		if err := s.Validate(); err != nil {
			return nil, environment.NewConfigurationError("weather-dir",
				"year %v: %w", s.Year, err)
		}
	}
	return &Pool{series: append([]*Series(nil), series...)}, nil
}

// Sample returns a series drawn uniformly from the pool
func (p *Pool) Sample(rng *rand.Rand) *Series {
	return p.series[rng.Intn(len(p.series))]
}

// Len returns the number of series in the pool
func (p *Pool) Len() int {
	return len(p.series)
}

// Years returns the harvest years of the series in the pool
func (p *Pool) Years() []int {
	years := make([]int, len(p.series))
	for i, s := range p.series {
		years[i] = s.Year
	}
	return years
}

// Year returns the series of the given harvest year
func (p *Pool) Year(year int) (*Series, error) {
	for _, s := range p.series {
		if s.Year == year {
			return s, nil
		}
	}
	return nil, fmt.Errorf("year: no series for year %v in pool %v", year,
		p.dir)
}
