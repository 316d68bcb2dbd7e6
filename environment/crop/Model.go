package crop

import (
	"fmt"
	"math"
	"time"

	"github.com/cropgym/cropgym-go/environment/weather"
	"github.com/cropgym/cropgym-go/nitrogen"
	"github.com/cropgym/cropgym-go/timestep"
	"github.com/cropgym/cropgym-go/utils/floatutils"
)

// Names of the simulator state variables
const (
	DVS          = "DVS"          // Development stage, 0 at sowing, 1 at anthesis, 2 at maturity
	TAGP         = "TAGP"         // Total above-ground production, kg/ha
	LAI          = "LAI"          // Leaf area index, m²/m²
	NuptakeTotal = "NuptakeTotal" // Cumulative crop N uptake, kg N/ha
	TRA          = "TRA"          // Transpiration, mm/day
	NAVAIL       = "NAVAIL"       // Soil mineral N available to the crop, kg N/ha
	SM           = "SM"           // Volumetric soil moisture
	RFTRA        = "RFTRA"        // Transpiration reduction factor
	TWSO         = "TWSO"         // Weight of storage organs, kg/ha
	NamountSO    = "NamountSO"    // N in storage organs, kg N/ha
	NLOSSCUM     = "NLOSSCUM"     // Cumulative N losses, kg N/ha
	Ndepo        = "Ndepo"        // Cumulative N deposition, kg N/ha
	Napplied     = "Napplied"     // Cumulative N applied, kg N/ha
	Week         = "week"         // Decisions taken in the episode
	Naction      = "Naction"      // Decisions with a positive application
	Year         = "year"         // Harvest year of the season
	Day          = "day"          // Days since the campaign start
)

// Simulator is a crop-growth model that can be advanced day by day. The
// WinterWheat environment drives a Simulator; any crop model can be
// plugged in behind this interface.
type Simulator interface {
	// Reset restarts the simulation at the campaign start of the
	// series, using the initial conditions init
	Reset(series *weather.Series, init InitialConditions) error

	// Advance applies fertilizer (kg N/ha) and advances the simulation
	// by days days, stopping early at maturity
	Advance(days int, fertilizer float64) error

	// State returns a copy of the current simulator state
	State() timestep.State

	// Day returns the number of days since the campaign start
	Day() int

	// Matured returns whether the crop has reached maturity
	Matured() bool
}

// InitialConditions are the perturbable initial conditions of a season
type InitialConditions struct {
	NAVAILI   float64 // Initial soil mineral N, kg N/ha
	SMI       float64 // Initial volumetric soil moisture
	SowOffset int     // Days between campaign start and sowing
}

// NominalConditions returns the unperturbed initial conditions
func NominalConditions() InitialConditions {
	return InitialConditions{NAVAILI: 25, SMI: 0.3, SowOffset: 0}
}

// Parameters of the surrogate model
type Parameters struct {
	TSUM1    float64 // Temperature sum from sowing to anthesis, °C·d
	TSUM2    float64 // Temperature sum from anthesis to maturity, °C·d
	TBASE    float64 // Base temperature for development, °C
	RUE      float64 // Radiation use efficiency, kg dry matter / MJ PAR
	KDIF     float64 // Light extinction coefficient
	SLA      float64 // Specific leaf area, ha/kg
	TAGPI    float64 // Initial above-ground biomass, kg/ha
	NMINI    float64 // Daily N mineralisation at 15 °C, kg N/ha
	NUPMAX   float64 // Maximum daily fraction of NAVAIL taken up
	SMW      float64 // Soil moisture at wilting point
	SMCRIT   float64 // Soil moisture below which transpiration is reduced
	SMFC     float64 // Soil moisture at field capacity
	ROOTD    float64 // Rooted depth, mm
	LEACHING float64 // Fraction of NAVAIL leached per mm of drainage
}

// DefaultParameters returns parameters calibrated so that a well
// fertilised season yields around 9 t/ha under nominal weather
func DefaultParameters() Parameters {
	return Parameters{
		TSUM1:    1100,
		TSUM2:    900,
		TBASE:    0,
		RUE:      3.0,
		KDIF:     0.6,
		SLA:      0.0022,
		TAGPI:    50,
		NMINI:    0.25,
		NUPMAX:   0.1,
		SMW:      0.1,
		SMCRIT:   0.22,
		SMFC:     0.4,
		ROOTD:    600,
		LEACHING: 0.004,
	}
}

// Model is a surrogate daily nitrogen and biomass balance model of
// winter wheat. It is a stand-in for a full crop simulator so that the
// environment contract can be exercised; it is not a WOFOST model.
type Model struct {
	params  Parameters
	variant Variant

	series  *weather.Series
	nh4Conc float64
	no3Conc float64
	dry     bool

	day     int
	started bool
	matured bool

	dvs, tagp, wlv, lai float64
	nuptake, navail, sm float64
	tra, rftra          float64
	twso, nso, nloss    float64
	ndepo, napplied     float64
}

// NewModel returns a new surrogate Model for an environment variant
func NewModel(variant Variant, params Parameters) *Model {
	return &Model{params: params, variant: variant}
}

// Reset implements the Simulator interface
func (m *Model) Reset(series *weather.Series, init InitialConditions) error {
	if series == nil {
		return fmt.Errorf("reset: nil weather series")
	}
	if init.SowOffset < 0 || init.SowOffset >= series.Len() {
		return fmt.Errorf("reset: sowing offset %v outside of season of "+
			"%v days", init.SowOffset, series.Len())
	}

	m.series = series
	m.nh4Conc, m.no3Conc = nitrogen.RainConcentration(
		nitrogen.RealYear(series.Year), series.TotalRain())
	m.dry = series.TotalRain() <= 0

	m.day = init.SowOffset
	m.started = true
	m.matured = false

	m.dvs = 0
	m.tagp = m.params.TAGPI
	m.wlv = 0.6 * m.params.TAGPI
	m.lai = m.params.SLA * m.wlv
	m.nuptake = criticalN(0) * m.params.TAGPI
	m.navail = init.NAVAILI
	m.sm = init.SMI
	m.tra = 0
	m.rftra = 1
	m.twso = 0
	m.nso = 0
	m.nloss = 0
	m.ndepo = 0
	m.napplied = 0

	return nil
}

// Advance implements the Simulator interface
func (m *Model) Advance(days int, fertilizer float64) error {
	if !m.started {
		return fmt.Errorf("advance: model must be reset before advancing")
	}
	if fertilizer < 0 || !floatutils.IsFinite(fertilizer) {
		return fmt.Errorf("advance: illegal fertilizer amount %v", fertilizer)
	}

	m.navail += fertilizer
	m.napplied += fertilizer

	for i := 0; i < days && !m.matured; i++ {
		day, err := m.series.At(m.day)
		if err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		if err := day.Validate(); err != nil {
			return fmt.Errorf("advance: %w", err)
		}

		m.integrate(day)
		m.day++

		if err := m.check(); err != nil {
			return fmt.Errorf("advance: %w", err)
		}
	}
	return nil
}

// integrate advances all rate and state variables by a single day
func (m *Model) integrate(w weather.Day) {
	p := m.params
	temp := w.TEMP()

	// Phenology
	teff := math.Max(0, temp-p.TBASE)
	if m.dvs < 1 {
		m.dvs += teff / p.TSUM1
	} else {
		m.dvs += teff / p.TSUM2
	}
	m.dvs = math.Min(m.dvs, 2)

	// Water balance
	intercepted := 1 - math.Exp(-p.KDIF*m.lai)
	potentialTRA := intercepted * 0.0003 * w.IRRAD *
		math.Max(0.3, (temp+5)/25)
	if m.variant == Lintul {
		m.rftra = 1
	} else {
		m.rftra = floatutils.Clip((m.sm-p.SMW)/(p.SMCRIT-p.SMW), 0, 1)
	}
	m.tra = potentialTRA * m.rftra

	drainage := 0.0
	if m.variant != Lintul {
		m.sm += (w.RAIN - m.tra) / p.ROOTD
		if m.sm > p.SMFC {
			drainage = (m.sm - p.SMFC) * p.ROOTD
			m.sm = p.SMFC
		}
		m.sm = math.Max(m.sm, p.SMW/2)
	} else {
		drainage = w.RAIN / 2
	}

	// Nitrogen inputs
	nh4, no3 := nitrogen.DayDeposition(w.RAIN, m.nh4Conc, m.no3Conc)
	if m.dry {
		// Without rain to carry it, the annual deposition is spread evenly
		day := realDate(w.Date)
		nh4, no3 = nitrogen.DisaggregatedDeposition(day, day.AddDate(0, 0, 1))
	}
	m.ndepo += nh4 + no3
	m.navail += nh4 + no3
	m.navail += p.NMINI * floatutils.Clip(temp/15, 0, 1.5)

	// Nitrogen stress
	critical := criticalN(m.dvs)
	nni := 1.0
	if m.tagp > 0 {
		nni = floatutils.Clip(m.nuptake/(critical*m.tagp), 0.3, 1)
	}

	// Growth
	par := 0.5 * w.IRRAD / 1000
	tempFactor := floatutils.Clip(temp/15, 0, 1)
	growth := p.RUE * 10 * par * intercepted * tempFactor * m.rftra *
		math.Pow(nni, 0.8)
	if m.dvs >= 2 {
		growth = 0
	}
	m.tagp += growth

	// Partitioning
	if m.dvs < 1 {
		m.wlv += 0.6 * (1 - m.dvs) * growth
	}
	if m.dvs > 1.2 {
		m.wlv *= 0.97
	}
	m.lai = p.SLA * m.wlv
	if m.dvs > 1 {
		m.twso += floatutils.Clip((m.dvs-1)*2, 0, 1) * growth
	}

	// Nitrogen uptake until shortly after anthesis
	if m.dvs < 1.3 {
		demand := math.Max(0, critical*m.tagp-m.nuptake)
		uptake := math.Min(demand, p.NUPMAX*m.navail)
		m.nuptake += uptake
		m.navail -= uptake
	}
	m.nso = math.Min(0.8*m.nuptake, 0.021*m.twso*(0.6+0.4*nni))

	// Leaching
	if m.variant == WofostSNOMIN && drainage > 0 {
		leached := m.navail * math.Min(0.5, p.LEACHING*drainage)
		m.navail -= leached
		m.nloss += leached
	}

	if m.dvs >= 2 {
		m.matured = true
	}
}

// realDate maps a date of a synthetic weather year onto a real year
func realDate(t time.Time) time.Time {
	return time.Date(nitrogen.RealYear(t.Year()), t.Month(), t.Day(), 0, 0, 0,
		0, time.UTC)
}

// check returns an error if any state variable is non-finite
func (m *Model) check() error {
	state := m.State()
	for _, k := range state.Keys() {
		if !floatutils.IsFinite(state[k]) {
			return fmt.Errorf("check: %v is non-finite on day %v", k, m.day)
		}
	}
	return nil
}

// criticalN returns the critical crop N concentration at development
// stage dvs
func criticalN(dvs float64) float64 {
	return 0.04 - 0.0125*dvs
}

// State implements the Simulator interface
func (m *Model) State() timestep.State {
	year := 0
	if m.series != nil {
		year = m.series.Year
	}
	return timestep.State{
		DVS:          m.dvs,
		TAGP:         m.tagp,
		LAI:          m.lai,
		NuptakeTotal: m.nuptake,
		TRA:          m.tra,
		NAVAIL:       m.navail,
		SM:           m.sm,
		RFTRA:        m.rftra,
		TWSO:         m.twso,
		NamountSO:    m.nso,
		NLOSSCUM:     m.nloss,
		Ndepo:        m.ndepo,
		Napplied:     m.napplied,
		Year:         float64(year),
		Day:          float64(m.day),
	}
}

// Day implements the Simulator interface
func (m *Model) Day() int {
	return m.day
}

// Matured implements the Simulator interface
func (m *Model) Matured() bool {
	return m.matured
}
