package nitrogen

import (
	"math"

	"github.com/cropgym/cropgym-go/utils/floatutils"
)

// Reference yields used to normalize the yield term of the NUE reward,
// in kg/ha
const (
	MinYield = 5484.75
	MaxYield = 9500.0
)

// Input returns the total nitrogen input to the field: fertilizer, seed
// and deposition, in kg N/ha
func Input(applied, deposition float64) float64 {
	return applied + SeedN + deposition
}

// UseEfficiency returns the nitrogen use efficiency, the ratio of
// nitrogen in the storage organs to total nitrogen input
func UseEfficiency(applied, deposition, storageOrganN float64) float64 {
	return storageOrganN / Input(applied, deposition)
}

// Surplus returns the nitrogen surplus, the total nitrogen input not
// removed with the storage organs
func Surplus(applied, deposition, storageOrganN float64) float64 {
	return Input(applied, deposition) - storageOrganN
}

// SurplusScore scores a season's surplus and efficiency in [0, 1]. The
// score is 1 for a surplus in [0, 40] kg N/ha and an efficiency in
// [0.5, 0.9], and decays linearly outside of those ranges.
func SurplusScore(surplus, nue float64) float64 {
	const (
		surplusWidth = 100.0
		nueWidth     = 1.0
	)
	base := floatutils.Clip(1-(math.Abs(surplus-20)-20)/surplusWidth, 0, 1)
	baseNUE := floatutils.Clip(1-(math.Abs(nue-0.7)-0.2)/nueWidth, 0, 1)
	return base * baseNUE
}

// NormalizeYield maps a yield onto [0, ∞) using the reference yields
func NormalizeYield(y float64) float64 {
	return math.Max(0, (y-MinYield)/(MaxYield-MinYield))
}

// Score returns the season score of the NUE reward: the surplus score,
// plus the normalized yield when the surplus score is perfect
func Score(surplus, nue, yield float64) float64 {
	score := SurplusScore(surplus, nue)
	if score == 1 {
		return score + NormalizeYield(yield)
	}
	return score
}

// Condition returns a coefficient in (0, 1] describing how close nue is
// to the target range [0.7, 0.85]
func Condition(nue float64) float64 {
	const (
		lower = 0.7
		upper = 0.85
	)
	switch {
	case nue < lower:
		return upper*math.Exp(-10*(lower-nue)) + 0.1
	case nue <= upper:
		return 1
	default:
		return upper*math.Exp(-10*(nue-upper)) + 0.1
	}
}
