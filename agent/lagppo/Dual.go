package lagppo

import (
	"fmt"
	"math"
)

// Dual holds the Lagrange multipliers of the cost budgets, one per cost
// channel, and updates them by projected dual ascent:
//
//	λᵢ ← max(0, λᵢ + η·(costᵢ − budgetᵢ))
//
// The multipliers are never negative.
type Dual struct {
	multipliers []float64
	budgets     []float64
	stepSize    float64
	fixed       bool
}

// NewDual returns a new Dual with every multiplier set to initial. If
// fixed is true, Update leaves the multipliers unchanged.
func NewDual(budgets []float64, stepSize, initial float64,
	fixed bool) (*Dual, error) {
	if stepSize < 0 || math.IsNaN(stepSize) {
		return nil, fmt.Errorf("newDual: step size must be non-negative, "+
			"got %v", stepSize)
	}
	if initial < 0 || math.IsNaN(initial) {
		return nil, fmt.Errorf("newDual: initial multiplier must be "+
			"non-negative, got %v", initial)
	}

	multipliers := make([]float64, len(budgets))
	for i := range multipliers {
		multipliers[i] = initial
	}
	return &Dual{
		multipliers: multipliers,
		budgets:     append([]float64(nil), budgets...),
		stepSize:    stepSize,
		fixed:       fixed,
	}, nil
}

// Update performs a single dual ascent step given the mean episode cost
// of each channel. Non-finite costs leave their multiplier unchanged.
func (d *Dual) Update(meanCost []float64) error {
	if len(meanCost) != len(d.multipliers) {
		return fmt.Errorf("update: have %v costs for %v multipliers",
			len(meanCost), len(d.multipliers))
	}
	if d.fixed {
		return nil
	}

	for i, cost := range meanCost {
		if math.IsNaN(cost) || math.IsInf(cost, 0) {
			continue
		}
		d.multipliers[i] = math.Max(0,
			d.multipliers[i]+d.stepSize*(cost-d.budgets[i]))
	}
	return nil
}

// Multipliers returns a copy of the current multipliers
func (d *Dual) Multipliers() []float64 {
	return append([]float64(nil), d.multipliers...)
}

// Budgets returns a copy of the cost budgets
func (d *Dual) Budgets() []float64 {
	return append([]float64(nil), d.budgets...)
}

// SetMultipliers restores the multipliers, for example from a checkpoint
func (d *Dual) SetMultipliers(m []float64) error {
	if len(m) != len(d.multipliers) {
		return fmt.Errorf("setMultipliers: have %v values for %v "+
			"multipliers", len(m), len(d.multipliers))
	}
	for i, v := range m {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("setMultipliers: multiplier %v is %v", i, v)
		}
	}
	copy(d.multipliers, m)
	return nil
}
