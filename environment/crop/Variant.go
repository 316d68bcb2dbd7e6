// Package crop implements a winter wheat fertilization environment on
// top of a day-by-day crop simulator
package crop

import (
	"fmt"
	"strconv"
)

// Variant selects the crop model configuration of the environment
type Variant int

const (
	// Lintul has no soil water limitation and no N leaching
	Lintul Variant = iota

	// WofostCN adds soil water limitation
	WofostCN

	// WofostSNOMIN adds soil water limitation and N leaching
	WofostSNOMIN
)

// ParseVariant parses an environment ID of 0, 1 or 2
func ParseVariant(id string) (Variant, error) {
	i, err := strconv.Atoi(id)
	if err != nil || i < int(Lintul) || i > int(WofostSNOMIN) {
		return 0, fmt.Errorf("parseVariant: environment must be one of "+
			"0, 1, 2 but got %q", id)
	}
	return Variant(i), nil
}

func (v Variant) String() string {
	switch v {
	case Lintul:
		return "Lintul"
	case WofostCN:
		return "WofostCN"
	case WofostSNOMIN:
		return "WofostSNOMIN"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}
