// Package reward implements the reward and constraint cost functions of
// the winter wheat fertilization task. A Selector maps a pair of
// consecutive simulator states and the action taken between them to a
// scalar reward and one cost per configured cost channel.
package reward

import (
	"fmt"
	"strings"
)

// Kind selects a reward function
type Kind int

const (
	// GRO rewards storage organ growth minus fertilizer costs
	GRO Kind = iota

	// DEP is GRO with an additional fixed cost per application
	DEP

	// LOS is GRO with a penalty on nitrogen losses
	LOS

	// NUP rewards crop nitrogen uptake minus fertilizer costs
	NUP

	// HAR penalizes fertilizer and nitrogen losses only
	HAR

	// DNU rewards nitrogen in the grain and penalizes fertilizer,
	// deposition and losses
	DNU

	// DSO rewards weighted growth of nitrogen in the storage organs
	// minus fertilizer costs
	DSO

	// FIN rewards net profit: grain revenue minus fertilizer costs
	FIN

	// END rewards the final yield at the end of the season minus
	// fertilizer costs
	END

	// NUE penalizes each application and rewards the season's nitrogen
	// surplus, use efficiency and yield at the end of the season
	NUE
)

var kindNames = map[Kind]string{
	GRO: "GRO",
	DEP: "DEP",
	LOS: "LOS",
	NUP: "NUP",
	HAR: "HAR",
	DNU: "DNU",
	DSO: "DSO",
	FIN: "FIN",
	END: "END",
	NUE: "NUE",
}

// Kinds returns all reward kinds
func Kinds() []Kind {
	return []Kind{GRO, DEP, LOS, NUP, HAR, DNU, DSO, FIN, END, NUE}
}

// ParseKind parses a reward name such as "NUE", ignoring case
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(kindNames[k], name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("parseKind: unknown reward %q", name)
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sparse returns whether the reward function pays out most of its
// reward at the end of the season
func (k Kind) Sparse() bool {
	return k == END || k == NUE
}
