package progressbar

import (
	"bytes"
	"strings"
	"testing"
)

func TestManualProgressBar(t *testing.T) {
	var out bytes.Buffer
	p := NewManualProgressBar(&out, 10, 200)

	p.Add(50)
	if p.Fraction() != 0.25 {
		t.Errorf("fraction = %v, want 0.25", p.Fraction())
	}
	p.Add(500)
	if p.Fraction() != 1 {
		t.Errorf("progress should saturate, got fraction %v", p.Fraction())
	}
	p.Set(100)
	if p.Fraction() != 0.5 {
		t.Errorf("fraction = %v, want 0.5", p.Fraction())
	}

	p.Display()
	if !strings.Contains(out.String(), "50.00%") {
		t.Errorf("display %q does not show 50%%", out.String())
	}
	if got := strings.Count(p.String(), "█"); got != 5 {
		t.Errorf("bar has %v filled cells, want 5", got)
	}
}
