package checkpointer

import (
	"fmt"
	"testing"
)

type recorder struct {
	saved []string
	err   error
}

func (r *recorder) Save(filename string) error {
	r.saved = append(r.saved, filename)
	return r.err
}

func TestNIteration(t *testing.T) {
	r := &recorder{}
	c := NewNIteration(3, r, FilenameEnumerator("/tmp/run/checkpoint", ".bin"))
	for i := 1; i <= 10; i++ {
		if err := c.Checkpoint(i); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{
		"/tmp/run/checkpoint-3.bin",
		"/tmp/run/checkpoint-6.bin",
		"/tmp/run/checkpoint-9.bin",
	}
	if len(r.saved) != len(want) {
		t.Fatalf("saved %v, want %v", r.saved, want)
	}
	for i := range want {
		if r.saved[i] != want[i] {
			t.Errorf("checkpoint %v saved to %v, want %v", i, r.saved[i],
				want[i])
		}
	}
}

func TestFixed(t *testing.T) {
	r := &recorder{}
	c := NewNIteration(1, r, Fixed("latest.bin"))
	for i := 1; i <= 3; i++ {
		c.Checkpoint(i)
	}
	for _, name := range r.saved {
		if name != "latest.bin" {
			t.Errorf("saved to %v, want latest.bin", name)
		}
	}
}

func TestCheckpointError(t *testing.T) {
	r := &recorder{err: fmt.Errorf("disk full")}
	c := NewNIteration(1, r, Fixed("latest.bin"))
	if err := c.Checkpoint(1); err == nil {
		t.Errorf("save errors should be returned")
	}
}
