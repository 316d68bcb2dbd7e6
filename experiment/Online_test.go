package experiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cropgym/cropgym-go/agent"
	"github.com/cropgym/cropgym-go/agent/policy"
	"github.com/cropgym/cropgym-go/environment"
	"github.com/cropgym/cropgym-go/experiment/checkpointer"
	"github.com/cropgym/cropgym-go/experiment/tracker"
)

// fakeLearner is a Learner taking a fixed number of steps per iteration.
// Calls to Iterate listed in fail return the mapped error.
type fakeLearner struct {
	steps     int
	iteration int
	total     int
	calls     int
	delay     time.Duration
	fail      map[int]error
}

func (f *fakeLearner) Iterate(ctx context.Context) (agent.Stats, error) {
	call := f.calls
	f.calls++
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.total += f.steps
	stats := agent.Stats{Iteration: f.iteration, Steps: f.total}
	if err := f.fail[call]; err != nil {
		return stats, err
	}
	f.iteration++
	return stats, nil
}

func (f *fakeLearner) Iteration() int { return f.iteration }

func (f *fakeLearner) Steps() int { return f.total }

func (f *fakeLearner) Greedy() agent.Policy { return policy.Zero{} }

// countTracker counts tracked iterations and saves
type countTracker struct {
	tracked int
	saved   int
}

func (c *countTracker) Track(agent.Stats) { c.tracked++ }

func (c *countTracker) Save() error {
	c.saved++
	return nil
}

// recordCheckpointer records the iterations it is called with
type recordCheckpointer struct {
	iterations []int
}

func (r *recordCheckpointer) Checkpoint(iteration int) error {
	r.iterations = append(r.iterations, iteration)
	return nil
}

func divergence(iteration int) error {
	ctx := environment.NoContext()
	ctx.Iteration = iteration
	return &environment.NumericalDivergenceError{Context: ctx,
		Quantity: "policy loss", Value: 0}
}

func TestRun(t *testing.T) {
	l := &fakeLearner{steps: 10}
	tr := &countTracker{}
	cp := &recordCheckpointer{}
	o := NewOnline(l, Config{MaxSteps: 35}, []tracker.Tracker{tr},
		[]checkpointer.Checkpointer{cp})

	if err := o.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if l.Steps() != 40 || l.Iteration() != 4 {
		t.Errorf("ran %v iterations and %v steps, want 4 and 40",
			l.Iteration(), l.Steps())
	}
	if tr.tracked != 4 {
		t.Errorf("tracked %v iterations, want 4", tr.tracked)
	}
	want := []int{1, 2, 3, 4}
	if len(cp.iterations) != len(want) {
		t.Fatalf("checkpointed at %v, want %v", cp.iterations, want)
	}
	for i := range want {
		if cp.iterations[i] != want[i] {
			t.Errorf("checkpointed at %v, want %v", cp.iterations, want)
			break
		}
	}

	if err := o.Save(); err != nil {
		t.Fatal(err)
	}
	if tr.saved != 1 {
		t.Errorf("saved %v times, want 1", tr.saved)
	}
}

func TestDivergenceTolerance(t *testing.T) {
	tests := []struct {
		name  string
		fail  []int
		max   int
		abort bool
	}{
		{"none", nil, 0, false},
		{"tolerated", []int{1}, 1, false},
		{"not consecutive", []int{1, 3}, 1, false},
		{"consecutive", []int{1, 2}, 1, true},
		{"intolerant", []int{2}, 0, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			l := &fakeLearner{steps: 1, fail: make(map[int]error)}
			for _, call := range test.fail {
				l.fail[call] = divergence(call)
			}
			tr := &countTracker{}
			o := NewOnline(l, Config{MaxSteps: 6, MaxDivergences: test.max},
				[]tracker.Tracker{tr}, nil)

			err := o.Run(context.Background())
			if test.abort {
				var div *environment.NumericalDivergenceError
				if !errors.As(err, &div) {
					t.Fatalf("expected a divergence error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tr.tracked != 6-len(test.fail) {
				t.Errorf("tracked %v iterations, want %v", tr.tracked,
					6-len(test.fail))
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	l := &fakeLearner{steps: 1, delay: 200 * time.Millisecond}
	o := NewOnline(l, Config{MaxSteps: 10,
		MaxIterationTime: 10 * time.Millisecond}, nil, nil)

	_, err := o.RunIteration(context.Background())
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected a TimeoutError, got %v", err)
	}
	if timeout.Iteration != 0 {
		t.Errorf("timeout in iteration %v, want 0", timeout.Iteration)
	}

	// The abandoned iteration still owns the learner
	_, again := o.RunIteration(context.Background())
	if again != err {
		t.Errorf("expected the same TimeoutError after a timeout, got %v",
			again)
	}
}

func TestOtherErrorsAreFatal(t *testing.T) {
	failure := errors.New("worker failed")
	l := &fakeLearner{steps: 1, fail: map[int]error{0: failure}}
	o := NewOnline(l, Config{MaxSteps: 10, MaxDivergences: 5}, nil, nil)

	if err := o.Run(context.Background()); !errors.Is(err, failure) {
		t.Errorf("expected %v, got %v", failure, err)
	}
}

func TestCancel(t *testing.T) {
	l := &fakeLearner{steps: 1}
	o := NewOnline(l, Config{MaxSteps: 10}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := o.RunIteration(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := o.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if l.Iteration() != 1 {
		t.Errorf("ran %v iterations after cancelling, want 1", l.Iteration())
	}
}

func TestYearSplit(t *testing.T) {
	test, train := TestYears(), TrainYears()
	if len(test) != 16 || len(train) != 16 {
		t.Fatalf("have %v test and %v train years", len(test), len(train))
	}
	seen := make(map[int]bool)
	for _, y := range test {
		seen[y] = true
	}
	for _, y := range train {
		if seen[y] {
			t.Errorf("year %v is used for training and evaluation", y)
		}
	}
}
