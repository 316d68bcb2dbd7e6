package config

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/cropgym/cropgym-go/agent/lagppo"
)

// Checkpoint is a checkpoint of a training run: its configuration and
// the state of its agent
type Checkpoint struct {
	Config Config
	Agent  *lagppo.Checkpoint
}

// Save implements the checkpointer.Serializable interface
func (r *Run) Save(filename string) error {
	agent, err := r.Learner.Checkpoint()
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	c := Checkpoint{Config: r.Config, Agent: agent}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := gob.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("save: could not encode checkpoint: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return file.Close()
}

// LoadCheckpoint reads a checkpoint written by Run.Save
func LoadCheckpoint(filename string) (*Checkpoint, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadCheckpoint: could not open file: %w", err)
	}
	defer file.Close()

	var c Checkpoint
	if err := gob.NewDecoder(bufio.NewReader(file)).Decode(&c); err != nil {
		return nil, fmt.Errorf("loadCheckpoint: could not decode "+
			"checkpoint: %w", err)
	}
	if c.Agent == nil {
		return nil, fmt.Errorf("loadCheckpoint: checkpoint has no agent")
	}
	return &c, nil
}

// Resume builds a run with configuration c and restores its agent from
// the checkpoint. Settings that change the shape of the agent or the
// sequence of random draws must match the checkpoint's configuration.
func (chk *Checkpoint) Resume(c Config) (*Run, error) {
	if c.Seed != chk.Config.Seed || c.Reward != chk.Config.Reward ||
		c.Agent != chk.Config.Agent || c.IRS != chk.Config.IRS {
		return nil, fmt.Errorf("resume: seed, reward, agent and intrinsic " +
			"reward must match the checkpoint")
	}
	run, err := Build(c)
	if err != nil {
		return nil, err
	}
	if err := run.Learner.Restore(chk.Agent); err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}
	return run, nil
}
