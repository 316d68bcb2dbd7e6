// Package tracker implements Trackers, which track and save data in an
// experiment
package tracker

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/cropgym/cropgym-go/agent"
)

// Interface Tracker keeps track of experiment data and saves the data
// to disk. Track is called with the statistics of every successful
// iteration.
type Tracker interface {
	Track(s agent.Stats)
	Save() error
}

// Save gob encodes data to a file
func Save(filename string, data interface{}) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := gob.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("save: could not encode data: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return file.Close()
}

// LoadData loads the data saved by a Tracker into data, which must be a
// pointer to the type the Tracker saves
func LoadData(filename string, data interface{}) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("loadData: could not open data file: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(bufio.NewReader(file)).Decode(data); err != nil {
		return fmt.Errorf("loadData: could not decode data: %w", err)
	}
	return nil
}
