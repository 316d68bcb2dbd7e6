// Package checkpointer implements checkpointing of training runs
package checkpointer

// Serializable is an object that can be saved to a file
type Serializable interface {
	Save(filename string) error
}

// Checkpointer checkpoints/saves serializable objects based on the
// number of completed training iterations
type Checkpointer interface {
	Checkpoint(iteration int) error
}
