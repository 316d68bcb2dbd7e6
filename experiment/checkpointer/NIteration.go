package checkpointer

// nIteration implements checkpointing every N iterations
type nIteration struct {
	interval int
	object   Serializable // Object to save

	// filename returns the filename of the checkpoint taken after some
	// number of iterations.
	//
	// If each checkpoint should be saved in a separate file, use
	// FilenameEnumerator. If only the latest checkpoint should be kept,
	// use Fixed. For example:
	//
	// n := NewNIteration(10, object, Fixed("latest.bin"))
	filename func(int) string
}

// NewNIteration returns a checkpointer that checkpoints every n
// iterations
func NewNIteration(n int, object Serializable,
	filename func(int) string) Checkpointer {
	if n <= 0 {
		n = 1
	}
	return &nIteration{
		interval: n,
		object:   object,
		filename: filename,
	}
}

// Checkpoint checkpoints the Checkpointer's tracked object by calling
// its Save() method when iteration is a multiple of the interval
func (n *nIteration) Checkpoint(iteration int) error {
	if iteration%n.interval == 0 {
		return n.object.Save(n.filename(iteration))
	}
	return nil
}
