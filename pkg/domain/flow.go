package domain

// FlowOptions is the flow-wide configuration captured at define time.
// Task-level overrides are merged against these defaults exactly once,
// when the Definition is built.
type FlowOptions struct {
	LogLevel LogLevel
	Logger   Logger

	// OnError is the flow-level error handler, consulted only when a
	// failing task has no handler of its own.
	OnError ErrorHandler

	YieldBeforeTask   bool
	YieldAfterTask    bool
	DefaultMaxRetries int
}

// Definition is the immutable blueprint of a flow. The Tasks slice
// holds descriptor templates; runs clone them and never mutate the
// originals.
type Definition struct {
	Name    string
	Tasks   []TaskDescriptor
	Options FlowOptions
}

// CloneTasks returns fresh per-run descriptors with retry counters
// reset, so concurrent runs of the same definition stay isolated.
func (d *Definition) CloneTasks() []TaskDescriptor {
	tasks := make([]TaskDescriptor, len(d.Tasks))
	copy(tasks, d.Tasks)
	for i := range tasks {
		tasks[i].Retries = 0
	}
	return tasks
}
