package domain

// Snapshot is an immutable view of a run, safe to hand to callers:
// Context is a shallow copy taken at the last task boundary, never the
// live map the tasks mutate.
type Snapshot struct {
	FlowName         string         `json:"flow_name"`
	RunID            string         `json:"run_id"`
	Status           Status         `json:"status"`
	CurrentTaskIndex int            `json:"current_task_index"`
	Context          map[string]any `json:"context"`
	SignalData       any            `json:"signal_data,omitempty"`

	// LastError is the most recent error object, retained after
	// termination for diagnostics. ErrorMessage mirrors it for
	// serialized snapshots.
	LastError    error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`
}
