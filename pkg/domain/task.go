package domain

import "context"

// TaskFunc is a single unit of work in a flow. It receives the run's
// shared context (direct mutation access, single writer at a time) and
// the attempt handle for the current invocation. The returned value is
// informational unless it is a *PauseRequest; failures are signaled by
// returning an error.
type TaskFunc func(ctx context.Context, shared map[string]any, attempt *Attempt) (any, error)

// ErrorHandler decides how the engine recovers from a task failure.
// It receives the triggering error, the live shared context and the
// failing attempt's info, and returns a Resolution.
type ErrorHandler func(err error, shared map[string]any, info TaskInfo) Resolution

// TaskInfo is the read-only view of the current attempt exposed to
// tasks and error handlers.
type TaskInfo struct {
	ID         string `json:"id"`
	Index      int    `json:"index"`
	Retries    int    `json:"retries"`
	MaxRetries int    `json:"max_retries"`
}

// TaskOptions are per-task overrides of the flow defaults.
// Nil pointers mean "use the flow-level default".
type TaskOptions struct {
	YieldBefore *bool
	YieldAfter  *bool
	MaxRetries  *int
}

// TaskSpec is the declarative shape accepted by Define.
type TaskSpec struct {
	ID      string
	Func    TaskFunc
	OnError ErrorHandler
	Options TaskOptions
}

// TaskDescriptor is a fully resolved task inside a Definition. The
// Definition's descriptors are templates (Retries always 0); each run
// clones them so retry counters never leak between runs.
type TaskDescriptor struct {
	ID          string
	Func        TaskFunc
	OnError     ErrorHandler
	YieldBefore bool
	YieldAfter  bool
	MaxRetries  int

	// Retries is the per-run attempt counter. Only the engine loop
	// driving the owning run mutates it.
	Retries int
}

// Attempt is the per-invocation handle handed to a task. It carries
// the read-only TaskInfo and collects the in-band signal; only the
// last Signal call before the task returns is honored.
type Attempt struct {
	Info TaskInfo

	sigSet  bool
	sigType SignalType
	sigData any
}

// NewAttempt builds the handle for one task invocation.
func NewAttempt(info TaskInfo) *Attempt {
	return &Attempt{Info: info}
}

// Signal records an in-band signal for the engine. Calling it again
// overwrites the previous signal.
func (a *Attempt) Signal(t SignalType, data any) {
	a.sigSet = true
	a.sigType = t
	a.sigData = data
}

// LastSignal returns the most recent signal, if any.
func (a *Attempt) LastSignal() (SignalType, any, bool) {
	return a.sigType, a.sigData, a.sigSet
}

// PauseRequest is the sentinel return value equivalent to calling
// Signal(SignalPause, Data).
type PauseRequest struct {
	Data any
}

// Paused wraps data in a PauseRequest for use as a task return value.
func Paused(data any) *PauseRequest {
	return &PauseRequest{Data: data}
}
