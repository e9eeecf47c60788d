package domain

// Resolution is an error handler's verdict. Action selects the
// recovery path; any Resolution whose Action is not one of the three
// known values is treated as "handled by substitution": the run
// advances past the failed task and Value is surfaced to lifecycle
// hooks for the caller's own bookkeeping. Value is never injected
// into the shared context automatically.
type Resolution struct {
	Action ErrorAction
	Value  any
}

// Abort terminates the run with the original task error.
func Abort() Resolution { return Resolution{Action: ActionAbort} }

// Skip resets the retry counter and advances to the next task.
func Skip() Resolution { return Resolution{Action: ActionSkip} }

// Retry re-invokes the failed task, bounded by its effective MaxRetries.
func Retry() Resolution { return Resolution{Action: ActionRetry} }

// Fallback marks the error as handled by substitution with v.
func Fallback(v any) Resolution { return Resolution{Value: v} }
