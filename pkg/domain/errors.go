package domain

import (
	"errors"
	"fmt"
)

// ErrNotRunning is returned by Pause when the run is not in StatusRunning.
var ErrNotRunning = errors.New("run is not running")

// ErrNotPaused is returned by Resume when the run is not in StatusPaused.
var ErrNotPaused = errors.New("run is not paused")

// ErrTerminal is returned by controller mutators once a run has reached
// a terminal status.
var ErrTerminal = errors.New("run already terminal")

// InvalidDefinitionError reports a malformed flow or task spec at define time.
type InvalidDefinitionError struct {
	Flow   string
	Index  int // offending task index, or -1 for flow-level problems
	Reason string
}

func (e *InvalidDefinitionError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid definition for flow %q: task %d: %s", e.Flow, e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid definition for flow %q: %s", e.Flow, e.Reason)
}

// UndefinedFlowError reports a Run against a name that was never defined.
type UndefinedFlowError struct {
	Flow string
}

func (e *UndefinedFlowError) Error() string {
	return fmt.Sprintf("flow %q is not defined", e.Flow)
}

// AbortError is the synthesized error recorded when a run is aborted
// through the controller. The reason is caller-supplied.
type AbortError struct {
	Reason string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("run aborted: %s", e.Reason)
}
