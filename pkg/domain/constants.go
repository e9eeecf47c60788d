package domain

import "fmt"

// Status describes the lifecycle state of a single run.
type Status string

const (
	StatusIdle      Status = "idle"      // Created, engine not yet scheduled
	StatusRunning   Status = "running"   // Engine loop is driving the run
	StatusPaused    Status = "paused"    // Suspended, awaiting Resume or Abort
	StatusCompleted Status = "completed" // All tasks finished
	StatusAborted   Status = "aborted"   // Externally aborted via the controller
	StatusError     Status = "error"     // Terminated by the recovery protocol
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusAborted, StatusError:
		return true
	}
	return false
}

// ErrorAction is the decision an error handler returns for a failed task.
type ErrorAction string

const (
	ActionAbort ErrorAction = "abort"
	ActionSkip  ErrorAction = "skip"
	ActionRetry ErrorAction = "retry"
)

// SignalType identifies an in-band signal a task sends to the engine.
type SignalType string

// SignalPause asks the engine to pause once the signaling task completes.
const SignalPause SignalType = "pause"

// LogLevel gates the engine's per-flow diagnostics.
// Ordering matters: a level includes everything below it. The zero
// value is LogError so a zero FlowOptions still surfaces diagnostics;
// LogNone must be requested explicitly.
type LogLevel int

const (
	LogError LogLevel = iota
	LogInfo
	LogDebug
)

// LogNone silences all engine diagnostics for a flow.
const LogNone LogLevel = -1

// ParseLogLevel converts a config string into a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "none":
		return LogNone, nil
	case "", "error":
		return LogError, nil
	case "info":
		return LogInfo, nil
	case "debug":
		return LogDebug, nil
	}
	return LogNone, fmt.Errorf("unknown log level: %q", s)
}

func (l LogLevel) String() string {
	switch l {
	case LogError:
		return "error"
	case LogInfo:
		return "info"
	case LogDebug:
		return "debug"
	default:
		return "none"
	}
}
