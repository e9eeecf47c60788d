package domain

import (
	"context"
	"time"
)

// RunEvent describes a run-level transition.
type RunEvent struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	FlowName  string    `json:"flow_name"`
	Status    Status    `json:"status"`

	// Snapshot is the run state at the time of the event.
	Snapshot Snapshot `json:"snapshot"`

	// Err is set for terminal failures (abort or recovery ABORT).
	Err error `json:"-"`
}

// TaskEvent describes a task-level transition within a run.
type TaskEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	RunID     string        `json:"run_id"`
	FlowName  string        `json:"flow_name"`
	Task      TaskInfo      `json:"task"`
	Duration  time.Duration `json:"duration,omitempty"`

	// Err is the task failure, set on OnTaskFinish for failed attempts
	// and on OnTaskRetry/OnTaskRecovered.
	Err error `json:"-"`

	// Action and Fallback are set on OnTaskRecovered: the recovery
	// decision and, for substitution handling, the handler's value.
	Action   ErrorAction `json:"action,omitempty"`
	Fallback any         `json:"fallback,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability. Hooks run
// synchronously on the engine goroutine and must be inert: no panics,
// no blocking.
type LifecycleHooks struct {
	OnRunStart  func(context.Context, *RunEvent)
	OnRunFinish func(context.Context, *RunEvent)
	OnPause     func(context.Context, *RunEvent)
	OnResume    func(context.Context, *RunEvent)

	OnTaskStart     func(context.Context, *TaskEvent)
	OnTaskFinish    func(context.Context, *TaskEvent)
	OnTaskRetry     func(context.Context, *TaskEvent)
	OnTaskRecovered func(context.Context, *TaskEvent)
}

// MergeHooks fans out events to every hook set in order.
func MergeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	if len(hooks) == 1 {
		return hooks[0]
	}
	var out LifecycleHooks
	out.OnRunStart = func(ctx context.Context, e *RunEvent) {
		for _, h := range hooks {
			if h.OnRunStart != nil {
				h.OnRunStart(ctx, e)
			}
		}
	}
	out.OnRunFinish = func(ctx context.Context, e *RunEvent) {
		for _, h := range hooks {
			if h.OnRunFinish != nil {
				h.OnRunFinish(ctx, e)
			}
		}
	}
	out.OnPause = func(ctx context.Context, e *RunEvent) {
		for _, h := range hooks {
			if h.OnPause != nil {
				h.OnPause(ctx, e)
			}
		}
	}
	out.OnResume = func(ctx context.Context, e *RunEvent) {
		for _, h := range hooks {
			if h.OnResume != nil {
				h.OnResume(ctx, e)
			}
		}
	}
	out.OnTaskStart = func(ctx context.Context, e *TaskEvent) {
		for _, h := range hooks {
			if h.OnTaskStart != nil {
				h.OnTaskStart(ctx, e)
			}
		}
	}
	out.OnTaskFinish = func(ctx context.Context, e *TaskEvent) {
		for _, h := range hooks {
			if h.OnTaskFinish != nil {
				h.OnTaskFinish(ctx, e)
			}
		}
	}
	out.OnTaskRetry = func(ctx context.Context, e *TaskEvent) {
		for _, h := range hooks {
			if h.OnTaskRetry != nil {
				h.OnTaskRetry(ctx, e)
			}
		}
	}
	out.OnTaskRecovered = func(ctx context.Context, e *TaskEvent) {
		for _, h := range hooks {
			if h.OnTaskRecovered != nil {
				h.OnTaskRecovered(ctx, e)
			}
		}
	}
	return out
}
