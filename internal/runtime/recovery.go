package runtime

import (
	"fmt"

	"github.com/espalierhq/espalier/pkg/domain"
)

// recoveryOutcome tells the engine loop how to proceed after the
// recovery protocol ran.
type recoveryOutcome int

const (
	// outcomeRetry re-invokes the same task without advancing.
	outcomeRetry recoveryOutcome = iota
	// outcomeAdvance moves past the failed task (SKIP or fallback).
	outcomeAdvance
	// outcomeAbort terminated the run; the loop must stop.
	outcomeAbort
)

// recoverFailure implements the error-recovery protocol for one failed
// attempt. Resolution order: the task's own handler is authoritative
// when present (the flow-level handler is never consulted as a
// fallback chain); otherwise the flow-level handler; otherwise ABORT.
// A handler that itself fails is coerced to ABORT.
func (c *Controller) recoverFailure(task *domain.TaskDescriptor, taskErr error, info domain.TaskInfo) recoveryOutcome {
	handler := task.OnError
	if handler == nil {
		handler = c.flowOnError
	}
	if handler == nil {
		return c.abortOnError(taskErr, info)
	}

	res, handlerErr := c.safeHandle(handler, taskErr, info)
	if handlerErr != nil {
		c.logger.Error("error handler failed", "run", c.runID, "task", info.ID, "error", handlerErr)
		return c.abortOnError(taskErr, info)
	}

	switch res.Action {
	case domain.ActionRetry:
		task.Retries++
		if task.Retries <= task.MaxRetries {
			info.Retries = task.Retries
			c.logger.Info("retrying task", "run", c.runID, "task", info.ID,
				"attempt", task.Retries, "max_retries", task.MaxRetries)
			ev := c.taskEvent(info, taskErr, 0)
			c.emitTask(c.hooks.OnTaskRetry, ev)
			return outcomeRetry
		}
		c.logger.Error("retries exhausted", "run", c.runID, "task", info.ID, "max_retries", task.MaxRetries)
		return c.abortOnError(taskErr, info)

	case domain.ActionSkip:
		task.Retries = 0
		c.logger.Info("skipping failed task", "run", c.runID, "task", info.ID)
		ev := c.taskEvent(info, taskErr, 0)
		ev.Action = domain.ActionSkip
		c.emitTask(c.hooks.OnTaskRecovered, ev)
		return outcomeAdvance

	case domain.ActionAbort:
		return c.abortOnError(taskErr, info)

	default:
		// Handled by substitution: advance like SKIP; the fallback
		// value is surfaced to hooks, never written into the shared
		// context by the engine.
		task.Retries = 0
		c.logger.Info("task error handled by substitution", "run", c.runID, "task", info.ID)
		ev := c.taskEvent(info, taskErr, 0)
		ev.Fallback = res.Value
		c.emitTask(c.hooks.OnTaskRecovered, ev)
		return outcomeAdvance
	}
}

// safeHandle invokes an error handler, coercing panics to errors.
func (c *Controller) safeHandle(handler domain.ErrorHandler, taskErr error, info domain.TaskInfo) (res domain.Resolution, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("error handler panic: %v", r)
		}
	}()
	return handler(taskErr, c.shared, info), nil
}

// abortOnError terminates the run with the original triggering error.
// The index stays at the failing task.
func (c *Controller) abortOnError(taskErr error, info domain.TaskInfo) recoveryOutcome {
	c.mu.Lock()
	if c.status != domain.StatusRunning {
		// A concurrent external abort won; it already resolved the run.
		c.mu.Unlock()
		return outcomeAbort
	}
	c.lastErr = taskErr
	c.committed = cloneMap(c.shared)
	c.status = domain.StatusError
	ev := c.runEventLocked(taskErr)
	c.mu.Unlock()

	c.logger.Error("run failed", "run", c.runID, "flow", c.flowName, "task", info.ID, "error", taskErr)
	c.res.reject(taskErr)
	c.emitRun(c.hooks.OnRunFinish, ev)
	return outcomeAbort
}
