package runtime

import (
	"context"
	"fmt"
	goruntime "runtime"
	"time"

	"github.com/espalierhq/espalier/pkg/domain"
)

// loop is the engine: it drives the execution context through the task
// list until a terminal status or a pause suspends it. It runs on its
// own goroutine; a paused run is re-driven by Resume spawning a fresh
// loop.
func (c *Controller) loop(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.driving = false
		c.mu.Unlock()
	}()

	for {
		c.mu.Lock()
		if c.status != domain.StatusRunning {
			// Externally transitioned (abort); resolution already handled.
			c.mu.Unlock()
			return
		}
		if err := ctx.Err(); err != nil {
			c.mu.Unlock()
			_ = c.Abort(err.Error())
			return
		}
		if c.index >= len(c.tasks) {
			c.completeLocked()
			return
		}
		task := &c.tasks[c.index]
		info := domain.TaskInfo{
			ID:         task.ID,
			Index:      c.index,
			Retries:    task.Retries,
			MaxRetries: task.MaxRetries,
		}
		yieldBefore := task.YieldBefore
		c.mu.Unlock()

		// Cooperative yield before the task; state may have changed
		// while we were parked, so re-check and exit without running
		// the task if the run is no longer active.
		if yieldBefore {
			goruntime.Gosched()
			if !c.isRunning() {
				return
			}
		}

		attempt := domain.NewAttempt(info)
		c.logger.Debug("task start", "run", c.runID, "task", info.ID, "index", info.Index, "attempt", info.Retries)
		c.emitTask(c.hooks.OnTaskStart, c.taskEvent(info, nil, 0))

		start := time.Now()
		out, err := c.invoke(ctx, task.Func, attempt)
		dur := time.Since(start)

		if err != nil {
			c.mu.Lock()
			c.lastErr = err
			c.mu.Unlock()
			c.logger.Error("task failed", "run", c.runID, "task", info.ID, "index", info.Index, "error", err)
			c.emitTask(c.hooks.OnTaskFinish, c.taskEvent(info, err, dur))

			switch c.recoverFailure(task, err, info) {
			case outcomeRetry:
				continue
			case outcomeAbort:
				return
			case outcomeAdvance:
				// Handled; fall through to the post-task steps.
			}
		} else {
			c.logger.Debug("task done", "run", c.runID, "task", info.ID, "index", info.Index)
			c.emitTask(c.hooks.OnTaskFinish, c.taskEvent(info, nil, dur))
			task.Retries = 0

			if data, paused := pauseSignal(attempt, out); paused {
				c.suspend(data)
				return
			}
		}

		if task.YieldAfter {
			goruntime.Gosched()
		}

		c.mu.Lock()
		if c.status != domain.StatusRunning {
			// Stop without further mutation; the external transition
			// already resolved the run.
			c.mu.Unlock()
			return
		}
		c.committed = cloneMap(c.shared)
		if c.pauseRequested {
			c.pauseRequested = false
			c.status = domain.StatusPaused
			c.advanceOnResume = true
			ev := c.runEventLocked(nil)
			c.mu.Unlock()
			c.logger.Info("run paused", "run", c.runID, "flow", c.flowName, "index", ev.Snapshot.CurrentTaskIndex)
			c.emitRun(c.hooks.OnPause, ev)
			return
		}
		c.index++
		if c.index >= len(c.tasks) {
			// Complete under the same lock: a snapshot must never see
			// index == len(tasks) while the run still reads as running.
			c.completeLocked()
			return
		}
		c.mu.Unlock()
	}
}

// invoke executes one task attempt, coercing panics into task errors
// so they route through the recovery protocol like any other failure.
func (c *Controller) invoke(ctx context.Context, fn domain.TaskFunc, attempt *domain.Attempt) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return fn(ctx, c.shared, attempt)
}

// pauseSignal reports whether the attempt requested a pause, either by
// Signal(SignalPause, ...) or by returning the Paused sentinel. Both
// are treated identically.
func pauseSignal(attempt *domain.Attempt, out any) (any, bool) {
	if pr, ok := out.(*domain.PauseRequest); ok {
		return pr.Data, true
	}
	if t, data, ok := attempt.LastSignal(); ok && t == domain.SignalPause {
		return data, true
	}
	return nil, false
}

// suspend parks the run after the signaling task completed. The index
// stays on that task; Resume advances past it.
func (c *Controller) suspend(signalData any) {
	c.mu.Lock()
	if c.status != domain.StatusRunning {
		c.mu.Unlock()
		return
	}
	c.committed = cloneMap(c.shared)
	c.signalData = signalData
	c.pauseRequested = false
	c.status = domain.StatusPaused
	c.advanceOnResume = true
	ev := c.runEventLocked(nil)
	c.mu.Unlock()

	c.logger.Info("run paused by task signal", "run", c.runID, "flow", c.flowName, "index", ev.Snapshot.CurrentTaskIndex)
	c.emitRun(c.hooks.OnPause, ev)
}

// completeLocked finishes a run whose index reached the task count.
// Caller holds c.mu; it is released here.
func (c *Controller) completeLocked() {
	c.status = domain.StatusCompleted
	final := cloneMap(c.shared)
	c.committed = final
	ev := c.runEventLocked(nil)
	c.mu.Unlock()

	c.logger.Info("run completed", "run", c.runID, "flow", c.flowName)
	c.res.resolve(final)
	c.emitRun(c.hooks.OnRunFinish, ev)
}
