package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/espalierhq/espalier/internal/logging"
	"github.com/espalierhq/espalier/pkg/domain"
)

// Config carries the run-independent collaborators injected by the
// root engine.
type Config struct {
	RunID  string
	Logger domain.Logger
	Hooks  domain.LifecycleHooks
}

// Controller owns one execution context and is its only external
// surface. Exactly one engine goroutine drives it at a time; the
// driving flag enforces that invariant across Resume calls.
type Controller struct {
	runID    string
	flowName string
	hooks    domain.LifecycleHooks
	logger   domain.Logger
	runCtx   context.Context

	mu              sync.Mutex
	status          domain.Status
	index           int
	tasks           []domain.TaskDescriptor
	flowOnError     domain.ErrorHandler
	shared          map[string]any // live map, owned by the driver goroutine
	committed       map[string]any // copy taken at task boundaries, served to snapshots
	lastErr         error
	signalData      any
	pauseRequested  bool
	advanceOnResume bool
	driving         bool

	res *result
}

// Start allocates a fresh execution context for def and schedules the
// engine loop asynchronously: control returns to the caller before any
// task executes.
func Start(ctx context.Context, def *domain.Definition, initial map[string]any, cfg Config) *Controller {
	logger := def.Options.Logger
	if logger == nil {
		logger = cfg.Logger
	}

	c := &Controller{
		runID:       cfg.RunID,
		flowName:    def.Name,
		hooks:       cfg.Hooks,
		logger:      logging.Leveled(logger, def.Options.LogLevel),
		runCtx:      ctx,
		status:      domain.StatusIdle,
		tasks:       def.CloneTasks(),
		flowOnError: def.Options.OnError,
		shared:      cloneMap(initial),
		res:         newResult(),
	}
	c.committed = cloneMap(c.shared)

	c.mu.Lock()
	c.status = domain.StatusRunning
	c.driving = true
	ev := c.runEventLocked(nil)
	c.mu.Unlock()

	c.emitRun(c.hooks.OnRunStart, ev)
	go c.loop(ctx)
	return c
}

// ID returns the run identifier.
func (c *Controller) ID() string { return c.runID }

// GetState returns an immutable snapshot of the run. The context copy
// is taken at the last task boundary; mid-task mutations become
// visible once the task completes.
func (c *Controller) GetState() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Pause marks the run to be suspended after the in-flight task fully
// completes. Pausing never interrupts a task mid-flight.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if c.status != domain.StatusRunning {
		status := c.status
		c.mu.Unlock()
		c.logger.Info("pause ignored", "run", c.runID, "status", status)
		return domain.ErrNotRunning
	}
	c.pauseRequested = true
	c.mu.Unlock()
	return nil
}

// Resume merges resumeData into the shared context, clears the stored
// signal payload and re-schedules the engine loop from the current
// position.
func (c *Controller) Resume(resumeData map[string]any) error {
	c.mu.Lock()
	if c.status != domain.StatusPaused || c.driving {
		status := c.status
		c.mu.Unlock()
		c.logger.Info("resume ignored", "run", c.runID, "status", status)
		return domain.ErrNotPaused
	}

	for k, v := range resumeData {
		c.shared[k] = v
	}
	c.signalData = nil
	if c.advanceOnResume {
		// The paused task already completed; continue with the next one.
		c.index++
		c.advanceOnResume = false
	}
	c.committed = cloneMap(c.shared)
	c.status = domain.StatusRunning
	if c.index >= len(c.tasks) {
		// The paused task was the last one; nothing is left to drive.
		resumeEv := c.runEventLocked(nil)
		c.status = domain.StatusCompleted
		final := cloneMap(c.shared)
		c.committed = final
		finishEv := c.runEventLocked(nil)
		c.mu.Unlock()

		c.emitRun(c.hooks.OnResume, resumeEv)
		c.logger.Info("run completed", "run", c.runID, "flow", c.flowName)
		c.res.resolve(final)
		c.emitRun(c.hooks.OnRunFinish, finishEv)
		return nil
	}
	c.driving = true
	ev := c.runEventLocked(nil)
	c.mu.Unlock()

	c.emitRun(c.hooks.OnResume, ev)
	go c.loop(c.runCtx)
	return nil
}

// Abort terminates the run immediately. An in-flight task that cannot
// be preempted still runs to completion in the background; the engine
// simply stops consuming its outcome.
func (c *Controller) Abort(reason string) error {
	c.mu.Lock()
	if c.status.Terminal() {
		status := c.status
		c.mu.Unlock()
		c.logger.Info("abort ignored", "run", c.runID, "status", status)
		return domain.ErrTerminal
	}
	err := &domain.AbortError{Reason: reason}
	c.lastErr = err
	c.status = domain.StatusAborted
	ev := c.runEventLocked(err)
	c.mu.Unlock()

	c.logger.Warn("run aborted", "run", c.runID, "flow", c.flowName, "reason", reason)
	c.res.reject(err)
	c.emitRun(c.hooks.OnRunFinish, ev)
	return nil
}

// Done is closed once the run reaches a terminal status.
func (c *Controller) Done() <-chan struct{} { return c.res.done }

// Wait blocks until the run terminates or ctx is cancelled.
func (c *Controller) Wait(ctx context.Context) (map[string]any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.res.done:
		return c.res.out, c.res.err
	}
}

// -- internal helpers --

func (c *Controller) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == domain.StatusRunning
}

func (c *Controller) snapshotLocked() domain.Snapshot {
	s := domain.Snapshot{
		FlowName:         c.flowName,
		RunID:            c.runID,
		Status:           c.status,
		CurrentTaskIndex: c.index,
		Context:          cloneMap(c.committed),
		SignalData:       c.signalData,
		LastError:        c.lastErr,
	}
	if c.lastErr != nil {
		s.ErrorMessage = c.lastErr.Error()
	}
	return s
}

func (c *Controller) runEventLocked(err error) *domain.RunEvent {
	return &domain.RunEvent{
		Timestamp: time.Now(),
		RunID:     c.runID,
		FlowName:  c.flowName,
		Status:    c.status,
		Snapshot:  c.snapshotLocked(),
		Err:       err,
	}
}

func (c *Controller) emitRun(hook func(context.Context, *domain.RunEvent), ev *domain.RunEvent) {
	if hook != nil {
		hook(c.runCtx, ev)
	}
}

func (c *Controller) emitTask(hook func(context.Context, *domain.TaskEvent), ev *domain.TaskEvent) {
	if hook != nil {
		hook(c.runCtx, ev)
	}
}

func (c *Controller) taskEvent(info domain.TaskInfo, err error, dur time.Duration) *domain.TaskEvent {
	return &domain.TaskEvent{
		Timestamp: time.Now(),
		RunID:     c.runID,
		FlowName:  c.flowName,
		Task:      info,
		Duration:  dur,
		Err:       err,
	}
}

// cloneMap returns a shallow copy, never nil.
func cloneMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// result is the single-resolution completion handle backing
// Controller.Wait. Exactly one of resolve/reject wins; late waiters
// observe the stored outcome through the closed channel.
type result struct {
	once sync.Once
	done chan struct{}
	out  map[string]any
	err  error
}

func newResult() *result {
	return &result{done: make(chan struct{})}
}

func (r *result) resolve(out map[string]any) {
	r.once.Do(func() {
		r.out = out
		close(r.done)
	})
}

func (r *result) reject(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}
