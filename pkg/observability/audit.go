package observability

import (
	"context"
	"log/slog"

	"github.com/espalierhq/espalier/pkg/domain"
)

// AuditHooks returns a hook set that logs every run and task
// transition through the given structured logger.
func AuditHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.Info("run_start", "run", e.RunID, "flow", e.FlowName)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			if e.Err != nil {
				logger.Error("run_finish", "run", e.RunID, "flow", e.FlowName, "status", e.Status, "error", e.Err)
				return
			}
			logger.Info("run_finish", "run", e.RunID, "flow", e.FlowName, "status", e.Status)
		},
		OnPause: func(ctx context.Context, e *domain.RunEvent) {
			logger.Info("run_pause", "run", e.RunID, "flow", e.FlowName, "index", e.Snapshot.CurrentTaskIndex)
		},
		OnResume: func(ctx context.Context, e *domain.RunEvent) {
			logger.Info("run_resume", "run", e.RunID, "flow", e.FlowName, "index", e.Snapshot.CurrentTaskIndex)
		},
		OnTaskStart: func(ctx context.Context, e *domain.TaskEvent) {
			logger.Debug("task_start", "run", e.RunID, "task", e.Task.ID, "index", e.Task.Index)
		},
		OnTaskFinish: func(ctx context.Context, e *domain.TaskEvent) {
			if e.Err != nil {
				logger.Warn("task_finish", "run", e.RunID, "task", e.Task.ID, "error", e.Err, "duration", e.Duration)
				return
			}
			logger.Debug("task_finish", "run", e.RunID, "task", e.Task.ID, "duration", e.Duration)
		},
		OnTaskRetry: func(ctx context.Context, e *domain.TaskEvent) {
			logger.Info("task_retry", "run", e.RunID, "task", e.Task.ID, "attempt", e.Task.Retries)
		},
		OnTaskRecovered: func(ctx context.Context, e *domain.TaskEvent) {
			logger.Info("task_recovered", "run", e.RunID, "task", e.Task.ID, "action", e.Action)
		},
	}
}
