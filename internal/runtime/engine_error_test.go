package runtime_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalierhq/espalier/pkg/domain"
)

var errBoom = errors.New("boom")

func failingTask(id string, calls *atomic.Int32) domain.TaskDescriptor {
	return domain.TaskDescriptor{
		ID: id,
		Func: func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
			calls.Add(1)
			return nil, errBoom
		},
	}
}

func TestController_UnhandledErrorFailsRun(t *testing.T) {
	var calls atomic.Int32
	def := &domain.Definition{
		Name: "failing",
		Tasks: []domain.TaskDescriptor{
			setTask("before", true),
			failingTask("explode", &calls),
			setTask("after", true),
		},
	}

	ctrl := start(def, nil, domain.LifecycleHooks{})
	_, err := ctrl.Wait(context.Background())
	assert.ErrorIs(t, err, errBoom)

	snap := ctrl.GetState()
	assert.Equal(t, domain.StatusError, snap.Status)
	assert.Equal(t, 1, snap.CurrentTaskIndex, "index stays at the failing task")
	assert.Equal(t, true, snap.Context["before"], "prior mutations survive")
	assert.NotContains(t, snap.Context, "after")
	assert.ErrorIs(t, snap.LastError, errBoom)
	assert.Equal(t, int32(1), calls.Load(), "no retry without a handler")
}

func TestController_RetryThenSucceed(t *testing.T) {
	var calls atomic.Int32
	var observedRetries []int

	task := domain.TaskDescriptor{
		ID:         "flaky",
		MaxRetries: 5,
		Func: func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
			observedRetries = append(observedRetries, attempt.Info.Retries)
			if calls.Add(1) < 3 {
				return nil, errBoom
			}
			shared["recovered"] = true
			return nil, nil
		},
		OnError: func(err error, shared map[string]any, info domain.TaskInfo) domain.Resolution {
			return domain.Retry()
		},
	}

	def := &domain.Definition{Name: "retrying", Tasks: []domain.TaskDescriptor{task}}
	ctrl := start(def, nil, domain.LifecycleHooks{})

	final, err := ctrl.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, final["recovered"])
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []int{0, 1, 2}, observedRetries, "attempt counter is visible to the task")
	assert.Equal(t, domain.StatusCompleted, ctrl.GetState().Status)
}

func TestController_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	task := failingTask("hopeless", &calls)
	task.MaxRetries = 2
	task.OnError = func(err error, shared map[string]any, info domain.TaskInfo) domain.Resolution {
		return domain.Retry()
	}

	def := &domain.Definition{Name: "exhausted", Tasks: []domain.TaskDescriptor{task}}
	ctrl := start(def, nil, domain.LifecycleHooks{})

	_, err := ctrl.Wait(context.Background())
	assert.ErrorIs(t, err, errBoom, "the original error surfaces, not a retry wrapper")
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus MaxRetries")
	assert.Equal(t, domain.StatusError, ctrl.GetState().Status)
}

func TestController_SkipAdvancesPastFailure(t *testing.T) {
	var calls atomic.Int32
	task := failingTask("optional", &calls)
	task.OnError = func(err error, shared map[string]any, info domain.TaskInfo) domain.Resolution {
		shared["skipped_task"] = info.ID
		return domain.Skip()
	}

	def := &domain.Definition{
		Name:  "skipping",
		Tasks: []domain.TaskDescriptor{task, setTask("after", true)},
	}
	ctrl := start(def, nil, domain.LifecycleHooks{})

	final, err := ctrl.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, final["after"])
	assert.Equal(t, "optional", final["skipped_task"], "handlers may mutate the shared context")
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, domain.StatusCompleted, ctrl.GetState().Status)
}

func TestController_FallbackValueReachesHooks(t *testing.T) {
	var calls atomic.Int32
	task := failingTask("substituted", &calls)
	task.OnError = func(err error, shared map[string]any, info domain.TaskInfo) domain.Resolution {
		return domain.Fallback("default-value")
	}

	var fallback atomic.Value
	hooks := domain.LifecycleHooks{
		OnTaskRecovered: func(ctx context.Context, e *domain.TaskEvent) {
			fallback.Store(e.Fallback)
		},
	}

	def := &domain.Definition{Name: "fallback", Tasks: []domain.TaskDescriptor{task}}
	ctrl := start(def, nil, hooks)

	_, err := ctrl.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "default-value", fallback.Load())
}

func TestController_FlowHandlerIsTheDefault(t *testing.T) {
	var calls atomic.Int32
	def := &domain.Definition{
		Name:  "flow-handler",
		Tasks: []domain.TaskDescriptor{failingTask("bare", &calls), setTask("after", true)},
		Options: domain.FlowOptions{
			OnError: func(err error, shared map[string]any, info domain.TaskInfo) domain.Resolution {
				return domain.Skip()
			},
		},
	}
	ctrl := start(def, nil, domain.LifecycleHooks{})

	_, err := ctrl.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, ctrl.GetState().Status)
}

func TestController_TaskHandlerOverridesFlowHandler(t *testing.T) {
	var calls atomic.Int32
	task := failingTask("strict", &calls)
	task.OnError = func(err error, shared map[string]any, info domain.TaskInfo) domain.Resolution {
		return domain.Abort()
	}

	def := &domain.Definition{
		Name:  "precedence",
		Tasks: []domain.TaskDescriptor{task},
		Options: domain.FlowOptions{
			OnError: func(err error, shared map[string]any, info domain.TaskInfo) domain.Resolution {
				return domain.Skip() // must not be consulted
			},
		},
	}
	ctrl := start(def, nil, domain.LifecycleHooks{})

	_, err := ctrl.Wait(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, domain.StatusError, ctrl.GetState().Status)
}

func TestController_TaskPanicBecomesError(t *testing.T) {
	def := &domain.Definition{
		Name: "panicking",
		Tasks: []domain.TaskDescriptor{
			{ID: "kaboom", Func: func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
				panic("wiring fault")
			}},
		},
	}
	ctrl := start(def, nil, domain.LifecycleHooks{})

	_, err := ctrl.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task panic")
	assert.Contains(t, err.Error(), "wiring fault")
	assert.Equal(t, domain.StatusError, ctrl.GetState().Status)
}

func TestController_HandlerPanicAbortsWithOriginalError(t *testing.T) {
	var calls atomic.Int32
	task := failingTask("bad-handler", &calls)
	task.OnError = func(err error, shared map[string]any, info domain.TaskInfo) domain.Resolution {
		panic("handler bug")
	}

	def := &domain.Definition{Name: "handler-panic", Tasks: []domain.TaskDescriptor{task}}
	ctrl := start(def, nil, domain.LifecycleHooks{})

	_, err := ctrl.Wait(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, int32(1), calls.Load())
}
