package runtime_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalierhq/espalier/internal/runtime"
	"github.com/espalierhq/espalier/pkg/domain"
)

// start spins up a run with test defaults (silent logger, fixed run id).
func start(def *domain.Definition, initial map[string]any, hooks domain.LifecycleHooks) *runtime.Controller {
	return runtime.Start(context.Background(), def, initial, runtime.Config{
		RunID: "test-run",
		Hooks: hooks,
	})
}

// waitStatus polls until the run reaches the wanted status.
func waitStatus(t *testing.T, c *runtime.Controller, want domain.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.GetState().Status == want
	}, 2*time.Second, 5*time.Millisecond, "run never reached status %q", want)
}

// recorder collects hook firings from the engine goroutine.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	r.events = append(r.events, name)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func setTask(key string, value any) domain.TaskDescriptor {
	return domain.TaskDescriptor{
		ID: "set_" + key,
		Func: func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
			shared[key] = value
			return nil, nil
		},
	}
}

func TestController_RunCompletes(t *testing.T) {
	def := &domain.Definition{
		Name: "pipeline",
		Tasks: []domain.TaskDescriptor{
			setTask("a", 1),
			setTask("b", 2),
			setTask("c", 3),
		},
	}

	ctrl := start(def, map[string]any{"seed": "x"}, domain.LifecycleHooks{})

	final, err := ctrl.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", final["seed"])
	assert.Equal(t, 1, final["a"])
	assert.Equal(t, 2, final["b"])
	assert.Equal(t, 3, final["c"])

	snap := ctrl.GetState()
	assert.Equal(t, domain.StatusCompleted, snap.Status)
	assert.Equal(t, 3, snap.CurrentTaskIndex)
	assert.Equal(t, "pipeline", snap.FlowName)
	assert.Equal(t, "test-run", snap.RunID)
	assert.NoError(t, snap.LastError)
}

func TestController_StartReturnsBeforeTasksRun(t *testing.T) {
	gate := make(chan struct{})
	def := &domain.Definition{
		Name: "slow",
		Tasks: []domain.TaskDescriptor{
			{ID: "blocked", Func: func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
				<-gate
				shared["done"] = true
				return nil, nil
			}},
		},
	}

	ctrl := start(def, nil, domain.LifecycleHooks{})

	// Control is back while the only task is still parked on the gate.
	snap := ctrl.GetState()
	assert.Equal(t, domain.StatusRunning, snap.Status)
	assert.Equal(t, 0, snap.CurrentTaskIndex)
	assert.NotContains(t, snap.Context, "done")

	close(gate)
	final, err := ctrl.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, final["done"])
}

func TestController_TasksRunInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string

	mark := func(id string) domain.TaskDescriptor {
		return domain.TaskDescriptor{
			ID: id,
			Func: func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
				mu.Lock()
				order = append(order, id)
				mu.Unlock()
				return nil, nil
			},
		}
	}

	def := &domain.Definition{
		Name:  "ordered",
		Tasks: []domain.TaskDescriptor{mark("first"), mark("second"), mark("third")},
	}

	ctrl := start(def, nil, domain.LifecycleHooks{})
	_, err := ctrl.Wait(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestController_SnapshotIsTaskBoundaryConsistent(t *testing.T) {
	entered := make(chan struct{})
	gate := make(chan struct{})
	def := &domain.Definition{
		Name: "boundary",
		Tasks: []domain.TaskDescriptor{
			{ID: "writer", Func: func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
				shared["mid"] = "dirty"
				close(entered)
				<-gate
				return nil, nil
			}},
		},
	}

	ctrl := start(def, nil, domain.LifecycleHooks{})
	<-entered

	// Mid-task writes stay invisible until the task commits.
	assert.NotContains(t, ctrl.GetState().Context, "mid")

	close(gate)
	final, err := ctrl.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dirty", final["mid"])
}

func TestController_SnapshotContextIsACopy(t *testing.T) {
	def := &domain.Definition{
		Name:  "copy",
		Tasks: []domain.TaskDescriptor{setTask("k", "v")},
	}

	ctrl := start(def, nil, domain.LifecycleHooks{})
	_, err := ctrl.Wait(context.Background())
	require.NoError(t, err)

	snap := ctrl.GetState()
	snap.Context["k"] = "tampered"
	assert.Equal(t, "v", ctrl.GetState().Context["k"])
}

func TestController_WaitHonorsContextCancellation(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)

	def := &domain.Definition{
		Name: "stuck",
		Tasks: []domain.TaskDescriptor{
			{ID: "blocked", Func: func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
				<-gate
				return nil, nil
			}},
		},
	}

	ctrl := start(def, nil, domain.LifecycleHooks{})

	waitCtx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ctrl.Wait(waitCtx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestController_RunContextCancellationAbortsRun(t *testing.T) {
	runCtx, cancel := context.WithCancel(context.Background())

	released := make(chan struct{})
	def := &domain.Definition{
		Name: "cancellable",
		Tasks: []domain.TaskDescriptor{
			{ID: "wait_for_cancel", Func: func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
				<-released
				return nil, nil
			}},
			setTask("after", true),
		},
	}

	ctrl := runtime.Start(runCtx, def, nil, runtime.Config{RunID: "cancel-run"})
	cancel()
	close(released)

	_, err := ctrl.Wait(context.Background())
	require.Error(t, err)

	var abortErr *domain.AbortError
	assert.ErrorAs(t, err, &abortErr)
	assert.NotContains(t, ctrl.GetState().Context, "after")
}
