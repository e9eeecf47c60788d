package espalier

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/espalierhq/espalier/internal/logging"
	"github.com/espalierhq/espalier/internal/runtime"
	"github.com/espalierhq/espalier/pkg/domain"
	"github.com/espalierhq/espalier/pkg/ports"
	"github.com/espalierhq/espalier/pkg/registry"
)

// Re-export key types so users don't need to dig into pkg/domain.

type (
	TaskFunc     = domain.TaskFunc
	TaskSpec     = domain.TaskSpec
	TaskOptions  = domain.TaskOptions
	TaskInfo     = domain.TaskInfo
	Attempt      = domain.Attempt
	FlowOptions  = domain.FlowOptions
	ErrorHandler = domain.ErrorHandler
	Resolution   = domain.Resolution
	Snapshot     = domain.Snapshot
	Status       = domain.Status
	Controller   = ports.Controller
)

// Re-export status values for convenience.

const (
	StatusIdle      = domain.StatusIdle
	StatusRunning   = domain.StatusRunning
	StatusPaused    = domain.StatusPaused
	StatusCompleted = domain.StatusCompleted
	StatusAborted   = domain.StatusAborted
	StatusError     = domain.StatusError
)

// Re-export recovery resolutions and the pause sentinel.

var (
	Abort    = domain.Abort
	Skip     = domain.Skip
	Retry    = domain.Retry
	Fallback = domain.Fallback
	Paused   = domain.Paused
)

// Tasks wraps bare functions into anonymous TaskSpecs, for flows that
// need no per-task configuration. IDs default positionally at Define.
func Tasks(fns ...TaskFunc) []TaskSpec {
	specs := make([]TaskSpec, len(fns))
	for i, fn := range fns {
		specs[i] = TaskSpec{Func: fn}
	}
	return specs
}

// Engine is the high-level entry point for the Espalier library. It
// owns a flow registry and the run-independent collaborators (logger,
// lifecycle hooks) injected into every run.
type Engine struct {
	registry *registry.Registry
	logger   domain.Logger
	hooks    domain.LifecycleHooks
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets the default logger for runs whose FlowOptions carry
// none. Accepts any domain.Logger; see WithSlog for the common case.
func WithLogger(logger domain.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithSlog sets the default logger from a *slog.Logger.
func WithSlog(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.Wrap(l)
	}
}

// WithLifecycleHooks registers observability hooks applied to every run.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithRegistry injects a caller-owned flow registry, e.g. one shared
// across engines or pre-populated in tests.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// New initializes a new Espalier Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.Wrap(logging.New(slog.LevelInfo))
	}
	if eng.registry == nil {
		eng.registry = registry.New(registry.WithLogger(eng.logger))
	}
	return eng
}

// Define registers a flow blueprint under name. The task list must be
// non-empty and every spec must carry a Func; violations return an
// *domain.InvalidDefinitionError. Redefining an existing name
// overwrites it with a warning.
func (e *Engine) Define(name string, tasks []TaskSpec, opts FlowOptions) error {
	return e.registry.Define(name, tasks, opts)
}

// Run starts a fresh run of the named flow and returns its Controller
// before any task executes. The initial context is shallow-copied.
// Returns *domain.UndefinedFlowError for unknown names.
func (e *Engine) Run(ctx context.Context, name string, initialContext map[string]any) (Controller, error) {
	def, err := e.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	return runtime.Start(ctx, def, initialContext, runtime.Config{
		RunID:  uuid.NewString(),
		Logger: e.logger,
		Hooks:  e.hooks,
	}), nil
}

// Registry returns the engine's flow registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}
