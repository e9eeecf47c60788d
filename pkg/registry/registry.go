package registry

import (
	"fmt"
	"sync"

	"github.com/espalierhq/espalier/pkg/domain"
)

// Registry is an explicit, injectable table of flow definitions.
// It replaces any notion of ambient global state so test runs stay
// isolated. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	flows  map[string]*domain.Definition
	logger domain.Logger
}

// Option configures the Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registry diagnostics
// (most notably the overwrite warning).
func WithLogger(logger domain.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		flows: make(map[string]*domain.Definition),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Define validates the task list, resolves each spec into a
// TaskDescriptor with options merged against the flow defaults, and
// stores the immutable Definition under name. Re-registering an
// existing name overwrites it with a warning, not an error.
func (r *Registry) Define(name string, tasks []domain.TaskSpec, opts domain.FlowOptions) error {
	if len(tasks) == 0 {
		return &domain.InvalidDefinitionError{Flow: name, Index: -1, Reason: "task list is empty"}
	}

	descriptors := make([]domain.TaskDescriptor, len(tasks))
	for i, spec := range tasks {
		if spec.Func == nil {
			return &domain.InvalidDefinitionError{Flow: name, Index: i, Reason: "missing task func"}
		}
		descriptors[i] = resolve(i, spec, opts)
	}

	def := &domain.Definition{
		Name:    name,
		Tasks:   descriptors,
		Options: opts,
	}

	r.mu.Lock()
	_, exists := r.flows[name]
	r.flows[name] = def
	r.mu.Unlock()

	if exists && r.logger != nil {
		r.logger.Warn("flow definition overwritten", "flow", name)
	}
	return nil
}

// Lookup returns the definition for name, or UndefinedFlowError.
func (r *Registry) Lookup(name string) (*domain.Definition, error) {
	r.mu.RLock()
	def, ok := r.flows[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &domain.UndefinedFlowError{Flow: name}
	}
	return def, nil
}

// Names lists the registered flow names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.flows))
	for name := range r.flows {
		names = append(names, name)
	}
	return names
}

// resolve merges a TaskSpec with the flow defaults into a descriptor
// template. IDs default to task_<index>.
func resolve(index int, spec domain.TaskSpec, opts domain.FlowOptions) domain.TaskDescriptor {
	d := domain.TaskDescriptor{
		ID:          spec.ID,
		Func:        spec.Func,
		OnError:     spec.OnError,
		YieldBefore: opts.YieldBeforeTask,
		YieldAfter:  opts.YieldAfterTask,
		MaxRetries:  opts.DefaultMaxRetries,
	}
	if d.ID == "" {
		d.ID = fmt.Sprintf("task_%d", index)
	}
	if spec.Options.YieldBefore != nil {
		d.YieldBefore = *spec.Options.YieldBefore
	}
	if spec.Options.YieldAfter != nil {
		d.YieldAfter = *spec.Options.YieldAfter
	}
	if spec.Options.MaxRetries != nil {
		d.MaxRetries = *spec.Options.MaxRetries
	}
	return d
}
