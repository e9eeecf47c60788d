// Package dsl offers a fluent builder for flow definitions, as an
// alternative to assembling TaskSpec slices by hand or loading YAML
// flow files.
package dsl

import (
	"github.com/espalierhq/espalier/pkg/domain"
)

// Builder accumulates a flow definition.
type Builder struct {
	name  string
	opts  domain.FlowOptions
	tasks []*TaskBuilder
}

// Flow starts a new builder for the named flow.
func Flow(name string) *Builder {
	return &Builder{name: name}
}

// OnError sets the flow-level error handler.
func (b *Builder) OnError(h domain.ErrorHandler) *Builder {
	b.opts.OnError = h
	return b
}

// LogLevel sets the flow's diagnostic level.
func (b *Builder) LogLevel(level domain.LogLevel) *Builder {
	b.opts.LogLevel = level
	return b
}

// MaxRetries sets the default retry budget for every task.
func (b *Builder) MaxRetries(n int) *Builder {
	b.opts.DefaultMaxRetries = n
	return b
}

// Yielding enables cooperative yields around every task.
func (b *Builder) Yielding() *Builder {
	b.opts.YieldBeforeTask = true
	b.opts.YieldAfterTask = true
	return b
}

// Task appends a task and returns its builder for per-task tuning.
func (b *Builder) Task(id string, fn domain.TaskFunc) *TaskBuilder {
	tb := &TaskBuilder{
		spec: domain.TaskSpec{ID: id, Func: fn},
		flow: b,
	}
	b.tasks = append(b.tasks, tb)
	return tb
}

// Build produces the arguments for Engine.Define. Validation happens
// there, not here.
func (b *Builder) Build() (string, []domain.TaskSpec, domain.FlowOptions) {
	specs := make([]domain.TaskSpec, len(b.tasks))
	for i, tb := range b.tasks {
		specs[i] = tb.spec
	}
	return b.name, specs, b.opts
}

// TaskBuilder tunes a single task. Each setter returns the flow
// builder's TaskBuilder so calls chain; Then hops back to the flow.
type TaskBuilder struct {
	spec domain.TaskSpec
	flow *Builder
}

// OnError sets the task's own error handler, which takes precedence
// over the flow-level one.
func (t *TaskBuilder) OnError(h domain.ErrorHandler) *TaskBuilder {
	t.spec.OnError = h
	return t
}

// MaxRetries overrides the flow's retry budget for this task.
func (t *TaskBuilder) MaxRetries(n int) *TaskBuilder {
	t.spec.Options.MaxRetries = &n
	return t
}

// YieldBefore overrides the flow default for this task.
func (t *TaskBuilder) YieldBefore(v bool) *TaskBuilder {
	t.spec.Options.YieldBefore = &v
	return t
}

// YieldAfter overrides the flow default for this task.
func (t *TaskBuilder) YieldAfter(v bool) *TaskBuilder {
	t.spec.Options.YieldAfter = &v
	return t
}

// Then returns the flow builder to continue the chain.
func (t *TaskBuilder) Then() *Builder {
	return t.flow
}

// Task appends the next task to the flow, closing this one.
func (t *TaskBuilder) Task(id string, fn domain.TaskFunc) *TaskBuilder {
	return t.flow.Task(id, fn)
}

// Build finishes the flow from a task position.
func (t *TaskBuilder) Build() (string, []domain.TaskSpec, domain.FlowOptions) {
	return t.flow.Build()
}
