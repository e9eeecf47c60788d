package ports

import (
	"context"

	"github.com/espalierhq/espalier/pkg/domain"
)

// Controller is the external handle for one live run. It is the only
// way code outside the engine touches an execution context. All
// methods are safe for concurrent use.
type Controller interface {
	// ID returns the run identifier.
	ID() string

	// GetState returns an immutable snapshot of the run. Mutating the
	// returned context copy never affects the run.
	GetState() domain.Snapshot

	// Pause requests a pause; the engine honors it only after the
	// in-flight task fully completes. Returns domain.ErrNotRunning
	// (after logging a diagnostic) when the run is not running.
	Pause() error

	// Resume merges resumeData into the shared context, clears the
	// stored signal payload and re-schedules the engine. Returns
	// domain.ErrNotPaused when the run is not paused.
	Resume(resumeData map[string]any) error

	// Abort terminates the run immediately with a synthesized error
	// carrying reason. Returns domain.ErrTerminal when the run has
	// already terminated.
	Abort(reason string) error

	// Done is closed once the run reaches a terminal status.
	Done() <-chan struct{}

	// Wait blocks until the run terminates or ctx is cancelled. On
	// COMPLETED it returns the final shared context; on ABORTED or
	// ERROR it returns the terminating error. The outcome is stored:
	// late callers get the same result immediately.
	Wait(ctx context.Context) (map[string]any, error)
}

// FlowRunner starts runs by flow name. Satisfied by the root Engine;
// adapters accept this interface so they can be tested with fakes.
type FlowRunner interface {
	Run(ctx context.Context, name string, initialContext map[string]any) (Controller, error)
}
