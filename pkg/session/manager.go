package session

import (
	"errors"
	"sync"

	"github.com/espalierhq/espalier/pkg/ports"
)

// ErrRunNotFound is returned when a run ID is not tracked.
var ErrRunNotFound = errors.New("run not found")

// Manager is a concurrency-safe table of live run controllers. A run
// stays addressable after it terminates until Release is called, so
// callers can still fetch the final snapshot.
type Manager struct {
	mu   sync.RWMutex
	runs map[string]ports.Controller
}

// NewManager creates an empty run manager.
func NewManager() *Manager {
	return &Manager{
		runs: make(map[string]ports.Controller),
	}
}

// Track registers a controller under its run ID.
func (m *Manager) Track(ctrl ports.Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[ctrl.ID()] = ctrl
}

// Get returns the controller for a run ID.
func (m *Manager) Get(runID string) (ports.Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ctrl, ok := m.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return ctrl, nil
}

// Release stops tracking a run.
func (m *Manager) Release(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, runID)
}

// List returns the tracked run IDs.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.runs))
	for id := range m.runs {
		ids = append(ids, id)
	}
	return ids
}
