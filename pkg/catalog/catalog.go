// Package catalog maps names to task implementations so declarative
// flow files can reference Go functions.
package catalog

import (
	"fmt"
	"sync"

	"github.com/espalierhq/espalier/pkg/domain"
)

// Catalog manages the available task functions.
type Catalog struct {
	mu    sync.RWMutex
	tasks map[string]domain.TaskFunc
}

// New creates a new empty catalog.
func New() *Catalog {
	return &Catalog{
		tasks: make(map[string]domain.TaskFunc),
	}
}

// Register adds a task function under name.
// If one with the same name exists, it is overwritten.
func (c *Catalog) Register(name string, fn domain.TaskFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks[name] = fn
}

// Lookup returns the task function for name.
func (c *Catalog) Lookup(name string) (domain.TaskFunc, error) {
	c.mu.RLock()
	fn, ok := c.tasks[name]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("task not found: %s", name)
	}
	return fn, nil
}

// Names lists the registered task names.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tasks))
	for name := range c.tasks {
		names = append(names, name)
	}
	return names
}
