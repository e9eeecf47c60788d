// Package dto defines the declarative YAML flow-file format consumed
// by the CLI and maps it onto domain specs.
package dto

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/espalierhq/espalier/pkg/catalog"
	"github.com/espalierhq/espalier/pkg/domain"
)

// FlowFile is the top-level YAML document.
type FlowFile struct {
	Flow    string         `yaml:"flow"`
	Options map[string]any `yaml:"options"`
	Tasks   []TaskEntry    `yaml:"tasks"`
}

// TaskEntry references a task implementation from the catalog by name.
type TaskEntry struct {
	ID      string         `yaml:"id"`
	Task    string         `yaml:"task"`
	Options map[string]any `yaml:"options"`
}

// flowOptionsDTO mirrors domain.FlowOptions for mapstructure decoding.
type flowOptionsDTO struct {
	LogLevel          string `mapstructure:"log_level"`
	YieldBeforeTask   bool   `mapstructure:"yield_before_task"`
	YieldAfterTask    bool   `mapstructure:"yield_after_task"`
	DefaultMaxRetries int    `mapstructure:"default_max_retries"`
}

// taskOptionsDTO mirrors domain.TaskOptions; pointers keep "unset"
// distinguishable from explicit false/zero.
type taskOptionsDTO struct {
	YieldBefore *bool `mapstructure:"yield_before"`
	YieldAfter  *bool `mapstructure:"yield_after"`
	MaxRetries  *int  `mapstructure:"max_retries"`
}

// Load reads and parses a flow file from disk.
func Load(path string) (*FlowFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a flow file document.
func Parse(data []byte) (*FlowFile, error) {
	var f FlowFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse flow file: %w", err)
	}
	if f.Flow == "" {
		return nil, fmt.Errorf("flow file is missing the 'flow' name")
	}
	return &f, nil
}

// Build resolves the file against a task catalog into the arguments
// for Define. Unknown task names fail here, before anything runs.
func (f *FlowFile) Build(cat *catalog.Catalog) (string, []domain.TaskSpec, domain.FlowOptions, error) {
	var opts domain.FlowOptions

	var optsDTO flowOptionsDTO
	if err := mapstructure.Decode(f.Options, &optsDTO); err != nil {
		return "", nil, opts, fmt.Errorf("invalid flow options: %w", err)
	}
	level, err := domain.ParseLogLevel(optsDTO.LogLevel)
	if err != nil {
		return "", nil, opts, err
	}
	opts = domain.FlowOptions{
		LogLevel:          level,
		YieldBeforeTask:   optsDTO.YieldBeforeTask,
		YieldAfterTask:    optsDTO.YieldAfterTask,
		DefaultMaxRetries: optsDTO.DefaultMaxRetries,
	}

	specs := make([]domain.TaskSpec, len(f.Tasks))
	for i, entry := range f.Tasks {
		fn, err := cat.Lookup(entry.Task)
		if err != nil {
			return "", nil, opts, fmt.Errorf("task %d (%s): %w", i, entry.ID, err)
		}

		var taskOpts taskOptionsDTO
		if err := mapstructure.Decode(entry.Options, &taskOpts); err != nil {
			return "", nil, opts, fmt.Errorf("task %d (%s): invalid options: %w", i, entry.ID, err)
		}

		specs[i] = domain.TaskSpec{
			ID:   entry.ID,
			Func: fn,
			Options: domain.TaskOptions{
				YieldBefore: taskOpts.YieldBefore,
				YieldAfter:  taskOpts.YieldAfter,
				MaxRetries:  taskOpts.MaxRetries,
			},
		}
	}
	return f.Flow, specs, opts, nil
}
