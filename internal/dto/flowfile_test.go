package dto_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalierhq/espalier/internal/dto"
	"github.com/espalierhq/espalier/pkg/catalog"
	"github.com/espalierhq/espalier/pkg/domain"
)

const sampleFlow = `
flow: onboarding
options:
  log_level: debug
  default_max_retries: 2
tasks:
  - id: welcome
    task: print
  - id: wait_a_bit
    task: sleep
    options:
      max_retries: 5
      yield_before: true
`

func testCatalog() *catalog.Catalog {
	cat := catalog.New()
	noop := func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
		return nil, nil
	}
	cat.Register("print", noop)
	cat.Register("sleep", noop)
	return cat
}

func TestParse_FullDocument(t *testing.T) {
	file, err := dto.Parse([]byte(sampleFlow))
	require.NoError(t, err)
	assert.Equal(t, "onboarding", file.Flow)
	require.Len(t, file.Tasks, 2)
	assert.Equal(t, "welcome", file.Tasks[0].ID)
	assert.Equal(t, "print", file.Tasks[0].Task)
}

func TestParse_RejectsMissingFlowName(t *testing.T) {
	_, err := dto.Parse([]byte("tasks:\n  - task: print\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow")
}

func TestParse_RejectsInvalidYAML(t *testing.T) {
	_, err := dto.Parse([]byte("flow: [unclosed"))
	assert.Error(t, err)
}

func TestBuild_ResolvesTasksAndOptions(t *testing.T) {
	file, err := dto.Parse([]byte(sampleFlow))
	require.NoError(t, err)

	name, specs, opts, err := file.Build(testCatalog())
	require.NoError(t, err)

	assert.Equal(t, "onboarding", name)
	assert.Equal(t, domain.LogDebug, opts.LogLevel)
	assert.Equal(t, 2, opts.DefaultMaxRetries)

	require.Len(t, specs, 2)
	assert.Equal(t, "welcome", specs[0].ID)
	assert.NotNil(t, specs[0].Func)
	assert.Nil(t, specs[0].Options.MaxRetries)

	require.NotNil(t, specs[1].Options.MaxRetries)
	assert.Equal(t, 5, *specs[1].Options.MaxRetries)
	require.NotNil(t, specs[1].Options.YieldBefore)
	assert.True(t, *specs[1].Options.YieldBefore)
}

func TestBuild_UnknownTask(t *testing.T) {
	file, err := dto.Parse([]byte("flow: f\ntasks:\n  - id: x\n    task: nope\n"))
	require.NoError(t, err)

	_, _, _, err = file.Build(testCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task not found: nope")
	assert.Contains(t, err.Error(), "x", "the offending entry is named")
}

func TestBuild_UnknownLogLevel(t *testing.T) {
	file, err := dto.Parse([]byte("flow: f\noptions:\n  log_level: loud\ntasks:\n  - task: print\n"))
	require.NoError(t, err)

	_, _, _, err = file.Build(testCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")
}

func TestLoad_ReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFlow), 0o644))

	file, err := dto.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "onboarding", file.Flow)

	_, err = dto.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
