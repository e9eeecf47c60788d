package dsl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalierhq/espalier"
	"github.com/espalierhq/espalier/internal/logging"
	"github.com/espalierhq/espalier/pkg/domain"
	"github.com/espalierhq/espalier/pkg/dsl"
)

func noop(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
	return nil, nil
}

func TestBuilder_AssemblesSpecs(t *testing.T) {
	name, specs, opts := dsl.Flow("deploy").
		MaxRetries(2).
		LogLevel(domain.LogDebug).
		Task("build", noop).
		Task("push", noop).MaxRetries(5).YieldBefore(true).
		Task("announce", noop).
		Build()

	assert.Equal(t, "deploy", name)
	assert.Equal(t, 2, opts.DefaultMaxRetries)
	assert.Equal(t, domain.LogDebug, opts.LogLevel)

	require.Len(t, specs, 3)
	assert.Equal(t, "build", specs[0].ID)
	assert.Nil(t, specs[0].Options.MaxRetries)

	require.NotNil(t, specs[1].Options.MaxRetries)
	assert.Equal(t, 5, *specs[1].Options.MaxRetries)
	require.NotNil(t, specs[1].Options.YieldBefore)
	assert.True(t, *specs[1].Options.YieldBefore)

	assert.Equal(t, "announce", specs[2].ID)
}

func TestBuilder_HandlersAttach(t *testing.T) {
	flowHandler := func(err error, shared map[string]any, info domain.TaskInfo) domain.Resolution {
		return domain.Skip()
	}
	taskHandler := func(err error, shared map[string]any, info domain.TaskInfo) domain.Resolution {
		return domain.Retry()
	}

	_, specs, opts := dsl.Flow("guarded").
		OnError(flowHandler).
		Task("strict", noop).OnError(taskHandler).
		Build()

	assert.NotNil(t, opts.OnError)
	require.Len(t, specs, 1)
	assert.NotNil(t, specs[0].OnError)
}

func TestBuilder_RunsThroughEngine(t *testing.T) {
	name, specs, opts := dsl.Flow("pipeline").
		Task("first", func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
			shared["a"] = 1
			return nil, nil
		}).
		Task("second", func(ctx context.Context, shared map[string]any, attempt *domain.Attempt) (any, error) {
			shared["b"] = shared["a"].(int) + 1
			return nil, nil
		}).
		Build()

	engine := espalier.New(espalier.WithSlog(logging.NewNop()))
	require.NoError(t, engine.Define(name, specs, opts))

	ctrl, err := engine.Run(context.Background(), "pipeline", nil)
	require.NoError(t, err)

	final, err := ctrl.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, final["b"])
}
