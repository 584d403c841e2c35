package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/execution/registry"
)

type fnExecutor struct {
	name string
	fn   func(execution.ExecutionContext) execution.ExecutionResult
}

func (f *fnExecutor) Name() string { return f.name }
func (f *fnExecutor) Execute(ctx execution.ExecutionContext) execution.ExecutionResult {
	return f.fn(ctx)
}

func newReq(t *testing.T, executorName string) execution.ExecutionContext {
	t.Helper()
	ctx, err := execution.NewExecutionContext(executorName, "extract", "run-1", execution.ExecutionSourceAPI, "", nil, "")
	require.NoError(t, err)
	return ctx
}

func TestOrchestrator_UnknownExecutorIsFailureNotPanic(t *testing.T) {
	reg := registry.New()
	o := New(reg, nil)
	result := o.Execute(context.Background(), newReq(t, "missing"))
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "missing")
}

func TestOrchestrator_HandlerPanicBecomesFailureWithElapsed(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("legacy", func() registry.Executor {
		return &fnExecutor{name: "legacy", fn: func(execution.ExecutionContext) execution.ExecutionResult {
			panic("boom")
		}}
	}))
	o := New(reg, nil)
	result := o.Execute(context.Background(), newReq(t, "legacy"))
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "boom")
	_, ok := result.Metadata["elapsed_seconds"]
	assert.True(t, ok)
}

func TestOrchestrator_GracefulFailurePassedThroughUnwrapped(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("legacy", func() registry.Executor {
		return &fnExecutor{name: "legacy", fn: func(execution.ExecutionContext) execution.ExecutionResult {
			return execution.Failure("missing param")
		}}
	}))
	o := New(reg, nil)
	result := o.Execute(context.Background(), newReq(t, "legacy"))
	assert.False(t, result.Success)
	assert.Equal(t, "missing param", result.Error)
	_, hasElapsed := result.Metadata["elapsed_seconds"]
	assert.False(t, hasElapsed, "graceful failures must not be double-wrapped with timing metadata")
}

func TestOrchestrator_SuccessReturnedAsIs(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("legacy", func() registry.Executor {
		return &fnExecutor{name: "legacy", fn: func(execution.ExecutionContext) execution.ExecutionResult {
			return execution.Success(map[string]any{"ok": true}, nil)
		}}
	}))
	o := New(reg, nil)
	result := o.Execute(context.Background(), newReq(t, "legacy"))
	assert.True(t, result.Success)
	assert.Equal(t, true, result.Data["ok"])
}
