package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/taskbackend"
	"github.com/veridoc/pipeline/taskbackend/inmem"
)

type echoRunner struct{}

func (echoRunner) Execute(_ context.Context, task execution.ExecutionContext) execution.ExecutionResult {
	return execution.Success(map[string]any{"executor": task.ExecutorName}, nil)
}

func newTask(t *testing.T) execution.ExecutionContext {
	t.Helper()
	ctx, err := execution.NewExecutionContext("legacy", "index", "run-1", execution.ExecutionSourceAPI, "", nil, "")
	require.NoError(t, err)
	return ctx
}

func TestDispatcher_NoBackendConfigured(t *testing.T) {
	d := New(nil)
	_, err := d.Dispatch(context.Background(), newTask(t), 0)
	assert.ErrorIs(t, err, taskbackend.ErrNotConfigured)

	_, err = d.DispatchAsync(context.Background(), newTask(t))
	assert.ErrorIs(t, err, taskbackend.ErrNotConfigured)
}

func TestDispatcher_DispatchReturnsResult(t *testing.T) {
	backend := inmem.New(echoRunner{})
	d := New(backend)
	result, err := d.Dispatch(context.Background(), newTask(t), time.Second)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "legacy", result.Data["executor"])
}

func TestDispatcher_RemoteFailureIsResultNotError(t *testing.T) {
	backend := inmem.New(failRunner{})
	d := New(backend)
	result, err := d.Dispatch(context.Background(), newTask(t), time.Second)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "boom", result.Error)
}

type failRunner struct{}

func (failRunner) Execute(context.Context, execution.ExecutionContext) execution.ExecutionResult {
	return execution.Failure("boom")
}

// TestDispatcher_TimeoutIsResultNotError mirrors spec.md Scenario F: a
// dispatch whose timeout elapses before the queued task finishes must come
// back as a failure ExecutionResult with a "TimeoutError: " message and
// metadata.elapsed_seconds populated, never a Go error and never a partial
// result.
func TestDispatcher_TimeoutIsResultNotError(t *testing.T) {
	backend := inmem.New(slowRunner{delay: 200 * time.Millisecond})
	d := New(backend)

	result, err := d.Dispatch(context.Background(), newTask(t), 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "TimeoutError:")
	assert.Empty(t, result.Data)
	if assert.Contains(t, result.Metadata, "elapsed_seconds") {
		assert.Greater(t, result.Metadata["elapsed_seconds"], 0.0)
	}
}

type slowRunner struct{ delay time.Duration }

func (r slowRunner) Execute(ctx context.Context, task execution.ExecutionContext) execution.ExecutionResult {
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
	}
	return execution.Success(map[string]any{"executor": task.ExecutorName}, nil)
}

func TestResolveTimeout_Defaults(t *testing.T) {
	assert.Equal(t, DefaultResultTimeout, resolveTimeout(0))
	assert.Equal(t, 5*time.Second, resolveTimeout(5*time.Second))
}

func TestQueueRouting(t *testing.T) {
	assert.Equal(t, "executor", taskbackend.Queue(execution.OperationExtract))
	assert.Equal(t, "executor", taskbackend.Queue(execution.OperationAnswerPrompt))
	assert.Equal(t, "agentic_executor", taskbackend.Queue(execution.OperationAgenticExtraction))
	assert.Equal(t, "execute_extract", taskbackend.TaskName(execution.OperationExtract))
}
