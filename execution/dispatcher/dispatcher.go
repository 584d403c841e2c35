// Package dispatcher provides cross-process execution dispatch: routing an
// ExecutionContext to the queue backing its operation and waiting for a
// worker elsewhere to produce an ExecutionResult.
package dispatcher

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/taskbackend"
)

// DefaultResultTimeout is used when neither an explicit timeout nor the
// EXECUTOR_RESULT_TIMEOUT environment variable is set.
const DefaultResultTimeout = 3600 * time.Second

// resultTimeoutEnvVar names the environment variable consulted when no
// explicit timeout is passed to Dispatch.
const resultTimeoutEnvVar = "EXECUTOR_RESULT_TIMEOUT"

// Dispatcher sends ExecutionContext payloads across process boundaries via
// a taskbackend.Backend, and waits for or collects the resulting
// ExecutionResult.
type Dispatcher struct {
	backend taskbackend.Backend
}

// New constructs a Dispatcher backed by backend. backend may be nil: a
// Dispatcher with no backend configured is represented by passing nil, and
// Dispatch/DispatchAsync then return taskbackend.ErrNotConfigured.
func New(backend taskbackend.Backend) *Dispatcher {
	return &Dispatcher{backend: backend}
}

// Dispatch sends task to the queue for its operation and blocks for a
// result. If timeout is zero, the timeout resolution order is: the
// EXECUTOR_RESULT_TIMEOUT environment variable, falling back to
// DefaultResultTimeout.
//
// Dispatch never returns an error for a task that ran and failed on the
// remote side, nor for a result-wait timeout or broker-connection failure;
// all of those come back as a failure ExecutionResult (spec.md §4.4, §7,
// §8.2). An error here means dispatch itself could not even be attempted:
// no backend is configured at all.
func (d *Dispatcher) Dispatch(ctx context.Context, task execution.ExecutionContext, timeout time.Duration) (execution.ExecutionResult, error) {
	if d.backend == nil {
		return execution.ExecutionResult{}, taskbackend.ErrNotConfigured
	}
	resolved := resolveTimeout(timeout)
	result, err := d.backend.Dispatch(ctx, task, resolved)
	if err != nil {
		return execution.Failure(fmt.Sprintf("dispatcher: dispatch %s: %s", taskbackend.TaskName(task.Operation), err.Error())), nil
	}
	return result, nil
}

// DispatchAsync sends task to the queue for its operation and returns
// immediately with the backend-assigned task id, without waiting for a
// result.
func (d *Dispatcher) DispatchAsync(ctx context.Context, task execution.ExecutionContext) (string, error) {
	if d.backend == nil {
		return "", taskbackend.ErrNotConfigured
	}
	taskID, err := d.backend.DispatchAsync(ctx, task)
	if err != nil {
		return "", fmt.Errorf("dispatcher: dispatch_async %s: %w", taskbackend.TaskName(task.Operation), err)
	}
	return taskID, nil
}

// resolveTimeout implements the explicit-arg -> env-var -> default order.
func resolveTimeout(explicit time.Duration) time.Duration {
	if explicit > 0 {
		return explicit
	}
	if raw := os.Getenv(resultTimeoutEnvVar); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return DefaultResultTimeout
}
