// Package inmem provides an in-process task backend for local development
// and tests: dispatched tasks run immediately on a goroutine against a
// registry-backed orchestrator, with no real queue involved.
package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/taskbackend"
)

// Runner executes a task synchronously. In production wiring this is
// orchestrator.Orchestrator.Execute; tests can supply a stub.
type Runner interface {
	Execute(ctx context.Context, task execution.ExecutionContext) execution.ExecutionResult
}

// Backend is a taskbackend.Backend that runs every dispatched task on a
// goroutine in the current process, suitable for local development, CLI
// one-shot runs, and unit tests of call sites that depend on
// taskbackend.Backend.
type Backend struct {
	runner Runner

	mu      sync.Mutex
	results map[string]execution.ExecutionResult
	done    map[string]chan struct{}
}

// New constructs an in-memory Backend that executes dispatched tasks via
// runner.
func New(runner Runner) *Backend {
	return &Backend{
		runner:  runner,
		results: make(map[string]execution.ExecutionResult),
		done:    make(map[string]chan struct{}),
	}
}

// Dispatch runs task via b.runner and blocks for its result. A timeout
// expiring before the runner finishes comes back as a failure
// ExecutionResult, never a Go error (spec.md §4.4, §8.2) — the runner
// goroutine is left to finish in the background since there is no way to
// cancel it beyond its own context.
func (b *Backend) Dispatch(ctx context.Context, task execution.ExecutionContext, timeout time.Duration) (execution.ExecutionResult, error) {
	start := time.Now()
	runCtx, cancel := contextWithOptionalTimeout(ctx, timeout)
	defer cancel()

	resultCh := make(chan execution.ExecutionResult, 1)
	go func() {
		resultCh <- b.runner.Execute(runCtx, task)
	}()

	select {
	case result := <-resultCh:
		return result, nil
	case <-runCtx.Done():
		return taskbackend.TimeoutFailure(fmt.Errorf("taskbackend/inmem: dispatch timed out after %s: %w", timeout, runCtx.Err()), time.Since(start)), nil
	}
}

func (b *Backend) DispatchAsync(ctx context.Context, task execution.ExecutionContext) (string, error) {
	taskID := uuid.NewString()
	done := make(chan struct{})

	b.mu.Lock()
	b.done[taskID] = done
	b.mu.Unlock()

	go func() {
		defer close(done)
		result := b.runner.Execute(context.Background(), task)
		b.mu.Lock()
		b.results[taskID] = result
		b.mu.Unlock()
	}()

	return taskID, nil
}

// Result returns the recorded result for an async-dispatched task once it
// has completed. ok is false until the task finishes or if taskID is
// unknown. Exposed for tests; production callers use Dispatch or consult
// telemetry instead of polling.
func (b *Backend) Result(taskID string) (execution.ExecutionResult, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	result, ok := b.results[taskID]
	return result, ok
}

func (b *Backend) HealthCheck(ctx context.Context) taskbackend.Report {
	return taskbackend.RunProbes(ctx,
		func(context.Context) taskbackend.Probe {
			return taskbackend.Probe{Name: "configuration", Healthy: b.runner != nil, Message: "in-memory backend requires a runner"}
		},
		func(context.Context) taskbackend.Probe {
			return taskbackend.Probe{Name: "dependencies", Healthy: true}
		},
		func(context.Context) taskbackend.Probe {
			return taskbackend.Probe{Name: "backend_connection", Healthy: true, Message: "in-process, no external connection"}
		},
	)
}

func (b *Backend) Close(context.Context) error { return nil }

func contextWithOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
