// Package taskbackend abstracts the cross-process task queue used to run
// executors outside the dispatching process: Celery-protocol over Redis,
// Temporal, Hatchet, or an in-memory queue for local development and tests.
package taskbackend

import (
	"context"
	"errors"
	"time"

	"github.com/veridoc/pipeline/execution"
)

// Backend dispatches executions to a worker fleet and reports its own
// health. Implementations never block indefinitely: Dispatch always
// respects the caller's context and the given timeout.
type Backend interface {
	// Dispatch enqueues task and blocks until a result is available or
	// timeout elapses, whichever comes first. A remote task that itself
	// fails, a result-wait timeout, or a broker-connection failure while
	// submitting or awaiting the result, all come back as a failure
	// ExecutionResult (see TimeoutFailure), never an error: error is
	// reserved strictly for the caller never having a backend wired up at
	// all (taskbackend.ErrNotConfigured, checked above Dispatch).
	Dispatch(ctx context.Context, task execution.ExecutionContext, timeout time.Duration) (execution.ExecutionResult, error)

	// DispatchAsync enqueues task and returns immediately with an
	// engine-assigned task identifier, without waiting for a result.
	DispatchAsync(ctx context.Context, task execution.ExecutionContext) (taskID string, err error)

	// HealthCheck runs the backend's health probes and returns their
	// individual and aggregate verdicts.
	HealthCheck(ctx context.Context) Report

	// Close releases any resources held by the backend (connections,
	// workers). Safe to call multiple times.
	Close(ctx context.Context) error
}

// ErrNotConfigured is returned by Dispatch/DispatchAsync when no backend has
// been wired up at all, the one situation in which dispatch failure must
// propagate as an error rather than an ExecutionResult failure.
var ErrNotConfigured = errors.New("taskbackend: no backend configured")

// TimeoutFailure builds the failure ExecutionResult a Backend.Dispatch
// implementation returns when submitting the task to the broker fails, or
// the result wait (BLPOP, workflow Get, poll loop, context deadline) never
// completes within the caller's timeout (spec.md §4.4, §7, §8.2: "a timeout
// waiting for the result, a broker error, or any remote exception is
// wrapped in failure(...) — dispatch never raises for a failed task").
// elapsed is recorded as metadata.elapsed_seconds so callers can tell a
// slow-but-alive broker from one that never responded at all.
func TimeoutFailure(err error, elapsed time.Duration) execution.ExecutionResult {
	result := execution.Failure("TimeoutError: " + err.Error())
	result.Metadata["elapsed_seconds"] = elapsed.Seconds()
	return result
}

// TaskName returns the wire task name for operation, "execute_<operation>",
// matching the naming convention the worker side dispatches on.
func TaskName(op execution.Operation) string {
	return "execute_" + op.String()
}

// Queue returns the routing queue for operation. All operations route to
// the general executor queue except agentic_extraction, which has its own
// queue so long-running agentic runs cannot starve the fast path.
func Queue(op execution.Operation) string {
	if op == execution.OperationAgenticExtraction {
		return "agentic_executor"
	}
	return "executor"
}

// Probe is a single named health check (configuration, dependencies,
// backend_connection) with its own pass/fail verdict and timing.
type Probe struct {
	Name     string        `json:"name"`
	Healthy  bool          `json:"healthy"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ms"`
}

// Report aggregates the ordered health probes for a backend. Healthy is
// false if any individual probe failed.
type Report struct {
	Healthy bool    `json:"healthy"`
	Probes  []Probe `json:"probes"`
}

// RunProbes executes probes in order, stopping early is never done (every
// probe always runs so operators see the full picture), and aggregates the
// verdict.
func RunProbes(ctx context.Context, probes ...func(context.Context) Probe) Report {
	report := Report{Healthy: true}
	for _, p := range probes {
		start := time.Now()
		probe := p(ctx)
		if probe.Duration == 0 {
			probe.Duration = time.Since(start)
		}
		if !probe.Healthy {
			report.Healthy = false
		}
		report.Probes = append(report.Probes, probe)
	}
	return report
}
