// Package orchestrator provides in-process execution dispatch: registry
// lookup, panic translation, and elapsed-time metadata. It is what the
// worker-side task handler wraps: deserialize -> Orchestrator.Execute ->
// serialize.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/execution/registry"
	"github.com/veridoc/pipeline/telemetry"
)

// Orchestrator looks up a registered executor and runs it, translating
// panics into failure results and never letting an unknown executor name
// escape as an exception.
type Orchestrator struct {
	registry *registry.Registry
	logger   telemetry.Logger
}

// New constructs an Orchestrator bound to reg. A nil logger is replaced with
// a no-op logger.
func New(reg *registry.Registry, logger telemetry.Logger) *Orchestrator {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Orchestrator{registry: reg, logger: logger}
}

// Execute looks up ctx.ExecutorName, runs it, and returns its result.
//
//   - Unknown executor name -> failure, never an error/panic.
//   - Handler panics -> failure("<type>: <message>") with
//     metadata.elapsed_seconds populated.
//   - Handler returns a failure result -> passed through unwrapped (the
//     orchestrator never double-wraps a graceful failure).
//   - Handler returns a success result -> returned as-is.
func (o *Orchestrator) Execute(ctx context.Context, req execution.ExecutionContext) execution.ExecutionResult {
	start := time.Now()

	exec, err := o.registry.Get(req.ExecutorName)
	if err != nil {
		o.logger.Warn(ctx, "orchestrator: unknown executor", "executor_name", req.ExecutorName, "error", err.Error())
		return execution.Failure(err.Error())
	}

	result, elapsed, recovered := o.runGuarded(exec, req, start)
	if recovered != nil {
		o.logger.Error(ctx, "orchestrator: executor panicked", "executor_name", req.ExecutorName, "operation", req.Operation.String(), "error", recovered.Error())
		failed := execution.Failure(recovered.Error())
		failed.Metadata["elapsed_seconds"] = elapsed.Seconds()
		return failed
	}
	return result
}

// runGuarded invokes exec.Execute and recovers from any panic, translating
// it into an error so Execute can produce a failure result with timing
// metadata instead of crashing the worker.
func (o *Orchestrator) runGuarded(exec registry.Executor, ctx execution.ExecutionContext, start time.Time) (result execution.ExecutionResult, elapsed time.Duration, recovered error) {
	defer func() {
		elapsed = time.Since(start)
		if r := recover(); r != nil {
			recovered = fmt.Errorf("%T: %v", r, r)
		}
	}()
	result = exec.Execute(ctx)
	return result, time.Since(start), nil
}
