// Package temporal implements taskbackend.Backend on top of the Temporal Go
// SDK: each execution operation runs as a single-activity workflow on the
// queue taskbackend.Queue selects, and DispatchAsync/Dispatch map onto
// StartWorkflow + GetResult / workflow run (WaitForCompletion).
package temporal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/taskbackend"
)

// ExecuteOperationWorkflow is the workflow name registered for every
// operation; all operations share one workflow definition and differ only
// by the ExecutionContext payload and target task queue.
const ExecuteOperationWorkflow = "ExecuteOperationWorkflow"

// executeActivityName is the activity invoked by ExecuteOperationWorkflow.
const executeActivityName = "ExecuteOperationActivity"

// Runner executes a single ExecutionContext and returns its result. In
// production wiring this is orchestrator.Orchestrator.Execute.
type Runner interface {
	Execute(ctx context.Context, task execution.ExecutionContext) execution.ExecutionResult
}

// Options configures the Temporal-backed Backend.
type Options struct {
	// Client is a pre-configured Temporal client. Required.
	Client client.Client
	// Namespace is recorded for health reporting only; the Client already
	// carries its namespace.
	Namespace string
	// Identity is the worker identity string reported in health checks.
	Identity string
}

// Backend dispatches executions as Temporal workflow runs.
type Backend struct {
	client   client.Client
	runner   Runner
	worker   worker.Worker
	opts     Options
	started  bool
	breaker  *taskbackend.Breaker
}

// New constructs a Backend. Call StartWorker before dispatching any task
// that must be served locally; Dispatch/DispatchAsync only ever act as a
// client, they never run executors themselves.
func New(opts Options, runner Runner) (*Backend, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("taskbackend/temporal: client is required")
	}
	return &Backend{client: opts.Client, runner: runner, opts: opts, breaker: taskbackend.NewBreaker("temporal-frontend", nil)}, nil
}

// StartWorker registers the shared workflow/activity definitions on queue
// and starts a Temporal worker polling it. Call once per queue this process
// serves (typically "executor" and, for agentic workloads, "agentic_executor").
func (b *Backend) StartWorker(queue string) error {
	w := worker.New(b.client, queue, worker.Options{})
	w.RegisterWorkflowWithOptions(executeOperationWorkflow, workflow.RegisterOptions{Name: ExecuteOperationWorkflow})
	w.RegisterActivityWithOptions(b.executeActivity, activity.RegisterOptions{Name: executeActivityName})
	if err := w.Start(); err != nil {
		return fmt.Errorf("taskbackend/temporal: start worker on %q: %w", queue, err)
	}
	b.worker = w
	b.started = true
	return nil
}

func (b *Backend) executeActivity(ctx context.Context, task execution.ExecutionContext) (execution.ExecutionResult, error) {
	if b.runner == nil {
		return execution.ExecutionResult{}, fmt.Errorf("taskbackend/temporal: no runner configured on this worker")
	}
	return b.runner.Execute(ctx, task), nil
}

// executeOperationWorkflow is deterministic: its only side effect is a
// single activity call forwarding the input unchanged.
func executeOperationWorkflow(ctx workflow.Context, task execution.ExecutionContext) (execution.ExecutionResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: time.Hour,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	var result execution.ExecutionResult
	err := workflow.ExecuteActivity(ctx, executeActivityName, task).Get(ctx, &result)
	if err != nil {
		return execution.ExecutionResult{}, err
	}
	return result, nil
}

// Dispatch starts ExecuteOperationWorkflow and blocks for its result. A
// start failure (frontend unreachable) or a Get that never returns within
// timeout comes back as a failure ExecutionResult, never a Go error
// (spec.md §4.4, §8.2).
func (b *Backend) Dispatch(ctx context.Context, task execution.ExecutionContext, timeout time.Duration) (execution.ExecutionResult, error) {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	run, err := b.startWorkflow(runCtx, task)
	if err != nil {
		return taskbackend.TimeoutFailure(err, time.Since(start)), nil
	}

	var result execution.ExecutionResult
	if err := run.Get(runCtx, &result); err != nil {
		return taskbackend.TimeoutFailure(fmt.Errorf("taskbackend/temporal: await workflow %s: %w", run.GetID(), err), time.Since(start)), nil
	}
	return result, nil
}

func (b *Backend) DispatchAsync(ctx context.Context, task execution.ExecutionContext) (string, error) {
	run, err := b.startWorkflow(ctx, task)
	if err != nil {
		return "", err
	}
	return run.GetID(), nil
}

func (b *Backend) startWorkflow(ctx context.Context, task execution.ExecutionContext) (client.WorkflowRun, error) {
	queue := taskbackend.Queue(task.Operation)
	startOpts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("%s-%s", taskbackend.TaskName(task.Operation), uuid.NewString()),
		TaskQueue: queue,
	}
	run, err := b.client.ExecuteWorkflow(ctx, startOpts, ExecuteOperationWorkflow, task)
	if err != nil {
		return nil, fmt.Errorf("taskbackend/temporal: start workflow on queue %q: %w", queue, err)
	}
	return run, nil
}

func (b *Backend) HealthCheck(ctx context.Context) taskbackend.Report {
	return taskbackend.RunProbes(ctx,
		func(context.Context) taskbackend.Probe {
			return taskbackend.Probe{Name: "configuration", Healthy: b.client != nil, Message: b.opts.Namespace}
		},
		func(context.Context) taskbackend.Probe {
			return taskbackend.Probe{Name: "dependencies", Healthy: b.worker != nil || !b.started, Message: "worker must be started to serve local queues"}
		},
		func(ctx context.Context) taskbackend.Probe {
			return b.breaker.Probe(ctx, func(ctx context.Context) error {
				_, err := b.client.CheckHealth(ctx, &client.CheckHealthRequest{})
				return err
			})
		},
	)
}

func (b *Backend) Close(context.Context) error {
	if b.worker != nil {
		b.worker.Stop()
	}
	b.client.Close()
	return nil
}
