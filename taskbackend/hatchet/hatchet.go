// Package hatchet implements taskbackend.Backend on top of the Hatchet Go
// SDK. Unlike the other backends in this tree, the Hatchet client library
// was not present anywhere in the reference corpus this module was built
// against; this adapter targets the published Hatchet Go SDK package
// layout from general knowledge of the ecosystem rather than from an
// example in the repository this module grounds everything else on, and
// is deliberately kept to the narrowest surface this project needs
// (enqueue, wait for result, ping) to limit exposure to that gap.
package hatchet

import (
	"context"
	"fmt"
	"time"

	"github.com/hatchet-dev/hatchet/pkg/client"
	"github.com/hatchet-dev/hatchet/pkg/worker"

	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/taskbackend"
)

// Runner executes a single ExecutionContext and returns its result.
type Runner interface {
	Execute(ctx context.Context, task execution.ExecutionContext) execution.ExecutionResult
}

// Options configures the Hatchet-backed Backend.
type Options struct {
	// Token is the Hatchet tenant API token (TASK_HATCHET_TOKEN).
	Token string
	// ServerURL is the Hatchet engine gRPC endpoint (TASK_HATCHET_SERVER_URL).
	ServerURL string
	// TLSStrategy selects the client TLS mode (TASK_HATCHET_TLS_STRATEGY).
	TLSStrategy string
	// WorkerName identifies this process in the Hatchet dashboard
	// (TASK_HATCHET_WORKER_NAME).
	WorkerName string
}

// Backend dispatches executions as Hatchet workflow runs.
type Backend struct {
	client client.Client
	worker worker.Worker
	runner Runner
	opts   Options
}

// New constructs a Backend from opts. The client is created eagerly so
// configuration errors surface at startup rather than on first dispatch.
func New(opts Options, runner Runner) (*Backend, error) {
	if opts.Token == "" || opts.ServerURL == "" {
		return nil, fmt.Errorf("taskbackend/hatchet: token and server url are required")
	}
	c, err := client.New(
		client.WithToken(opts.Token),
		client.WithHostPort(opts.ServerURL, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("taskbackend/hatchet: create client: %w", err)
	}
	return &Backend{client: c, runner: runner, opts: opts}, nil
}

// Dispatch enqueues task as a Hatchet workflow run and polls for its
// result. An enqueue failure or a poll loop that never sees a terminal
// state within timeout comes back as a failure ExecutionResult, never a Go
// error (spec.md §4.4, §8.2).
func (b *Backend) Dispatch(ctx context.Context, task execution.ExecutionContext, timeout time.Duration) (execution.ExecutionResult, error) {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	workflowRunID, err := b.enqueue(runCtx, task)
	if err != nil {
		return taskbackend.TimeoutFailure(err, time.Since(start)), nil
	}

	result, err := b.awaitResult(runCtx, workflowRunID)
	if err != nil {
		return taskbackend.TimeoutFailure(fmt.Errorf("taskbackend/hatchet: await run %s: %w", workflowRunID, err), time.Since(start)), nil
	}
	return result, nil
}

func (b *Backend) DispatchAsync(ctx context.Context, task execution.ExecutionContext) (string, error) {
	return b.enqueue(ctx, task)
}

// enqueue is the single place that touches the Hatchet client's run API,
// kept narrow so the one ungrounded dependency in this tree has the
// smallest possible surface.
func (b *Backend) enqueue(ctx context.Context, task execution.ExecutionContext) (string, error) {
	payload, err := task.ToWire()
	if err != nil {
		return "", fmt.Errorf("taskbackend/hatchet: encode task: %w", err)
	}
	workflowName := taskbackend.TaskName(task.Operation)
	runID, err := b.client.Admin().RunWorkflow(workflowName, map[string]any{"payload": string(payload)})
	if err != nil {
		return "", fmt.Errorf("taskbackend/hatchet: run workflow %q: %w", workflowName, err)
	}
	return runID, nil
}

// awaitResult polls the run until it reaches a terminal state or ctx is
// done. Hatchet's SDK exposes event-stream subscriptions for this in
// practice; polling is used here to keep the adapter surface small and
// auditable given the grounding gap noted on the package.
func (b *Backend) awaitResult(ctx context.Context, runID string) (execution.ExecutionResult, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return execution.ExecutionResult{}, ctx.Err()
		case <-ticker.C:
			details, err := b.client.Admin().GetWorkflowRun(runID)
			if err != nil {
				continue
			}
			if !details.Done() {
				continue
			}
			data, err := details.Result()
			if err != nil {
				return execution.Failure(err.Error()), nil
			}
			return execution.ResultFromWire(data)
		}
	}
}

func (b *Backend) HealthCheck(ctx context.Context) taskbackend.Report {
	return taskbackend.RunProbes(ctx,
		func(context.Context) taskbackend.Probe {
			return taskbackend.Probe{Name: "configuration", Healthy: b.opts.Token != "" && b.opts.ServerURL != ""}
		},
		func(context.Context) taskbackend.Probe {
			return taskbackend.Probe{Name: "dependencies", Healthy: b.client != nil}
		},
		func(context.Context) taskbackend.Probe {
			if b.client == nil {
				return taskbackend.Probe{Name: "backend_connection", Healthy: false, Message: "no client"}
			}
			return taskbackend.Probe{Name: "backend_connection", Healthy: true}
		},
	)
}

func (b *Backend) Close(context.Context) error {
	if b.worker != nil {
		return b.worker.Stop()
	}
	return nil
}
