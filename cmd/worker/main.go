// Command worker runs the executor fleet: it registers the legacy executor,
// builds an in-process orchestrator, and either serves a selected
// taskbackend's queue (run-worker) or runs its three health probes and
// exits (health), the two entry points container orchestrators need
// (spec.md §7, §4.10).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/veridoc/pipeline/adapter"
	"github.com/veridoc/pipeline/execution/orchestrator"
	"github.com/veridoc/pipeline/execution/registry"
	"github.com/veridoc/pipeline/executor/legacy"
	"github.com/veridoc/pipeline/taskbackend"
	"github.com/veridoc/pipeline/taskbackend/celery"
	"github.com/veridoc/pipeline/taskbackend/inmem"
	"github.com/veridoc/pipeline/telemetry"
)

var (
	backendName string
	redisAddr   string
	queueName   string
)

func main() {
	root := &cobra.Command{
		Use:   "worker",
		Short: "Executor worker: serves or health-checks a task backend",
	}
	root.PersistentFlags().StringVar(&backendName, "backend", envOr("TASK_BACKEND_TYPE", "inmem"), "task backend: celery, inmem")
	root.PersistentFlags().StringVar(&redisAddr, "redis-addr", envOr("TASK_REDIS_ADDR", "localhost:6379"), "redis address (celery backend)")
	root.PersistentFlags().StringVar(&queueName, "queue", envOr("TASK_QUEUE", "executor"), "queue to serve (run-worker only)")

	root.AddCommand(runWorkerCmd(), healthCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-worker",
		Short: "Serve the configured task backend's queue until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch := newOrchestrator()
			backend, err := newBackend(orch)
			if err != nil {
				return err
			}
			defer backend.Close(context.Background())

			if b, ok := backend.(*celery.Backend); ok {
				fmt.Fprintf(os.Stderr, "worker: consuming queue %q via celery backend\n", queueName)
				return b.Consume(ctx, queueName)
			}
			// inmem has nothing to consume: tasks run as they're dispatched
			// in-process, so run-worker just blocks until interrupted.
			fmt.Fprintln(os.Stderr, "worker: inmem backend has no queue to consume; idling until interrupted")
			<-ctx.Done()
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run the three health probes against the configured backend and exit non-zero on failure",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			backend, err := newBackend(newOrchestrator())
			if err != nil {
				return err
			}
			defer backend.Close(context.Background())

			report := backend.HealthCheck(ctx)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !report.Healthy {
				os.Exit(1)
			}
			return nil
		},
	}
}

// newOrchestrator wires the one executor this repository ships: legacy.
// Production deployments supply their own adapter.Factory wired to real
// LLM/X2Text/embedding/vector providers; FakeFactory here only satisfies
// the interface so the worker binary starts without external credentials.
func newOrchestrator() *orchestrator.Orchestrator {
	reg := registry.New()
	factory := &adapter.FakeFactory{}
	logger := telemetry.NewClueLogger()
	publisher := telemetry.NewNoopPublisher()
	_ = reg.Register("legacy", func() registry.Executor {
		return legacy.New(factory, logger, publisher)
	})
	return orchestrator.New(reg, logger)
}

func newBackend(orch *orchestrator.Orchestrator) (taskbackend.Backend, error) {
	switch backendName {
	case "celery":
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		return celery.New(rdb, orch)
	case "inmem", "":
		return inmem.New(orch), nil
	default:
		return nil, fmt.Errorf("worker: unknown backend %q (want celery or inmem)", backendName)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
