// Command structure-cli dispatches one structure-tool operation from the
// command line and prints its ExecutionResult as JSON, the operator-facing
// counterpart to the worker binary (spec.md §4.5/§4.8): useful for
// replaying a single file execution against a local in-memory backend
// without standing up a queue.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/veridoc/pipeline/adapter"
	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/execution/orchestrator"
	"github.com/veridoc/pipeline/execution/registry"
	"github.com/veridoc/pipeline/executor/legacy"
	"github.com/veridoc/pipeline/taskbackend/inmem"
	"github.com/veridoc/pipeline/telemetry"
)

var (
	runID          string
	organizationID string
	source         string
	paramsPath     string
)

func main() {
	root := &cobra.Command{
		Use:   "structure-cli",
		Short: "Run a single structure-tool operation locally and print its result",
	}
	root.PersistentFlags().StringVar(&runID, "run-id", "", "run id to stamp on the execution (defaults to a generated id)")
	root.PersistentFlags().StringVar(&organizationID, "org", "", "organization id")
	root.PersistentFlags().StringVar(&source, "source", string(execution.ExecutionSourceTool), "execution source: ide, tool, api")
	root.PersistentFlags().StringVar(&paramsPath, "params", "", "path to a JSON file of executor params (defaults to {})")

	for _, op := range []execution.Operation{
		execution.OperationExtract,
		execution.OperationIndex,
		execution.OperationAnswerPrompt,
		execution.OperationSinglePassExtraction,
		execution.OperationSummarize,
		execution.OperationAgenticExtraction,
	} {
		root.AddCommand(runOperationCmd(op))
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runOperationCmd(op execution.Operation) *cobra.Command {
	return &cobra.Command{
		Use:   op.String(),
		Short: fmt.Sprintf("Run the %s operation", op),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadParams(paramsPath)
			if err != nil {
				return err
			}
			if runID == "" {
				runID = uuid.NewString()
			}
			execCtx, err := execution.NewExecutionContext("legacy", op.String(), runID, execution.ExecutionSource(source), organizationID, params, "")
			if err != nil {
				return fmt.Errorf("structure-cli: %w", err)
			}

			backend := inmem.New(newOrchestrator())
			result, err := backend.Dispatch(context.Background(), execCtx, 0)
			if err != nil {
				return fmt.Errorf("structure-cli: dispatch: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if !result.Success {
				os.Exit(1)
			}
			return nil
		},
	}
}

func loadParams(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("structure-cli: read params: %w", err)
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("structure-cli: decode params: %w", err)
	}
	return params, nil
}

// newOrchestrator wires the one executor this repository ships, the same
// way cmd/worker does. See that binary's comment on FakeFactory.
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
