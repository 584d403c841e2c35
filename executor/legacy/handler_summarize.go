package legacy

import (
	"context"
	"strings"

	"github.com/veridoc/pipeline/adapter"
	"github.com/veridoc/pipeline/execution"
)

// handleSummarize implements spec.md §4.5.5.
func (e *Executor) handleSummarize(req execution.ExecutionContext) execution.ExecutionResult {
	params := req.ExecutorParams

	llmID, err := requireString(params, "llm_adapter_instance_id")
	if err != nil {
		return execution.FailureFromError(err)
	}
	summarizePrompt, err := requireString(params, "summarize_prompt")
	if err != nil {
		return execution.FailureFromError(err)
	}
	docContext, err := requireString(params, "context")
	if err != nil {
		return execution.FailureFromError(err)
	}

	ctx := context.Background()
	llm, err := e.factory.LLM(ctx, llmID, adapter.UsageReasonSummarize)
	if err != nil {
		return execution.FailureFromError(execution.Wrap(execution.KindAdapter, "summarize: llm adapter construction failed", err))
	}

	keys := promptKeys(optionalSlice(params, "prompt_keys"))
	prompt := summarizePrompt + "\n\nFocus on these fields: " + keys + "\n\nContext:\n---\n" + docContext + "\n---\n\nSummary:"

	resp, err := llm.Complete(ctx, adapter.CompletionRequest{Prompt: prompt, UsageReason: adapter.UsageReasonSummarize, RunID: req.RunID})
	if err != nil {
		return execution.FailureFromError(execution.Wrap(execution.KindAdapter, "summarize: completion failed", err))
	}

	return execution.Success(map[string]any{"data": resp.Text}, nil)
}

func promptKeys(keys []any) string {
	if len(keys) == 0 {
		return "(none specified)"
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if s, ok := k.(string); ok {
			names = append(names, s)
		}
	}
	return strings.Join(names, ", ")
}

// handleAgenticExtraction implements spec.md §4.5.6: a declared, stable
// operation whose handler always reports the agentic plugin unavailable.
func (e *Executor) handleAgenticExtraction(req execution.ExecutionContext) execution.ExecutionResult {
	return execution.FailureFromError(NewLegacyExecutorErrorWithCode(
		"agentic extraction requires the agentic plugin, which is not yet available in this core",
		"plugin_missing",
	))
}
