package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/veridoc/pipeline/execdata"
	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/executor/legacy/shim"
	"github.com/veridoc/pipeline/platform"
	"github.com/veridoc/pipeline/telemetry"
)

// Dispatcher is the subset of execution/dispatcher.Dispatcher the driver
// depends on. Declaring it locally keeps pipeline decoupled from the
// taskbackend wiring; any dispatcher satisfying this shape works, including
// the orchestrator wrapped to the same signature for in-process runs.
type Dispatcher interface {
	Dispatch(ctx context.Context, task execution.ExecutionContext, timeout time.Duration) (execution.ExecutionResult, error)
}

// Error is the driver's typed failure envelope (spec.md §7: "the
// structure-tool driver short-circuits on the first dispatch failure,
// re-raising to the task layer").
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// Driver runs one file through the structure-tool pipeline.
type Driver struct {
	dispatcher Dispatcher
	helper     platform.Helper
	notifier   platform.Notifier
	logger     telemetry.Logger
	publisher  telemetry.Publisher
}

// New constructs a Driver. notifier, logger, and publisher default to
// no-ops when nil.
func New(dispatcher Dispatcher, helper platform.Helper, notifier platform.Notifier, logger telemetry.Logger, publisher telemetry.Publisher) *Driver {
	if notifier == nil {
		notifier = platform.NoopNotifier{}
	}
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if publisher == nil {
		publisher = telemetry.NewNoopPublisher()
	}
	return &Driver{dispatcher: dispatcher, helper: helper, notifier: notifier, logger: logger, publisher: publisher}
}

// Run executes the full pipeline for one file (spec.md §4.8.1) and returns
// the final output artifact document.
func (d *Driver) Run(ctx context.Context, task Task) (map[string]any, error) {
	store := execdata.New(task.ExecutionDataDir)
	sh := shim.New(shim.Metadata{
		PlatformAPIKey:  task.PlatformServiceAPIKey,
		FileExecutionID: task.FileExecutionID,
		ExecutionID:     task.ExecutionID,
		SourceFileName:  task.SourceFileName,
		ExecMetadata:    task.ExecMetadata,
	}, d.logger, d.publisher, task.MessagingChannel)

	// Step 1: resolve the prompt-studio project.
	tool, err := d.resolveTool(ctx, task.ToolInstanceMetadata.PromptRegistryID)
	if err != nil {
		return nil, sh.StreamErrorAndExit(ctx, "failed to resolve prompt-studio project", err)
	}

	// Step 2: LLM-profile overrides.
	if profileID, ok := task.ExecMetadata["llm_profile_id"].(string); ok && profileID != "" {
		profile, err := d.helper.GetLLMProfile(ctx, profileID)
		if err != nil {
			return nil, sh.StreamErrorAndExit(ctx, "failed to resolve llm profile", err)
		}
		applyLLMProfile(tool.ToolMetadata.ToolSettings, profile)
		for _, output := range tool.ToolMetadata.Outputs {
			applyLLMProfile(output, profile)
		}
	}

	// Step 3: merge tool-instance feature flags into tool_settings.
	mergeFeatureFlags(tool.ToolMetadata.ToolSettings, task.ToolInstanceMetadata)

	// Step 4: streaming logs for the UI.
	sh.StreamUpdate(ctx, fmt.Sprintf("loaded project with %d active prompts", len(tool.ToolMetadata.Outputs)), telemetry.StateInputUpdate)
	sh.StreamUpdate(ctx, "processing "+task.SourceFileName, telemetry.StateOutputUpdate)

	// Step 5: smart-table shortcut.
	skipExtractionAndIndexing := anySmartTableOutput(tool.ToolMetadata.Outputs)

	extractedText := ""
	if !skipExtractionAndIndexing {
		extractedText, err = d.ensureExtracted(ctx, store, task, tool.ToolMetadata.ToolSettings)
		if err != nil {
			return nil, sh.StreamErrorAndExit(ctx, "extraction failed", err)
		}
	}

	// Step 7: summarization branch.
	filePathForAnswer := task.InputFilePath
	skipIndexing := skipExtractionAndIndexing
	if task.ToolInstanceMetadata.SummarizeAsSource {
		summary, err := d.ensureSummarized(ctx, store, task, extractedText, tool.ToolMetadata.Outputs)
		if err != nil {
			return nil, sh.StreamErrorAndExit(ctx, "summarization failed", err)
		}
		extractedText = summary
		filePathForAnswer = task.ExecutionDataDir + "/SUMMARIZE"
		skipIndexing = true
	}

	// Step 8: indexing pass.
	indexMetrics := map[string]any{}
	if !skipIndexing {
		indexMetrics, err = d.runIndexing(ctx, task, tool.ToolMetadata.Outputs)
		if err != nil {
			return nil, sh.StreamErrorAndExit(ctx, "indexing failed", err)
		}
	}

	// Step 9: answer pass.
	answer, err := d.runAnswerPass(ctx, task, tool.ToolMetadata, filePathForAnswer, extractedText)
	if err != nil {
		return nil, sh.StreamErrorAndExit(ctx, "answer pass failed", err)
	}

	// Step 10: post-processing.
	if answer.Metadata == nil {
		answer.Metadata = map[string]any{}
	}
	answer.Metadata["file_name"] = task.SourceFileName
	answer.Metadata["extracted_text"] = extractedText
	metrics := answer.Metrics
	if metrics == nil {
		metrics = map[string]any{}
	}
	for k, v := range indexMetrics {
		metrics[k] = v
	}

	final := map[string]any{
		"output":   answer.Output,
		"metadata": answer.Metadata,
		"metrics":  metrics,
	}

	// Step 11: output artifact.
	if err := store.WriteOutputArtifact(task.OutputDirPath, task.SourceFileName, final); err != nil {
		return nil, sh.StreamErrorAndExit(ctx, "failed to write output artifact", err)
	}

	sh.StreamUpdate(ctx, "completed "+task.SourceFileName, telemetry.StateSuccess)
	return final, nil
}

func (d *Driver) resolveTool(ctx context.Context, promptRegistryID string) (platform.ExportedTool, error) {
	tool, found, err := d.helper.GetPromptStudioTool(ctx, promptRegistryID)
	if err != nil {
		return platform.ExportedTool{}, err
	}
	if found {
		return tool, nil
	}
	tool, found, err = d.helper.GetAgenticStudioTool(ctx, promptRegistryID)
	if err != nil {
		return platform.ExportedTool{}, err
	}
	if !found {
		return platform.ExportedTool{}, &Error{Message: "no prompt-studio or agentic-studio project found for " + promptRegistryID}
	}
	tool.IsAgentic = true
	return tool, nil
}

func applyLLMProfile(target map[string]any, profile platform.LLMProfile) {
	if target == nil {
		return
	}
	if profile.ChunkSize > 0 {
		target["chunk_size"] = profile.ChunkSize
	}
	if profile.ChunkOverlap > 0 {
		target["chunk_overlap"] = profile.ChunkOverlap
	}
	if profile.EmbeddingModelID != "" {
		target["embedding"] = profile.EmbeddingModelID
	}
	if profile.LLMID != "" {
		target["llm"] = profile.LLMID
	}
	if profile.VectorStoreID != "" {
		target["vector_db"] = profile.VectorStoreID
	}
	if profile.X2TextID != "" {
		target["x2text_adapter"] = profile.X2TextID
	}
	if profile.SimilarityTopK > 0 {
		target["similarity_top_k"] = profile.SimilarityTopK
	}
	if profile.RetrievalStrategy != "" {
		target["retrieval_strategy"] = profile.RetrievalStrategy
	}
}

func mergeFeatureFlags(toolSettings map[string]any, meta ToolInstanceMetadata) {
	if toolSettings == nil {
		return
	}
	toolSettings["enable_challenge"] = meta.EnableChallenge
	toolSettings["challenge_llm"] = meta.ChallengeLLMAdapterID
	toolSettings["enable_single_pass_extraction"] = meta.SinglePassExtractionMode
	toolSettings["summarize_as_source"] = meta.SummarizeAsSource
	toolSettings["enable_highlight"] = meta.EnableHighlight
}

func anySmartTableOutput(outputs []map[string]any) bool {
	for _, output := range outputs {
		if _, ok := output["table_settings"]; !ok {
			continue
		}
		promptStr, ok := output["prompt"].(string)
		if !ok {
			continue
		}
		var probe map[string]any
		if json.Unmarshal([]byte(promptStr), &probe) == nil {
			return true
		}
	}
	return false
}
