package pipeline

import (
	"context"
	"time"

	"github.com/veridoc/pipeline/execdata"
	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/platform"
)

// ensureExtracted implements spec.md §4.8.1 step 6: extract is dispatched at
// most once per file, the result cached in the EXTRACT file.
func (d *Driver) ensureExtracted(ctx context.Context, store *execdata.Store, task Task, toolSettings map[string]any) (string, error) {
	if cached, ok, err := store.ReadExtract(); err != nil {
		return "", err
	} else if ok {
		return cached, nil
	}

	ectx, err := execution.NewExecutionContext("legacy", execution.OperationExtract.String(), task.FileExecutionID, task.Source, task.OrganizationID, map[string]any{
		"x2text_instance_id": stringField(toolSettings, "x2text_adapter"),
		"file_path":          task.InputFilePath,
		"platform_api_key":   task.PlatformServiceAPIKey,
		"enable_highlight":   task.ToolInstanceMetadata.EnableHighlight,
		"execution_data_dir": task.ExecutionDataDir,
	}, "")
	if err != nil {
		return "", err
	}

	result, err := d.dispatcher.Dispatch(ctx, ectx, 0)
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", &Error{Message: result.Error}
	}

	text, _ := result.Data["extracted_text"].(string)
	if err := store.WriteExtract(text); err != nil {
		return "", err
	}
	return text, nil
}

// ensureSummarized implements spec.md §4.8.1 step 7.
func (d *Driver) ensureSummarized(ctx context.Context, store *execdata.Store, task Task, extractedText string, outputs []map[string]any) (string, error) {
	if cached, ok, err := store.ReadSummarize(); err != nil {
		return "", err
	} else if ok {
		return cached, nil
	}

	ectx, err := execution.NewExecutionContext("legacy", execution.OperationSummarize.String(), task.FileExecutionID, task.Source, task.OrganizationID, map[string]any{
		"llm_adapter_instance_id": stringField(task.ExecMetadata, "summarize_llm_adapter_instance_id"),
		"summarize_prompt":        stringField(task.ExecMetadata, "summarize_prompt"),
		"context":                 extractedText,
		"prompt_keys":             promptNames(outputs),
		"platform_api_key":        task.PlatformServiceAPIKey,
	}, "")
	if err != nil {
		return "", err
	}

	result, err := d.dispatcher.Dispatch(ctx, ectx, 0)
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", &Error{Message: result.Error}
	}

	summary, _ := result.Data["data"].(string)
	if err := store.WriteSummarize(summary); err != nil {
		return "", err
	}
	return summary, nil
}

// indexTuple is the dedup key for the indexing pass (spec.md §4.8.1 step
// 8): two prompts sharing all five fields index the same document once.
type indexTuple struct {
	chunkSize    int
	chunkOverlap int
	vectorDB     string
	embedding    string
	x2text       string
}

func tupleOf(output map[string]any) indexTuple {
	return indexTuple{
		chunkSize:    intField(output, "chunk_size"),
		chunkOverlap: intField(output, "chunk_overlap"),
		vectorDB:     stringField(output, "vector_db"),
		embedding:    stringField(output, "embedding"),
		x2text:       stringField(output, "x2text_adapter"),
	}
}

// runIndexing implements spec.md §4.8.1 step 8.
func (d *Driver) runIndexing(ctx context.Context, task Task, outputs []map[string]any) (map[string]any, error) {
	seen := map[indexTuple]float64{}
	metrics := map[string]any{}

	for _, output := range outputs {
		t := tupleOf(output)
		if t.chunkSize <= 0 {
			continue
		}
		name := stringField(output, "name")

		elapsed, ok := seen[t]
		if !ok {
			start := time.Now()
			ectx, err := execution.NewExecutionContext("legacy", execution.OperationIndex.String(), task.FileExecutionID, task.Source, task.OrganizationID, map[string]any{
				"embedding_instance_id": t.embedding,
				"vector_db_instance_id": t.vectorDB,
				"x2text_instance_id":    t.x2text,
				"file_path":             task.InputFilePath,
				"chunk_size":            t.chunkSize,
				"chunk_overlap":         t.chunkOverlap,
			}, "")
			if err != nil {
				return nil, err
			}
			result, err := d.dispatcher.Dispatch(ctx, ectx, 0)
			if err != nil {
				return nil, err
			}
			if !result.Success {
				return nil, &Error{Message: result.Error}
			}
			elapsed = time.Since(start).Seconds()
			seen[t] = elapsed
		}

		if name != "" {
			metrics[name] = map[string]any{"indexing": map[string]any{"time_taken_s": elapsed}}
		}
	}
	return metrics, nil
}

// runAnswerPass implements spec.md §4.8.1 step 9.
func (d *Driver) runAnswerPass(ctx context.Context, task Task, toolMetadata platform.ToolMetadata, filePath, extractedText string) (platform.PromptToolResult, error) {
	outputs := toolMetadata.Outputs
	if !task.ToolInstanceMetadata.SinglePassExtractionMode {
		for _, output := range outputs {
			if _, ok := output["table_settings"]; ok {
				output["input_file"] = filePath
				output["is_directory_mode"] = true
			}
		}
	}

	op := execution.OperationAnswerPrompt
	if task.ToolInstanceMetadata.SinglePassExtractionMode {
		op = execution.OperationSinglePassExtraction
	}

	ectx, err := execution.NewExecutionContext("legacy", op.String(), task.FileExecutionID, task.Source, task.OrganizationID, map[string]any{
		"tool_settings":    toolMetadata.ToolSettings,
		"outputs":          toOutputsSlice(outputs),
		"file_path":        filePath,
		"extracted_text":   extractedText,
		"platform_api_key": task.PlatformServiceAPIKey,
	}, "")
	if err != nil {
		return platform.PromptToolResult{}, err
	}

	result, err := d.dispatcher.Dispatch(ctx, ectx, 0)
	if err != nil {
		return platform.PromptToolResult{}, err
	}
	if !result.Success {
		return platform.PromptToolResult{}, &Error{Message: result.Error}
	}

	out, _ := result.Data["output"].(map[string]any)
	meta, _ := result.Data["metadata"].(map[string]any)
	metrics, _ := result.Data["metrics"].(map[string]any)
	return platform.PromptToolResult{Output: out, Metadata: meta, Metrics: metrics}, nil
}

func toOutputsSlice(outputs []map[string]any) []any {
	s := make([]any, len(outputs))
	for i, o := range outputs {
		s[i] = o
	}
	return s
}

func promptNames(outputs []map[string]any) []string {
	names := make([]string, 0, len(outputs))
	for _, o := range outputs {
		if name := stringField(o, "name"); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
