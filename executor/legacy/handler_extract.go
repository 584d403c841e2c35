package legacy

import (
	"context"
	"os"

	"github.com/veridoc/pipeline/adapter"
	"github.com/veridoc/pipeline/execution"
)

// whispererAdapters names the x2text adapter instances that support
// highlight extraction (spec.md §4.5.1 step 5). Membership, not prefix
// matching, since adapter instance ids are opaque to this core.
var whispererAdapters = map[string]struct{}{
	"whisperer":     {},
	"whisperer-v2":  {},
	"llm-whisperer": {},
}

func isWhispererAdapter(instanceID string) bool {
	_, ok := whispererAdapters[instanceID]
	return ok
}

// handleExtract implements spec.md §4.5.1.
func (e *Executor) handleExtract(req execution.ExecutionContext) execution.ExecutionResult {
	params := req.ExecutorParams

	x2textID, err := requireString(params, "x2text_instance_id")
	if err != nil {
		return execution.FailureFromError(err)
	}
	filePath, err := requireString(params, "file_path")
	if err != nil {
		return execution.FailureFromError(err)
	}
	apiKey, err := requireString(params, "platform_api_key")
	if err != nil {
		return execution.FailureFromError(err)
	}

	sh := e.newShim(req, apiKey)
	ctx := context.Background()

	x2text, err := e.factory.X2Text(ctx, x2textID)
	if err != nil {
		_ = sh.StreamErrorAndExit(ctx, "failed to construct x2text adapter", err)
		return execution.FailureFromError(execution.Wrap(execution.KindAdapter, "extract: adapter construction failed", err))
	}

	enableHighlight := optionalBool(params, "enable_highlight") && isWhispererAdapter(x2textID)

	resp, err := x2text.Extract(ctx, adapter.X2TextRequest{
		FilePath:        filePath,
		OutputFilePath:  optionalString(params, "output_file_path"),
		EnableHighlight: enableHighlight,
		RunID:           req.RunID,
	})
	if err != nil {
		_ = sh.StreamErrorAndExit(ctx, "extraction failed", err)
		return execution.FailureFromError(execution.Wrap(execution.KindAdapter, "extract: extraction failed", err))
	}

	if enableHighlight && resp.WhisperHash != "" && req.Source == execution.ExecutionSourceTool {
		if execDataDir := optionalString(params, "execution_data_dir"); execDataDir != "" {
			if err := persistWhisperHash(execDataDir, resp.WhisperHash); err != nil {
				sh.StreamLog(ctx, "failed to persist whisper hash: "+err.Error(), "WARN", "extract")
			}
		}
	}

	return execution.Success(map[string]any{"extracted_text": resp.ExtractedText}, nil)
}

// persistWhisperHash merges whisper_hash into METADATA.json at dir without
// disturbing any other key already present there (spec.md §4.8.2: an
// existing METADATA.json's contents always win over a handler's additions
// for any key the handler does not own).
func persistWhisperHash(dir, whisperHash string) error {
	path := dir + string(os.PathSeparator) + "METADATA.json"
	doc, err := readMetadataJSON(path)
	if err != nil {
		return err
	}
	doc["whisper_hash"] = whisperHash
	return writeMetadataJSON(path, doc)
}
