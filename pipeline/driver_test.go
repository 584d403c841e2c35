package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/platform"
)

type fakeDispatcher struct {
	results map[execution.Operation]execution.ExecutionResult
	calls   []execution.ExecutionContext
}

func (f *fakeDispatcher) Dispatch(_ context.Context, task execution.ExecutionContext, _ time.Duration) (execution.ExecutionResult, error) {
	f.calls = append(f.calls, task)
	result, ok := f.results[task.Operation]
	if !ok {
		return execution.Failure("no fake result configured for " + task.Operation.String()), nil
	}
	return result, nil
}

type fakeHelper struct {
	tool    platform.ExportedTool
	found   bool
	profile platform.LLMProfile
}

func (f *fakeHelper) GetPromptStudioTool(context.Context, string) (platform.ExportedTool, bool, error) {
	return f.tool, f.found, nil
}
func (f *fakeHelper) GetAgenticStudioTool(context.Context, string) (platform.ExportedTool, bool, error) {
	return platform.ExportedTool{}, false, nil
}
func (f *fakeHelper) GetLLMProfile(context.Context, string) (platform.LLMProfile, error) {
	return f.profile, nil
}
func (f *fakeHelper) GetAdapterConfig(context.Context, string) (platform.AdapterConfig, error) {
	return platform.AdapterConfig{}, nil
}

func baseTask(t *testing.T) (Task, string, string) {
	t.Helper()
	dataDir := t.TempDir()
	outDir := t.TempDir()
	return Task{
		FileExecutionID:       "file-exec-1",
		ExecutionID:           "exec-1",
		PlatformServiceAPIKey: "key",
		InputFilePath:         "/tmp/invoice.pdf",
		OutputDirPath:         outDir,
		SourceFileName:        "invoice.pdf",
		ExecutionDataDir:      dataDir,
		Source:                execution.ExecutionSourceAPI,
		ToolInstanceMetadata: ToolInstanceMetadata{
			PromptRegistryID: "registry-1",
		},
	}, dataDir, outDir
}

func TestDriver_HappyPathWritesArtifact(t *testing.T) {
	task, _, outDir := baseTask(t)

	dispatcher := &fakeDispatcher{results: map[execution.Operation]execution.ExecutionResult{
		execution.OperationExtract: execution.Success(map[string]any{"extracted_text": "Acme Corp invoice"}, nil),
		execution.OperationAnswerPrompt: execution.Success(map[string]any{
			"output":   map[string]any{"company_name": "Acme Corp"},
			"metadata": map[string]any{},
			"metrics":  map[string]any{},
		}, nil),
	}}
	helper := &fakeHelper{found: true, tool: platform.ExportedTool{
		ToolMetadata: platform.ToolMetadata{
			ToolSettings: map[string]any{"x2text_adapter": "x2t-1"},
			Outputs: []map[string]any{
				{"name": "company_name", "prompt": "What is the company?", "type": "text", "chunk_size": 0.0},
			},
		},
	}}

	d := New(dispatcher, helper, nil, nil, nil)
	final, err := d.Run(context.Background(), task)
	require.NoError(t, err)

	output := final["output"].(map[string]any)
	assert.Equal(t, "Acme Corp", output["company_name"])
	assert.Equal(t, "invoice.pdf", final["metadata"].(map[string]any)["file_name"])

	artifactPath := filepath.Join(outDir, "invoice.json")
	data, err := os.ReadFile(artifactPath)
	require.NoError(t, err)
	var onDisk map[string]any
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, "Acme Corp", onDisk["output"].(map[string]any)["company_name"])
}

func TestDriver_ExtractCachedOnSecondRun(t *testing.T) {
	task, dataDir, _ := baseTask(t)
	_ = dataDir

	dispatcher := &fakeDispatcher{results: map[execution.Operation]execution.ExecutionResult{
		execution.OperationExtract: execution.Success(map[string]any{"extracted_text": "cached text"}, nil),
		execution.OperationAnswerPrompt: execution.Success(map[string]any{
			"output": map[string]any{}, "metadata": map[string]any{}, "metrics": map[string]any{},
		}, nil),
	}}
	helper := &fakeHelper{found: true, tool: platform.ExportedTool{
		ToolMetadata: platform.ToolMetadata{ToolSettings: map[string]any{}, Outputs: nil},
	}}
	d := New(dispatcher, helper, nil, nil, nil)

	_, err := d.Run(context.Background(), task)
	require.NoError(t, err)
	_, err = d.Run(context.Background(), task)
	require.NoError(t, err)

	extractCalls := 0
	for _, c := range dispatcher.calls {
		if c.Operation == execution.OperationExtract {
			extractCalls++
		}
	}
	assert.Equal(t, 1, extractCalls, "extract must be dispatched at most once per file")
}

func TestDriver_ProjectNotFoundFails(t *testing.T) {
	task, _, _ := baseTask(t)
	dispatcher := &fakeDispatcher{results: map[execution.Operation]execution.ExecutionResult{}}
	helper := &fakeHelper{found: false}
	d := New(dispatcher, helper, nil, nil, nil)

	_, err := d.Run(context.Background(), task)
	require.Error(t, err)
}

func TestDriver_DispatchFailurePropagatesVerbatim(t *testing.T) {
	task, _, _ := baseTask(t)
	dispatcher := &fakeDispatcher{results: map[execution.Operation]execution.ExecutionResult{
		execution.OperationExtract: execution.Failure("x2text adapter unavailable"),
	}}
	helper := &fakeHelper{found: true, tool: platform.ExportedTool{
		ToolMetadata: platform.ToolMetadata{ToolSettings: map[string]any{}, Outputs: nil},
	}}
	d := New(dispatcher, helper, nil, nil, nil)

	_, err := d.Run(context.Background(), task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x2text adapter unavailable")
}

func TestDriver_IndexingDedupesSharedTuple(t *testing.T) {
	task, _, _ := baseTask(t)
	task.ToolInstanceMetadata.SummarizeAsSource = false

	dispatcher := &fakeDispatcher{results: map[execution.Operation]execution.ExecutionResult{
		execution.OperationExtract: execution.Success(map[string]any{"extracted_text": "text"}, nil),
		execution.OperationIndex:   execution.Success(map[string]any{"doc_id": "doc-1"}, nil),
		execution.OperationAnswerPrompt: execution.Success(map[string]any{
			"output": map[string]any{}, "metadata": map[string]any{}, "metrics": map[string]any{},
		}, nil),
	}}
	helper := &fakeHelper{found: true, tool: platform.ExportedTool{
		ToolMetadata: platform.ToolMetadata{
			ToolSettings: map[string]any{},
			Outputs: []map[string]any{
				{"name": "a", "chunk_size": 256.0, "chunk_overlap": 0.0, "vector_db": "v1", "embedding": "e1", "x2text_adapter": "x1"},
				{"name": "b", "chunk_size": 256.0, "chunk_overlap": 0.0, "vector_db": "v1", "embedding": "e1", "x2text_adapter": "x1"},
			},
		},
	}}
	d := New(dispatcher, helper, nil, nil, nil)

	_, err := d.Run(context.Background(), task)
	require.NoError(t, err)

	indexCalls := 0
	for _, c := range dispatcher.calls {
		if c.Operation == execution.OperationIndex {
			indexCalls++
		}
	}
	assert.Equal(t, 1, indexCalls, "identical index tuples must be deduplicated")
}
