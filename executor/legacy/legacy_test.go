package legacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc/pipeline/adapter"
	"github.com/veridoc/pipeline/execution"
)

func newReq(t *testing.T, op string, params map[string]any) execution.ExecutionContext {
	t.Helper()
	ctx, err := execution.NewExecutionContext("legacy", op, "run-1", execution.ExecutionSourceAPI, "", params, "")
	require.NoError(t, err)
	return ctx
}

func TestExecute_UnsupportedOperationIsFailure(t *testing.T) {
	e := New(&adapter.FakeFactory{}, nil, nil)
	req := newReq(t, "extract", map[string]any{})
	req.Operation = execution.Operation("not_a_real_operation")
	got := e.Execute(req)
	assert.False(t, got.Success)
}

func TestHandleExtract_MissingParamsIsFailure(t *testing.T) {
	e := New(&adapter.FakeFactory{}, nil, nil)
	got := e.Execute(newReq(t, "extract", map[string]any{}))
	assert.False(t, got.Success)
}

func TestHandleExtract_Success(t *testing.T) {
	factory := &adapter.FakeFactory{X2TextImpl: &adapter.FakeX2Text{Response: adapter.X2TextResponse{ExtractedText: "hello world"}}}
	e := New(factory, nil, nil)
	got := e.Execute(newReq(t, "extract", map[string]any{
		"x2text_instance_id": "adapter-1",
		"file_path":           "/tmp/does-not-exist.pdf",
		"platform_api_key":    "key-123",
	}))
	require.True(t, got.Success)
	assert.Equal(t, "hello world", got.Data["extracted_text"])
}

func TestHandleIndex_ChunkSizeZeroBypassesVectorDB(t *testing.T) {
	vdb := adapter.NewFakeVectorDB()
	factory := &adapter.FakeFactory{VectorDBImpl: vdb}
	e := New(factory, nil, nil)
	got := e.Execute(newReq(t, "index", map[string]any{
		"embedding_instance_id":  "emb-1",
		"vector_db_instance_id":  "vdb-1",
		"x2text_instance_id":     "x2t-1",
		"file_path":              "/tmp/does-not-exist.pdf",
		"chunk_size":             0,
	}))
	require.True(t, got.Success)
	assert.NotEmpty(t, got.Data["doc_id"])
	assert.False(t, vdb.Closed, "vector db must never be constructed when chunk_size=0")
}

func TestHandleIndex_ClosesVectorDBOnSuccess(t *testing.T) {
	vdb := adapter.NewFakeVectorDB()
	factory := &adapter.FakeFactory{VectorDBImpl: vdb}
	e := New(factory, nil, nil)
	got := e.Execute(newReq(t, "index", map[string]any{
		"embedding_instance_id": "emb-1",
		"vector_db_instance_id": "vdb-1",
		"x2text_instance_id":    "x2t-1",
		"file_path":             "/tmp/does-not-exist.pdf",
		"chunk_size":            256,
		"extracted_text":        "hello",
	}))
	require.True(t, got.Success)
	assert.True(t, vdb.Closed)
}

func TestHandleSummarize_Success(t *testing.T) {
	llm := &adapter.FakeLLM{Response: adapter.CompletionResponse{Text: "a short summary"}}
	factory := &adapter.FakeFactory{LLMImpl: llm}
	e := New(factory, nil, nil)
	got := e.Execute(newReq(t, "summarize", map[string]any{
		"llm_adapter_instance_id": "llm-1",
		"summarize_prompt":        "Summarize this",
		"context":                 "a long document",
	}))
	require.True(t, got.Success)
	assert.Equal(t, "a short summary", got.Data["data"])
}

func TestHandleSummarize_MissingContextIsFailure(t *testing.T) {
	e := New(&adapter.FakeFactory{}, nil, nil)
	got := e.Execute(newReq(t, "summarize", map[string]any{
		"llm_adapter_instance_id": "llm-1",
		"summarize_prompt":        "Summarize this",
	}))
	assert.False(t, got.Success)
}

func TestHandleAgenticExtraction_AlwaysFails(t *testing.T) {
	e := New(&adapter.FakeFactory{}, nil, nil)
	got := e.Execute(newReq(t, "agentic_extraction", map[string]any{}))
	require.False(t, got.Success)
	assert.Contains(t, got.Error, "agentic plugin")
}

func TestHandleAnswerPrompt_TextPromptFullContext(t *testing.T) {
	llm := &adapter.FakeLLM{Response: adapter.CompletionResponse{Text: "Acme Corp"}}
	factory := &adapter.FakeFactory{LLMImpl: llm}
	e := New(factory, nil, nil)
	got := e.Execute(newReq(t, "answer_prompt", map[string]any{
		"extracted_text": "Acme Corp is a company.",
		"outputs": []any{
			map[string]any{
				"name":               "company_name",
				"prompt":             "What is the company name?",
				"type":               "text",
				"chunk_size":         0,
				"llm":                "llm-1",
				"retrieval_strategy": "simple",
				"similarity_top_k":   3,
			},
		},
	}))
	require.True(t, got.Success)
	output := got.Data["output"].(map[string]any)
	assert.Equal(t, "Acme Corp", output["company_name"])
}

func TestHandleAnswerPrompt_UnrecognizedStrategyYieldsNAWithoutLLMCall(t *testing.T) {
	llm := &adapter.FakeLLM{Response: adapter.CompletionResponse{Text: "should not be used"}}
	factory := &adapter.FakeFactory{LLMImpl: llm}
	e := New(factory, nil, nil)
	got := e.Execute(newReq(t, "answer_prompt", map[string]any{
		"extracted_text": "some text",
		"outputs": []any{
			map[string]any{
				"name":               "revenue",
				"prompt":             "What is the revenue?",
				"type":               "number",
				"chunk_size":         0,
				"llm":                "llm-1",
				"retrieval_strategy": "unknown_strategy",
			},
		},
	}))
	require.True(t, got.Success)
	output := got.Data["output"].(map[string]any)
	assert.Nil(t, output["revenue"], "NA must sanitize to null")
	assert.Empty(t, llm.Calls, "no LLM call should be made for an unrecognized retrieval strategy")
}

func TestHandleAnswerPrompt_TableTypeIsPluginMissingFailure(t *testing.T) {
	e := New(&adapter.FakeFactory{}, nil, nil)
	got := e.Execute(newReq(t, "answer_prompt", map[string]any{
		"extracted_text": "x",
		"outputs": []any{
			map[string]any{"name": "t", "prompt": "p", "type": "table"},
		},
	}))
	require.False(t, got.Success)
	assert.Contains(t, got.Error, "plugin")
}

func TestHandleAnswerPrompt_BackReferenceBetweenPrompts(t *testing.T) {
	llm := &adapter.FakeLLM{Response: adapter.CompletionResponse{Text: "42"}}
	factory := &adapter.FakeFactory{LLMImpl: llm}
	e := New(factory, nil, nil)
	got := e.Execute(newReq(t, "single_pass_extraction", map[string]any{
		"extracted_text": "x",
		"outputs": []any{
			map[string]any{"name": "first", "prompt": "first question", "type": "text", "retrieval_strategy": "simple"},
			map[string]any{"name": "second", "prompt": "given %first%, what next?", "type": "text", "retrieval_strategy": "simple"},
		},
	}))
	require.True(t, got.Success)
	assert.Len(t, llm.Calls, 2)
	assert.Contains(t, llm.Calls[1].Prompt, "42")
}
