package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc/pipeline/adapter"
)

func TestRunRetrieval_Simple(t *testing.T) {
	vdb := adapter.NewFakeVectorDB()
	vdb.Chunks = []string{"chunk-a", "chunk-b"}
	metrics := map[string]Metrics{}

	svc := New()
	chunks, err := svc.RunRetrieval(context.Background(), "revenue", "what is it", "doc-1", nil, vdb, StrategySimple, 5, metrics)
	require.NoError(t, err)
	assert.Equal(t, []string{"chunk-a", "chunk-b"}, chunks)
	assert.Equal(t, "simple", metrics["revenue"].Strategy)
	assert.Equal(t, 2, metrics["revenue"].ChunkCount)
}

func TestRunRetrieval_UnknownStrategyReturnsNoChunks(t *testing.T) {
	vdb := adapter.NewFakeVectorDB()
	svc := New()
	chunks, err := svc.RunRetrieval(context.Background(), "x", "q", "doc-1", nil, vdb, Strategy("bogus"), 5, nil)
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestRunRetrieval_Subquestion(t *testing.T) {
	vdb := adapter.NewFakeVectorDB()
	vdb.Chunks = []string{"shared-chunk"}
	llm := &adapter.FakeLLM{Response: adapter.CompletionResponse{Text: "sub question one\nsub question two"}}
	svc := New()
	chunks, err := svc.RunRetrieval(context.Background(), "x", "complex question", "doc-1", llm, vdb, StrategySubquestion, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"shared-chunk"}, chunks, "duplicate chunks across sub-questions must be deduplicated")
}

func TestRetrieveCompleteContext_ReturnsWholeTextAsOneChunk(t *testing.T) {
	metrics := map[string]Metrics{}
	svc := New()
	chunks := svc.RetrieveCompleteContext("revenue", "Revenue is $1M", metrics)
	assert.Equal(t, []string{"Revenue is $1M"}, chunks)
	assert.Equal(t, "full_context", metrics["revenue"].Strategy)
}
