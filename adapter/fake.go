package adapter

import "context"

// FakeLLM is a test double for LLM: it returns Response for every call
// unless Err is set, and records every request it saw.
type FakeLLM struct {
	Response CompletionResponse
	Err      error
	Calls    []CompletionRequest
}

func (f *FakeLLM) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	f.Calls = append(f.Calls, req)
	if f.Err != nil {
		return CompletionResponse{}, f.Err
	}
	return f.Response, nil
}

// FakeX2Text is a test double for X2Text.
type FakeX2Text struct {
	Response X2TextResponse
	Err      error
}

func (f *FakeX2Text) Extract(context.Context, X2TextRequest) (X2TextResponse, error) {
	if f.Err != nil {
		return X2TextResponse{}, f.Err
	}
	return f.Response, nil
}

// FakeVectorDB is a test double for VectorDB that tracks open/close state so
// tests can assert the "no open resources" invariant (spec.md §8.1).
type FakeVectorDB struct {
	Indexed map[string]bool
	Chunks  []string
	Closed  bool
}

func NewFakeVectorDB() *FakeVectorDB {
	return &FakeVectorDB{Indexed: map[string]bool{}}
}

func (f *FakeVectorDB) IsDocumentIndexed(_ context.Context, docID string) (bool, error) {
	return f.Indexed[docID], nil
}

func (f *FakeVectorDB) PerformIndexing(_ context.Context, docID string, _ string, alreadyIndexed bool, reindex bool) error {
	if alreadyIndexed && !reindex {
		return nil
	}
	f.Indexed[docID] = true
	return nil
}

func (f *FakeVectorDB) Search(_ context.Context, _ string, _ string, topK int) ([]string, error) {
	if topK <= 0 || topK > len(f.Chunks) {
		return f.Chunks, nil
	}
	return f.Chunks[:topK], nil
}

func (f *FakeVectorDB) Close(context.Context) error {
	f.Closed = true
	return nil
}

// FakeFactory is a test double for Factory returning fixed fakes.
type FakeFactory struct {
	X2TextImpl    X2Text
	LLMImpl       LLM
	EmbeddingImpl Embedding
	VectorDBImpl  VectorDB
}

func (f *FakeFactory) X2Text(context.Context, string) (X2Text, error) { return f.X2TextImpl, nil }
func (f *FakeFactory) LLM(context.Context, string, UsageReason) (LLM, error) {
	return f.LLMImpl, nil
}
func (f *FakeFactory) Embedding(context.Context, string) (Embedding, error) {
	return f.EmbeddingImpl, nil
}
func (f *FakeFactory) VectorDB(context.Context, string, Embedding) (VectorDB, error) {
	return f.VectorDBImpl, nil
}
